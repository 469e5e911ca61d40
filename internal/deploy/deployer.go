package deploy

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/hotbuild/internal/config"
	hberrors "git.home.luguber.info/inful/hotbuild/internal/errors"
	"git.home.luguber.info/inful/hotbuild/internal/logfields"
	"git.home.luguber.info/inful/hotbuild/internal/manifest"
	"git.home.luguber.info/inful/hotbuild/internal/metrics"
	"git.home.luguber.info/inful/hotbuild/internal/resource"
)

// Deployer copies the compiled output tree wholesale into the host's live
// resources root, under the generated-content directory. UI-bearing resources
// get their deployed manifest extended with the UI asset glob and entry point
// so the host serves the page without manual manifest edits.
type Deployer struct {
	server   config.ServerConfig
	distDir  string
	recorder metrics.Recorder
	logger   *slog.Logger
}

// NewDeployer builds a deployer reading from distDir and writing into the
// resources root derived from server.
func NewDeployer(server config.ServerConfig, distDir string, logger *slog.Logger) *Deployer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Deployer{
		server:   server,
		distDir:  distDir,
		recorder: metrics.NewNoopRecorder(),
		logger:   logger,
	}
}

// WithRecorder attaches a metrics recorder.
func (d *Deployer) WithRecorder(recorder metrics.Recorder) *Deployer {
	if recorder != nil {
		d.recorder = recorder
	}
	return d
}

// Target returns the generated-content directory deployments land in, and
// whether the host is configured at all.
func (d *Deployer) Target() (string, bool) {
	resourcesDir, ok := d.server.ResolveResourcesDir()
	if !ok {
		return "", false
	}
	return filepath.Join(resourcesDir, resource.GeneratedDirName), true
}

// Deploy copies the dist tree into the generated-content directory,
// preserving hierarchy. A missing host configuration skips the deploy with a
// warning; that is a normal development setup, not an error.
func (d *Deployer) Deploy(ctx context.Context) error {
	target, ok := d.Target()
	if !ok {
		d.logger.Warn("deploy target not configured, skipping deployment")
		d.recorder.RecordDeploy(metrics.OutcomeSkipped, 0)
		return nil
	}

	if _, err := os.Stat(d.distDir); os.IsNotExist(err) {
		d.logger.Warn("dist directory missing, nothing to deploy",
			logfields.Path(d.distDir))
		d.recorder.RecordDeploy(metrics.OutcomeSkipped, 0)
		return nil
	}

	start := time.Now()
	copied, err := d.copyTree(ctx, d.distDir, target)
	if err != nil {
		d.recorder.RecordDeploy(metrics.OutcomeFailed, time.Since(start))
		return hberrors.DeployFailed(target, err)
	}

	if err := d.ensureUIManifests(target); err != nil {
		d.recorder.RecordDeploy(metrics.OutcomeFailed, time.Since(start))
		return hberrors.DeployFailed(target, err)
	}

	d.recorder.RecordDeploy(metrics.OutcomeSuccess, time.Since(start))
	d.logger.Info("deployed build output",
		logfields.Path(target),
		logfields.Count(copied),
		logfields.DurationMS(float64(time.Since(start).Milliseconds())))
	return nil
}

// copyTree mirrors src into dst and returns the number of files copied.
func (d *Deployer) copyTree(ctx context.Context, src, dst string) (int, error) {
	copied := 0
	err := filepath.WalkDir(src, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		targetPath := filepath.Join(dst, rel)

		if entry.IsDir() {
			return os.MkdirAll(targetPath, 0o755)
		}
		if err := copyFile(path, targetPath); err != nil {
			return err
		}
		copied++
		return nil
	})
	return copied, err
}

// ensureUIManifests walks the deployed tree and appends UI assets to the
// manifest of every resource that shipped a UI directory. Only the deployed
// copy is touched; source manifests stay as the author wrote them.
func (d *Deployer) ensureUIManifests(target string) error {
	return filepath.WalkDir(target, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() || !manifest.ExistsIn(path) {
			return nil
		}

		uiDir := filepath.Join(path, "ui")
		if info, statErr := os.Stat(uiDir); statErr != nil || !info.IsDir() {
			return fs.SkipDir
		}

		m, loadErr := manifest.Load(manifest.PathIn(path))
		if loadErr != nil {
			d.logger.Warn("deployed manifest unreadable, leaving as-is",
				logfields.Path(path), logfields.Error(loadErr))
			return fs.SkipDir
		}
		if m.EnsureUIAssets(manifest.UIAssetGlob, manifest.DefaultUIPage) {
			if saveErr := m.Save(manifest.PathIn(path)); saveErr != nil {
				return saveErr
			}
			d.logger.Debug("appended UI assets to deployed manifest",
				logfields.Path(path))
		}
		return fs.SkipDir
	})
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
