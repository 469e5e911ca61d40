package controlplane

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/hotbuild/internal/debounce"
	hberrors "git.home.luguber.info/inful/hotbuild/internal/errors"
	"git.home.luguber.info/inful/hotbuild/internal/logfields"
	"git.home.luguber.info/inful/hotbuild/internal/resource"
)

// restartExecTimeout bounds a single host restart triggered by artifact
// churn.
const restartExecTimeout = 30 * time.Second

// ArtifactWatcher is the receiving side of deployment. It watches the
// generated-content directory under the resources root; when the
// orchestrator copies fresh output in, the churn settles through the
// debounce scheduler and the touched resources are restarted locally.
type ArtifactWatcher struct {
	root      string
	dir       string
	host      Host
	resolver  *resource.Resolver
	scheduler *debounce.Scheduler
	watcher   *fsnotify.Watcher
	ignore    map[string]struct{}
	logger    *slog.Logger
	done      chan struct{}
}

// NewArtifactWatcher builds a watcher over <resourcesRoot>/[generated].
func NewArtifactWatcher(resourcesRoot string, host Host, scheduler *debounce.Scheduler, ignore []string, logger *slog.Logger) *ArtifactWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	ign := make(map[string]struct{}, len(ignore))
	for _, name := range ignore {
		ign[name] = struct{}{}
	}
	return &ArtifactWatcher{
		root:      resourcesRoot,
		dir:       filepath.Join(resourcesRoot, resource.GeneratedDirName),
		host:      host,
		resolver:  resource.NewResolver(logger),
		scheduler: scheduler,
		ignore:    ign,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Start creates the generated directory when missing, registers recursive
// watches, and runs the event loop until ctx is canceled or Stop is called.
func (a *ArtifactWatcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return hberrors.WatchSetupFailed(a.dir, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return hberrors.WatchSetupFailed(a.dir, err)
	}

	if err := a.addRecursive(watcher, a.dir); err != nil {
		_ = watcher.Close()
		return hberrors.WatchSetupFailed(a.dir, err)
	}

	// Assigned only once setup succeeded: Stop waits on the event loop, and
	// the loop only runs for a fully started watcher.
	a.watcher = watcher
	go a.loop(ctx)
	a.logger.Info("artifact watcher started", logfields.Path(a.dir))
	return nil
}

// Stop closes the watcher and waits for the event loop to drain.
func (a *ArtifactWatcher) Stop() {
	if a.watcher == nil {
		return
	}
	_ = a.watcher.Close()
	<-a.done
}

func (a *ArtifactWatcher) addRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir {
			if _, skip := a.ignore[d.Name()]; skip || strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
		}
		return watcher.Add(path)
	})
}

func (a *ArtifactWatcher) loop(ctx context.Context) {
	defer close(a.done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-a.watcher.Events:
			if !ok {
				return
			}
			a.handleEvent(event)
		case err, ok := <-a.watcher.Errors:
			if !ok {
				return
			}
			a.logger.Warn("artifact watcher error", logfields.Error(err))
		}
	}
}

func (a *ArtifactWatcher) handleEvent(event fsnotify.Event) {
	base := filepath.Base(event.Name)
	if _, skip := a.ignore[base]; skip || strings.HasPrefix(base, ".") {
		return
	}

	// New directories appear mid-copy; watch them so nested file events
	// arrive at all.
	if event.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := a.addRecursive(a.watcher, event.Name); err != nil {
				a.logger.Warn("failed to watch new artifact directory",
					logfields.Path(event.Name), logfields.Error(err))
			}
			return
		}
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
		return
	}

	name, ok := a.resolver.Resolve(a.root, event.Name)
	if !ok {
		return
	}
	if name == a.host.SelfName() {
		return
	}

	a.scheduler.Execute(debounce.GeneratedPrefix+name, func() {
		a.restart(name)
	})
}

// restart runs one local restart after the churn window settles. Failures
// are logged; the watcher itself must survive a broken restart command.
func (a *ArtifactWatcher) restart(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), restartExecTimeout)
	defer cancel()

	a.logger.Info("artifact change settled, restarting resource",
		logfields.Resource(name))
	if err := a.host.RestartResource(ctx, name); err != nil {
		a.logger.Warn("local restart failed",
			logfields.Resource(name), logfields.Error(err))
	}
}
