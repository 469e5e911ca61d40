package build

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/hotbuild/internal/compiler"
	"git.home.luguber.info/inful/hotbuild/internal/config"
	"git.home.luguber.info/inful/hotbuild/internal/deploy"
	hberrors "git.home.luguber.info/inful/hotbuild/internal/errors"
	"git.home.luguber.info/inful/hotbuild/internal/incremental"
	"git.home.luguber.info/inful/hotbuild/internal/logfields"
	"git.home.luguber.info/inful/hotbuild/internal/manifest"
	"git.home.luguber.info/inful/hotbuild/internal/metrics"
	"git.home.luguber.info/inful/hotbuild/internal/pipeline"
	"git.home.luguber.info/inful/hotbuild/internal/plugin"
)

// Subtrees of the dist directory. Deploy copies dist wholesale, so the same
// names appear under the host's generated-content directory.
const (
	DistPluginsDir = "plugins"
	DistCoreDir    = "core"
)

// Stage names, also the diagnostic tag on a failed run.
const (
	StageCleanDist      = "clean-dist"
	StageCompilePlugin  = "compile-plugin"
	StageCompileCore    = "compile-core"
	StageCompilePlugins = "compile-plugins"
	StageCompileUIPage  = "compile-ui-page"
	StageCompileUIPages = "compile-ui-pages"
	StageFixLayout      = "fix-layout"
	StageDeploy         = "deploy"
)

// Service owns the build stages and assembles trigger-specific pipelines.
type Service struct {
	scanner      *plugin.Scanner
	compiler     compiler.Compiler
	pageCompiler compiler.PageCompiler
	deployer     *deploy.Deployer
	tracker      *incremental.Tracker
	incremental  bool
	concurrency  int
	ignore       []string
	recorder     metrics.Recorder
	logger       *slog.Logger
}

// NewService wires the stages from configuration.
func NewService(cfg *config.Config, deployer *deploy.Deployer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	c, p := compiler.ForConfig(cfg.Build.ScriptCommand, cfg.Build.PageCommand)
	concurrency := cfg.Build.Concurrency
	if concurrency <= 0 {
		concurrency = config.DefaultConcurrency
	}
	return &Service{
		scanner:      plugin.NewScanner(cfg.Watch.Ignore, logger),
		compiler:     c,
		pageCompiler: p,
		deployer:     deployer,
		tracker:      incremental.NewTracker(),
		incremental:  cfg.Build.Incremental,
		concurrency:  concurrency,
		ignore:       append(append([]string{}, cfg.Watch.Ignore...), "dist"),
		recorder:     metrics.NewNoopRecorder(),
		logger:       logger,
	}
}

// WithRecorder attaches a metrics recorder.
func (s *Service) WithRecorder(recorder metrics.Recorder) *Service {
	if recorder != nil {
		s.recorder = recorder
	}
	return s
}

// Scanner exposes the plugin scanner for callers that list plugins without
// building (status page, catalog).
func (s *Service) Scanner() *plugin.Scanner {
	return s.scanner
}

// Run assembles the pipeline for bc's trigger and executes it, recording the
// build outcome.
func (s *Service) Run(ctx context.Context, bc *Context) error {
	pl, err := s.PipelineFor(bc)
	if err != nil {
		return err
	}

	start := time.Now()
	runErr := pl.Run(ctx, bc)
	s.recorder.RecordBuild(string(bc.Trigger), metrics.OutcomeFor(runErr), time.Since(start))
	return runErr
}

// PipelineFor builds the stage list for bc's trigger. TriggerPlugin requires
// bc.Plugin to be set.
func (s *Service) PipelineFor(bc *Context) (*pipeline.Pipeline[*Context], error) {
	pl := pipeline.New[*Context](string(bc.Trigger), bc.Logger).WithRecorder(s.recorder)

	switch bc.Trigger {
	case TriggerPlugin:
		if bc.Plugin == nil {
			return nil, hberrors.ValidationFailed("plugin", "plugin trigger without a plugin")
		}
		pl.AddStage(StageCompilePlugin, s.stageCompilePlugin)
		if bc.Plugin.HasUIPage {
			pl.AddStage(StageCompileUIPage, s.stageCompileUIPage)
		}
	case TriggerCore:
		pl.AddStage(StageCompileCore, s.stageCompileCore)
	case TriggerWebview:
		pl.AddStage(StageCompileCore, s.stageCompileCore)
		pl.AddStage(StageCompilePlugins, s.stageCompilePlugins)
		pl.AddStage(StageCompileUIPages, s.stageCompileUIPages)
	case TriggerFull:
		pl.AddStage(StageCleanDist, s.stageCleanDist)
		pl.AddStage(StageCompileCore, s.stageCompileCore)
		pl.AddStage(StageCompilePlugins, s.stageCompilePlugins)
		pl.AddStage(StageCompileUIPages, s.stageCompileUIPages)
	default:
		return nil, hberrors.ValidationFailed("trigger", "unknown trigger "+string(bc.Trigger))
	}

	pl.AddStage(StageFixLayout, s.stageFixLayout)
	pl.AddStage(StageDeploy, s.stageDeploy)
	return pl, nil
}

func (s *Service) stageCleanDist(_ context.Context, bc *Context) error {
	if err := os.RemoveAll(bc.DistDir); err != nil {
		return hberrors.FileSystemError("clean dist", err)
	}
	s.tracker.Reset()
	if err := os.MkdirAll(bc.DistDir, 0o755); err != nil {
		return hberrors.FileSystemError("create dist", err)
	}
	return nil
}

func (s *Service) stageCompilePlugin(ctx context.Context, bc *Context) error {
	p := bc.Plugin
	// Re-scan so the run sees the plugin's current file list, not the state
	// at watch-setup time.
	fresh, err := s.scanner.ScanOne(bc.PluginsDir, p.AbsPath)
	if err != nil {
		return hberrors.CompileFailed(p.Name, err)
	}
	bc.Plugin = fresh
	// An explicit change event outranks the signature cache.
	s.tracker.Forget(fresh.Name)
	return s.compilePlugin(ctx, bc, fresh, DistPluginsDir)
}

func (s *Service) stageCompileCore(ctx context.Context, bc *Context) error {
	return s.compileTree(ctx, bc, bc.CoreDir, DistCoreDir)
}

func (s *Service) stageCompilePlugins(ctx context.Context, bc *Context) error {
	return s.compileTree(ctx, bc, bc.PluginsDir, DistPluginsDir)
}

// compileTree compiles every plugin under root, fanning out across plugins.
// A plugin that fails to build is logged and skipped; the stage only fails on
// context cancellation or an unreadable root.
func (s *Service) compileTree(ctx context.Context, bc *Context, root, distSub string) error {
	plugins, err := s.scanner.Scan(root)
	if err != nil {
		return err
	}
	if len(plugins) == 0 {
		bc.Logger.Debug("no plugins found", logfields.Root(root))
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, p := range plugins {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := s.compilePlugin(gctx, bc, p, distSub); err != nil {
				bc.Logger.Warn("plugin build failed, skipping",
					logfields.Plugin(p.Name),
					logfields.Error(err))
			}
			return nil
		})
	}
	return g.Wait()
}

// compilePlugin compiles one plugin's files into its dist directory and
// writes the (possibly UI-extended) manifest alongside them.
func (s *Service) compilePlugin(ctx context.Context, bc *Context, p *plugin.Plugin, distSub string) error {
	var sig incremental.Signature
	sigKnown := false
	if s.incremental {
		computed, err := incremental.ComputeSignature(p.AbsPath, s.ignore)
		if err == nil {
			if s.tracker.Unchanged(p.Name, computed) {
				bc.Logger.Info("plugin unchanged, skipping",
					logfields.Plugin(p.Name))
				return nil
			}
			sig = computed
			sigKnown = true
		}
	}

	outDir := filepath.Join(bc.DistDir, distSub, p.Path)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return hberrors.FileSystemError("create plugin output", err)
	}

	compiled := 0
	for _, f := range p.Files {
		if f.IsManifest {
			continue
		}
		// The page bundler owns the whole UI tree of UI-bearing plugins.
		if p.HasUIPage && strings.HasPrefix(f.Path, plugin.UIDir+string(filepath.Separator)) {
			continue
		}
		out, err := s.compiler.Compile(ctx, compiler.Input{
			SourcePath: f.AbsPath,
			RelPath:    f.Path,
			OutputDir:  outDir,
		})
		if err != nil {
			return hberrors.CompileFailed(p.Name, err)
		}
		if out != nil {
			compiled++
		}
	}

	if err := s.writeManifest(p, outDir); err != nil {
		return err
	}

	// The signature is recorded only now: a plugin whose build failed must
	// stay eligible for the next run even with unchanged sources.
	if sigKnown {
		s.tracker.Record(p.Name, sig)
	}

	bc.Touch(p.Name)
	bc.Logger.Debug("plugin compiled",
		logfields.Plugin(p.Name),
		logfields.Count(compiled))
	return nil
}

func (s *Service) stageCompileUIPage(ctx context.Context, bc *Context) error {
	return s.compileUIPage(ctx, bc, bc.Plugin, DistPluginsDir)
}

// stageCompileUIPages rebuilds the UI page of every UI-bearing plugin in both
// trees. Runs after webview changes because the shared webview output embeds
// into every page.
func (s *Service) stageCompileUIPages(ctx context.Context, bc *Context) error {
	for _, tree := range []struct{ root, distSub string }{
		{bc.CoreDir, DistCoreDir},
		{bc.PluginsDir, DistPluginsDir},
	} {
		plugins, err := s.scanner.Scan(tree.root)
		if err != nil {
			return err
		}
		for _, p := range plugins {
			if !p.HasUIPage {
				continue
			}
			if err := s.compileUIPage(ctx, bc, p, tree.distSub); err != nil {
				bc.Logger.Warn("UI page build failed, skipping",
					logfields.Plugin(p.Name),
					logfields.Error(err))
			}
		}
	}
	return nil
}

func (s *Service) compileUIPage(ctx context.Context, bc *Context, p *plugin.Plugin, distSub string) error {
	entry, ok := p.UIEntry()
	if !ok {
		return nil
	}
	outDir := filepath.Join(bc.DistDir, distSub, p.Path)
	if err := s.pageCompiler.CompilePage(ctx, compiler.Page{
		PluginDir: p.AbsPath,
		Entry:     entry,
		OutputDir: outDir,
	}); err != nil {
		return hberrors.CompileFailed(p.Name, err)
	}
	bc.Touch(p.Name)
	return nil
}

func (s *Service) stageDeploy(ctx context.Context, bc *Context) error {
	return s.deployer.Deploy(ctx)
}

// writeManifest copies the plugin manifest into the output tree, extending
// UI-bearing plugins with the UI asset glob and entry point. The source
// manifest is never modified.
func (s *Service) writeManifest(p *plugin.Plugin, outDir string) error {
	mf, ok := p.ManifestFile()
	if !ok {
		return hberrors.ManifestInvalid(p.AbsPath, os.ErrNotExist)
	}
	m, err := manifest.Load(mf.AbsPath)
	if err != nil {
		return hberrors.ManifestInvalid(mf.AbsPath, err)
	}
	if p.HasUIPage {
		m.EnsureUIAssets("", "")
	}
	return m.Save(filepath.Join(outDir, mf.Name))
}
