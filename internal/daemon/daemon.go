// Package daemon wires the watch manager, debounce scheduler, build service,
// and lifecycle controller into the long-running orchestrator behind
// `hotbuild watch`.
package daemon

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/hotbuild/internal/build"
	"git.home.luguber.info/inful/hotbuild/internal/catalog"
	"git.home.luguber.info/inful/hotbuild/internal/config"
	"git.home.luguber.info/inful/hotbuild/internal/controlplane"
	"git.home.luguber.info/inful/hotbuild/internal/debounce"
	"git.home.luguber.info/inful/hotbuild/internal/deploy"
	"git.home.luguber.info/inful/hotbuild/internal/eventstore"
	"git.home.luguber.info/inful/hotbuild/internal/logfields"
	"git.home.luguber.info/inful/hotbuild/internal/metrics"
	"git.home.luguber.info/inful/hotbuild/internal/notify"
	"git.home.luguber.info/inful/hotbuild/internal/resource"
	"git.home.luguber.info/inful/hotbuild/internal/vcsinfo"
	"git.home.luguber.info/inful/hotbuild/internal/watch"
)

// Options tunes daemon startup.
type Options struct {
	// Version is the CLI version string surfaced on /status.
	Version string
	// SkipInitialBuild starts watching without the full build pass.
	SkipInitialBuild bool
}

// Daemon is the orchestrator process state.
type Daemon struct {
	cfg         *config.Config
	opts        Options
	logger      *slog.Logger
	coordinator *RunCoordinator
	service     *build.Service
	deployer    *deploy.Deployer
	restarter   *deploy.Restarter
	scheduler   *debounce.Scheduler
	watcher     *watch.Manager
	resolver    *resource.Resolver
	store       eventstore.Store
	recorder    metrics.Recorder
	registry    *prometheus.Registry
	publisher   *notify.Publisher
	catalog     *catalog.Catalog
	admin       *AdminServer
	startTime   time.Time
	vcs         vcsinfo.Info
	vcsKnown    bool
}

// New assembles a daemon from configuration. Nothing starts until Run.
func New(cfg *config.Config, opts Options, logger *slog.Logger) (*Daemon, error) {
	if logger == nil {
		logger = slog.Default()
	}

	registry := prometheus.NewRegistry()
	var recorder metrics.Recorder = metrics.NewPrometheusRecorder(registry)

	var store eventstore.Store = eventstore.NoopStore{}
	if cfg.History.Enabled {
		s, err := eventstore.Open(cfg.History.Path)
		if err != nil {
			return nil, err
		}
		store = s
	}

	publisher, err := notify.Connect(cfg.Events, logger)
	if err != nil {
		// Best-effort channel: a missing broker must not keep the daemon
		// from building.
		logger.Warn("event publishing unavailable", logfields.Error(err))
	}

	client := controlplane.NewClient(cfg.Reload.Host, cfg.Reload.Port,
		cfg.Reload.APIKey, cfg.Reload.Timeout(), logger)
	restarter := deploy.NewRestarter(client, deploy.NewCooldownTable(),
		cfg.Reload.Cooldown(), cfg.Reload.Enabled, logger).
		WithRecorder(recorder)

	deployer := deploy.NewDeployer(cfg.Server, cfg.Paths.DistDir, logger).
		WithRecorder(recorder)

	d := &Daemon{
		cfg:         cfg,
		opts:        opts,
		logger:      logger,
		coordinator: NewRunCoordinator(),
		service:     build.NewService(cfg, deployer, logger).WithRecorder(recorder),
		deployer:    deployer,
		restarter:   restarter,
		scheduler: debounce.NewScheduler(debounce.DelayPolicy{
			Default:   cfg.Watch.Debounce.Default(),
			Webview:   cfg.Watch.Debounce.Webview(),
			Generated: cfg.Watch.Debounce.Generated(),
		}, logger).WithRecorder(recorder),
		resolver:  resource.NewResolver(logger),
		store:     store,
		recorder:  recorder,
		registry:  registry,
		publisher: publisher,
		catalog:   catalog.New(logger),
		startTime: time.Now(),
	}
	d.vcs, d.vcsKnown = vcsinfo.Detect(cfg.Paths.Root)

	// Restart outcomes feed the history store alongside the metrics the
	// restarter already records, keyed by the run that triggered them so
	// the run summaries fold them in.
	d.restarter = d.restarter.WithObserver(func(runID, name string, ok bool, detail string) {
		d.appendEvent(eventstore.RestartOutcome(runID, name, ok, detail))
		d.publisher.Publish(notify.SubjectRestart, notify.RestartEvent{
			RunID:     runID,
			Resource:  name,
			OK:        ok,
			Detail:    detail,
			Timestamp: time.Now(),
		})
	})

	return d, nil
}

// Run executes the daemon until ctx is cancelled: optional initial full
// build, then filesystem watching with debounced rebuilds, periodic jobs,
// and the admin server.
func (d *Daemon) Run(ctx context.Context) error {
	vcsinfo.Log(d.logger, d.cfg.Paths.Root)
	d.logger.Info("daemon starting",
		logfields.Root(d.cfg.Paths.Root),
		slog.Bool("reload", d.cfg.Reload.Enabled),
		slog.Bool("watch", d.cfg.Watch.Enabled))

	if !d.opts.SkipInitialBuild {
		d.runBuild(ctx, build.TriggerFull, "")
	}

	if d.cfg.Watch.Enabled {
		if err := d.setupWatches(); err != nil {
			return err
		}
		go d.watcher.Run(ctx, d.handleEvent)
	}

	jobs, err := d.startJobs()
	if err != nil {
		return err
	}

	if d.cfg.Admin.Enabled {
		admin, err := NewAdminServer(d)
		if err != nil {
			return err
		}
		d.admin = admin
		if err := d.admin.Start(ctx); err != nil {
			return err
		}
	}

	<-ctx.Done()
	return d.shutdown(jobs)
}

func (d *Daemon) shutdown(jobs stopper) error {
	d.logger.Info("daemon stopping")

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if d.admin != nil {
		if err := d.admin.Stop(stopCtx); err != nil {
			d.logger.Warn("admin server stop failed", logfields.Error(err))
		}
	}
	if jobs != nil {
		if err := jobs.Shutdown(); err != nil {
			d.logger.Warn("job scheduler stop failed", logfields.Error(err))
		}
	}
	d.scheduler.Stop()
	if d.watcher != nil {
		if err := d.watcher.Close(); err != nil {
			d.logger.Warn("watch manager close failed", logfields.Error(err))
		}
	}
	d.publisher.Close()
	if err := d.store.Close(); err != nil {
		d.logger.Warn("history store close failed", logfields.Error(err))
	}
	return nil
}

// setupWatches registers one recursive root per plugin directory plus the
// core, webview, dist, and live generated trees.
func (d *Daemon) setupWatches() error {
	watcher, err := watch.NewManager(d.cfg.Watch, d.logger)
	if err != nil {
		return err
	}
	watcher.WithRecorder(d.recorder)

	plugins, err := d.service.Scanner().Scan(d.cfg.Paths.PluginsDir)
	if err != nil {
		return err
	}
	roots := make([]watch.Root, 0, len(plugins)+4)
	for _, p := range plugins {
		roots = append(roots, watch.PluginRoot(p.AbsPath))
	}
	roots = append(roots,
		watch.CoreRoot(d.cfg.Paths.CoreDir),
		watch.WebviewRoot(d.cfg.Paths.WebviewDir),
		watch.DistRoot(d.cfg.Paths.DistDir))
	if resourcesDir, ok := d.cfg.Server.ResolveResourcesDir(); ok {
		roots = append(roots, watch.GeneratedRoot(
			filepath.Join(resourcesDir, resource.GeneratedDirName)))
	}

	for _, root := range roots {
		if err := watcher.AddRoot(root); err != nil {
			// A missing tree (no webview checkout, server offline) only
			// loses its own events.
			d.logger.Warn("watch root skipped",
				logfields.Root(root.Dir),
				logfields.Error(err))
		}
	}

	d.watcher = watcher
	return nil
}

func (d *Daemon) appendEvent(event eventstore.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.store.Append(ctx, event); err != nil {
		d.logger.Warn("history append failed", logfields.Error(err))
	}
}
