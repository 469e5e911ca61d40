package daemon

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/hotbuild/internal/build"
	"git.home.luguber.info/inful/hotbuild/internal/debounce"
	"git.home.luguber.info/inful/hotbuild/internal/eventstore"
	"git.home.luguber.info/inful/hotbuild/internal/logfields"
	"git.home.luguber.info/inful/hotbuild/internal/notify"
	"git.home.luguber.info/inful/hotbuild/internal/watch"
)

// handleEvent routes one qualifying filesystem event into a debounced task.
// The coordinator is consulted before scheduling: events arriving while a
// run is active are dropped outright.
func (d *Daemon) handleEvent(ev watch.Event) {
	if d.coordinator.InProgress() {
		d.logger.Debug("change dropped, build in progress",
			logfields.Path(ev.Path),
			logfields.Kind(string(ev.Kind)))
		return
	}

	ctx := context.Background()
	switch ev.Kind {
	case watch.KindPlugin:
		pluginDir := ev.PluginPath
		d.scheduler.Execute("plugin:"+pluginDir, func() {
			d.runBuild(ctx, build.TriggerPlugin, pluginDir)
		})
	case watch.KindCore:
		d.scheduler.Execute("core", func() {
			d.runBuild(ctx, build.TriggerCore, "")
		})
	case watch.KindWebview:
		d.scheduler.Execute(debounce.WebviewPrefix+"build", func() {
			d.runBuild(ctx, build.TriggerWebview, "")
		})
	case watch.KindDist:
		// Output changed without a source trigger (manual edit, external
		// tool); redeploy and restart whatever it belongs to.
		path := ev.Path
		d.scheduler.Execute("dist:"+d.cfg.Paths.DistDir, func() {
			d.runRedeploy(ctx, path)
		})
	case watch.KindGenerated:
		// The live artifact tree changed underneath us; only a restart is
		// needed, scoped to the resource the path resolves to.
		path := ev.Path
		d.scheduler.Execute(debounce.GeneratedPrefix+path, func() {
			d.restartForGenerated(ctx, path)
		})
	}
}

// runBuild executes one pipeline run for trigger, guarded by the run
// coordinator, then restarts the touched resources.
func (d *Daemon) runBuild(ctx context.Context, trigger build.Trigger, pluginDir string) {
	if !d.coordinator.TryAcquire() {
		d.logger.Debug("build dropped, run already active",
			logfields.Trigger(string(trigger)))
		return
	}
	defer d.coordinator.Release()

	bc := build.NewContext(d.cfg, trigger, d.logger)
	if trigger == build.TriggerPlugin {
		p, err := d.service.Scanner().ScanOne(d.cfg.Paths.PluginsDir, pluginDir)
		if err != nil {
			d.logger.Warn("changed plugin unreadable, build skipped",
				logfields.Path(pluginDir),
				logfields.Error(err))
			return
		}
		bc.ForPlugin(p)
	}

	logger := d.logger.With(logfields.RunID(bc.RunID), logfields.Trigger(string(trigger)))
	bc.Logger = logger
	logger.Info("build starting")

	d.appendEvent(eventstore.RunStarted(bc.RunID, string(trigger)))
	d.publisher.Publish(notify.SubjectRunStarted, notify.RunEvent{
		RunID: bc.RunID, Trigger: string(trigger), Timestamp: time.Now(),
	})

	start := time.Now()
	if err := d.service.Run(ctx, bc); err != nil {
		// The run is over but the daemon is not: the watch loop stays up
		// for the next trigger.
		logger.Error("build failed", logfields.Error(err))
		d.appendEvent(eventstore.RunFailed(bc.RunID, string(trigger), err))
		d.publisher.Publish(notify.SubjectRunFailed, notify.RunEvent{
			RunID: bc.RunID, Trigger: string(trigger), Error: err.Error(),
			DurationMS: time.Since(start).Milliseconds(), Timestamp: time.Now(),
		})
		return
	}

	duration := time.Since(start)
	logger.Info("build complete",
		logfields.DurationMS(float64(duration.Milliseconds())),
		logfields.Count(len(bc.Touched())))
	if target, ok := d.deployer.Target(); ok {
		d.appendEvent(eventstore.DeployCompleted(bc.RunID, target))
		d.publisher.Publish(notify.SubjectDeploy, notify.DeployEvent{
			RunID: bc.RunID, Target: target, Timestamp: time.Now(),
		})
	}
	d.appendEvent(eventstore.RunCompleted(bc.RunID, string(trigger), duration))
	d.publisher.Publish(notify.SubjectRunCompleted, notify.RunEvent{
		RunID: bc.RunID, Trigger: string(trigger),
		DurationMS: duration.Milliseconds(), Timestamp: time.Now(),
	})

	d.restartAfterRun(ctx, bc)
}

// restartAfterRun asks the host to reload what the run touched. Plugin runs
// restart exactly the touched resources; broad runs restart everything in
// one request rather than storming the host name by name.
func (d *Daemon) restartAfterRun(ctx context.Context, bc *build.Context) {
	touched := bc.Touched()
	if len(touched) == 0 {
		return
	}
	if bc.Trigger == build.TriggerPlugin {
		for _, name := range touched {
			d.restarter.Restart(ctx, bc.RunID, name)
		}
		return
	}
	d.restarter.RestartAll(ctx, bc.RunID)
}

// runRedeploy copies the output tree to the host again and restarts the
// resource the changed path belongs to.
func (d *Daemon) runRedeploy(ctx context.Context, changedPath string) {
	if !d.coordinator.TryAcquire() {
		d.logger.Debug("redeploy dropped, run already active")
		return
	}
	defer d.coordinator.Release()

	if err := d.deployer.Deploy(ctx); err != nil {
		d.logger.Error("redeploy failed", logfields.Error(err))
		return
	}
	if name, ok := d.resolver.Resolve(d.cfg.Paths.DistDir, changedPath); ok {
		d.restarter.Restart(ctx, "", name)
	}
}

// restartForGenerated restarts the resource owning a changed live artifact.
// An unresolvable path (structural directory with no manifest above it) is
// logged and ignored; no restart happens.
func (d *Daemon) restartForGenerated(ctx context.Context, changedPath string) {
	resourcesDir, ok := d.cfg.Server.ResolveResourcesDir()
	if !ok {
		return
	}
	name, ok := d.resolver.Resolve(resourcesDir, changedPath)
	if !ok {
		d.logger.Debug("generated change has no resolvable resource",
			logfields.Path(changedPath))
		return
	}
	d.logger.Info("live artifact changed, restarting",
		logfields.Resource(name),
		slog.String("origin", "generated"))
	d.restarter.Restart(ctx, "", name)
}
