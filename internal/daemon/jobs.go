package daemon

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"

	hberrors "git.home.luguber.info/inful/hotbuild/internal/errors"
	"git.home.luguber.info/inful/hotbuild/internal/logfields"
)

// Periodic maintenance intervals. None of these are latency-sensitive; they
// keep long-lived state from drifting or growing without bound.
const (
	rescanInterval = 10 * time.Minute
	sweepInterval  = 5 * time.Minute
	pruneInterval  = 24 * time.Hour
)

type stopper interface {
	Shutdown() error
}

// startJobs schedules the periodic maintenance work: resource-map rescan
// (the explicit cache invalidation the resolver contract allows), cooldown
// table sweep, and history pruning.
func (d *Daemon) startJobs() (stopper, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, hberrors.DaemonError("create job scheduler: " + err.Error())
	}

	jobs := []struct {
		name     string
		interval time.Duration
		task     func()
	}{
		{"resource-map-rescan", rescanInterval, d.rescanResourceMap},
		{"cooldown-sweep", sweepInterval, d.sweepCooldowns},
		{"history-prune", pruneInterval, d.pruneHistory},
	}
	for _, j := range jobs {
		if _, err := scheduler.NewJob(
			gocron.DurationJob(j.interval),
			gocron.NewTask(j.task),
			gocron.WithName(j.name),
		); err != nil {
			return nil, hberrors.DaemonError("schedule " + j.name + ": " + err.Error())
		}
	}

	scheduler.Start()
	return scheduler, nil
}

// rescanResourceMap drops the memoized path-to-name mappings so renamed or
// relocated manifests are picked up on the next resolution.
func (d *Daemon) rescanResourceMap() {
	before := d.resolver.Cache().Len()
	d.resolver.Cache().Reset()
	d.logger.Debug("resource map rescan", logfields.Count(before))
}

func (d *Daemon) sweepCooldowns() {
	removed := d.restarter.Cooldown().Sweep(10 * d.cfg.Reload.Cooldown())
	if removed > 0 {
		d.logger.Debug("cooldown table swept", logfields.Count(removed))
	}
}

func (d *Daemon) pruneHistory() {
	if !d.cfg.History.Enabled {
		return
	}
	retention := time.Duration(d.cfg.History.RetentionDays) * 24 * time.Hour
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	pruned, err := d.store.PruneBefore(ctx, time.Now().Add(-retention))
	if err != nil {
		d.logger.Warn("history prune failed", logfields.Error(err))
		return
	}
	if pruned > 0 {
		d.logger.Info("history pruned", logfields.Count(int(pruned)))
	}
}
