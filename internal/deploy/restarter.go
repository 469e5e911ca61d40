package deploy

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/hotbuild/internal/controlplane"
	"git.home.luguber.info/inful/hotbuild/internal/logfields"
	"git.home.luguber.info/inful/hotbuild/internal/metrics"
	"git.home.luguber.info/inful/hotbuild/internal/resource"
)

// allKey is the cooldown slot for restart-all requests. Bracketed, so it can
// never collide with a real resource name.
const allKey = "[all]"

// RestartClient is the control-plane surface the restarter needs.
type RestartClient interface {
	Restart(ctx context.Context, name string) controlplane.Result
	RestartAll(ctx context.Context) controlplane.Result
}

// Observer receives restart outcomes for history recording. runID is the
// pipeline run the restart belongs to, empty for restarts issued outside a
// run (live artifact churn, manual redeploys).
type Observer func(runID, name string, ok bool, detail string)

// Restarter requests resource restarts over the control plane, enforcing the
// per-resource cooldown. Every control-plane failure is logged and swallowed;
// a briefly unreachable host is an expected condition during development and
// must never abort a build.
type Restarter struct {
	client   RestartClient
	cooldown *CooldownTable
	window   time.Duration
	enabled  bool
	recorder metrics.Recorder
	observer Observer
	logger   *slog.Logger
}

// NewRestarter builds a restarter. enabled=false keeps all bookkeeping but
// issues no requests.
func NewRestarter(client RestartClient, cooldown *CooldownTable, window time.Duration, enabled bool, logger *slog.Logger) *Restarter {
	if logger == nil {
		logger = slog.Default()
	}
	if cooldown == nil {
		cooldown = NewCooldownTable()
	}
	return &Restarter{
		client:   client,
		cooldown: cooldown,
		window:   window,
		enabled:  enabled,
		recorder: metrics.NewNoopRecorder(),
		logger:   logger,
	}
}

// WithRecorder attaches a metrics recorder.
func (r *Restarter) WithRecorder(recorder metrics.Recorder) *Restarter {
	if recorder != nil {
		r.recorder = recorder
	}
	return r
}

// Cooldown exposes the cooldown table for the periodic sweep job.
func (r *Restarter) Cooldown() *CooldownTable {
	return r.cooldown
}

// WithObserver attaches an outcome observer.
func (r *Restarter) WithObserver(observer Observer) *Restarter {
	r.observer = observer
	return r
}

// Restart requests a restart of one named resource on behalf of runID.
// Structural and bracketed names are rejected outright; they are never real
// resources.
func (r *Restarter) Restart(ctx context.Context, runID, name string) {
	if !resource.IsValidName(name) {
		r.logger.Debug("restart rejected, not a resource name",
			logfields.Resource(name))
		return
	}
	if !r.cooldown.ShouldRestart(name, r.window) {
		r.logger.Debug("restart suppressed by cooldown",
			logfields.Resource(name))
		r.recorder.RecordRestart(metrics.OutcomeSkipped)
		return
	}
	if !r.enabled {
		r.logger.Debug("reload disabled, restart not issued",
			logfields.Resource(name))
		return
	}

	res := r.client.Restart(ctx, name)
	r.report(runID, name, res)
}

// RestartAll requests a restart of every resource the host knows, sharing one
// cooldown slot so broad triggers cannot storm the server either.
func (r *Restarter) RestartAll(ctx context.Context, runID string) {
	if !r.cooldown.ShouldRestart(allKey, r.window) {
		r.logger.Debug("restart-all suppressed by cooldown")
		r.recorder.RecordRestart(metrics.OutcomeSkipped)
		return
	}
	if !r.enabled {
		r.logger.Debug("reload disabled, restart-all not issued")
		return
	}

	res := r.client.RestartAll(ctx)
	r.report(runID, allKey, res)
}

func (r *Restarter) report(runID, name string, res controlplane.Result) {
	if res.OK {
		r.logger.Info("resource restart requested",
			logfields.Resource(name))
		r.recorder.RecordRestart(metrics.OutcomeSuccess)
	} else {
		r.logger.Warn("resource restart failed",
			logfields.Resource(name),
			slog.String("result", res.String()))
		r.recorder.RecordRestart(metrics.OutcomeFailed)
	}
	if r.observer != nil {
		r.observer(runID, name, res.OK, res.String())
	}
}
