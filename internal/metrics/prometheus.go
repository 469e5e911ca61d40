package metrics

import (
	"net/http"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once sync.Once

	buildDuration  *prom.HistogramVec
	buildOutcome   *prom.CounterVec
	stageDuration  *prom.HistogramVec
	stageResults   *prom.CounterVec
	watchEvents    *prom.CounterVec
	debounceExecs  prom.Counter
	debounceMerged prom.Counter
	deployDuration prom.Histogram
	deployResults  *prom.CounterVec
	restartResults *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers the hotbuild metrics on reg
// (idempotent per recorder instance).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.buildDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "hotbuild",
			Name:      "build_duration_seconds",
			Help:      "Total pipeline run duration by trigger kind",
			Buckets:   prom.DefBuckets,
		}, []string{"trigger"})
		pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "hotbuild",
			Name:      "build_outcomes_total",
			Help:      "Pipeline run outcomes by trigger kind",
		}, []string{"trigger", "outcome"})
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "hotbuild",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual pipeline stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"})
		pr.stageResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "hotbuild",
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"})
		pr.watchEvents = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "hotbuild",
			Name:      "watch_events_total",
			Help:      "Qualifying filesystem events by watch root kind",
		}, []string{"kind"})
		pr.debounceExecs = prom.NewCounter(prom.CounterOpts{
			Namespace: "hotbuild",
			Name:      "debounce_executions_total",
			Help:      "Debounced tasks that actually ran",
		})
		pr.debounceMerged = prom.NewCounter(prom.CounterOpts{
			Namespace: "hotbuild",
			Name:      "debounce_coalesced_total",
			Help:      "Triggers absorbed into an already-pending task",
		})
		pr.deployDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "hotbuild",
			Name:      "deploy_duration_seconds",
			Help:      "Duration of artifact deployments into the resource root",
			Buckets:   prom.DefBuckets,
		})
		pr.deployResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "hotbuild",
			Name:      "deploy_results_total",
			Help:      "Deploy outcomes",
		}, []string{"outcome"})
		pr.restartResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "hotbuild",
			Name:      "restarts_total",
			Help:      "Control-plane restart requests by outcome",
		}, []string{"outcome"})
		reg.MustRegister(
			pr.buildDuration, pr.buildOutcome,
			pr.stageDuration, pr.stageResults,
			pr.watchEvents,
			pr.debounceExecs, pr.debounceMerged,
			pr.deployDuration, pr.deployResults,
			pr.restartResults,
		)
	})
	return pr
}

func (p *PrometheusRecorder) RecordBuild(trigger string, outcome Outcome, d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.WithLabelValues(trigger).Observe(d.Seconds())
	p.buildOutcome.WithLabelValues(trigger, string(outcome)).Inc()
}

func (p *PrometheusRecorder) RecordStage(stage string, outcome Outcome, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
	p.stageResults.WithLabelValues(stage, string(outcome)).Inc()
}

func (p *PrometheusRecorder) RecordWatchEvent(kind string) {
	if p == nil || p.watchEvents == nil {
		return
	}
	p.watchEvents.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) RecordDebounceExecution() {
	if p == nil || p.debounceExecs == nil {
		return
	}
	p.debounceExecs.Inc()
}

func (p *PrometheusRecorder) RecordDebounceCoalesced() {
	if p == nil || p.debounceMerged == nil {
		return
	}
	p.debounceMerged.Inc()
}

func (p *PrometheusRecorder) RecordDeploy(outcome Outcome, d time.Duration) {
	if p == nil || p.deployDuration == nil {
		return
	}
	p.deployDuration.Observe(d.Seconds())
	p.deployResults.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) RecordRestart(outcome Outcome) {
	if p == nil || p.restartResults == nil {
		return
	}
	p.restartResults.WithLabelValues(string(outcome)).Inc()
}

// Handler returns an http.Handler serving the registry in the OpenMetrics
// format, mounted by the admin server at /metrics.
func Handler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
