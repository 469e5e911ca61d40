// Package metrics defines the observability hooks for hotbuild.
//
// Components receive a Recorder through dependency injection and call it
// unconditionally; the NoopRecorder makes metrics optional without nil checks
// at every call site. The Prometheus implementation is activated by the admin
// server when metrics are enabled.
package metrics

import "time"

// Outcome enumerates result categories for counters.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
	OutcomeDropped Outcome = "dropped"
)

// OutcomeFor maps an error to the matching outcome label.
func OutcomeFor(err error) Outcome {
	if err != nil {
		return OutcomeFailed
	}
	return OutcomeSuccess
}

// Recorder defines the metric hooks used across the build pipeline, watcher,
// debounce scheduler, and lifecycle controller. Label values passed in must
// be low-cardinality: trigger kinds, stage names, watch kinds, and outcomes
// are all fixed sets. Debounce counters carry no key label because keys
// embed plugin paths.
type Recorder interface {
	RecordBuild(trigger string, outcome Outcome, d time.Duration)
	RecordStage(stage string, outcome Outcome, d time.Duration)
	RecordWatchEvent(kind string)
	RecordDebounceExecution()
	RecordDebounceCoalesced()
	RecordDeploy(outcome Outcome, d time.Duration)
	RecordRestart(outcome Outcome)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

// NewNoopRecorder returns the default do-nothing recorder.
func NewNoopRecorder() Recorder { return NoopRecorder{} }

func (NoopRecorder) RecordBuild(string, Outcome, time.Duration) {}
func (NoopRecorder) RecordStage(string, Outcome, time.Duration) {}
func (NoopRecorder) RecordWatchEvent(string)                    {}
func (NoopRecorder) RecordDebounceExecution()                   {}
func (NoopRecorder) RecordDebounceCoalesced()                   {}
func (NoopRecorder) RecordDeploy(Outcome, time.Duration)        {}
func (NoopRecorder) RecordRestart(Outcome)                      {}
