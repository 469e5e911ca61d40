// Package eventstore persists the orchestrator's run, deploy, and restart
// history for the status surfaces.
package eventstore

import (
	"context"
	"time"
)

// Store defines the interface for persisting and reading history events.
type Store interface {
	// Append adds one event.
	Append(ctx context.Context, event Event) error

	// EventsForRun returns every event of one run, oldest first.
	EventsForRun(ctx context.Context, runID string) ([]Event, error)

	// RecentRuns returns summaries of the most recent runs, newest first.
	RecentRuns(ctx context.Context, limit int) ([]RunSummary, error)

	// PruneBefore deletes events older than cutoff and reports how many.
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Close releases the backing resources.
	Close() error
}

// NoopStore is a Store that records nothing. Used when history is disabled
// so call sites never need a nil check.
type NoopStore struct{}

func (NoopStore) Append(context.Context, Event) error { return nil }
func (NoopStore) EventsForRun(context.Context, string) ([]Event, error) {
	return nil, nil
}
func (NoopStore) RecentRuns(context.Context, int) ([]RunSummary, error) {
	return nil, nil
}
func (NoopStore) PruneBefore(context.Context, time.Time) (int64, error) { return 0, nil }
func (NoopStore) Close() error                                          { return nil }
