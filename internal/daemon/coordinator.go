package daemon

import "sync/atomic"

// RunCoordinator is the single-slot gate that keeps pipeline runs from ever
// overlapping. A trigger that loses the race is dropped, not queued: the
// in-flight run picks up a superset of the change once the filesystem
// settles, and events are debounced at the source anyway.
type RunCoordinator struct {
	busy atomic.Bool
}

// NewRunCoordinator returns an idle coordinator.
func NewRunCoordinator() *RunCoordinator {
	return &RunCoordinator{}
}

// TryAcquire claims the run slot. Returns false when a run is already active.
func (c *RunCoordinator) TryAcquire() bool {
	return c.busy.CompareAndSwap(false, true)
}

// Release frees the run slot.
func (c *RunCoordinator) Release() {
	c.busy.Store(false)
}

// InProgress reports whether a run currently holds the slot.
func (c *RunCoordinator) InProgress() bool {
	return c.busy.Load()
}
