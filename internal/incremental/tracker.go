package incremental

import "sync"

// Tracker remembers the last built signature per plugin for the life of the
// watch process.
type Tracker struct {
	mu   sync.Mutex
	last map[string]Signature
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{last: make(map[string]Signature)}
}

// Unchanged reports whether sig matches the last recorded signature for
// name. An unseen name never counts as unchanged. The check records nothing;
// callers record after the build succeeds so a failed build is retried.
func (t *Tracker) Unchanged(name string, sig Signature) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev, seen := t.last[name]
	return seen && prev == sig
}

// Record stores sig as the last successfully built signature for name.
func (t *Tracker) Record(name string, sig Signature) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last[name] = sig
}

// Forget drops the recorded signature so the next check rebuilds.
func (t *Tracker) Forget(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.last, name)
}

// Reset drops every recorded signature.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = make(map[string]Signature)
}

// Len returns the number of tracked plugins.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.last)
}
