// Package deploy moves compiled output into the live host environment and
// requests resource restarts over the control plane, rate-limited per
// resource.
package deploy

import (
	"sync"
	"time"
)

// CooldownTable tracks the last restart request per resource name. The
// check-and-record is one critical section so two concurrent triggers for the
// same name can never both pass the window check.
type CooldownTable struct {
	mu   sync.Mutex
	last map[string]time.Time
	now  func() time.Time
}

// NewCooldownTable returns an empty table.
func NewCooldownTable() *CooldownTable {
	return &CooldownTable{
		last: make(map[string]time.Time),
		now:  time.Now,
	}
}

// ShouldRestart reports whether a restart of name is allowed under window.
// When allowed, the current time is recorded immediately, before any request
// is issued.
func (t *CooldownTable) ShouldRestart(name string, window time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if last, ok := t.last[name]; ok && now.Sub(last) < window {
		return false
	}
	t.last[name] = now
	return true
}

// LastRestart returns the recorded time of the last allowed restart.
func (t *CooldownTable) LastRestart(name string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	last, ok := t.last[name]
	return last, ok
}

// Sweep drops entries older than maxAge and returns how many were removed.
// Run periodically so a long-lived daemon does not accumulate one entry per
// resource name ever restarted.
func (t *CooldownTable) Sweep(maxAge time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-maxAge)
	removed := 0
	for name, last := range t.last {
		if last.Before(cutoff) {
			delete(t.last, name)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked names.
func (t *CooldownTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.last)
}
