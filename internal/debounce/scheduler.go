// Package debounce coalesces bursts of change notifications into single
// delayed task executions, one pending slot per key.
package debounce

import (
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"git.home.luguber.info/inful/hotbuild/internal/logfields"
	"git.home.luguber.info/inful/hotbuild/internal/metrics"
)

// Key prefixes with dedicated settling windows. Generated-resource churn
// comes from bulk deploy copies and needs the longest window; webview
// bundling rebuilds sit in between; everything else uses the default.
const (
	GeneratedPrefix = "generated:"
	WebviewPrefix   = "webview:"
)

// DelayPolicy selects the settling window for a key by prefix.
type DelayPolicy struct {
	Default   time.Duration
	Webview   time.Duration
	Generated time.Duration
}

// DelayFor returns the settling window for key.
func (p DelayPolicy) DelayFor(key string) time.Duration {
	switch {
	case strings.HasPrefix(key, GeneratedPrefix):
		return p.Generated
	case strings.HasPrefix(key, WebviewPrefix):
		return p.Webview
	default:
		return p.Default
	}
}

// pending is the single slot a key occupies while its timer runs. gen guards
// against a stale timer firing after the slot was re-armed.
type pending struct {
	timer *time.Timer
	task  func()
	delay time.Duration
	gen   uint64
}

// Scheduler maintains at most one pending invocation per key. A new trigger
// for a live key replaces its task and restarts its timer; the task runs only
// once the delay passes with no further triggers. Task failures are logged,
// never propagated.
type Scheduler struct {
	mu      sync.Mutex
	pending map[string]*pending
	policy  DelayPolicy
	logger  *slog.Logger
	stopped bool

	recorder  metrics.Recorder
	executed  atomic.Uint64
	coalesced atomic.Uint64
}

// NewScheduler returns a scheduler with the given delay policy.
func NewScheduler(policy DelayPolicy, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		pending:  make(map[string]*pending),
		policy:   policy,
		logger:   logger,
		recorder: metrics.NewNoopRecorder(),
	}
}

// WithRecorder attaches a metrics recorder for execution and coalescing
// counters.
func (s *Scheduler) WithRecorder(recorder metrics.Recorder) *Scheduler {
	if recorder != nil {
		s.recorder = recorder
	}
	return s
}

// Execute schedules task under key with the policy-derived delay.
func (s *Scheduler) Execute(key string, task func()) {
	s.ExecuteAfter(key, task, s.policy.DelayFor(key))
}

// ExecuteAfter schedules task under key with an explicit delay, overriding
// category inference.
func (s *Scheduler) ExecuteAfter(key string, task func(), delay time.Duration) {
	if task == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}

	if p, ok := s.pending[key]; ok {
		// Re-trigger: replace the task, restart the clock.
		p.timer.Stop()
		p.task = task
		p.delay = delay
		p.gen++
		gen := p.gen
		p.timer = time.AfterFunc(delay, func() { s.fire(key, gen) })
		s.coalesced.Add(1)
		s.recorder.RecordDebounceCoalesced()
		return
	}

	p := &pending{task: task, delay: delay}
	gen := p.gen
	p.timer = time.AfterFunc(delay, func() { s.fire(key, gen) })
	s.pending[key] = p
}

// fire runs the pending task for key if gen still identifies the live slot.
func (s *Scheduler) fire(key string, gen uint64) {
	s.mu.Lock()
	p, ok := s.pending[key]
	if !ok || p.gen != gen {
		s.mu.Unlock()
		return
	}
	delete(s.pending, key)
	task := p.task
	s.mu.Unlock()

	s.runTask(key, task)
}

// runTask executes task, containing any panic. A failing task must never take
// down the watch loop.
func (s *Scheduler) runTask(key string, task func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("debounced task panicked",
				logfields.Key(key), slog.Any("panic", r))
		}
	}()
	s.executed.Add(1)
	s.recorder.RecordDebounceExecution()
	task()
}

// Pending returns the number of keys with a pending invocation.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Stats returns lifetime execution and coalescing counters.
func (s *Scheduler) Stats() (executed, coalesced uint64) {
	return s.executed.Load(), s.coalesced.Load()
}

// Flush runs every pending task immediately. Used on shutdown and in tests.
func (s *Scheduler) Flush() {
	s.mu.Lock()
	tasks := make(map[string]func(), len(s.pending))
	for key, p := range s.pending {
		p.timer.Stop()
		tasks[key] = p.task
	}
	s.pending = make(map[string]*pending)
	s.mu.Unlock()

	for key, task := range tasks {
		s.runTask(key, task)
	}
}

// Stop cancels all pending tasks and refuses new ones.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.pending {
		p.timer.Stop()
	}
	s.pending = make(map[string]*pending)
	s.stopped = true
}
