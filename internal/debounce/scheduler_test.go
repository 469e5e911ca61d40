package debounce

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testPolicy() DelayPolicy {
	return DelayPolicy{
		Default:   20 * time.Millisecond,
		Webview:   60 * time.Millisecond,
		Generated: 120 * time.Millisecond,
	}
}

func TestDelayForPrefixes(t *testing.T) {
	p := testPolicy()

	require.Equal(t, p.Generated, p.DelayFor("generated:garage"))
	require.Equal(t, p.Webview, p.DelayFor("webview:build"))
	require.Equal(t, p.Default, p.DelayFor("plugin:garage"))
	require.Equal(t, p.Default, p.DelayFor("anything-else"))
	require.Greater(t, p.Generated, p.Webview)
	require.Greater(t, p.Webview, p.Default)
}

func TestBurstCoalescesToSingleExecution(t *testing.T) {
	s := NewScheduler(testPolicy(), nil)
	defer s.Stop()

	var runs atomic.Int32
	var lastSeen atomic.Int32
	done := make(chan struct{}, 1)

	for i := range 10 {
		state := int32(i)
		s.ExecuteAfter("plugin:garage", func() {
			runs.Add(1)
			lastSeen.Store(state)
			select {
			case done <- struct{}{}:
			default:
			}
		}, 30*time.Millisecond)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("debounced task never ran")
	}

	// Allow any (incorrect) extra executions to surface.
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, int32(1), runs.Load())
	require.Equal(t, int32(9), lastSeen.Load(), "the final trigger's state must win")

	executed, coalesced := s.Stats()
	require.Equal(t, uint64(1), executed)
	require.Equal(t, uint64(9), coalesced)
}

func TestDistinctKeysRunIndependently(t *testing.T) {
	s := NewScheduler(testPolicy(), nil)
	defer s.Stop()

	var wg sync.WaitGroup
	wg.Add(2)
	s.ExecuteAfter("plugin:a", wg.Done, 10*time.Millisecond)
	s.ExecuteAfter("plugin:b", wg.Done, 10*time.Millisecond)

	waitDone := make(chan struct{})
	go func() { wg.Wait(); close(waitDone) }()

	select {
	case <-waitDone:
	case <-time.After(2 * time.Second):
		t.Fatal("independent keys did not both execute")
	}
}

func TestRetriggerResetsTimer(t *testing.T) {
	s := NewScheduler(testPolicy(), nil)
	defer s.Stop()

	fired := make(chan time.Time, 1)
	start := time.Now()

	s.ExecuteAfter("k", func() { fired <- time.Now() }, 80*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	s.ExecuteAfter("k", func() { fired <- time.Now() }, 80*time.Millisecond)

	select {
	case at := <-fired:
		// The second trigger restarted the clock, so the earliest legal fire
		// time is 50ms + 80ms after start.
		require.GreaterOrEqual(t, at.Sub(start), 120*time.Millisecond)
	case <-time.After(2 * time.Second):
		t.Fatal("task never fired")
	}
}

func TestExplicitDelayOverridesCategory(t *testing.T) {
	s := NewScheduler(testPolicy(), nil)
	defer s.Stop()

	fired := make(chan struct{}, 1)
	start := time.Now()
	// The generated: prefix would normally impose 120ms; the explicit delay
	// must win.
	s.ExecuteAfter("generated:garage", func() { fired <- struct{}{} }, 10*time.Millisecond)

	select {
	case <-fired:
		require.Less(t, time.Since(start), 100*time.Millisecond)
	case <-time.After(2 * time.Second):
		t.Fatal("task never fired")
	}
}

func TestTaskPanicIsContained(t *testing.T) {
	s := NewScheduler(testPolicy(), nil)
	defer s.Stop()

	fired := make(chan struct{}, 1)
	s.ExecuteAfter("bad", func() { panic("boom") }, 5*time.Millisecond)
	s.ExecuteAfter("good", func() { fired <- struct{}{} }, 30*time.Millisecond)

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler died after a task panic")
	}
}

func TestFlushRunsPendingNow(t *testing.T) {
	s := NewScheduler(testPolicy(), nil)
	defer s.Stop()

	var runs atomic.Int32
	s.ExecuteAfter("a", func() { runs.Add(1) }, time.Hour)
	s.ExecuteAfter("b", func() { runs.Add(1) }, time.Hour)
	require.Equal(t, 2, s.Pending())

	s.Flush()
	require.Equal(t, int32(2), runs.Load())
	require.Zero(t, s.Pending())
}

func TestStopCancelsPendingAndRefusesNew(t *testing.T) {
	s := NewScheduler(testPolicy(), nil)

	var runs atomic.Int32
	s.ExecuteAfter("a", func() { runs.Add(1) }, 20*time.Millisecond)
	s.Stop()

	s.ExecuteAfter("b", func() { runs.Add(1) }, 5*time.Millisecond)
	time.Sleep(80 * time.Millisecond)
	require.Zero(t, runs.Load())
	require.Zero(t, s.Pending())
}

func TestExecuteUsesPolicyDelay(t *testing.T) {
	s := NewScheduler(testPolicy(), nil)
	defer s.Stop()

	fired := make(chan time.Time, 1)
	start := time.Now()
	s.Execute("generated:garage", func() { fired <- time.Now() })

	select {
	case at := <-fired:
		require.GreaterOrEqual(t, at.Sub(start), 120*time.Millisecond)
	case <-time.After(2 * time.Second):
		t.Fatal("task never fired")
	}
}
