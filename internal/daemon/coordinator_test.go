package daemon

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunCoordinatorSingleSlot(t *testing.T) {
	c := NewRunCoordinator()

	require.False(t, c.InProgress())
	require.True(t, c.TryAcquire())
	require.True(t, c.InProgress())
	require.False(t, c.TryAcquire(), "second acquire must fail while held")

	c.Release()
	require.False(t, c.InProgress())
	require.True(t, c.TryAcquire())
	c.Release()
}

func TestRunCoordinatorConcurrentAcquires(t *testing.T) {
	c := NewRunCoordinator()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.TryAcquire() {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), wins.Load(), "exactly one goroutine may win the slot")
	c.Release()
}
