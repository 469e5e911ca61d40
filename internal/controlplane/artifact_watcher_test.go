package controlplane

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/hotbuild/internal/debounce"
)

func newTestScheduler(t *testing.T) *debounce.Scheduler {
	t.Helper()
	policy := debounce.DelayPolicy{
		Default:   20 * time.Millisecond,
		Webview:   20 * time.Millisecond,
		Generated: 30 * time.Millisecond,
	}
	s := debounce.NewScheduler(policy, slog.Default())
	t.Cleanup(s.Stop)
	return s
}

func TestArtifactWatcher_RestartsTouchedResource(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "[generated]", "beta", "client")
	require.NoError(t, os.MkdirAll(target, 0o755))

	host := &fakeHost{self: "hotbuild"}
	aw := NewArtifactWatcher(root, host, newTestScheduler(t), nil, slog.Default())
	require.NoError(t, aw.Start(t.Context()))
	defer aw.Stop()

	writeHostFile(t, filepath.Join(target, "main.js"), "console.log(1)")

	require.Eventually(t, func() bool {
		return len(host.restartedNames()) > 0
	}, 3*time.Second, 20*time.Millisecond)
	require.Equal(t, []string{"beta"}, host.restartedNames())
}

func TestArtifactWatcher_CoalescesBulkChurn(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "[generated]", "beta")
	require.NoError(t, os.MkdirAll(target, 0o755))

	host := &fakeHost{self: "hotbuild"}
	aw := NewArtifactWatcher(root, host, newTestScheduler(t), nil, slog.Default())
	require.NoError(t, aw.Start(t.Context()))
	defer aw.Stop()

	// A deploy copies many files in one burst. One restart at the end.
	for i := 0; i < 8; i++ {
		writeHostFile(t, filepath.Join(target, "file"+string(rune('a'+i))+".js"), "x")
	}

	require.Eventually(t, func() bool {
		return len(host.restartedNames()) > 0
	}, 3*time.Second, 20*time.Millisecond)

	// Give a stray second firing time to show up before counting.
	time.Sleep(150 * time.Millisecond)
	require.Equal(t, []string{"beta"}, host.restartedNames())
}

func TestArtifactWatcher_SkipsSelfResource(t *testing.T) {
	root := t.TempDir()
	selfDir := filepath.Join(root, "[generated]", "hotbuild")
	require.NoError(t, os.MkdirAll(selfDir, 0o755))

	host := &fakeHost{self: "hotbuild"}
	aw := NewArtifactWatcher(root, host, newTestScheduler(t), nil, slog.Default())
	require.NoError(t, aw.Start(t.Context()))
	defer aw.Stop()

	writeHostFile(t, filepath.Join(selfDir, "agent.js"), "x")

	time.Sleep(300 * time.Millisecond)
	require.Empty(t, host.restartedNames())
}

func TestArtifactWatcher_WatchesDirectoriesCreatedLater(t *testing.T) {
	root := t.TempDir()
	host := &fakeHost{self: "hotbuild"}
	aw := NewArtifactWatcher(root, host, newTestScheduler(t), nil, slog.Default())
	require.NoError(t, aw.Start(t.Context()))
	defer aw.Stop()

	target := filepath.Join(root, "[generated]", "gamma", "server")
	require.NoError(t, os.MkdirAll(target, 0o755))

	// The write may race the watch registration for the fresh directory, so
	// keep nudging until an event lands.
	require.Eventually(t, func() bool {
		writeHostFile(t, filepath.Join(target, "job.js"), "x")
		return len(host.restartedNames()) > 0
	}, 3*time.Second, 100*time.Millisecond)
	require.Contains(t, host.restartedNames(), "gamma")
}

func TestArtifactWatcher_StopWithoutStart(t *testing.T) {
	aw := NewArtifactWatcher(t.TempDir(), &fakeHost{self: "hotbuild"}, newTestScheduler(t), nil, slog.Default())
	aw.Stop()
}

// A failed Start leaves no watcher behind, so Stop must return immediately
// instead of waiting for an event loop that never ran.
func TestArtifactWatcher_StopAfterFailedStart(t *testing.T) {
	root := t.TempDir()
	// A file where the generated directory belongs makes startup fail.
	writeHostFile(t, filepath.Join(root, "[generated]"), "not a directory")

	aw := NewArtifactWatcher(root, &fakeHost{self: "hotbuild"}, newTestScheduler(t), nil, slog.Default())
	require.Error(t, aw.Start(t.Context()))
	require.Nil(t, aw.watcher)

	stopped := make(chan struct{})
	go func() {
		aw.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked after a failed Start")
	}
}
