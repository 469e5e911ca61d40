package controlplane

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeHostFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestScanningHost_ListResources(t *testing.T) {
	root := t.TempDir()
	writeHostFile(t, filepath.Join(root, "alpha", "resource.yaml"), "")
	writeHostFile(t, filepath.Join(root, "alpha", "client", "main.js"), "x")
	writeHostFile(t, filepath.Join(root, "[jobs]", "beta", "resource.yaml"), "")
	writeHostFile(t, filepath.Join(root, "gamma", "resource.yaml"), "name: renamed\n")
	writeHostFile(t, filepath.Join(root, "[generated]", "delta", "resource.yaml"), "")
	writeHostFile(t, filepath.Join(root, ".git", "config"), "x")
	writeHostFile(t, filepath.Join(root, "node_modules", "dep", "resource.yaml"), "")
	writeHostFile(t, filepath.Join(root, "plain", "notes.txt"), "x")
	// Manifests nested inside a resource belong to that resource.
	writeHostFile(t, filepath.Join(root, "alpha", "vendor", "resource.yaml"), "")

	host := NewScanningHost(root, "hotbuild", nil, []string{"node_modules"}, nil)

	names, err := host.ListResources(t.Context())
	require.NoError(t, err)
	require.Equal(t, []string{"alpha", "beta", "delta", "renamed"}, names)
}

func TestScanningHost_ListResourcesEmptyRoot(t *testing.T) {
	host := NewScanningHost(t.TempDir(), "hotbuild", nil, nil, nil)

	names, err := host.ListResources(t.Context())
	require.NoError(t, err)
	require.Empty(t, names)
}

func TestScanningHost_RestartWithoutCommandIsLogOnly(t *testing.T) {
	host := NewScanningHost(t.TempDir(), "hotbuild", nil, nil, nil)
	require.NoError(t, host.RestartResource(t.Context(), "alpha"))
}

func TestScanningHost_RestartSubstitutesName(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	dir := t.TempDir()
	out := filepath.Join(dir, "restarts.log")
	cmd := []string{"sh", "-c", "echo {name} >> " + out}

	host := NewScanningHost(dir, "hotbuild", cmd, nil, nil)
	require.NoError(t, host.RestartResource(t.Context(), "alpha"))
	require.NoError(t, host.RestartResource(t.Context(), "beta"))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, []string{"alpha", "beta"}, strings.Fields(string(data)))
}

func TestScanningHost_RestartAppendsNameWithoutPlaceholder(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	dir := t.TempDir()
	out := filepath.Join(dir, "restarts.log")
	// Without a {name} reference, the resource name arrives as the final
	// argument ($0 for sh -c).
	cmd := []string{"sh", "-c", "echo \"$0\" > " + out}

	host := NewScanningHost(dir, "hotbuild", cmd, nil, nil)
	require.NoError(t, host.RestartResource(t.Context(), "gamma"))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "gamma", strings.TrimSpace(string(data)))
}

func TestScanningHost_RestartCommandFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	host := NewScanningHost(t.TempDir(), "hotbuild", []string{"sh", "-c", "echo broken >&2; exit 3"}, nil, nil)

	err := host.RestartResource(t.Context(), "alpha")
	require.Error(t, err)
	require.Contains(t, err.Error(), "broken")
}
