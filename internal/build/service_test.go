package build

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/hotbuild/internal/config"
	"git.home.luguber.info/inful/hotbuild/internal/deploy"
	"git.home.luguber.info/inful/hotbuild/internal/manifest"
)

// testWorkspace lays out a minimal plugin workspace under a temp dir:
// plugins/garage (script + UI), plugins/police (script only), core/chat.
func testWorkspace(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "plugins/garage/resource.yaml"), "files: []\n")
	writeFile(t, filepath.Join(root, "plugins/garage/client/index.ts"), "export {}\n")
	writeFile(t, filepath.Join(root, "plugins/garage/server/main.ts"), "export {}\n")
	writeFile(t, filepath.Join(root, "plugins/garage/ui/index.html"), "<html></html>\n")

	writeFile(t, filepath.Join(root, "plugins/police/resource.yaml"), "name: police-mdt\n")
	writeFile(t, filepath.Join(root, "plugins/police/client/app.ts"), "export {}\n")
	writeFile(t, filepath.Join(root, "plugins/police/shared/types.d.ts"), "export type T = 1\n")

	writeFile(t, filepath.Join(root, "core/chat/resource.yaml"), "files: []\n")
	writeFile(t, filepath.Join(root, "core/chat/server/chat.ts"), "export {}\n")

	cfg := config.Default()
	cfg.Paths.Root = root
	cfg.Paths.PluginsDir = filepath.Join(root, "plugins")
	cfg.Paths.CoreDir = filepath.Join(root, "core")
	cfg.Paths.DistDir = filepath.Join(root, "dist")
	cfg.Paths.WebviewDir = filepath.Join(root, "webview")
	return cfg
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestService(cfg *config.Config) *Service {
	deployer := deploy.NewDeployer(cfg.Server, cfg.Paths.DistDir, nil)
	return NewService(cfg, deployer, nil)
}

func TestFullBuildCompilesAllTrees(t *testing.T) {
	cfg := testWorkspace(t)
	s := newTestService(cfg)

	bc := NewContext(cfg, TriggerFull, nil)
	require.NoError(t, s.Run(t.Context(), bc))

	// Script sources come out under their .js names.
	require.FileExists(t, filepath.Join(cfg.Paths.DistDir, "plugins/garage/client/index.js"))
	require.FileExists(t, filepath.Join(cfg.Paths.DistDir, "plugins/garage/server/main.js"))
	require.FileExists(t, filepath.Join(cfg.Paths.DistDir, "plugins/police/client/app.js"))
	require.FileExists(t, filepath.Join(cfg.Paths.DistDir, "core/chat/server/chat.js"))

	// Declaration-only sources produce nothing.
	require.NoFileExists(t, filepath.Join(cfg.Paths.DistDir, "plugins/police/shared/types.d.ts"))
	require.NoDirExists(t, filepath.Join(cfg.Paths.DistDir, "plugins/police/shared"))

	// The UI page lands under ui/.
	require.FileExists(t, filepath.Join(cfg.Paths.DistDir, "plugins/garage/ui/index.html"))
}

func TestFullBuildTouchesResolvedNames(t *testing.T) {
	cfg := testWorkspace(t)
	s := newTestService(cfg)

	bc := NewContext(cfg, TriggerFull, nil)
	require.NoError(t, s.Run(t.Context(), bc))

	// police declares its name in the manifest; the others deploy under
	// their directory names.
	require.Equal(t, []string{"chat", "garage", "police-mdt"}, bc.Touched())
}

func TestOutputManifestGetsUIAssets(t *testing.T) {
	cfg := testWorkspace(t)
	s := newTestService(cfg)

	bc := NewContext(cfg, TriggerFull, nil)
	require.NoError(t, s.Run(t.Context(), bc))

	m, err := manifest.Load(filepath.Join(cfg.Paths.DistDir, "plugins/garage/resource.yaml"))
	require.NoError(t, err)
	require.Contains(t, m.Files, manifest.UIAssetGlob)
	require.Equal(t, manifest.DefaultUIPage, m.UIPage)

	// The source manifest stays as the author wrote it.
	src, err := manifest.Load(filepath.Join(cfg.Paths.PluginsDir, "garage/resource.yaml"))
	require.NoError(t, err)
	require.Empty(t, src.Files)
	require.Empty(t, src.UIPage)

	// A plugin without a UI gets no UI entries.
	police, err := manifest.Load(filepath.Join(cfg.Paths.DistDir, "plugins/police/resource.yaml"))
	require.NoError(t, err)
	require.NotContains(t, police.Files, manifest.UIAssetGlob)
	require.Empty(t, police.UIPage)
}

func TestPluginTriggerBuildsOnlyThatPlugin(t *testing.T) {
	cfg := testWorkspace(t)
	s := newTestService(cfg)

	p, err := s.Scanner().ScanOne(cfg.Paths.PluginsDir, filepath.Join(cfg.Paths.PluginsDir, "police"))
	require.NoError(t, err)

	bc := NewContext(cfg, TriggerPlugin, nil).ForPlugin(p)
	require.NoError(t, s.Run(t.Context(), bc))

	require.FileExists(t, filepath.Join(cfg.Paths.DistDir, "plugins/police/client/app.js"))
	require.NoDirExists(t, filepath.Join(cfg.Paths.DistDir, "plugins/garage"))
	require.Equal(t, []string{"police-mdt"}, bc.Touched())
}

func TestPluginTriggerWithoutPluginFails(t *testing.T) {
	cfg := testWorkspace(t)
	s := newTestService(cfg)

	bc := NewContext(cfg, TriggerPlugin, nil)
	require.Error(t, s.Run(t.Context(), bc))
}

func TestIncrementalSkipsUnchangedPlugins(t *testing.T) {
	cfg := testWorkspace(t)
	cfg.Build.Incremental = true
	s := newTestService(cfg)

	first := NewContext(cfg, TriggerCore, nil)
	require.NoError(t, s.Run(t.Context(), first))
	require.Equal(t, []string{"chat"}, first.Touched())

	// Unchanged sources: the compile is skipped, nothing is touched.
	second := NewContext(cfg, TriggerCore, nil)
	require.NoError(t, s.Run(t.Context(), second))
	require.Empty(t, second.Touched())

	// A source edit re-enables the compile.
	writeFile(t, filepath.Join(cfg.Paths.CoreDir, "chat/server/chat.ts"), "export const v = 2\n")
	third := NewContext(cfg, TriggerCore, nil)
	require.NoError(t, s.Run(t.Context(), third))
	require.Equal(t, []string{"chat"}, third.Touched())
}

// A plugin whose bundler failed must not be skipped as unchanged on the next
// run: signatures are recorded only after a successful build.
func TestFailedBuildRetriedOnNextRun(t *testing.T) {
	cfg := testWorkspace(t)
	cfg.Build.Incremental = true

	// A bundler that fails its first invocation and copies thereafter.
	script := filepath.Join(t.TempDir(), "failonce.sh")
	writeFile(t, script, "if [ ! -e \"$3\" ]; then : > \"$3\"; exit 1; fi\ncp \"$1\" \"$2\"\n")
	marker := filepath.Join(t.TempDir(), "attempted")
	cfg.Build.ScriptCommand = []string{"/bin/sh", script, "{in}", "{out}", marker}
	s := newTestService(cfg)

	first := NewContext(cfg, TriggerCore, nil)
	require.NoError(t, s.Run(t.Context(), first), "a broken plugin is skipped, not fatal")
	require.Empty(t, first.Touched())
	require.NoFileExists(t, filepath.Join(cfg.Paths.DistDir, "core/chat/server/chat.js"))

	// Sources are unchanged, but the plugin never built successfully.
	second := NewContext(cfg, TriggerCore, nil)
	require.NoError(t, s.Run(t.Context(), second))
	require.Equal(t, []string{"chat"}, second.Touched())
	require.FileExists(t, filepath.Join(cfg.Paths.DistDir, "core/chat/server/chat.js"))

	// A successful build still records: the third run skips.
	third := NewContext(cfg, TriggerCore, nil)
	require.NoError(t, s.Run(t.Context(), third))
	require.Empty(t, third.Touched())
}

func TestBrokenPluginIsSkippedNotFatal(t *testing.T) {
	cfg := testWorkspace(t)
	writeFile(t, filepath.Join(cfg.Paths.PluginsDir, "broken/resource.yaml"), "files: [\n")
	s := newTestService(cfg)

	bc := NewContext(cfg, TriggerFull, nil)
	require.NoError(t, s.Run(t.Context(), bc))

	// The healthy plugins still built.
	require.FileExists(t, filepath.Join(cfg.Paths.DistDir, "plugins/garage/client/index.js"))
	require.NotContains(t, bc.Touched(), "broken")
}

func TestDeployWithoutTargetIsSkipped(t *testing.T) {
	cfg := testWorkspace(t)
	require.False(t, cfg.Reload.Enabled)
	s := newTestService(cfg)

	// No server name or resources dir configured: deploy warns and the run
	// still succeeds.
	bc := NewContext(cfg, TriggerFull, nil)
	require.NoError(t, s.Run(t.Context(), bc))
}

func TestDeployCopiesIntoGeneratedDir(t *testing.T) {
	cfg := testWorkspace(t)
	cfg.Server.ResourcesDir = filepath.Join(t.TempDir(), "resources")
	s := newTestService(cfg)

	bc := NewContext(cfg, TriggerFull, nil)
	require.NoError(t, s.Run(t.Context(), bc))

	require.FileExists(t, filepath.Join(cfg.Server.ResourcesDir,
		"[generated]", "plugins", "garage", "client", "index.js"))
	require.FileExists(t, filepath.Join(cfg.Server.ResourcesDir,
		"[generated]", "core", "chat", "server", "chat.js"))
}
