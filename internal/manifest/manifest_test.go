package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTypedAndExtraFields(t *testing.T) {
	data := []byte(`
name: garage
files:
  - config.json
ui_page: ui/index.html
client_scripts:
  - client/*.js
version: "1.2.0"
`)

	m, err := Parse(data)
	require.NoError(t, err)
	require.Equal(t, "garage", m.Name)
	require.Equal(t, []string{"config.json"}, m.Files)
	require.Equal(t, "ui/index.html", m.UIPage)
	require.Contains(t, m.Extra, "client_scripts")
	require.Equal(t, "1.2.0", m.Extra["version"])
}

func TestEnsureUIAssetsRoundTrip(t *testing.T) {
	data := []byte(`
files: []
author: dev-team
client_scripts:
  - client/*.js
exports:
  - openMenu
`)

	m, err := Parse(data)
	require.NoError(t, err)
	require.Empty(t, m.Files)
	require.Empty(t, m.UIPage)

	changed := m.EnsureUIAssets("", "")
	require.True(t, changed)

	out, err := m.Marshal()
	require.NoError(t, err)

	reparsed, err := Parse(out)
	require.NoError(t, err)
	require.Contains(t, reparsed.Files, UIAssetGlob)
	require.Equal(t, DefaultUIPage, reparsed.UIPage)

	// Keys this core does not own survive the rewrite untouched.
	require.Equal(t, "dev-team", reparsed.Extra["author"])
	require.Equal(t, m.Extra["client_scripts"], reparsed.Extra["client_scripts"])
	require.Equal(t, m.Extra["exports"], reparsed.Extra["exports"])
}

func TestEnsureUIAssetsIdempotent(t *testing.T) {
	m := &Manifest{Files: []string{UIAssetGlob}, UIPage: "ui/app.html"}
	require.False(t, m.EnsureUIAssets("", ""))
	require.Equal(t, []string{UIAssetGlob}, m.Files)
	require.Equal(t, "ui/app.html", m.UIPage)
}

func TestLoadSave(t *testing.T) {
	dir := t.TempDir()
	path := PathIn(dir)
	require.NoError(t, os.WriteFile(path, []byte("name: bank\nfuel: diesel\n"), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "bank", m.Name)

	m.EnsureUIAssets("", "")
	require.NoError(t, m.Save(path))

	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "bank", reloaded.Name)
	require.Equal(t, "diesel", reloaded.Extra["fuel"])
	require.Contains(t, reloaded.Files, UIAssetGlob)
}

func TestNameIn(t *testing.T) {
	dir := t.TempDir()

	name, found := NameIn(dir)
	require.False(t, found)
	require.Empty(t, name)

	require.NoError(t, os.WriteFile(PathIn(dir), []byte("files: []\n"), 0o644))
	name, found = NameIn(dir)
	require.True(t, found)
	require.Empty(t, name)

	require.NoError(t, os.WriteFile(PathIn(dir), []byte("name: vehicles\n"), 0o644))
	name, found = NameIn(dir)
	require.True(t, found)
	require.Equal(t, "vehicles", name)
}

func TestNameInUnparsableManifest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(PathIn(dir), []byte("::: not yaml {{{"), 0o644))

	name, found := NameIn(dir)
	require.True(t, found)
	require.Empty(t, name)
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse([]byte("files: {not: a list}"))
	require.Error(t, err)
}

func TestExistsIn(t *testing.T) {
	dir := t.TempDir()
	require.False(t, ExistsIn(dir))

	require.NoError(t, os.MkdirAll(filepath.Join(dir, FileName), 0o755))
	require.False(t, ExistsIn(dir), "a directory named like the manifest does not count")
}
