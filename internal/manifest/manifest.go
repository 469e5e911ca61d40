// Package manifest reads and rewrites per-resource descriptor files.
//
// A resource.yaml declares at minimum an optional name, a files listing, and
// a UI entry point. Everything else in the file belongs to the host runtime;
// hotbuild preserves unknown keys verbatim across a load/save cycle so that
// appending UI assets never disturbs unrelated manifest content.
package manifest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the resource descriptor filename probed in every directory.
const FileName = "resource.yaml"

// UIAssetGlob is the files entry appended for UI-bearing resources.
const UIAssetGlob = "ui/**/*"

// DefaultUIPage is the UI entry point recorded when the manifest does not
// name one itself.
const DefaultUIPage = "ui/index.html"

// Manifest is the typed view of a resource descriptor. Extra captures every
// key this core does not own; it round-trips through Save untouched.
type Manifest struct {
	Name   string         `yaml:"name,omitempty"`
	Files  []string       `yaml:"files,omitempty"`
	UIPage string         `yaml:"ui_page,omitempty"`
	Extra  map[string]any `yaml:",inline"`
}

// Parse decodes manifest bytes.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}

// Load reads and decodes the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return Parse(data)
}

// Marshal encodes the manifest back to YAML.
func (m *Manifest) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes the manifest to path.
func (m *Manifest) Save(path string) error {
	data, err := m.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// HasFile reports whether entry already appears in the files listing.
func (m *Manifest) HasFile(entry string) bool {
	for _, f := range m.Files {
		if f == entry {
			return true
		}
	}
	return false
}

// EnsureUIAssets appends the UI asset glob to files and fills in the UI entry
// point when missing. Returns true when the manifest was modified.
func (m *Manifest) EnsureUIAssets(glob, page string) bool {
	if glob == "" {
		glob = UIAssetGlob
	}
	if page == "" {
		page = DefaultUIPage
	}

	changed := false
	if !m.HasFile(glob) {
		m.Files = append(m.Files, glob)
		changed = true
	}
	if m.UIPage == "" {
		m.UIPage = page
		changed = true
	}
	return changed
}

// PathIn returns the manifest path inside dir.
func PathIn(dir string) string {
	return filepath.Join(dir, FileName)
}

// ExistsIn reports whether dir contains a manifest file.
func ExistsIn(dir string) bool {
	info, err := os.Stat(PathIn(dir))
	return err == nil && !info.IsDir()
}

// NameIn reads the declared name of the manifest in dir. found reports
// whether a manifest file exists at all; an unreadable or unparsable
// manifest counts as found with an empty name so directory-shape fallbacks
// still apply.
func NameIn(dir string) (name string, found bool) {
	if !ExistsIn(dir) {
		return "", false
	}
	m, err := Load(PathIn(dir))
	if err != nil {
		return "", true
	}
	return m.Name, true
}
