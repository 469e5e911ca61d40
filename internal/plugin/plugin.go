// Package plugin models plugin source trees and discovers them on disk.
//
// A plugin is any directory holding a resource manifest beneath the plugins
// root. Bracketed grouping folders organize plugins without being plugins
// themselves; the scanner descends through them.
package plugin

import (
	"path/filepath"
	"strings"
)

// Plugin is one discovered plugin source directory. Instances are rebuilt
// fresh on every scan and never mutated afterwards.
type Plugin struct {
	// Name is the resolved resource name the plugin deploys as.
	Name string
	// Path is the plugin directory relative to the plugins root.
	Path string
	// AbsPath is the absolute plugin directory.
	AbsPath string
	// HasUIPage reports whether the plugin ships a browser UI.
	HasUIPage bool
	// Files lists every regular file under the plugin directory in
	// deterministic walk order.
	Files []File
}

// File is one source file inside a plugin directory.
type File struct {
	// Name is the base filename.
	Name string
	// Path is the file path relative to the plugin directory.
	Path string
	// AbsPath is the absolute file path.
	AbsPath string
	// IsManifest marks the resource descriptor file.
	IsManifest bool
}

// UIDir is the structural subdirectory holding a plugin's browser UI sources.
const UIDir = "ui"

// ManifestFile returns the plugin's manifest file entry.
func (p *Plugin) ManifestFile() (File, bool) {
	for _, f := range p.Files {
		if f.IsManifest {
			return f, true
		}
	}
	return File{}, false
}

// UIEntry returns the path of the UI entry point relative to the plugin
// directory, when the plugin has one.
func (p *Plugin) UIEntry() (string, bool) {
	if !p.HasUIPage {
		return "", false
	}
	for _, f := range p.Files {
		if filepath.Dir(f.Path) == UIDir && strings.EqualFold(f.Name, "index.html") {
			return f.Path, true
		}
	}
	// A UI directory without an explicit index still counts; the page
	// bundler decides the real entry point.
	return filepath.Join(UIDir, "index.html"), true
}
