// Package compiler is the boundary to the source-to-artifact compilers.
//
// hotbuild does not bundle scripts or UI pages itself; it invokes an external
// bundler per file (ExecCompiler) or falls back to a plain copy translation
// (CopyCompiler) so a workspace builds without any toolchain installed. The
// pipeline only depends on the interfaces here.
package compiler

import (
	"context"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/hotbuild/internal/manifest"
)

// Category classifies where a processed file runs.
type Category string

const (
	CategoryClient Category = "client"
	CategoryServer Category = "server"
	CategoryShared Category = "shared"
	CategoryOther  Category = "other"
)

// Categorize maps a plugin-relative path to its runtime category by its top
// path segment.
func Categorize(relPath string) Category {
	seg := relPath
	for {
		dir := filepath.Dir(seg)
		if dir == "." || dir == string(filepath.Separator) {
			break
		}
		seg = dir
	}
	switch strings.ToLower(seg) {
	case "client":
		return CategoryClient
	case "server":
		return CategoryServer
	case "shared":
		return CategoryShared
	default:
		return CategoryOther
	}
}

// Input is one source file handed to a compiler.
type Input struct {
	// SourcePath is the absolute path of the source file.
	SourcePath string
	// RelPath is the path relative to the plugin directory; it determines
	// the category and the output location.
	RelPath string
	// OutputDir is the absolute per-plugin output directory.
	OutputDir string
}

// ProcessedFile describes one produced artifact.
type ProcessedFile struct {
	SourcePath string
	OutputPath string
	Category   Category
}

// Compiler converts one source file into its output form. A nil ProcessedFile
// with a nil error means the file was deliberately skipped (declaration-only
// sources, the manifest itself).
type Compiler interface {
	Compile(ctx context.Context, in Input) (*ProcessedFile, error)
}

// Page is one UI page bundling request.
type Page struct {
	// PluginDir is the absolute plugin source directory.
	PluginDir string
	// Entry is the UI entry point relative to the plugin directory.
	Entry string
	// OutputDir is the absolute per-plugin output directory; the page lands
	// under its ui/ subdirectory.
	OutputDir string
}

// PageCompiler bundles a plugin's browser UI.
type PageCompiler interface {
	CompilePage(ctx context.Context, page Page) error
}

// scriptExts are the sources the script bundler owns; everything else is
// copied verbatim.
var scriptExts = map[string]struct{}{
	".ts": {}, ".tsx": {}, ".js": {}, ".jsx": {},
}

// skippable reports whether relPath produces no artifact at all. The
// top-level manifest is written by the build itself, after the UI-asset
// append; declaration files carry no runtime code.
func skippable(relPath string) bool {
	if relPath == manifest.FileName {
		return true
	}
	return strings.HasSuffix(strings.ToLower(filepath.Base(relPath)), ".d.ts")
}

// isScript reports whether relPath belongs to the script bundler.
func isScript(relPath string) bool {
	_, ok := scriptExts[strings.ToLower(filepath.Ext(relPath))]
	return ok
}

// outputRel maps a source path to its output path relative to the plugin
// output dir. Script sources come out as .js next to their original location.
func outputRel(relPath string) string {
	if !isScript(relPath) {
		return relPath
	}
	ext := filepath.Ext(relPath)
	return relPath[:len(relPath)-len(ext)] + ".js"
}
