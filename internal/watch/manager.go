// Package watch registers recursive filesystem watches over the source,
// output, and live-artifact trees and routes qualifying change events to a
// trigger callback.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/hotbuild/internal/config"
	hberrors "git.home.luguber.info/inful/hotbuild/internal/errors"
	"git.home.luguber.info/inful/hotbuild/internal/logfields"
	"git.home.luguber.info/inful/hotbuild/internal/metrics"
)

// Kind categorizes a watch root. Each kind maps to a different rebuild
// trigger in the daemon.
type Kind string

const (
	KindPlugin    Kind = "plugin"
	KindCore      Kind = "core"
	KindWebview   Kind = "webview"
	KindDist      Kind = "dist"
	KindGenerated Kind = "generated"
)

// Event is one qualifying filesystem change, attributed to its watch root.
type Event struct {
	Kind Kind
	// Path is the absolute path of the changed file.
	Path string
	// PluginPath is the plugin root directory for KindPlugin events.
	PluginPath string
}

// Root describes one recursive watch tree.
type Root struct {
	Kind Kind
	Dir  string
	// PluginPath attributes plugin-kind events to their plugin.
	PluginPath string
	// Extensions overrides the manager-wide allowlist for this root.
	Extensions []string
	// ExtraIgnore adds root-specific directory names to the ignore set.
	ExtraIgnore []string
}

// PluginRoot returns a watch root over one plugin directory. Build output
// nested inside the sources never retriggers a build.
func PluginRoot(dir string) Root {
	return Root{Kind: KindPlugin, Dir: dir, PluginPath: dir, ExtraIgnore: []string{"dist"}}
}

// CoreRoot returns a watch root over the shared core directory.
func CoreRoot(dir string) Root {
	return Root{Kind: KindCore, Dir: dir, ExtraIgnore: []string{"dist"}}
}

// WebviewRoot returns a watch root over the webview source tree.
func WebviewRoot(dir string) Root {
	return Root{Kind: KindWebview, Dir: dir, ExtraIgnore: []string{"dist"}}
}

// DistRoot returns a watch root over the compiled output tree.
func DistRoot(dir string) Root {
	return Root{Kind: KindDist, Dir: dir}
}

// GeneratedRoot returns a watch root over the host's live generated-content
// directory.
func GeneratedRoot(dir string) Root {
	return Root{Kind: KindGenerated, Dir: dir}
}

// registered is a Root with its filters compiled.
type registered struct {
	Root
	absDir string
	exts   map[string]struct{}
	ignore map[string]struct{}
}

// Manager owns the fsnotify watcher and the set of registered roots. Roots
// can be added while running; the periodic rescan uses that to pick up
// plugins created after startup.
type Manager struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	roots    []*registered
	baseExts map[string]struct{}
	ignore   []string
	recorder metrics.Recorder
	logger   *slog.Logger
}

// NewManager creates a watch manager using the configured extension
// allowlist and ignore list.
func NewManager(cfg config.WatchConfig, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, hberrors.WatchSetupFailed("", err)
	}
	return &Manager{
		watcher:  watcher,
		baseExts: extSet(cfg.Extensions),
		ignore:   cfg.Ignore,
		recorder: metrics.NewNoopRecorder(),
		logger:   logger,
	}, nil
}

// WithRecorder attaches a metrics recorder for event counters.
func (m *Manager) WithRecorder(recorder metrics.Recorder) *Manager {
	if recorder != nil {
		m.recorder = recorder
	}
	return m
}

// AddRoot registers root and walks its tree adding directory watches.
// Re-adding a known directory is a no-op, so rescans can call this blindly.
func (m *Manager) AddRoot(root Root) error {
	absDir, err := filepath.Abs(root.Dir)
	if err != nil {
		return hberrors.WatchSetupFailed(root.Dir, err)
	}
	if _, statErr := os.Stat(absDir); statErr != nil {
		return hberrors.WatchSetupFailed(root.Dir, statErr)
	}

	reg := &registered{
		Root:   root,
		absDir: absDir,
		exts:   m.baseExts,
		ignore: m.ignoreSet(root.ExtraIgnore),
	}
	if len(root.Extensions) > 0 {
		reg.exts = extSet(root.Extensions)
	}

	m.mu.Lock()
	for _, existing := range m.roots {
		if existing.absDir == absDir && existing.Kind == root.Kind {
			m.mu.Unlock()
			return nil
		}
	}
	m.roots = append(m.roots, reg)
	// Longest directory first so nested roots claim their own events.
	sort.Slice(m.roots, func(i, j int) bool {
		return len(m.roots[i].absDir) > len(m.roots[j].absDir)
	})
	m.mu.Unlock()

	if err := m.addDirs(reg, absDir); err != nil {
		return hberrors.WatchSetupFailed(root.Dir, err)
	}
	m.logger.Debug("watch root registered",
		logfields.Kind(string(root.Kind)), logfields.Root(absDir))
	return nil
}

// Roots returns the registered roots, longest directory first.
func (m *Manager) Roots() []Root {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Root, len(m.roots))
	for i, reg := range m.roots {
		out[i] = reg.Root
	}
	return out
}

// Run delivers qualifying events to callback until ctx is canceled or Close
// is called. Blocking; run it on its own goroutine.
func (m *Manager) Run(ctx context.Context, callback func(Event)) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			m.handle(event, callback)
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.logger.Warn("watch error", logfields.Error(err))
		}
	}
}

// Close shuts the watcher down; a running Run loop drains and returns.
func (m *Manager) Close() error {
	return m.watcher.Close()
}

// addDirs walks dir and registers a watch on every directory not ignored.
func (m *Manager) addDirs(reg *registered, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != reg.absDir {
			if _, skip := reg.ignore[d.Name()]; skip || strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
		}
		return m.watcher.Add(path)
	})
}

func (m *Manager) handle(event fsnotify.Event, callback func(Event)) {
	reg := m.rootFor(event.Name)
	if reg == nil {
		return
	}
	if ignoredPath(reg, event.Name) {
		return
	}

	// Fresh directories must be watched before their contents settle, or
	// nested events never arrive.
	if event.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := m.addDirs(reg, event.Name); err != nil {
				m.logger.Warn("failed to watch new directory",
					logfields.Path(event.Name), logfields.Error(err))
			}
			return
		}
	}

	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if !allowedExt(reg, event.Name) {
		return
	}

	m.recorder.RecordWatchEvent(string(reg.Kind))
	m.logger.Debug("change detected",
		logfields.Kind(string(reg.Kind)), logfields.Path(event.Name))
	callback(Event{Kind: reg.Kind, Path: event.Name, PluginPath: reg.PluginPath})
}

// rootFor returns the innermost registered root containing path.
func (m *Manager) rootFor(path string) *registered {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, reg := range m.roots {
		if within(reg.absDir, path) {
			return reg
		}
	}
	return nil
}

func (m *Manager) ignoreSet(extra []string) map[string]struct{} {
	set := make(map[string]struct{}, len(m.ignore)+len(extra))
	for _, name := range m.ignore {
		set[name] = struct{}{}
	}
	for _, name := range extra {
		set[name] = struct{}{}
	}
	return set
}

// ignoredPath reports whether any path component between the root and the
// event path is in the root's ignore set.
func ignoredPath(reg *registered, path string) bool {
	rel, err := filepath.Rel(reg.absDir, path)
	if err != nil {
		return true
	}
	for _, seg := range strings.Split(rel, string(filepath.Separator)) {
		if seg == "." || seg == ".." {
			continue
		}
		if _, skip := reg.ignore[seg]; skip || strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}

func allowedExt(reg *registered, path string) bool {
	if len(reg.exts) == 0 {
		return true
	}
	_, ok := reg.exts[strings.ToLower(filepath.Ext(path))]
	return ok
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func extSet(exts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[strings.ToLower(ext)] = struct{}{}
	}
	return set
}
