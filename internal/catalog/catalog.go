// Package catalog renders plugin README files for the admin status page.
// Renders are cached by content fingerprint so the page stays cheap while the
// daemon rebuilds plugins underneath it.
package catalog

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/inful/mdfp"
	"github.com/yuin/goldmark"

	"git.home.luguber.info/inful/hotbuild/internal/logfields"
	"git.home.luguber.info/inful/hotbuild/internal/plugin"
)

const readmeName = "README.md"

// Entry is one plugin's catalog card.
type Entry struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	HasUI   bool   `json:"has_ui"`
	Title   string `json:"title,omitempty"`
	Summary string `json:"summary,omitempty"`
	// HTML is the rendered README body, empty when the plugin has none.
	HTML string `json:"-"`
}

type cached struct {
	fingerprint string
	entry       Entry
}

// Catalog builds catalog entries from scanned plugins.
type Catalog struct {
	md     goldmark.Markdown
	logger *slog.Logger

	mu    sync.Mutex
	cache map[string]cached
}

// New returns an empty catalog.
func New(logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		md:     goldmark.New(),
		logger: logger,
		cache:  make(map[string]cached),
	}
}

// Entries renders one entry per plugin, sorted by name. Plugins without a
// README still appear, with name and path only.
func (c *Catalog) Entries(plugins []*plugin.Plugin) []Entry {
	entries := make([]Entry, 0, len(plugins))
	for _, p := range plugins {
		entries = append(entries, c.entryFor(p))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

func (c *Catalog) entryFor(p *plugin.Plugin) Entry {
	entry := Entry{Name: p.Name, Path: p.Path, HasUI: p.HasUIPage}

	body, err := os.ReadFile(filepath.Join(p.AbsPath, readmeName))
	if err != nil {
		return entry
	}

	fp := mdfp.CalculateFingerprintFromParts("", string(body))
	c.mu.Lock()
	hit, ok := c.cache[p.AbsPath]
	c.mu.Unlock()
	if ok && hit.fingerprint == fp {
		entry = hit.entry
		entry.Name, entry.Path, entry.HasUI = p.Name, p.Path, p.HasUIPage
		return entry
	}

	var buf bytes.Buffer
	if err := c.md.Convert(body, &buf); err != nil {
		c.logger.Warn("README render failed",
			logfields.Plugin(p.Name), logfields.Error(err))
		return entry
	}

	entry.HTML = buf.String()
	entry.Title, entry.Summary = extract(strings.NewReader(entry.HTML))
	if entry.Title == "" {
		entry.Title = p.Name
	}

	c.mu.Lock()
	c.cache[p.AbsPath] = cached{fingerprint: fp, entry: entry}
	c.mu.Unlock()
	return entry
}

// Invalidate drops the cached render for one plugin directory.
func (c *Catalog) Invalidate(absPath string) {
	c.mu.Lock()
	delete(c.cache, absPath)
	c.mu.Unlock()
}

// Len reports the number of cached renders.
func (c *Catalog) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}
