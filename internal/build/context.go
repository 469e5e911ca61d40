// Package build assembles trigger-specific pipelines over the compile, layout
// and deploy stages. One Context exists per run; runs never overlap, so the
// context is owned exclusively by its pipeline invocation.
package build

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/hotbuild/internal/config"
	"git.home.luguber.info/inful/hotbuild/internal/plugin"
)

// Trigger names the change kind that started a run. Each trigger selects a
// different stage list.
type Trigger string

const (
	// TriggerFull rebuilds everything from a clean output tree.
	TriggerFull Trigger = "full"
	// TriggerPlugin rebuilds one plugin.
	TriggerPlugin Trigger = "plugin"
	// TriggerCore rebuilds the shared core plugins.
	TriggerCore Trigger = "core"
	// TriggerWebview rebuilds everything that embeds webview output.
	TriggerWebview Trigger = "webview"
)

// Context is the per-run state threaded through every stage.
type Context struct {
	RunID   string
	Trigger Trigger

	RootDir    string
	PluginsDir string
	CoreDir    string
	DistDir    string
	WebviewDir string

	WatchEnabled  bool
	ReloadEnabled bool

	// Plugin scopes TriggerPlugin runs to one plugin.
	Plugin *plugin.Plugin

	Config *config.Config
	Logger *slog.Logger

	mu      sync.Mutex
	touched map[string]struct{}
}

// NewContext builds a run context from the configuration. The run ID ties
// log lines, history rows, and published events together.
func NewContext(cfg *config.Config, trigger Trigger, logger *slog.Logger) *Context {
	if logger == nil {
		logger = slog.Default()
	}
	return &Context{
		RunID:         uuid.NewString(),
		Trigger:       trigger,
		RootDir:       cfg.Paths.Root,
		PluginsDir:    cfg.Paths.PluginsDir,
		CoreDir:       cfg.Paths.CoreDir,
		DistDir:       cfg.Paths.DistDir,
		WebviewDir:    cfg.Paths.WebviewDir,
		WatchEnabled:  cfg.Watch.Enabled,
		ReloadEnabled: cfg.Reload.Enabled,
		Config:        cfg,
		Logger:        logger,
	}
}

// ForPlugin scopes the context to one plugin and returns it.
func (c *Context) ForPlugin(p *plugin.Plugin) *Context {
	c.Plugin = p
	return c
}

// Touch records a resource name affected by this run. The daemon restarts
// touched resources after a successful run.
func (c *Context) Touch(name string) {
	if name == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.touched == nil {
		c.touched = make(map[string]struct{})
	}
	c.touched[name] = struct{}{}
}

// Touched returns the affected resource names in sorted order.
func (c *Context) Touched() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.touched))
	for name := range c.touched {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
