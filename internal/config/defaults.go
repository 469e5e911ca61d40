package config

import (
	"path/filepath"
	"time"
)

// Built-in defaults. Debounce windows are deliberately uneven: generated
// resource churn comes from bulk copies and needs the longest settling
// window, webview bundling sits in between, a single source edit settles
// fastest.
const (
	DefaultReloadHost     = "127.0.0.1"
	DefaultReloadPort     = 30121
	DefaultCooldownMS     = 2000
	DefaultTimeoutMS      = 5000
	DefaultDebounceMS     = 250
	DefaultWebviewMS      = 750
	DefaultGeneratedMS    = 1500
	DefaultConcurrency    = 4
	DefaultAdminHost      = "127.0.0.1"
	DefaultAdminPort      = 8113
	DefaultSelfName       = "hotbuild"
	DefaultHistoryPath    = ".hotbuild/history.db"
	DefaultRetentionDays  = 14
	DefaultSubjectPrefix  = "hotbuild"
)

func applyDefaults(config *Config) {
	if config.Paths.Root == "" {
		config.Paths.Root = "."
	}
	if config.Paths.PluginsDir == "" {
		config.Paths.PluginsDir = filepath.Join(config.Paths.Root, "plugins")
	}
	if config.Paths.CoreDir == "" {
		config.Paths.CoreDir = filepath.Join(config.Paths.Root, "core")
	}
	if config.Paths.DistDir == "" {
		config.Paths.DistDir = filepath.Join(config.Paths.Root, "dist")
	}
	if config.Paths.WebviewDir == "" {
		config.Paths.WebviewDir = filepath.Join(config.Paths.Root, "webview")
	}

	if config.Reload.Host == "" {
		config.Reload.Host = DefaultReloadHost
	}
	if config.Reload.Port == 0 {
		config.Reload.Port = DefaultReloadPort
	}
	if config.Reload.CooldownMS == 0 {
		config.Reload.CooldownMS = DefaultCooldownMS
	}
	if config.Reload.TimeoutMS == 0 {
		config.Reload.TimeoutMS = DefaultTimeoutMS
	}

	if len(config.Watch.Extensions) == 0 {
		config.Watch.Extensions = []string{
			".ts", ".tsx", ".js", ".jsx", ".json", ".yaml", ".yml", ".html", ".css",
		}
	}
	if len(config.Watch.Ignore) == 0 {
		config.Watch.Ignore = []string{".git", ".hg", ".svn", "node_modules", ".cache", ".hotbuild"}
	}
	if config.Watch.Debounce.DefaultMS == 0 {
		config.Watch.Debounce.DefaultMS = DefaultDebounceMS
	}
	if config.Watch.Debounce.WebviewMS == 0 {
		config.Watch.Debounce.WebviewMS = DefaultWebviewMS
	}
	if config.Watch.Debounce.GeneratedMS == 0 {
		config.Watch.Debounce.GeneratedMS = DefaultGeneratedMS
	}

	if config.Build.Concurrency == 0 {
		config.Build.Concurrency = DefaultConcurrency
	}

	if config.Agent.Host == "" {
		config.Agent.Host = DefaultReloadHost
	}
	if config.Agent.Port == 0 {
		config.Agent.Port = DefaultReloadPort
	}
	if config.Agent.SelfName == "" {
		config.Agent.SelfName = DefaultSelfName
	}

	if config.Admin.Host == "" {
		config.Admin.Host = DefaultAdminHost
	}
	if config.Admin.Port == 0 {
		config.Admin.Port = DefaultAdminPort
	}

	if config.History.Path == "" {
		config.History.Path = DefaultHistoryPath
	}
	if config.History.RetentionDays == 0 {
		config.History.RetentionDays = DefaultRetentionDays
	}

	if config.Events.SubjectPrefix == "" {
		config.Events.SubjectPrefix = DefaultSubjectPrefix
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if config.Logging.Format == "" {
		config.Logging.Format = "text"
	}
}

// Cooldown returns the restart cooldown window.
func (r ReloadConfig) Cooldown() time.Duration {
	return time.Duration(r.CooldownMS) * time.Millisecond
}

// Timeout returns the control-plane request timeout.
func (r ReloadConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutMS) * time.Millisecond
}

// Default returns the settling window for the generic category.
func (d DebounceConfig) Default() time.Duration {
	return time.Duration(d.DefaultMS) * time.Millisecond
}

// Webview returns the settling window for webview bundling.
func (d DebounceConfig) Webview() time.Duration {
	return time.Duration(d.WebviewMS) * time.Millisecond
}

// Generated returns the settling window for generated-resource churn.
func (d DebounceConfig) Generated() time.Duration {
	return time.Duration(d.GeneratedMS) * time.Millisecond
}
