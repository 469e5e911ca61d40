package config

import "fmt"

// Validate checks configuration invariants that would otherwise surface as
// confusing runtime behavior.
func (c *Config) Validate() error {
	if c.Reload.Port < 1 || c.Reload.Port > 65535 {
		return fmt.Errorf("reload.port out of range: %d", c.Reload.Port)
	}
	if c.Agent.Port < 1 || c.Agent.Port > 65535 {
		return fmt.Errorf("agent.port out of range: %d", c.Agent.Port)
	}
	if c.Admin.Port < 1 || c.Admin.Port > 65535 {
		return fmt.Errorf("admin.port out of range: %d", c.Admin.Port)
	}
	if c.Reload.CooldownMS < 0 {
		return fmt.Errorf("reload.cooldown_ms must not be negative: %d", c.Reload.CooldownMS)
	}
	if c.Reload.TimeoutMS <= 0 {
		return fmt.Errorf("reload.timeout_ms must be positive: %d", c.Reload.TimeoutMS)
	}
	if c.Watch.Debounce.DefaultMS <= 0 || c.Watch.Debounce.WebviewMS <= 0 || c.Watch.Debounce.GeneratedMS <= 0 {
		return fmt.Errorf("watch.debounce windows must be positive")
	}
	if c.Build.Concurrency < 1 {
		return fmt.Errorf("build.concurrency must be at least 1: %d", c.Build.Concurrency)
	}
	if c.Reload.Enabled && c.Reload.APIKey == "" {
		return fmt.Errorf("reload.enabled requires an api key (%s or reload.api_key)", EnvAPIKey)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error: %q", c.Logging.Level)
	}
	return nil
}
