// Package config loads and validates hotbuild configuration from YAML and the
// process environment. Environment variables win over file values for the
// reload/control-plane keys so a checked-in config never needs to carry
// credentials.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the config filename probed in the working directory.
const DefaultConfigFile = "hotbuild.yaml"

// Config represents the application configuration
type Config struct {
	Paths   PathsConfig   `yaml:"paths"`
	Server  ServerConfig  `yaml:"server"`
	Reload  ReloadConfig  `yaml:"reload"`
	Watch   WatchConfig   `yaml:"watch"`
	Build   BuildConfig   `yaml:"build"`
	Agent   AgentConfig   `yaml:"agent"`
	Admin   AdminConfig   `yaml:"admin"`
	History HistoryConfig `yaml:"history"`
	Events  EventsConfig  `yaml:"events"`
	Logging LoggingConfig `yaml:"logging"`
}

// PathsConfig locates the source trees and the build output tree.
type PathsConfig struct {
	Root       string `yaml:"root"`
	PluginsDir string `yaml:"plugins_dir,omitempty"`
	CoreDir    string `yaml:"core_dir,omitempty"`
	DistDir    string `yaml:"dist_dir,omitempty"`
	WebviewDir string `yaml:"webview_dir,omitempty"`
}

// ServerConfig identifies the live host server that receives deployments.
// ResourcesDir wins when set; otherwise the directory is derived from
// ServersRoot and Name. When neither yields a path, deployment is skipped.
type ServerConfig struct {
	Name         string `yaml:"name,omitempty"`
	ServersRoot  string `yaml:"servers_root,omitempty"`
	ResourcesDir string `yaml:"resources_dir,omitempty"`
}

// ResolveResourcesDir returns the live resource root and whether one is
// configured at all.
func (s ServerConfig) ResolveResourcesDir() (string, bool) {
	if s.ResourcesDir != "" {
		return s.ResourcesDir, true
	}
	if s.ServersRoot != "" && s.Name != "" {
		return filepath.Join(s.ServersRoot, s.Name, "resources"), true
	}
	return "", false
}

// ReloadConfig controls the control-plane client used to restart resources.
type ReloadConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Host       string `yaml:"host,omitempty"`
	Port       int    `yaml:"port,omitempty"`
	APIKey     string `yaml:"api_key,omitempty"`
	CooldownMS int    `yaml:"cooldown_ms,omitempty"`
	TimeoutMS  int    `yaml:"timeout_ms,omitempty"`
}

// WatchConfig controls filesystem watching and debounce settling windows.
type WatchConfig struct {
	Enabled    bool           `yaml:"enabled"`
	Extensions []string       `yaml:"extensions,omitempty"`
	Ignore     []string       `yaml:"ignore,omitempty"`
	Debounce   DebounceConfig `yaml:"debounce,omitempty"`
}

// DebounceConfig holds per-category settling windows in milliseconds.
// Generated-resource churn (bulk copies) settles slowest, webview bundling
// in between, single source edits fastest.
type DebounceConfig struct {
	DefaultMS   int `yaml:"default_ms,omitempty"`
	WebviewMS   int `yaml:"webview_ms,omitempty"`
	GeneratedMS int `yaml:"generated_ms,omitempty"`
}

// BuildConfig controls compilation behavior.
type BuildConfig struct {
	Concurrency   int      `yaml:"concurrency,omitempty"`
	Incremental   bool     `yaml:"incremental"`
	ScriptCommand []string `yaml:"script_command,omitempty"`
	PageCommand   []string `yaml:"page_command,omitempty"`
}

// AgentConfig configures the host-side control-plane service.
type AgentConfig struct {
	Host           string   `yaml:"host,omitempty"`
	Port           int      `yaml:"port,omitempty"`
	SelfName       string   `yaml:"self_name,omitempty"`
	RestartCommand []string `yaml:"restart_command,omitempty"`
}

// AdminConfig configures the orchestrator's status/metrics HTTP server.
type AdminConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host,omitempty"`
	Port    int    `yaml:"port,omitempty"`
}

// HistoryConfig configures the sqlite build history store.
type HistoryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Path          string `yaml:"path,omitempty"`
	RetentionDays int    `yaml:"retention_days,omitempty"`
}

// EventsConfig configures optional NATS build-event publishing. Publishing is
// active only when NATSURL is set.
type EventsConfig struct {
	NATSURL       string `yaml:"nats_url,omitempty"`
	SubjectPrefix string `yaml:"subject_prefix,omitempty"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// Load loads configuration from the specified file, expands ${VAR} references,
// applies defaults, env overrides, and validation.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&config)
	applyEnvOverrides(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadOrDefault loads configPath when it exists and otherwise returns the
// default configuration with env overrides applied. Watching a plugin
// workspace should work without any config file on disk.
func LoadOrDefault(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = DefaultConfigFile
	}
	if _, err := os.Stat(configPath); err == nil {
		return Load(configPath)
	}
	loadEnvFiles()
	config := Default()
	applyEnvOverrides(config)
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	config := &Config{}
	applyDefaults(config)
	return config
}
