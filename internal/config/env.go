package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variable names consumed by hotbuild. All are optional; with
// none of them set the reload path stays disabled.
const (
	EnvServerName    = "HOTBUILD_SERVER_NAME"
	EnvReloadEnabled = "HOTBUILD_RELOAD_ENABLED"
	EnvReloadHost    = "HOTBUILD_RELOAD_HOST"
	EnvReloadPort    = "HOTBUILD_RELOAD_PORT"
	EnvAPIKey        = "HOTBUILD_API_KEY"
)

// loadEnvFiles loads .env and .env.local into the process environment.
// godotenv never overrides variables that are already set, so real
// environment always wins over dotfiles.
func loadEnvFiles() {
	for _, envPath := range []string{".env", ".env.local"} {
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
		}
	}
}

// applyEnvOverrides lets the process environment win over file values for the
// host-identifying and reload keys.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv(EnvServerName); v != "" {
		config.Server.Name = v
	}
	if v := os.Getenv(EnvReloadEnabled); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			config.Reload.Enabled = enabled
		}
	}
	if v := os.Getenv(EnvReloadHost); v != "" {
		config.Reload.Host = v
	}
	if v := os.Getenv(EnvReloadPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Reload.Port = port
		}
	}
	if v := os.Getenv(EnvAPIKey); v != "" {
		config.Reload.APIKey = v
	}
}
