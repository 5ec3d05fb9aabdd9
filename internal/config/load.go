//
//
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// EnvConfigPath names the variable holding the YAML config path.
const EnvConfigPath = "RELAY_CONFIG"

// Load merges Baseline() + optional YAML file + RELAY_* env overrides.
// An empty path falls back to $RELAY_CONFIG; no file at all is not an error.
func Load(path string) (*Config, error) {
	config := Baseline()

	// Populate the environment from .env without overriding real variables
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}

	if path != "" {
		if err := loadFromFile(config, path); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := Validate(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// loadFromFile decodes YAML over the current values so unset keys keep their defaults.
func loadFromFile(config *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	return yaml.UnmarshalStrict(data, config)
}

// applyEnvOverrides applies RELAY_* environment variables to the config.
// Unparseable values are ignored and the previous value kept.
func applyEnvOverrides(config *Config) {
	config.Server.Addr = GetEnvVar("RELAY_ADDR", config.Server.Addr)
	config.Server.ReadTimeout = GetEnvDuration("RELAY_SERVER_READ_TIMEOUT", config.Server.ReadTimeout)
	config.Server.WriteTimeout = GetEnvDuration("RELAY_SERVER_WRITE_TIMEOUT", config.Server.WriteTimeout)
	config.Server.IdleTimeout = GetEnvDuration("RELAY_SERVER_IDLE_TIMEOUT", config.Server.IdleTimeout)
	config.Server.ShutdownTimeout = GetEnvDuration("RELAY_SERVER_SHUTDOWN_TIMEOUT", config.Server.ShutdownTimeout)

	config.Hub.TickInterval = GetEnvDuration("RELAY_HUB_TICK_INTERVAL", config.Hub.TickInterval)
	config.Hub.SendTimeout = GetEnvDuration("RELAY_HUB_SEND_TIMEOUT", config.Hub.SendTimeout)
	config.Hub.ConsumerBuffer = GetEnvInt("RELAY_HUB_CONSUMER_BUFFER", config.Hub.ConsumerBuffer)
	config.Hub.StopTimeout = GetEnvDuration("RELAY_HUB_STOP_TIMEOUT", config.Hub.StopTimeout)
	if val := os.Getenv("RELAY_HUB_SEED"); val != "" {
		if seed, err := strconv.ParseUint(val, 10, 64); err == nil {
			config.Hub.Seed = seed
		}
	}

	config.Catalog.Path = GetEnvVar("RELAY_CATALOG_PATH", config.Catalog.Path)
	config.Catalog.Builtin = GetEnvVar("RELAY_CATALOG_BUILTIN", config.Catalog.Builtin)

	config.History.Enabled = GetEnvBool("RELAY_HISTORY_ENABLED", config.History.Enabled)
	config.History.DSN = GetEnvVar("RELAY_HISTORY_DSN", config.History.DSN)
	config.History.Table = GetEnvVar("RELAY_HISTORY_TABLE", config.History.Table)
	config.History.QueryLimit = GetEnvInt("RELAY_HISTORY_QUERY_LIMIT", config.History.QueryLimit)

	config.Log.File = GetEnvVar("RELAY_LOG_FILE", config.Log.File)
	config.Log.MaxSizeMB = GetEnvInt("RELAY_LOG_MAX_SIZE_MB", config.Log.MaxSizeMB)
	config.Log.MaxBackups = GetEnvInt("RELAY_LOG_MAX_BACKUPS", config.Log.MaxBackups)
	config.Log.MaxAgeDays = GetEnvInt("RELAY_LOG_MAX_AGE_DAYS", config.Log.MaxAgeDays)

	config.Client.BaseURL = GetEnvVar("RELAY_CLIENT_BASE_URL", config.Client.BaseURL)
	config.Client.Timeout = GetEnvDuration("RELAY_CLIENT_TIMEOUT", config.Client.Timeout)
	config.Client.CacheTTL = GetEnvDuration("RELAY_CLIENT_CACHE_TTL", config.Client.CacheTTL)
	config.Client.PollInterval = GetEnvDuration("RELAY_CLIENT_POLL_INTERVAL", config.Client.PollInterval)
}

// GetEnvVar returns the value of an environment variable with a default.
func GetEnvVar(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvDuration returns the value of an environment variable as a duration with a default.
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// GetEnvInt returns the value of an environment variable as an int with a default.
func GetEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// GetEnvBool returns the value of an environment variable as a bool with a default.
func GetEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
