//
//
package config

import (
	"fmt"
	"net/url"

	"github.com/lng-monitor/relay/internal/catalog"
)

// Validate enforces configuration rules.
func Validate(config *Config) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if err := validateServer(&config.Server); err != nil {
		return fmt.Errorf("server validation failed: %w", err)
	}

	if err := validateHub(&config.Hub); err != nil {
		return fmt.Errorf("hub validation failed: %w", err)
	}

	if err := validateCatalog(&config.Catalog); err != nil {
		return fmt.Errorf("catalog validation failed: %w", err)
	}

	if err := validateHistory(&config.History); err != nil {
		return fmt.Errorf("history validation failed: %w", err)
	}

	if err := validateClient(&config.Client); err != nil {
		return fmt.Errorf("client validation failed: %w", err)
	}

	return nil
}

func validateServer(config *ServerConfig) error {
	if config.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	if config.ReadTimeout < 0 || config.WriteTimeout < 0 || config.IdleTimeout < 0 {
		return fmt.Errorf("timeouts must be non-negative")
	}
	if config.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive, got %v", config.ShutdownTimeout)
	}
	return nil
}

// validateHub validates hub timing parameters.
func validateHub(config *HubConfig) error {
	if config.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %v", config.TickInterval)
	}

	// A send bound at or above the tick period would let one consumer delay the next tick
	if config.SendTimeout <= 0 {
		return fmt.Errorf("send timeout must be positive, got %v", config.SendTimeout)
	}
	if config.SendTimeout >= config.TickInterval {
		return fmt.Errorf("send timeout %v must be < tick interval %v", config.SendTimeout, config.TickInterval)
	}

	// The initial snapshot is enqueued before registration, so at least one slot is required
	if config.ConsumerBuffer < 1 {
		return fmt.Errorf("consumer buffer must be >= 1, got %d", config.ConsumerBuffer)
	}

	if config.StopTimeout <= 0 {
		return fmt.Errorf("stop timeout must be positive, got %v", config.StopTimeout)
	}

	return nil
}

func validateCatalog(config *CatalogConfig) error {
	if config.Path != "" {
		return nil
	}
	switch config.Builtin {
	case "", catalog.BuiltinLab, catalog.BuiltinBroadcast:
		return nil
	}
	return fmt.Errorf("builtin must be %q or %q, got %q", catalog.BuiltinLab, catalog.BuiltinBroadcast, config.Builtin)
}

func validateHistory(config *HistoryConfig) error {
	if !config.Enabled {
		return nil
	}
	if config.DSN == "" {
		return fmt.Errorf("dsn is required when history is enabled")
	}
	if config.Table == "" {
		return fmt.Errorf("table is required when history is enabled")
	}
	if config.QueryLimit <= 0 {
		return fmt.Errorf("query limit must be positive, got %d", config.QueryLimit)
	}
	return nil
}

func validateClient(config *ClientConfig) error {
	u, err := url.Parse(config.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base url %q must be an absolute URL", config.BaseURL)
	}
	if config.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", config.Timeout)
	}
	if config.CacheTTL < 0 {
		return fmt.Errorf("cache ttl must be non-negative, got %v", config.CacheTTL)
	}
	if config.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", config.PollInterval)
	}
	return nil
}
