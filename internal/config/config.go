//
//
package config

import (
	"time"

	"github.com/lng-monitor/relay/internal/catalog"
)

// Config is the complete relay configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Hub     HubConfig     `yaml:"hub"`
	Catalog CatalogConfig `yaml:"catalog"`
	History HistoryConfig `yaml:"history"`
	Log     LogConfig     `yaml:"log"`
	Client  ClientConfig  `yaml:"client"`
}

// ServerConfig holds HTTP and WebSocket listener settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// HubConfig holds broadcast hub timing.
type HubConfig struct {
	// TickInterval is the period between update snapshots.
	TickInterval time.Duration `yaml:"tickInterval"`
	// SendTimeout bounds a single delivery to one consumer.
	SendTimeout time.Duration `yaml:"sendTimeout"`
	// ConsumerBuffer is the capacity of each consumer's delivery channel.
	ConsumerBuffer int `yaml:"consumerBuffer"`
	// StopTimeout bounds how long Stop waits for the tick loop.
	StopTimeout time.Duration `yaml:"stopTimeout"`
	// Seed fixes the simulation random source; 0 seeds from the clock.
	Seed uint64 `yaml:"seed"`
}

// CatalogConfig locates the instrument catalog. An empty path selects the
// built-in catalog named by Builtin ("lab" or "broadcast").
type CatalogConfig struct {
	Path    string `yaml:"path"`
	Builtin string `yaml:"builtin"`
}

// HistoryConfig controls the snapshot recorder.
type HistoryConfig struct {
	Enabled    bool   `yaml:"enabled"`
	DSN        string `yaml:"dsn"`
	Table      string `yaml:"table"`
	QueryLimit int    `yaml:"queryLimit"`
}

// LogConfig controls the optional rotating log file.
type LogConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
}

// ClientConfig holds settings for the polling client.
type ClientConfig struct {
	BaseURL      string        `yaml:"baseUrl"`
	Timeout      time.Duration `yaml:"timeout"`
	CacheTTL     time.Duration `yaml:"cacheTtl"`
	PollInterval time.Duration `yaml:"pollInterval"`
}

// Baseline returns the default configuration.
func Baseline() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Hub: HubConfig{
			TickInterval:   2 * time.Second,
			SendTimeout:    100 * time.Millisecond,
			ConsumerBuffer: 16,
			StopTimeout:    5 * time.Second,
		},
		Catalog: CatalogConfig{
			Builtin: catalog.BuiltinLab,
		},
		History: HistoryConfig{
			Enabled:    false,
			DSN:        "file:relay-history.db?_pragma=busy_timeout(5000)",
			Table:      "snapshots",
			QueryLimit: 500,
		},
		Log: LogConfig{
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 28,
		},
		Client: ClientConfig{
			BaseURL:      "http://localhost:8080/api",
			Timeout:      10 * time.Second,
			CacheTTL:     5 * time.Minute,
			PollInterval: 5 * time.Second,
		},
	}
}
