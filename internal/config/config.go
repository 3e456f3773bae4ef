package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

// AppName names the config and data directories.
const AppName = "mtg-binder"

// EnvPrefix prefixes every environment override, e.g. BINDER_SERVER_PORT.
const EnvPrefix = "BINDER_"

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig   `toml:"server" envPrefix:"SERVER_"`
	Database DatabaseConfig `toml:"database" envPrefix:"DATABASE_"`
	Catalog  CatalogConfig  `toml:"catalog" envPrefix:"CATALOG_"`
	Import   ImportConfig   `toml:"import" envPrefix:"IMPORT_"`
	Tracing  TracingConfig  `toml:"tracing" envPrefix:"TRACING_"`
	App      AppConfig      `toml:"app" envPrefix:"APP_"`
}

// ServerConfig contains REST API settings.
type ServerConfig struct {
	Port           int      `toml:"port" env:"PORT"`
	AllowedOrigins []string `toml:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`
}

// DatabaseConfig contains SQLite settings.
type DatabaseConfig struct {
	Path        string `toml:"path" env:"PATH"`
	AutoMigrate bool   `toml:"auto_migrate" env:"AUTO_MIGRATE"`
}

// CatalogConfig contains card catalog client settings.
type CatalogConfig struct {
	BaseURL         string `toml:"base_url" env:"BASE_URL"`
	UserAgent       string `toml:"user_agent" env:"USER_AGENT"`
	MinSpacing      string `toml:"min_spacing" env:"MIN_SPACING"`             // Gap between calls (e.g., "100ms")
	Timeout         string `toml:"timeout" env:"TIMEOUT"`                     // Per-call limit (e.g., "30s")
	InterChunkDelay string `toml:"inter_chunk_delay" env:"INTER_CHUNK_DELAY"` // Pause between resolver chunks
}

// ImportConfig contains import pipeline settings.
type ImportConfig struct {
	MaxBulkEntries    int    `toml:"max_bulk_entries" env:"MAX_BULK_ENTRIES"`
	MaxSuggestedItems int    `toml:"max_suggested_items" env:"MAX_SUGGESTED_ITEMS"`
	JobTTL            string `toml:"job_ttl" env:"JOB_TTL"`
}

// Span exporters accepted in TracingConfig.Exporter.
const (
	ExporterNone = "none"
	ExporterOTLP = "otlp"
)

// TracingConfig contains OpenTelemetry settings. Tracing is off unless
// Exporter is "otlp".
type TracingConfig struct {
	Exporter    string  `toml:"exporter" env:"EXPORTER"`
	Endpoint    string  `toml:"endpoint" env:"ENDPOINT"` // OTLP/HTTP URL, e.g. "http://localhost:4318"
	ServiceName string  `toml:"service_name" env:"SERVICE_NAME"`
	SampleRatio float64 `toml:"sample_ratio" env:"SAMPLE_RATIO"`
}

// AppConfig contains general application settings.
type AppConfig struct {
	DebugMode bool `toml:"debug_mode" env:"DEBUG_MODE"` // Enable debug logging
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*", "https://localhost:*"},
		},
		Database: DatabaseConfig{
			Path:        filepath.Join(xdg.DataHome, AppName, "binder.db"),
			AutoMigrate: true,
		},
		Catalog: CatalogConfig{
			BaseURL:         "https://api.scryfall.com",
			UserAgent:       "MTG-Binder/1.0",
			MinSpacing:      "100ms",
			Timeout:         "30s",
			InterChunkDelay: "150ms",
		},
		Import: ImportConfig{
			MaxBulkEntries:    500,
			MaxSuggestedItems: 10,
			JobTTL:            "1h",
		},
		Tracing: TracingConfig{
			Exporter:    ExporterNone,
			ServiceName: AppName,
			SampleRatio: 1,
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/mtg-binder/config.toml.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.toml")
}

// Load reads the TOML file at path (DefaultPath when empty) over the defaults,
// applies BINDER_* environment overrides and validates the result. A missing
// file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	config := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := env.ParseWithOptions(config, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save writes the configuration to path (DefaultPath when empty).
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	durations := []struct {
		name  string
		value string
	}{
		{"catalog min_spacing", c.Catalog.MinSpacing},
		{"catalog timeout", c.Catalog.Timeout},
		{"catalog inter_chunk_delay", c.Catalog.InterChunkDelay},
		{"import job_ttl", c.Import.JobTTL},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.name, d.value, err)
		}
		if v < 0 {
			return fmt.Errorf("%s cannot be negative: %s", d.name, d.value)
		}
	}
	if timeout, _ := time.ParseDuration(c.Catalog.Timeout); timeout == 0 {
		return errors.New("catalog timeout must be positive")
	}

	if c.Import.MaxBulkEntries < 1 || c.Import.MaxBulkEntries > 500 {
		return fmt.Errorf("import max_bulk_entries must be between 1 and 500: %d", c.Import.MaxBulkEntries)
	}
	if c.Import.MaxSuggestedItems < 0 {
		return fmt.Errorf("import max_suggested_items cannot be negative: %d", c.Import.MaxSuggestedItems)
	}

	switch c.Tracing.Exporter {
	case "", ExporterNone:
	case ExporterOTLP:
		if c.Tracing.Endpoint == "" {
			return errors.New("tracing endpoint is required for the otlp exporter")
		}
	default:
		return fmt.Errorf("invalid tracing exporter: %q (valid values: none, otlp)", c.Tracing.Exporter)
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing sample_ratio must be between 0 and 1: %g", c.Tracing.SampleRatio)
	}

	return nil
}

// MinSpacing returns the catalog call spacing. Call Validate first.
func (c *Config) MinSpacing() time.Duration {
	return parseDuration(c.Catalog.MinSpacing)
}

// CatalogTimeout returns the per-call catalog timeout.
func (c *Config) CatalogTimeout() time.Duration {
	return parseDuration(c.Catalog.Timeout)
}

// InterChunkDelay returns the pause between resolver chunks.
func (c *Config) InterChunkDelay() time.Duration {
	return parseDuration(c.Catalog.InterChunkDelay)
}

// JobTTL returns how long finished import jobs are kept.
func (c *Config) JobTTL() time.Duration {
	return parseDuration(c.Import.JobTTL)
}

func parseDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
