// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Definitions DefinitionsConfig `yaml:"definitions"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Spec        SpecConfig        `yaml:"spec"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DefinitionsConfig configures where entity definitions are loaded from.
// When Dir is empty the server falls back to the built-in example entities.
type DefinitionsConfig struct {
	Dir   string `yaml:"dir"`
	Watch bool   `yaml:"watch"` // Reload definitions when files change
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // Enable /metrics endpoint
	Path    string `yaml:"path"`    // Custom path (default: /metrics)
}

// SpecConfig configures the generated OpenAPI document's info block.
type SpecConfig struct {
	Title       string `yaml:"title"`
	Version     string `yaml:"version"`
	Description string `yaml:"description,omitempty"`
}

// Default returns a configuration with every setting at its default value.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		Definitions: DefinitionsConfig{
			Watch: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Spec: SpecConfig{
			Title:   "Manifold API",
			Version: "1.0.0",
		},
	}
}

// Load reads configuration from a YAML file. Settings absent from the file
// keep their defaults, so an explicit "enabled: false" is distinguishable
// from an omitted key.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Environment variables always override file values
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
// This is useful for Docker deployments where no config file is needed.
//
// Environment variables:
//
//	MANIFOLD_SERVER_HOST          - Server host (default: 0.0.0.0)
//	MANIFOLD_SERVER_PORT          - Server port (default: 8080)
//	MANIFOLD_SERVER_READ_TIMEOUT  - Read timeout (default: 30s)
//	MANIFOLD_SERVER_WRITE_TIMEOUT - Write timeout (default: 60s)
//	MANIFOLD_DEFINITIONS_DIR      - Entity definitions directory
//	MANIFOLD_DEFINITIONS_WATCH    - Reload definitions on change (default: true)
//	MANIFOLD_LOG_LEVEL            - Log level: debug, info, warn, error (default: info)
//	MANIFOLD_LOG_FORMAT           - Log format: json or console (default: json)
//	MANIFOLD_METRICS_ENABLED      - Enable /metrics endpoint (default: true)
//	MANIFOLD_METRICS_PATH         - Metrics path (default: /metrics)
//	MANIFOLD_SPEC_TITLE           - OpenAPI document title
//	MANIFOLD_SPEC_VERSION         - OpenAPI document version
//	MANIFOLD_SPEC_DESCRIPTION     - OpenAPI document description
func LoadFromEnv() (*Config, error) {
	cfg := Default()

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// LoadWithFallback tries to load from file, falls back to environment
// variables. Every setting has a default, so a missing file is not an error.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

// applyEnvOverrides applies MANIFOLD_* environment variables to the config.
func applyEnvOverrides(cfg *Config) {
	// Server configuration
	if v := os.Getenv("MANIFOLD_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("MANIFOLD_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("MANIFOLD_SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := os.Getenv("MANIFOLD_SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}

	// Definitions configuration
	if v := os.Getenv("MANIFOLD_DEFINITIONS_DIR"); v != "" {
		cfg.Definitions.Dir = v
	}
	if v := os.Getenv("MANIFOLD_DEFINITIONS_WATCH"); v != "" {
		cfg.Definitions.Watch = parseBool(v)
	}

	// Logging configuration
	if v := os.Getenv("MANIFOLD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MANIFOLD_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Metrics configuration
	if v := os.Getenv("MANIFOLD_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("MANIFOLD_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}

	// Spec configuration
	if v := os.Getenv("MANIFOLD_SPEC_TITLE"); v != "" {
		cfg.Spec.Title = v
	}
	if v := os.Getenv("MANIFOLD_SPEC_VERSION"); v != "" {
		cfg.Spec.Version = v
	}
	if v := os.Getenv("MANIFOLD_SPEC_DESCRIPTION"); v != "" {
		cfg.Spec.Description = v
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error, got %q", c.Logging.Level)
	}

	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", c.Logging.Format)
	}

	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/', got %q", c.Metrics.Path)
	}

	if c.Spec.Title == "" {
		return fmt.Errorf("spec.title must not be empty")
	}
	if c.Spec.Version == "" {
		return fmt.Errorf("spec.version must not be empty")
	}

	return nil
}
