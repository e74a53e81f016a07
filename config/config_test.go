package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/artpar/manifold/config"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
server:
  host: "127.0.0.1"
  port: 9090
  read_timeout: 15s
  write_timeout: 45s

definitions:
  dir: "./definitions"
  watch: true

logging:
  level: "debug"
  format: "console"

metrics:
  enabled: true
  path: "/stats"

spec:
  title: "Acme API"
  version: "2.1.0"
  description: "Acme entity service"
`

	cfg := writeAndLoad(t, content)

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Host = %s, want 127.0.0.1", cfg.Server.Host)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("ReadTimeout = %v, want 15s", cfg.Server.ReadTimeout)
	}
	if cfg.Definitions.Dir != "./definitions" {
		t.Errorf("Definitions.Dir = %s, want ./definitions", cfg.Definitions.Dir)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %s, want debug", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("Logging.Format = %s, want console", cfg.Logging.Format)
	}
	if cfg.Metrics.Path != "/stats" {
		t.Errorf("Metrics.Path = %s, want /stats", cfg.Metrics.Path)
	}
	if cfg.Spec.Title != "Acme API" {
		t.Errorf("Spec.Title = %s, want Acme API", cfg.Spec.Title)
	}
	if cfg.Spec.Version != "2.1.0" {
		t.Errorf("Spec.Version = %s, want 2.1.0", cfg.Spec.Version)
	}
	if cfg.Spec.Description != "Acme entity service" {
		t.Errorf("Spec.Description = %s, want Acme entity service", cfg.Spec.Description)
	}
}

func TestLoad_Defaults(t *testing.T) {
	content := `
definitions:
  dir: "./entities"
`

	cfg := writeAndLoad(t, content)

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("default Host = %s, want 0.0.0.0", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("default ReadTimeout = %v, want 30s", cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != 60*time.Second {
		t.Errorf("default WriteTimeout = %v, want 60s", cfg.Server.WriteTimeout)
	}
	if !cfg.Definitions.Watch {
		t.Error("default Definitions.Watch = false, want true")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("default Logging.Level = %s, want info", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("default Logging.Format = %s, want json", cfg.Logging.Format)
	}
	if !cfg.Metrics.Enabled {
		t.Error("default Metrics.Enabled = false, want true")
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("default Metrics.Path = %s, want /metrics", cfg.Metrics.Path)
	}
	if cfg.Spec.Title != "Manifold API" {
		t.Errorf("default Spec.Title = %s, want Manifold API", cfg.Spec.Title)
	}
	if cfg.Spec.Version != "1.0.0" {
		t.Errorf("default Spec.Version = %s, want 1.0.0", cfg.Spec.Version)
	}
}

func TestLoad_ExplicitFalseSticks(t *testing.T) {
	content := `
definitions:
  dir: "./entities"
  watch: false

metrics:
  enabled: false
`

	cfg := writeAndLoad(t, content)

	if cfg.Definitions.Watch {
		t.Error("Definitions.Watch = true, want false (explicit)")
	}
	if cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = true, want false (explicit)")
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	os.Setenv("TEST_DEFINITIONS_DIR", "/srv/manifold/entities")
	defer os.Unsetenv("TEST_DEFINITIONS_DIR")

	content := `
definitions:
  dir: "${TEST_DEFINITIONS_DIR}"
`

	cfg := writeAndLoad(t, content)

	if cfg.Definitions.Dir != "/srv/manifold/entities" {
		t.Errorf("Definitions.Dir = %s, want /srv/manifold/entities", cfg.Definitions.Dir)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := config.Load("/nonexistent/path/manifold.yaml")
	if err == nil {
		t.Fatal("expected error for nonexistent file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	content := `
definitions:
  dir: "./entities"
  this is not valid yaml: [
`
	_, err := writeAndLoadErr(t, content)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	content := `
server:
  port: 99999
`
	_, err := writeAndLoadErr(t, content)
	if err == nil {
		t.Fatal("expected error for out-of-range port")
	}
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	content := `
logging:
  level: "verbose"
`
	_, err := writeAndLoadErr(t, content)
	if err == nil {
		t.Fatal("expected error for invalid logging.level")
	}
}

func TestLoad_InvalidLogFormat(t *testing.T) {
	content := `
logging:
  format: "xml"
`
	_, err := writeAndLoadErr(t, content)
	if err == nil {
		t.Fatal("expected error for invalid logging.format")
	}
}

func TestLoad_InvalidMetricsPath(t *testing.T) {
	content := `
metrics:
  path: "stats"
`
	_, err := writeAndLoadErr(t, content)
	if err == nil {
		t.Fatal("expected error for metrics.path without leading slash")
	}
}

func TestLoad_EmptySpecVersion(t *testing.T) {
	content := `
spec:
  title: "Acme API"
  version: ""
`
	_, err := writeAndLoadErr(t, content)
	if err == nil {
		t.Fatal("expected error for empty spec.version")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	os.Setenv("MANIFOLD_SERVER_PORT", "7777")
	os.Setenv("MANIFOLD_LOG_LEVEL", "error")
	defer func() {
		os.Unsetenv("MANIFOLD_SERVER_PORT")
		os.Unsetenv("MANIFOLD_LOG_LEVEL")
	}()

	content := `
server:
  port: 8080
definitions:
  dir: "./entities"
logging:
  level: "info"
`

	cfg := writeAndLoad(t, content)

	// Env should override file
	if cfg.Server.Port != 7777 {
		t.Errorf("Server.Port = %d, want 7777 (env override)", cfg.Server.Port)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("Logging.Level = %s, want error (env override)", cfg.Logging.Level)
	}
	// File value should still be used for non-overridden
	if cfg.Definitions.Dir != "./entities" {
		t.Errorf("Definitions.Dir = %s, want ./entities", cfg.Definitions.Dir)
	}
}

func TestLoadFromEnv(t *testing.T) {
	os.Setenv("MANIFOLD_SERVER_HOST", "192.168.1.1")
	os.Setenv("MANIFOLD_SERVER_PORT", "3000")
	os.Setenv("MANIFOLD_SERVER_READ_TIMEOUT", "45s")
	os.Setenv("MANIFOLD_SERVER_WRITE_TIMEOUT", "90s")
	os.Setenv("MANIFOLD_DEFINITIONS_DIR", "/etc/manifold/entities")
	os.Setenv("MANIFOLD_DEFINITIONS_WATCH", "false")
	os.Setenv("MANIFOLD_LOG_LEVEL", "debug")
	os.Setenv("MANIFOLD_LOG_FORMAT", "console")
	os.Setenv("MANIFOLD_METRICS_ENABLED", "false")
	os.Setenv("MANIFOLD_METRICS_PATH", "/internal/metrics")
	os.Setenv("MANIFOLD_SPEC_TITLE", "Env API")
	os.Setenv("MANIFOLD_SPEC_VERSION", "3.0.0")
	defer func() {
		os.Unsetenv("MANIFOLD_SERVER_HOST")
		os.Unsetenv("MANIFOLD_SERVER_PORT")
		os.Unsetenv("MANIFOLD_SERVER_READ_TIMEOUT")
		os.Unsetenv("MANIFOLD_SERVER_WRITE_TIMEOUT")
		os.Unsetenv("MANIFOLD_DEFINITIONS_DIR")
		os.Unsetenv("MANIFOLD_DEFINITIONS_WATCH")
		os.Unsetenv("MANIFOLD_LOG_LEVEL")
		os.Unsetenv("MANIFOLD_LOG_FORMAT")
		os.Unsetenv("MANIFOLD_METRICS_ENABLED")
		os.Unsetenv("MANIFOLD_METRICS_PATH")
		os.Unsetenv("MANIFOLD_SPEC_TITLE")
		os.Unsetenv("MANIFOLD_SPEC_VERSION")
	}()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv error: %v", err)
	}

	if cfg.Server.Host != "192.168.1.1" {
		t.Errorf("Server.Host = %s, want 192.168.1.1", cfg.Server.Host)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("Server.Port = %d, want 3000", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 45*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 45s", cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != 90*time.Second {
		t.Errorf("Server.WriteTimeout = %v, want 90s", cfg.Server.WriteTimeout)
	}
	if cfg.Definitions.Dir != "/etc/manifold/entities" {
		t.Errorf("Definitions.Dir = %s, want /etc/manifold/entities", cfg.Definitions.Dir)
	}
	if cfg.Definitions.Watch {
		t.Error("Definitions.Watch = true, want false")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %s, want debug", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("Logging.Format = %s, want console", cfg.Logging.Format)
	}
	if cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = true, want false")
	}
	if cfg.Metrics.Path != "/internal/metrics" {
		t.Errorf("Metrics.Path = %s, want /internal/metrics", cfg.Metrics.Path)
	}
	if cfg.Spec.Title != "Env API" {
		t.Errorf("Spec.Title = %s, want Env API", cfg.Spec.Title)
	}
	if cfg.Spec.Version != "3.0.0" {
		t.Errorf("Spec.Version = %s, want 3.0.0", cfg.Spec.Version)
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv error: %v", err)
	}

	want := config.Default()
	if cfg.Server.Addr() != want.Server.Addr() {
		t.Errorf("Server.Addr = %s, want %s", cfg.Server.Addr(), want.Server.Addr())
	}
	if cfg.Logging.Level != want.Logging.Level {
		t.Errorf("Logging.Level = %s, want %s", cfg.Logging.Level, want.Logging.Level)
	}
	if cfg.Metrics.Enabled != want.Metrics.Enabled {
		t.Errorf("Metrics.Enabled = %v, want %v", cfg.Metrics.Enabled, want.Metrics.Enabled)
	}
}

func TestEnvOverrides_InvalidValues(t *testing.T) {
	os.Setenv("MANIFOLD_SERVER_PORT", "not-a-number")
	os.Setenv("MANIFOLD_SERVER_READ_TIMEOUT", "not-a-duration")
	defer func() {
		os.Unsetenv("MANIFOLD_SERVER_PORT")
		os.Unsetenv("MANIFOLD_SERVER_READ_TIMEOUT")
	}()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv error: %v", err)
	}

	// Should use defaults when env vars are invalid
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080 (default)", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 30s (default)", cfg.Server.ReadTimeout)
	}
}

func TestParseBoolValues(t *testing.T) {
	tests := []struct {
		value    string
		expected bool
	}{
		{"true", true},
		{"TRUE", true},
		{"True", true},
		{"1", true},
		{"yes", true},
		{"YES", true},
		{"on", true},
		{"false", false},
		{"FALSE", false},
		{"0", false},
		{"no", false},
		{"off", false},
		{"invalid", false},
	}

	for _, tt := range tests {
		os.Setenv("MANIFOLD_METRICS_ENABLED", tt.value)

		cfg, err := config.LoadFromEnv()
		if err != nil {
			t.Fatalf("LoadFromEnv error: %v", err)
		}

		if cfg.Metrics.Enabled != tt.expected {
			t.Errorf("value=%q: Metrics.Enabled = %v, want %v", tt.value, cfg.Metrics.Enabled, tt.expected)
		}

		os.Unsetenv("MANIFOLD_METRICS_ENABLED")
	}
}

func TestLoadWithFallback_FileExists(t *testing.T) {
	content := `
definitions:
  dir: "/from/file"
`

	dir := t.TempDir()
	path := filepath.Join(dir, "manifold.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.LoadWithFallback(path)
	if err != nil {
		t.Fatalf("LoadWithFallback error: %v", err)
	}

	if cfg.Definitions.Dir != "/from/file" {
		t.Errorf("Definitions.Dir = %s, want /from/file", cfg.Definitions.Dir)
	}
}

func TestLoadWithFallback_NoFile(t *testing.T) {
	os.Setenv("MANIFOLD_DEFINITIONS_DIR", "/from/env")
	defer os.Unsetenv("MANIFOLD_DEFINITIONS_DIR")

	cfg, err := config.LoadWithFallback("/nonexistent/manifold.yaml")
	if err != nil {
		t.Fatalf("LoadWithFallback error: %v", err)
	}

	if cfg.Definitions.Dir != "/from/env" {
		t.Errorf("Definitions.Dir = %s, want /from/env", cfg.Definitions.Dir)
	}
}

func TestLoadWithFallback_EmptyPath(t *testing.T) {
	cfg, err := config.LoadWithFallback("")
	if err != nil {
		t.Fatalf("LoadWithFallback error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080 (default)", cfg.Server.Port)
	}
}

func TestServerAddr(t *testing.T) {
	s := config.ServerConfig{Host: "127.0.0.1", Port: 9090}
	if got := s.Addr(); got != "127.0.0.1:9090" {
		t.Errorf("Addr() = %s, want 127.0.0.1:9090", got)
	}
}

// Helpers

func writeAndLoad(t *testing.T, content string) *config.Config {
	t.Helper()
	cfg, err := writeAndLoadErr(t, content)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	return cfg
}

func writeAndLoadErr(t *testing.T, content string) (*config.Config, error) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "manifold.yaml")

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return config.Load(path)
}
