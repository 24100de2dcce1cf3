package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got: %d", cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("Expected default shutdown timeout 10s, got: %s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Feed.Enabled {
		t.Error("Feed should be disabled by default")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected default log level info, got: %s", cfg.LogLevel)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Defaults must validate, got: %v", err)
	}
}

func TestLoadTOMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
log_level = "debug"

[server]
port = 9090
rate_limit_max = 50

[feed]
symbol = "ETHBUSD"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got: %d", cfg.Server.Port)
	}
	if cfg.Server.RateLimitMax != 50 {
		t.Errorf("Expected rate limit max 50, got: %d", cfg.Server.RateLimitMax)
	}
	if cfg.Feed.Symbol != "ETHBUSD" {
		t.Errorf("Expected symbol ETHBUSD, got: %s", cfg.Feed.Symbol)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected log level debug, got: %s", cfg.LogLevel)
	}
	// untouched keys keep their defaults
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("Expected default shutdown timeout, got: %s", cfg.Server.ShutdownTimeout)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PREVIEW_PORT", "3000")
	t.Setenv("PREVIEW_RATE_LIMIT_DISABLED", "true")
	t.Setenv("PREVIEW_SHUTDOWN_TIMEOUT", "5s")
	t.Setenv("PREVIEW_FEED_SYMBOL", "SOLBUSD")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 3000 {
		t.Errorf("Expected port 3000, got: %d", cfg.Server.Port)
	}
	if !cfg.Server.RateLimitDisabled {
		t.Error("Expected rate limiting disabled")
	}
	if cfg.Server.ShutdownTimeout != 5*time.Second {
		t.Errorf("Expected shutdown timeout 5s, got: %s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Feed.Symbol != "SOLBUSD" {
		t.Errorf("Expected symbol SOLBUSD, got: %s", cfg.Feed.Symbol)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("Expected log level warn, got: %s", cfg.LogLevel)
	}
}

func TestEnvOverridesIgnoreGarbage(t *testing.T) {
	t.Setenv("PREVIEW_PORT", "not-a-port")
	t.Setenv("PREVIEW_SHUTDOWN_TIMEOUT", "-3s")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Unparseable port should keep the default, got: %d", cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("Negative timeout should keep the default, got: %s", cfg.Server.ShutdownTimeout)
	}
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for port 0")
	}

	cfg = Defaults()
	cfg.Server.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for out-of-range port")
	}

	cfg = Defaults()
	cfg.Server.RateLimitMax = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for zero rate limit")
	}

	cfg = Defaults()
	cfg.Server.RateLimitWindow = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for zero rate limit window")
	}

	cfg = Defaults()
	cfg.Feed.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for enabled feed without URLs")
	}

	cfg.Feed.RestBaseURL = "https://api.example.com"
	cfg.Feed.WsURL = "wss://stream.example.com"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Fully configured feed must validate, got: %v", err)
	}
}
