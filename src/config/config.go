// Package config defines the service configuration and its loading rules:
// built-in defaults, an optional TOML file on top, then PREVIEW_* environment
// variable overrides so operators can tune deployments without editing files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig `toml:"server"`
	Feed      FeedConfig   `toml:"feed"`
	LogLevel  string       `toml:"log_level"`
	LogFormat string       `toml:"log_format"`
	LogFile   string       `toml:"log_file"`
}

type ServerConfig struct {
	Port              int           `toml:"port"`
	ShutdownTimeout   time.Duration `toml:"shutdown_timeout"`
	RateLimitDisabled bool          `toml:"rate_limit_disabled"`
	RateLimitMax      int           `toml:"rate_limit_max"`
	RateLimitWindow   time.Duration `toml:"rate_limit_window"`
}

// FeedConfig points at the upstream order-book source. When Enabled is
// false the ladder is only driven through the HTTP book endpoints.
type FeedConfig struct {
	Enabled     bool   `toml:"enabled"`
	RestBaseURL string `toml:"rest_base_url"`
	WsURL       string `toml:"ws_url"`
	Symbol      string `toml:"symbol"`
}

func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: 10 * time.Second,
			RateLimitMax:    100,
			RateLimitWindow: time.Second,
		},
		Feed: FeedConfig{
			Symbol: "BTCBUSD",
		},
		LogLevel: "info",
	}
}

// Load merges the TOML file at path (skipped when path is empty) on top of
// the defaults, loads a .env file if present, then applies PREVIEW_* env
// overrides.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setInt(&cfg.Server.Port, "PREVIEW_PORT")
	setInt(&cfg.Server.Port, "PORT") // compatibility alias
	setDur(&cfg.Server.ShutdownTimeout, "PREVIEW_SHUTDOWN_TIMEOUT")
	setBool(&cfg.Server.RateLimitDisabled, "PREVIEW_RATE_LIMIT_DISABLED")
	setInt(&cfg.Server.RateLimitMax, "PREVIEW_RATE_LIMIT_MAX")
	setDur(&cfg.Server.RateLimitWindow, "PREVIEW_RATE_LIMIT_WINDOW")

	setBool(&cfg.Feed.Enabled, "PREVIEW_FEED_ENABLED")
	setStr(&cfg.Feed.RestBaseURL, "PREVIEW_FEED_REST_BASE_URL")
	setStr(&cfg.Feed.WsURL, "PREVIEW_FEED_WS_URL")
	setStr(&cfg.Feed.Symbol, "PREVIEW_FEED_SYMBOL")

	setStr(&cfg.LogLevel, "LOG_LEVEL")
	setStr(&cfg.LogFormat, "LOG_FORMAT")
	setStr(&cfg.LogFile, "LOG_FILE")
}

// Validate checks invariants that would otherwise surface as runtime
// failures deep inside the feed or server wiring.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server port %d", c.Server.Port)
	}
	if c.Server.RateLimitMax <= 0 {
		return fmt.Errorf("config: rate limit max must be positive")
	}
	if c.Server.RateLimitWindow <= 0 {
		return fmt.Errorf("config: rate limit window must be positive")
	}
	if c.Feed.Enabled {
		if c.Feed.RestBaseURL == "" {
			return fmt.Errorf("config: feed enabled but rest_base_url is empty")
		}
		if c.Feed.WsURL == "" {
			return fmt.Errorf("config: feed enabled but ws_url is empty")
		}
		if c.Feed.Symbol == "" {
			return fmt.Errorf("config: feed enabled but symbol is empty")
		}
	}
	return nil
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			*dst = parsed
		}
	}
}

func setDur(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil && parsed > 0 {
			*dst = parsed
		}
	}
}
