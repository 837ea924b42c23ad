package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the client configuration: where the remote API and the
// realtime channel live, and how patient to be with both.
type Config struct {
	API      APIConfig      `yaml:"api"`
	Realtime RealtimeConfig `yaml:"realtime"`
	Log      LogConfig      `yaml:"log"`
}

// APIConfig holds HTTP API settings.
type APIConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// RealtimeConfig holds websocket channel settings, including the bounded
// reconnect policy.
type RealtimeConfig struct {
	URL         string `yaml:"url"`
	MaxRetries  int    `yaml:"max_retries"`
	RetryBaseMS int    `yaml:"retry_base_ms"`
	RetryMaxMS  int    `yaml:"retry_max_ms"`
}

// LogConfig holds logging settings. The TUI owns the terminal, so log output
// goes to a file when one is configured and is discarded otherwise.
type LogConfig struct {
	File string `yaml:"file"`
}

// Load reads a YAML config file, layering it over defaults. A missing file is
// not an error: the defaults plus environment overrides stand on their own.
// MENTORLINK_API_URL and MENTORLINK_REALTIME_URL override their file
// counterparts, with a .env file honored first.
func Load(path string) (*Config, error) {
	cfg := &Config{
		API: APIConfig{
			BaseURL:        "http://localhost:8080/api/v1",
			TimeoutSeconds: 15,
		},
		Realtime: RealtimeConfig{
			URL:         "ws://localhost:8080/ws",
			MaxRetries:  5,
			RetryBaseMS: 500,
			RetryMaxMS:  8000,
		},
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	_ = godotenv.Load()
	if v := os.Getenv("MENTORLINK_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("MENTORLINK_REALTIME_URL"); v != "" {
		cfg.Realtime.URL = v
	}

	return cfg, nil
}

// Timeout returns the HTTP request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// RetryBase returns the first reconnect delay.
func (c *RealtimeConfig) RetryBase() time.Duration {
	return time.Duration(c.RetryBaseMS) * time.Millisecond
}

// RetryMax returns the reconnect delay cap.
func (c *RealtimeConfig) RetryMax() time.Duration {
	return time.Duration(c.RetryMaxMS) * time.Millisecond
}
