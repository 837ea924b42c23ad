package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.API.BaseURL != "http://localhost:8080/api/v1" {
		t.Fatalf("base url = %q", cfg.API.BaseURL)
	}
	if cfg.Realtime.MaxRetries != 5 {
		t.Fatalf("max retries = %d", cfg.Realtime.MaxRetries)
	}
	if cfg.Timeout() != 15*time.Second {
		t.Fatalf("timeout = %v", cfg.Timeout())
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
api:
  base_url: https://api.example.com/v1
realtime:
  url: wss://api.example.com/ws
  retry_base_ms: 250
log:
  file: /tmp/mentorlink.log
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.API.BaseURL != "https://api.example.com/v1" {
		t.Fatalf("base url = %q", cfg.API.BaseURL)
	}
	if cfg.Realtime.URL != "wss://api.example.com/ws" {
		t.Fatalf("realtime url = %q", cfg.Realtime.URL)
	}
	if cfg.Realtime.RetryBase() != 250*time.Millisecond {
		t.Fatalf("retry base = %v", cfg.Realtime.RetryBase())
	}
	// Unset keys keep their defaults.
	if cfg.Realtime.RetryMax() != 8*time.Second {
		t.Fatalf("retry max = %v", cfg.Realtime.RetryMax())
	}
	if cfg.Log.File != "/tmp/mentorlink.log" {
		t.Fatalf("log file = %q", cfg.Log.File)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("api: [not a map"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("api:\n  base_url: https://file.example.com\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("MENTORLINK_API_URL", "https://env.example.com")
	t.Setenv("MENTORLINK_REALTIME_URL", "wss://env.example.com/ws")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.API.BaseURL != "https://env.example.com" {
		t.Fatalf("base url = %q", cfg.API.BaseURL)
	}
	if cfg.Realtime.URL != "wss://env.example.com/ws" {
		t.Fatalf("realtime url = %q", cfg.Realtime.URL)
	}
}
