package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":7000" {
		t.Fatalf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Webshare.Salt != "webshare" {
		t.Fatalf("salt = %q", cfg.Webshare.Salt)
	}
	if cfg.Sessions.TTL() != 12*time.Hour {
		t.Fatalf("ttl = %v", cfg.Sessions.TTL())
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[server]
addr = ":9090"

[resolver]
max_concurrent = 8
timeout_seconds = 30

[tmdb]
api_key = "k"
locales = ["en-US"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Fatalf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Resolver.MaxConcurrent != 8 || cfg.Resolver.Timeout() != 30*time.Second {
		t.Fatalf("resolver = %+v", cfg.Resolver)
	}
	if len(cfg.TMDB.Locales) != 1 || cfg.TMDB.Locales[0] != "en-US" {
		t.Fatalf("locales = %v", cfg.TMDB.Locales)
	}
	// Untouched sections keep their defaults.
	if cfg.RateLimit.PerMinute != 60 {
		t.Fatalf("rate limit = %+v", cfg.RateLimit)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[resolver]
max_concurrent = 0
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[server\naddr="), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}
