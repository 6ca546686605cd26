// Package config loads the server configuration from a TOML file, with
// defaults that make a bare config (or none at all) usable for local runs.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the full server configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Webshare  WebshareConfig  `toml:"webshare"`
	TMDB      TMDBConfig      `toml:"tmdb"`
	Resolver  ResolverConfig  `toml:"resolver"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Sessions  SessionsConfig  `toml:"sessions"`
	Logging   LoggingConfig   `toml:"logging"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type WebshareConfig struct {
	BaseURL string `toml:"base_url"`
	Salt    string `toml:"salt"`
}

type TMDBConfig struct {
	APIKey  string   `toml:"api_key"`
	Locales []string `toml:"locales"`
}

type ResolverConfig struct {
	MaxConcurrent  int `toml:"max_concurrent"`
	TimeoutSeconds int `toml:"timeout_seconds"`
}

func (c ResolverConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type RateLimitConfig struct {
	PerMinute int `toml:"per_minute"`
	Burst     int `toml:"burst"`
}

type SessionsConfig struct {
	Dir      string `toml:"dir"`
	TTLHours int    `toml:"ttl_hours"`
}

func (c SessionsConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

type LoggingConfig struct {
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{Addr: ":7000"},
		Webshare: WebshareConfig{
			BaseURL: "https://webshare.cz/api",
			Salt:    "webshare",
		},
		TMDB: TMDBConfig{
			APIKey:  os.Getenv("TMDB_API_KEY"),
			Locales: []string{"cs-CZ", "en-US"},
		},
		Resolver: ResolverConfig{
			MaxConcurrent:  4,
			TimeoutSeconds: 45,
		},
		RateLimit: RateLimitConfig{
			PerMinute: 60,
			Burst:     20,
		},
		Sessions: SessionsConfig{
			Dir:      "data",
			TTLHours: 12,
		},
		Logging: LoggingConfig{
			File:       "",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
	}
}

// Load reads the TOML file at path over the defaults. An empty path or a
// missing file returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the server cannot run with.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr must not be empty")
	}
	if c.Webshare.BaseURL == "" {
		return errors.New("webshare.base_url must not be empty")
	}
	if c.Resolver.MaxConcurrent < 1 {
		return errors.New("resolver.max_concurrent must be at least 1")
	}
	if c.Resolver.TimeoutSeconds < 1 {
		return errors.New("resolver.timeout_seconds must be at least 1")
	}
	if c.RateLimit.PerMinute < 1 || c.RateLimit.Burst < 1 {
		return errors.New("rate_limit values must be at least 1")
	}
	if c.Sessions.TTLHours < 1 {
		return errors.New("sessions.ttl_hours must be at least 1")
	}
	return nil
}
