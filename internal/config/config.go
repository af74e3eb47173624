// Package config loads the module's settings from environment variables.
// A .env file, when present, is loaded by main before this runs.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/lexavo/conseil/internal/store"
)

// Config aggregates every setting the CLI and serve mode need.
type Config struct {
	API   APIConfig
	Store StoreConfig
	UI    UIConfig
}

// APIConfig describes the remote assistant endpoint.
type APIConfig struct {
	BaseURL        string        `env:"CONSEIL_API_URL" envDefault:"http://127.0.0.1:8000"`
	RequestTimeout time.Duration `env:"CONSEIL_REQUEST_TIMEOUT" envDefault:"30s"`
	HealthInterval time.Duration `env:"CONSEIL_HEALTH_INTERVAL" envDefault:"5m"`
	UserID         string        `env:"CONSEIL_USER_ID" envDefault:"user_001"`
}

// StoreConfig selects and locates the persistence backend.
type StoreConfig struct {
	// Backend is one of sqlite, file, memory.
	Backend string `env:"CONSEIL_STORE" envDefault:"sqlite"`
	// Path is the database file (sqlite) or directory (file). Defaults to
	// the user config dir when empty.
	Path string `env:"CONSEIL_STORE_PATH"`
}

// UIConfig describes presentation settings.
type UIConfig struct {
	// ServeAddr is the listen address for the local web UI.
	ServeAddr string `env:"CONSEIL_SERVE_ADDR" envDefault:":7070"`
	NoColor   bool   `env:"CONSEIL_NO_COLOR"`
	Debug     bool   `env:"CONSEIL_DEBUG"`
}

// Load parses the environment into a Config and applies derived defaults.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg.API.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.API.BaseURL), "/")
	if cfg.API.RequestTimeout <= 0 {
		return nil, fmt.Errorf("invalid CONSEIL_REQUEST_TIMEOUT: must be positive")
	}
	if cfg.API.HealthInterval <= 0 {
		return nil, fmt.Errorf("invalid CONSEIL_HEALTH_INTERVAL: must be positive")
	}

	switch cfg.Store.Backend {
	case "sqlite", "file", "memory":
	default:
		return nil, fmt.Errorf("invalid CONSEIL_STORE value %q: want sqlite, file or memory", cfg.Store.Backend)
	}

	if cfg.Store.Path == "" && cfg.Store.Backend != "memory" {
		path, err := defaultStorePath(cfg.Store.Backend)
		if err != nil {
			return nil, err
		}
		cfg.Store.Path = path
	}

	// Allow ":7070" and "127.0.0.1:7070" alike, plus a bare port.
	if addr := strings.TrimSpace(cfg.UI.ServeAddr); !strings.Contains(addr, ":") {
		cfg.UI.ServeAddr = ":" + addr
	}

	return &cfg, nil
}

func defaultStorePath(backend string) (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	if backend == "file" {
		return filepath.Join(base, "conseil", "storage"), nil
	}
	return filepath.Join(base, "conseil", "conseil.db"), nil
}

// OpenStore opens the configured persistence backend.
func (c StoreConfig) OpenStore() (store.Store, error) {
	switch c.Backend {
	case "memory":
		return store.NewMemoryStore(), nil
	case "file":
		return store.NewFileStore(c.Path)
	default:
		return store.NewSQLiteStore(c.Path)
	}
}
