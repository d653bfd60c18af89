// Package config loads runtime configuration from the environment.
//
// A .env file in the working directory is loaded first (if present), then the
// process environment is parsed into the Config struct via struct tags. Env
// vars always win over .env values, which godotenv guarantees by never
// overwriting variables that are already set.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// DefaultJWTSecret is the documented fallback signing key used when
// JWT_SECRET is unset. It is insecure by construction — anyone reading this
// source can forge tokens — and exists only so the server starts in local
// development. Startup logs a warning whenever it is in effect.
const DefaultJWTSecret = "your-secret-key-change-in-production"

// Storage backend names accepted in STORAGE_BACKEND.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
	BackendRemote = "remote"
)

// Engine modes accepted in GIT_ENGINE_MODE. Snapshot mode rebuilds an
// ephemeral repository from registry rows on every operation and retains no
// history between calls. Durable mode (persistent per-repository object
// storage) is a recognised but unimplemented choice; selecting it is a
// startup error rather than a silent fallback.
const (
	EngineSnapshot = "snapshot"
	EngineDurable  = "durable"
)

type Config struct {
	Port      int    `env:"PORT" envDefault:"3001"`
	JWTSecret string `env:"JWT_SECRET"`

	// StorageBackend selects the adapter implementation: sqlite, memory, or
	// remote. Empty means sqlite, or memory when DemoMode is on.
	StorageBackend string `env:"STORAGE_BACKEND"`
	DBPath         string `env:"DB_PATH" envDefault:"data/gitmap.db"`
	RemoteURL      string `env:"REMOTE_DB_URL"`
	RemoteKey      string `env:"REMOTE_DB_KEY"`

	// DemoMode is the deployment-mode flag: it switches the default storage
	// backend to the in-memory store and enables the fixed demo credential
	// pair (demo@gitmap.com / demo123) that bypasses password verification.
	DemoMode bool `env:"DEMO_MODE" envDefault:"false"`

	EngineMode   string `env:"GIT_ENGINE_MODE" envDefault:"snapshot"`
	GitBinary    string `env:"GIT_BINARY" envDefault:"git"`
	ScanMaxDepth int    `env:"SCAN_MAX_DEPTH" envDefault:"6"`

	// GitURLHost is the host portion of synthesized clone URLs:
	// git://<host>/<username>/<name>.git
	GitURLHost string `env:"GIT_URL_HOST" envDefault:"localhost:3001"`
}

// Load reads .env (best effort) and the process environment, applies
// defaults, and validates the result.
func Load() (Config, error) {
	// Missing .env is the normal case in production; only a parse failure of
	// an existing file would matter, and godotenv reports both as an error we
	// can safely ignore.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing environment: %w", err)
	}

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = DefaultJWTSecret
	}

	if cfg.StorageBackend == "" {
		if cfg.DemoMode {
			cfg.StorageBackend = BackendMemory
		} else {
			cfg.StorageBackend = BackendSQLite
		}
	}

	switch cfg.StorageBackend {
	case BackendSQLite, BackendMemory, BackendRemote:
	default:
		return Config{}, fmt.Errorf("config: unknown STORAGE_BACKEND %q", cfg.StorageBackend)
	}

	if cfg.StorageBackend == BackendRemote && cfg.RemoteURL == "" {
		return Config{}, fmt.Errorf("config: STORAGE_BACKEND=remote requires REMOTE_DB_URL")
	}

	switch cfg.EngineMode {
	case EngineSnapshot:
	case EngineDurable:
		return Config{}, fmt.Errorf("config: GIT_ENGINE_MODE=durable is not implemented; use snapshot")
	default:
		return Config{}, fmt.Errorf("config: unknown GIT_ENGINE_MODE %q", cfg.EngineMode)
	}

	if cfg.ScanMaxDepth < 1 {
		return Config{}, fmt.Errorf("config: SCAN_MAX_DEPTH must be at least 1")
	}

	return cfg, nil
}

// UsingDefaultSecret reports whether the insecure fallback signing key is in
// effect, so main can log the hardening gap.
func (c Config) UsingDefaultSecret() bool {
	return c.JWTSecret == DefaultJWTSecret
}
