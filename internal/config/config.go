// Package config loads server settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Store backends selectable via STORE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config holds everything cmd/server needs to wire the engine.
type Config struct {
	ListenAddr string
	LogLevel   string

	StoreBackend string
	RedisAddr    string
	RedisPass    string
	RedisDB      int
	SQLitePath   string
	PostgresDSN  string

	SessionTTL    time.Duration
	ArchiveTTL    time.Duration
	SweepInterval time.Duration
	SubmitTimeout time.Duration

	N8NBaseURL string
	N8NAPIKey  string

	// CatalogOverlay optionally points at a YAML file with extra or
	// replacement node type entries.
	CatalogOverlay string
}

// Load reads the configuration from the environment, applying defaults for
// everything optional.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:     getEnv("LISTEN_ADDR", ":8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		StoreBackend:   getEnv("STORE_BACKEND", BackendMemory),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		SQLitePath:     getEnv("SQLITE_PATH", "sessions.db"),
		PostgresDSN:    getEnv("POSTGRES_DSN", ""),
		SessionTTL:     getEnvDuration("SESSION_TTL", 30*time.Minute),
		ArchiveTTL:     getEnvDuration("ARCHIVE_TTL", 24*time.Hour),
		SweepInterval:  getEnvDuration("SWEEP_INTERVAL", time.Minute),
		SubmitTimeout:  getEnvDuration("SUBMIT_TIMEOUT", 30*time.Second),
		N8NBaseURL:     getEnv("N8N_BASE_URL", "http://localhost:5678"),
		N8NAPIKey:      getEnv("N8N_API_KEY", ""),
		CatalogOverlay: getEnv("CATALOG_OVERLAY", ""),
	}

	switch cfg.StoreBackend {
	case BackendMemory, BackendRedis, BackendSQLite:
	case BackendPostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("STORE_BACKEND=postgres requires POSTGRES_DSN")
		}
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q (want memory, redis, sqlite or postgres)", cfg.StoreBackend)
	}

	if cfg.SessionTTL <= 0 || cfg.ArchiveTTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL and ARCHIVE_TTL must be positive")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
