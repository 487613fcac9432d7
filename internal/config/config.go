// Package config loads runtime settings from an optional .env file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/dvloznov/finance-dashboard/internal/kv"
)

const (
	DefaultPort        = "8080"
	DefaultDataDir     = "data"
	DefaultGeminiModel = "gemini-2.5-flash"
	DefaultBQDataset   = "finance_dashboard"
)

type Config struct {
	Port     string
	LogLevel string

	StoreBackend string
	DataDir      string
	RedisURL     string
	DatabaseURL  string

	GCSBucket string
	BQProject string
	BQDataset string

	NotionToken   string
	NotionGoalsDB string

	GeminiAPIKey string
	GeminiModel  string

	JobWorkers    int
	JobMaxRetries int
	JobBackoff    time.Duration
}

// Load reads the given .env files (".env" when none are named), then the
// environment. A missing .env file is not an error.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	workers, err := getEnvInt("JOB_WORKERS", 2)
	if err != nil {
		return nil, err
	}
	retries, err := getEnvInt("JOB_MAX_RETRIES", 2)
	if err != nil {
		return nil, err
	}
	backoff, err := time.ParseDuration(getEnv("JOB_BACKOFF", "2s"))
	if err != nil {
		return nil, fmt.Errorf("JOB_BACKOFF: %w", err)
	}

	cfg := &Config{
		Port:          getEnv("PORT", DefaultPort),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		StoreBackend:  getEnv("STORE_BACKEND", kv.BackendFile),
		DataDir:       getEnv("DATA_DIR", DefaultDataDir),
		RedisURL:      getEnv("REDIS_URL", ""),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		GCSBucket:     getEnv("GCS_BUCKET", ""),
		BQProject:     getEnv("BQ_PROJECT", ""),
		BQDataset:     getEnv("BQ_DATASET", DefaultBQDataset),
		NotionToken:   getEnv("NOTION_TOKEN", ""),
		NotionGoalsDB: getEnv("NOTION_GOALS_DB", ""),
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", DefaultGeminiModel),
		JobWorkers:    workers,
		JobMaxRetries: retries,
		JobBackoff:    backoff,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected store backend has what it needs.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case kv.BackendMemory:
	case kv.BackendFile:
		if c.DataDir == "" {
			return errors.New("DATA_DIR is required for the file store")
		}
	case kv.BackendRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required for the redis store")
		}
	case kv.BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.JobWorkers < 1 {
		return errors.New("JOB_WORKERS must be at least 1")
	}
	return nil
}

// StoreOptions returns the kv options for the configured backend.
func (c *Config) StoreOptions() kv.Options {
	return kv.Options{
		Backend:     c.StoreBackend,
		DataDir:     c.DataDir,
		RedisURL:    c.RedisURL,
		DatabaseURL: c.DatabaseURL,
	}
}

// Helper to get env with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
