// Package config loads runtime configuration from environment variables,
// optionally seeded from a .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/c360/sensorstore/cache"
	"github.com/c360/sensorstore/errors"
	"github.com/c360/sensorstore/ingest"
)

const (
	defaultMongoDatabase = "sensorstore"
	defaultMetricsAddr   = ":9090"
	defaultMetricsPath   = "/metrics"
	defaultMongoTimeout  = 10 * time.Second
	defaultLogLevel      = "info"
)

// Config holds the runtime configuration of the service.
type Config struct {
	// MongoDB
	MongoURI      string
	MongoDatabase string
	MongoTimeout  time.Duration

	// Redis. An empty address selects the in-process cache.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Cache expiry overrides, in minutes.
	CacheTimeoutMinutes      int
	CacheShortTimeoutMinutes int

	// NATS
	NATSURL       string
	IngestSubject string
	IngestQueue   string

	// Metrics endpoint
	MetricsAddr string
	MetricsPath string

	LogLevel  string
	LogFormat string
}

// Load reads configuration from the environment, optionally seeded from .env.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		MongoURI:                 strings.TrimSpace(os.Getenv("MONGO_URI")),
		MongoDatabase:            envOrDefault("MONGO_DATABASE", defaultMongoDatabase),
		MongoTimeout:             defaultMongoTimeout,
		RedisAddr:                strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword:            os.Getenv("REDIS_PASSWORD"),
		CacheTimeoutMinutes:      cache.DefaultTimeoutMinutes,
		CacheShortTimeoutMinutes: cache.ShortTimeoutMinutes,
		NATSURL:                  envOrDefault("NATS_URL", nats.DefaultURL),
		IngestSubject:            envOrDefault("INGEST_SUBJECT", ingest.DefaultSubject),
		IngestQueue:              envOrDefault("INGEST_QUEUE", ingest.DefaultQueue),
		MetricsAddr:              envOrDefault("METRICS_ADDR", defaultMetricsAddr),
		MetricsPath:              envOrDefault("METRICS_PATH", defaultMetricsPath),
		LogLevel:                 envOrDefault("LOG_LEVEL", defaultLogLevel),
		LogFormat:                envOrDefault("LOG_FORMAT", "json"),
	}

	if cfg.MongoURI == "" {
		return nil, errors.WrapInvalid(
			fmt.Errorf("MONGO_URI is required"), "config", "Load", "read environment")
	}

	var err error
	if cfg.RedisDB, err = envInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.CacheTimeoutMinutes, err = envInt("CACHE_TIMEOUT_MINUTES", cfg.CacheTimeoutMinutes); err != nil {
		return nil, err
	}
	if cfg.CacheShortTimeoutMinutes, err = envInt("CACHE_SHORT_TIMEOUT_MINUTES", cfg.CacheShortTimeoutMinutes); err != nil {
		return nil, err
	}
	if v := strings.TrimSpace(os.Getenv("MONGO_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, errors.WrapInvalid(
				fmt.Errorf("invalid MONGO_TIMEOUT: %w", err), "config", "Load", "read environment")
		}
		cfg.MongoTimeout = d
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges that Load's parsing cannot.
func (c *Config) Validate() error {
	if c.CacheTimeoutMinutes <= 0 {
		return errors.WrapInvalid(
			fmt.Errorf("CACHE_TIMEOUT_MINUTES must be positive, got %d", c.CacheTimeoutMinutes),
			"config", "Validate", "check cache timeouts")
	}
	if c.CacheShortTimeoutMinutes <= 0 {
		return errors.WrapInvalid(
			fmt.Errorf("CACHE_SHORT_TIMEOUT_MINUTES must be positive, got %d", c.CacheShortTimeoutMinutes),
			"config", "Validate", "check cache timeouts")
	}
	if c.MongoTimeout <= 0 {
		return errors.WrapInvalid(
			fmt.Errorf("MONGO_TIMEOUT must be positive, got %s", c.MongoTimeout),
			"config", "Validate", "check mongo timeout")
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.WrapInvalid(
			fmt.Errorf("invalid %s: %w", key, err), "config", "Load", "read environment")
	}
	return n, nil
}
