package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/sensorstore/errors"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
	assert.Equal(t, "sensorstore", cfg.MongoDatabase)
	assert.Equal(t, 10*time.Second, cfg.MongoTimeout)
	assert.Empty(t, cfg.RedisAddr, "no redis configured means in-process cache")
	assert.Equal(t, 10, cfg.CacheTimeoutMinutes)
	assert.Equal(t, 1, cfg.CacheShortTimeoutMinutes)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.NATSURL)
	assert.Equal(t, "sensorstore.measurements.raw", cfg.IngestSubject)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Equal(t, "/metrics", cfg.MetricsPath)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadRequiresMongoURI(t *testing.T) {
	t.Setenv("MONGO_URI", "")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
	assert.Contains(t, err.Error(), "MONGO_URI")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://db:27017")
	t.Setenv("MONGO_DATABASE", "telemetry")
	t.Setenv("MONGO_TIMEOUT", "5s")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("CACHE_TIMEOUT_MINUTES", "30")
	t.Setenv("CACHE_SHORT_TIMEOUT_MINUTES", "2")
	t.Setenv("NATS_URL", "nats://broker:4222")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "telemetry", cfg.MongoDatabase)
	assert.Equal(t, 5*time.Second, cfg.MongoTimeout)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 30, cfg.CacheTimeoutMinutes)
	assert.Equal(t, 2, cfg.CacheShortTimeoutMinutes)
	assert.Equal(t, "nats://broker:4222", cfg.NATSURL)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"non-numeric redis db", "REDIS_DB", "three"},
		{"non-numeric timeout", "CACHE_TIMEOUT_MINUTES", "ten"},
		{"zero timeout", "CACHE_TIMEOUT_MINUTES", "0"},
		{"negative short timeout", "CACHE_SHORT_TIMEOUT_MINUTES", "-1"},
		{"bad duration", "MONGO_TIMEOUT", "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("MONGO_URI", "mongodb://localhost:27017")
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
		})
	}
}
