package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"DATABASE_URL", "PORT", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "CACHE_TTL", "ALLOCATION_LOCK_TTL",
	"MINIO_ENDPOINT", "MINIO_ACCESS_KEY", "MINIO_SECRET_KEY", "MINIO_USE_SSL", "MINIO_BUCKET",
	"SWEEP_INTERVAL", "LOG_LEVEL", "LOG_FORMAT", "LOG_OUTPUT", "LOG_TIME_FORMAT",
}

// clearEnv unsets every key for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/vendorbills")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.True(t, cfg.RedisEnabled())
	assert.False(t, cfg.StorageEnabled())
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 30*time.Second, cfg.LockTTL)
	assert.Equal(t, time.Hour, cfg.SweepInterval)
	assert.Equal(t, "vendor-invoice-attachments", cfg.MinioBucket)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoad_EnvFileAndOverrides(t *testing.T) {
	clearEnv(t)
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"DATABASE_URL=postgres://file/vendorbills\nPORT=9000\nMINIO_ENDPOINT=minio:9000\nMINIO_USE_SSL=true\nCACHE_TTL=90s\n",
	), 0o600))
	t.Setenv("PORT", "9100")
	t.Setenv("REDIS_ADDR", "")

	cfg, err := Load(envFile)

	require.NoError(t, err)
	assert.Equal(t, "postgres://file/vendorbills", cfg.DatabaseURL)
	assert.Equal(t, 9100, cfg.Port)
	assert.False(t, cfg.RedisEnabled())
	assert.True(t, cfg.StorageEnabled())
	assert.True(t, cfg.MinioUseSSL)
	assert.Equal(t, 90*time.Second, cfg.CacheTTL)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "missing database url", env: map[string]string{}, want: "DATABASE_URL"},
		{name: "bad port", env: map[string]string{"DATABASE_URL": "x", "PORT": "http"}, want: "invalid PORT"},
		{name: "bad ttl", env: map[string]string{"DATABASE_URL": "x", "CACHE_TTL": "five"}, want: "invalid CACHE_TTL"},
		{name: "negative interval", env: map[string]string{"DATABASE_URL": "x", "SWEEP_INTERVAL": "-1m"}, want: "must be positive"},
		{name: "bad ssl flag", env: map[string]string{"DATABASE_URL": "x", "MINIO_USE_SSL": "maybe"}, want: "invalid MINIO_USE_SSL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
