package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/kasir")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "development", cfg.AppEnv)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, 12*time.Hour, cfg.AccessTokenTTL)
	require.Equal(t, 30*time.Minute, cfg.DraftClaimTTL)
	require.Equal(t, "120-M", cfg.RateLimit)
	require.Equal(t, int64(1<<20), cfg.BodyLimitBytes)
	require.Equal(t, 10, cfg.WorkerConcurrency)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("JWT_SECRET", "test-secret")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/kasir")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("PORT", "9090")
	t.Setenv("DRAFT_CLAIM_TTL", "10m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://pos.example.com, https://admin.example.com")
	t.Setenv("TRACING_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddr())
	require.Equal(t, 10*time.Minute, cfg.DraftClaimTTL)
	require.Equal(t, []string{"https://pos.example.com", "https://admin.example.com"}, cfg.CORSAllowedOrigins)
	require.True(t, cfg.TracingEnabled)
}
