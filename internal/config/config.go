package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	JWTSecret          string
	JWTIssuer          string
	AccessTokenTTL     time.Duration
	CORSAllowedOrigins []string
	LogLevel           string
	RateLimit          string
	DraftClaimTTL      time.Duration
	CatalogCacheTTL    time.Duration
	MetricsBucketsCSV  string
	OTLPEndpoint       string
	TracingEnabled     bool
	BodyLimitBytes     int64
	WorkerConcurrency  int
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		JWTSecret:          k.String("JWT_SECRET"),
		JWTIssuer:          valueOrDefault(k.String("JWT_ISSUER"), "kasirgrafity"),
		AccessTokenTTL:     parseDuration(k.String("ACCESS_TOKEN_TTL"), "12h"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		LogLevel:           valueOrDefault(k.String("LOG_LEVEL"), "info"),
		RateLimit:          valueOrDefault(k.String("RATE_LIMIT"), "120-M"),
		DraftClaimTTL:      parseDuration(k.String("DRAFT_CLAIM_TTL"), "30m"),
		CatalogCacheTTL:    parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),
		MetricsBucketsCSV:  k.String("METRICS_BUCKETS_MS"),
		OTLPEndpoint:       k.String("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TracingEnabled:     parseBool(k.String("TRACING_ENABLED")),
		BodyLimitBytes:     int64(k.Int("BODY_LIMIT_BYTES")),
		WorkerConcurrency:  intOrDefault(k.Int("WORKER_CONCURRENCY"), 10),
	}
	if cfg.BodyLimitBytes <= 0 {
		cfg.BodyLimitBytes = 1 << 20
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func intOrDefault(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
