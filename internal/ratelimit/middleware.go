package ratelimit

import (
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// New builds a Redis-backed rate limit middleware from a formatted rate such
// as "120-M" (120 requests per minute), keyed by client IP.
func New(rdb *redis.Client, formatted string) (func(http.Handler) http.Handler, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("parse rate %q: %w", formatted, err)
	}
	store, err := limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{
		Prefix: "kasir:ratelimit",
	})
	if err != nil {
		return nil, fmt.Errorf("rate limit store: %w", err)
	}
	middleware := stdlib.NewMiddleware(limiter.New(store, rate))
	return middleware.Handler, nil
}
