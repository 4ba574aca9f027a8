package common

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Idem guards checkout against double submission. A flaky connection on a
// cashier tablet retries POSTs; the first request to claim an
// Idempotency-Key wins, replays get 409 until the key expires.
type Idem struct {
	R   *redis.Client
	TTL time.Duration
}

func idemKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return "kasir:idem:" + hex.EncodeToString(sum[:])
}

// Middleware enforces idempotency semantics for write endpoints. Requests
// without an Idempotency-Key header pass through untouched.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Idempotency-Key")
		if header == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}
		key := idemKey(header)
		claimed, err := i.R.SetNX(r.Context(), key, "claimed", i.ttl()).Result()
		if err != nil {
			JSONError(w, http.StatusInternalServerError, "INTERNAL", "idempotency store error", nil)
			return
		}
		if !claimed {
			JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "duplicate request", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (i Idem) ttl() time.Duration {
	if i.TTL <= 0 {
		return 24 * time.Hour
	}
	return i.TTL
}
