package common

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP resolves the client address, preferring proxy headers over the
// raw socket peer. The kasir terminals sit behind a reverse proxy in every
// deployment we run, so X-Forwarded-For usually wins.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		// first hop is the original client
		if idx := strings.IndexByte(fwd, ','); idx >= 0 {
			fwd = fwd[:idx]
		}
		if candidate := strings.TrimSpace(fwd); candidate != "" {
			return candidate
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr)); err == nil {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
