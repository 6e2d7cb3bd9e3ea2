package middleware

import (
	"net"
	"net/http"

	"github.com/docsearch-io/docsearch/internal/auth/ratelimit"
)

// RateLimit returns middleware that enforces a per-caller request budget.
// Authenticated callers are keyed by API key ID and use the limit stored
// with the key; anonymous callers are keyed by client IP with defaultLimit.
func RateLimit(limiter *ratelimit.Limiter, defaultLimit int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r)
			limit := defaultLimit
			if info := GetKeyInfo(r.Context()); info != nil {
				key = "key:" + info.ID
				if info.RateLimit > 0 {
					limit = info.RateLimit
				}
			}

			if !limiter.Allow(key, limit) {
				w.Header().Set("Retry-After", "60")
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
