// Package middleware provides the service-specific HTTP middleware:
// API key authentication, CORS, and per-key rate limiting.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/docsearch-io/docsearch/internal/auth/apikey"
	"github.com/docsearch-io/docsearch/pkg/logger"
)

type keyInfoContextKey struct{}

// Auth returns middleware that validates the X-API-Key header against the
// key store. Health endpoints are always allowed through. On success the
// KeyInfo is stored in the request context for the rate limiter.
func Auth(validator *apikey.Validator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/health") {
				next.ServeHTTP(w, r)
				return
			}

			rawKey := r.Header.Get("X-API-Key")
			if rawKey == "" {
				writeError(w, http.StatusUnauthorized, "missing API key")
				return
			}

			info, err := validator.Validate(r.Context(), rawKey)
			if err != nil {
				log := logger.FromContext(r.Context())
				switch {
				case errors.Is(err, apikey.ErrInvalidKey):
					writeError(w, http.StatusUnauthorized, "invalid API key")
				case errors.Is(err, apikey.ErrExpiredKey):
					writeError(w, http.StatusUnauthorized, "API key expired")
				default:
					log.Error("api key validation failed", "error", err)
					writeError(w, http.StatusInternalServerError, "authentication unavailable")
				}
				return
			}

			ctx := context.WithValue(r.Context(), keyInfoContextKey{}, info)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetKeyInfo returns the validated KeyInfo from ctx, or nil.
func GetKeyInfo(ctx context.Context) *apikey.KeyInfo {
	if info, ok := ctx.Value(keyInfoContextKey{}).(*apikey.KeyInfo); ok {
		return info
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
