package server

import (
	"net/http"

	"github.com/docsearch-io/docsearch/internal/auth/ratelimit"
	srvmw "github.com/docsearch-io/docsearch/internal/server/middleware"
	"github.com/docsearch-io/docsearch/pkg/health"
	"github.com/docsearch-io/docsearch/pkg/middleware"
)

// NewRouter wires all routes and the middleware chain. Middleware order
// matters: request IDs must exist before auth logs anything, auth must run
// before rate limiting so authenticated callers get their own budget.
func NewRouter(h *Handler, checker *health.Checker, limiter *ratelimit.Limiter) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/documents", h.Upload)
	mux.HandleFunc("GET /api/v1/documents/{doc_id}", h.GetDocument)
	mux.HandleFunc("DELETE /api/v1/documents/{doc_id}", h.DeleteDocument)

	mux.HandleFunc("GET /api/v1/search", h.Search)

	mux.HandleFunc("GET /api/v1/index", h.IndexView)
	mux.HandleFunc("POST /api/v1/index/save", h.SaveIndex)
	mux.HandleFunc("GET /api/v1/index/info", h.IndexInfo)
	mux.HandleFunc("DELETE /api/v1/index", h.DeleteIndex)

	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)

	mux.HandleFunc("GET /api/v1/analytics", h.Analytics)

	mux.HandleFunc("POST /api/v1/admin/keys", h.CreateAPIKey)
	mux.HandleFunc("GET /api/v1/admin/keys", h.ListAPIKeys)
	mux.HandleFunc("DELETE /api/v1/admin/keys/{key}", h.RevokeAPIKey)

	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var handler http.Handler = mux
	handler = middleware.Timeout(h.cfg.Server.WriteTimeout)(handler)
	if h.metrics != nil {
		handler = middleware.Metrics(h.metrics)(handler)
	}
	if limiter != nil {
		handler = srvmw.RateLimit(limiter, defaultAnonymousLimit)(handler)
	}
	if h.cfg.Auth.Enabled && h.keys != nil {
		handler = srvmw.Auth(h.keys)(handler)
	}
	handler = srvmw.CORS(handler)
	handler = middleware.RequestID(handler)
	return handler
}

// defaultAnonymousLimit is the per-minute budget for callers without an
// API key.
const defaultAnonymousLimit = 120
