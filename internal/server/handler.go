// Package server exposes the document search service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/docsearch-io/docsearch/internal/analytics"
	"github.com/docsearch-io/docsearch/internal/auth/apikey"
	"github.com/docsearch-io/docsearch/internal/index"
	"github.com/docsearch-io/docsearch/internal/searcher"
	"github.com/docsearch-io/docsearch/internal/server/cache"
	"github.com/docsearch-io/docsearch/internal/server/model"
	"github.com/docsearch-io/docsearch/internal/storage"
	"github.com/docsearch-io/docsearch/pkg/config"
	dserrors "github.com/docsearch-io/docsearch/pkg/errors"
	"github.com/docsearch-io/docsearch/pkg/logger"
	"github.com/docsearch-io/docsearch/pkg/metrics"
	"github.com/docsearch-io/docsearch/pkg/tracing"
)

const (
	maxDocIDLength   = 100
	maxContentLength = 100_000
	maxTitleLength   = 200
	maxAuthorLength  = 100
)

// Deps carries everything the handler needs. Cache, Collector, Aggregator,
// Keys, and Metrics may be nil when the corresponding subsystem is disabled.
type Deps struct {
	Store      *index.Index
	Searcher   *searcher.Searcher
	Storage    *storage.Storage
	Cache      *cache.QueryCache
	Collector  *analytics.Collector
	Aggregator *analytics.Aggregator
	Keys       *apikey.Validator
	Metrics    *metrics.Metrics
	Config     *config.Config
}

type Handler struct {
	store      *index.Index
	searcher   *searcher.Searcher
	storage    *storage.Storage
	cache      *cache.QueryCache
	collector  *analytics.Collector
	aggregator *analytics.Aggregator
	keys       *apikey.Validator
	metrics    *metrics.Metrics
	cfg        *config.Config
	logger     *slog.Logger
}

func NewHandler(deps Deps) *Handler {
	return &Handler{
		store:      deps.Store,
		searcher:   deps.Searcher,
		storage:    deps.Storage,
		cache:      deps.Cache,
		collector:  deps.Collector,
		aggregator: deps.Aggregator,
		keys:       deps.Keys,
		metrics:    deps.Metrics,
		cfg:        deps.Config,
		logger:     logger.WithComponent("server"),
	}
}

// Upload indexes a new document. Re-uploading an existing doc_id is a
// conflict; remove it first.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	var req model.UploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, dserrors.New(dserrors.ErrInvalidInput, http.StatusBadRequest, "invalid JSON body"))
		return
	}
	if err := validateUpload(&req); err != nil {
		h.writeError(w, r, err)
		return
	}

	if _, exists := h.store.GetDocument(req.DocID); exists {
		h.writeError(w, r, dserrors.Newf(dserrors.ErrDocumentExists, http.StatusConflict,
			"document %q already indexed", req.DocID))
		return
	}

	if err := h.store.AddDocument(req.DocID, req.Content, req.Title, req.Author); err != nil {
		h.writeError(w, r, err)
		return
	}
	doc, _ := h.store.GetDocument(req.DocID)

	if h.metrics != nil {
		h.metrics.DocsIndexedTotal.Inc()
		h.metrics.IndexDocuments.Set(float64(h.store.TotalDocuments()))
		h.metrics.IndexTerms.Set(float64(h.store.TotalTerms()))
	}
	h.invalidateCache(r)
	h.track(analytics.DocumentEvent{
		Type:       analytics.EventAddDoc,
		DocumentID: req.DocID,
		TokenCount: doc.TotalTerms,
		Timestamp:  time.Now().UTC(),
	})
	h.persistAfterWrite(r)

	h.writeJSON(w, http.StatusCreated, model.UploadResponse{
		Message:        "document indexed",
		DocID:          req.DocID,
		IndexedTerms:   doc.UniqueTerms,
		TotalDocuments: h.store.TotalDocuments(),
	})
}

func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	docID := r.PathValue("doc_id")
	doc, ok := h.store.GetDocument(docID)
	if !ok {
		h.writeError(w, r, dserrors.Newf(dserrors.ErrDocumentNotFound, http.StatusNotFound,
			"document %q not found", docID))
		return
	}
	h.writeJSON(w, http.StatusOK, model.DocumentResponse{
		DocID:       docID,
		Title:       doc.Title,
		Author:      doc.Author,
		Content:     doc.Content,
		TotalTerms:  doc.TotalTerms,
		UniqueTerms: doc.UniqueTerms,
		AddedAt:     doc.AddedAt,
	})
}

func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := r.PathValue("doc_id")
	if err := h.store.RemoveDocument(docID); err != nil {
		h.writeError(w, r, err)
		return
	}

	if h.metrics != nil {
		h.metrics.DocsRemovedTotal.Inc()
		h.metrics.IndexDocuments.Set(float64(h.store.TotalDocuments()))
		h.metrics.IndexTerms.Set(float64(h.store.TotalTerms()))
	}
	h.invalidateCache(r)
	h.track(analytics.DocumentEvent{
		Type:       analytics.EventRemoveDoc,
		DocumentID: docID,
		Timestamp:  time.Now().UTC(),
	})
	h.persistAfterWrite(r)

	h.writeJSON(w, http.StatusOK, model.DeleteResponse{
		Message:        "document removed",
		DocID:          docID,
		TotalDocuments: h.store.TotalDocuments(),
	})
}

// Search ranks indexed documents against the q parameter. Identical
// concurrent queries share one computation through the query cache.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		h.writeError(w, r, dserrors.New(dserrors.ErrInvalidInput, http.StatusBadRequest,
			"query parameter q is required"))
		return
	}
	if len(query) > h.cfg.Search.MaxQueryLength {
		h.writeError(w, r, dserrors.Newf(dserrors.ErrInvalidInput, http.StatusBadRequest,
			"query exceeds %d characters", h.cfg.Search.MaxQueryLength))
		return
	}

	limit := h.cfg.Search.DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.writeError(w, r, dserrors.New(dserrors.ErrInvalidInput, http.StatusBadRequest,
				"limit must be a positive integer"))
			return
		}
		limit = parsed
	}
	if limit > h.cfg.Search.MaxResults {
		limit = h.cfg.Search.MaxResults
	}

	ctx := r.Context()
	if h.cfg.Tracing.Enabled {
		var span *tracing.Span
		ctx, span = tracing.StartSpan(ctx, "search", logger.RequestIDFromContext(ctx))
		span.SetAttr("query", query)
		defer func() {
			span.End()
			span.Log()
		}()
	}

	start := time.Now()
	var (
		resp     *model.SearchResponse
		cacheHit bool
		err      error
	)
	if h.cache != nil {
		resp, cacheHit, err = h.cache.GetOrCompute(ctx, query, limit, func() (*model.SearchResponse, error) {
			return h.executeSearch(ctx, query, limit), nil
		})
		if err != nil {
			h.writeError(w, r, err)
			return
		}
	} else {
		resp = h.executeSearch(ctx, query, limit)
	}
	elapsed := time.Since(start)

	h.recordSearchMetrics(resp, cacheHit, elapsed)
	eventType := analytics.EventSearch
	if resp.TotalResults == 0 {
		eventType = analytics.EventZeroResult
	}
	h.track(analytics.SearchEvent{
		Type:      eventType,
		Query:     query,
		Returned:  resp.TotalResults,
		LatencyMs: elapsed.Milliseconds(),
		CacheHit:  cacheHit,
		Timestamp: time.Now().UTC(),
		RequestID: logger.RequestIDFromContext(ctx),
	})

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) executeSearch(ctx context.Context, query string, limit int) *model.SearchResponse {
	start := time.Now()
	scored := h.searcher.Search(ctx, query, limit)

	hits := make([]model.SearchHit, 0, len(scored))
	for _, s := range scored {
		hit := model.SearchHit{
			DocID: s.DocID,
			Score: math.Round(s.Score*10000) / 10000,
		}
		if s.Doc != nil {
			hit.Title = s.Doc.Title
			hit.Author = s.Doc.Author
			hit.Snippet = snippet(s.Doc.Content, h.cfg.Search.SnippetLength)
		}
		hits = append(hits, hit)
	}

	return &model.SearchResponse{
		Query:        query,
		Results:      hits,
		TotalResults: len(hits),
		SearchTimeMs: float64(time.Since(start).Microseconds()) / 1000,
	}
}

// IndexView reports index statistics, snapshot storage info, and a sample
// of indexed terms in insertion order.
func (h *Handler) IndexView(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, model.IndexResponse{
		Stats:       h.store.Stats(),
		Storage:     h.storage.Info(),
		SampleTerms: h.store.SampleTerms(h.cfg.Search.SampleTermLimit),
	})
}

// IndexInfo reports on-disk snapshot state without touching the
// in-memory index.
func (h *Handler) IndexInfo(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.storage.Info())
}

func (h *Handler) SaveIndex(w http.ResponseWriter, r *http.Request) {
	if err := h.saveSnapshot(); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"message": "snapshot saved",
		"storage": h.storage.Info(),
	})
}

// DeleteIndex clears the in-memory index and removes the snapshot along
// with every backup.
func (h *Handler) DeleteIndex(w http.ResponseWriter, r *http.Request) {
	h.store.Clear()
	if err := h.storage.DeleteAll(); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.invalidateCache(r)
	if h.metrics != nil {
		h.metrics.IndexDocuments.Set(0)
		h.metrics.IndexTerms.Set(0)
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "index cleared"})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, r, dserrors.New(dserrors.ErrInternal, http.StatusServiceUnavailable, "cache disabled"))
		return
	}
	hits, misses := h.cache.Stats()
	h.writeJSON(w, http.StatusOK, map[string]int64{"hits": hits, "misses": misses})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, r, dserrors.New(dserrors.ErrInternal, http.StatusServiceUnavailable, "cache disabled"))
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "cache invalidated"})
}

func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	if h.aggregator == nil {
		h.writeError(w, r, dserrors.New(dserrors.ErrInternal, http.StatusServiceUnavailable, "analytics disabled"))
		return
	}
	h.writeJSON(w, http.StatusOK, h.aggregator.Stats())
}

type createKeyRequest struct {
	Name          string `json:"name"`
	RateLimit     int    `json:"rate_limit"`
	ExpiresInDays int    `json:"expires_in_days,omitempty"`
}

func (h *Handler) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	if h.keys == nil {
		h.writeError(w, r, dserrors.New(dserrors.ErrInternal, http.StatusServiceUnavailable, "auth disabled"))
		return
	}
	var req createKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		h.writeError(w, r, dserrors.New(dserrors.ErrInvalidInput, http.StatusBadRequest, "name is required"))
		return
	}
	var expiresAt *time.Time
	if req.ExpiresInDays > 0 {
		t := time.Now().AddDate(0, 0, req.ExpiresInDays)
		expiresAt = &t
	}
	rawKey, err := h.keys.CreateKey(r.Context(), req.Name, req.RateLimit, expiresAt)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]string{
		"api_key": rawKey,
		"name":    req.Name,
	})
}

// RevokeAPIKey disables the key passed in the path. The raw key is used
// rather than an id so callers can revoke a leaked credential directly.
func (h *Handler) RevokeAPIKey(w http.ResponseWriter, r *http.Request) {
	if h.keys == nil {
		h.writeError(w, r, dserrors.New(dserrors.ErrInternal, http.StatusServiceUnavailable, "auth disabled"))
		return
	}
	if err := h.keys.RevokeKey(r.Context(), r.PathValue("key")); err != nil {
		if errors.Is(err, apikey.ErrInvalidKey) {
			err = dserrors.New(err, http.StatusNotFound, "api key not found")
		}
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "key revoked"})
}

func (h *Handler) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	if h.keys == nil {
		h.writeError(w, r, dserrors.New(dserrors.ErrInternal, http.StatusServiceUnavailable, "auth disabled"))
		return
	}
	keys, err := h.keys.ListKeys(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"keys": keys, "count": len(keys)})
}

// persistAfterWrite saves a snapshot after a mutation when saveOnWrite is
// configured. The mutation has already been applied, so a failed save is
// logged and surfaced through metrics rather than failing the request.
func (h *Handler) persistAfterWrite(r *http.Request) {
	if !h.cfg.Storage.SaveOnWrite {
		return
	}
	if err := h.saveSnapshot(); err != nil {
		logger.FromContext(r.Context()).Warn("snapshot save after write failed", "error", err)
	}
}

func (h *Handler) saveSnapshot() error {
	err := h.storage.Save(h.store)
	if h.metrics != nil {
		status := "success"
		if err != nil {
			status = "failure"
		}
		h.metrics.SnapshotSavesTotal.WithLabelValues(status).Inc()
		h.metrics.SnapshotBackupCount.Set(float64(h.storage.Info().BackupCount))
	}
	return err
}

func (h *Handler) invalidateCache(r *http.Request) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		logger.FromContext(r.Context()).Warn("cache invalidation failed", "error", err)
	}
}

func (h *Handler) track(event any) {
	if h.collector != nil {
		h.collector.Track(event)
	}
}

func (h *Handler) recordSearchMetrics(resp *model.SearchResponse, cacheHit bool, elapsed time.Duration) {
	if h.metrics == nil {
		return
	}
	resultType := "ok"
	if resp.TotalResults == 0 {
		resultType = "zero_result"
	}
	cacheStatus := "miss"
	if cacheHit {
		cacheStatus = "hit"
		h.metrics.CacheHitsTotal.Inc()
	} else if h.cache != nil {
		h.metrics.CacheMissesTotal.Inc()
	}
	h.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(elapsed.Seconds())
	h.metrics.SearchResultsCount.Observe(float64(resp.TotalResults))
}

func validateUpload(req *model.UploadRequest) error {
	switch {
	case strings.TrimSpace(req.DocID) == "":
		return dserrors.New(dserrors.ErrInvalidInput, http.StatusBadRequest, "doc_id is required")
	case len(req.DocID) > maxDocIDLength:
		return dserrors.Newf(dserrors.ErrInvalidInput, http.StatusBadRequest, "doc_id exceeds %d characters", maxDocIDLength)
	case req.Content == "":
		return dserrors.New(dserrors.ErrInvalidInput, http.StatusBadRequest, "content is required")
	case len(req.Content) > maxContentLength:
		return dserrors.Newf(dserrors.ErrInvalidInput, http.StatusBadRequest, "content exceeds %d characters", maxContentLength)
	case len(req.Title) > maxTitleLength:
		return dserrors.Newf(dserrors.ErrInvalidInput, http.StatusBadRequest, "title exceeds %d characters", maxTitleLength)
	case len(req.Author) > maxAuthorLength:
		return dserrors.Newf(dserrors.ErrInvalidInput, http.StatusBadRequest, "author exceeds %d characters", maxAuthorLength)
	}
	return nil
}

// snippet truncates content to at most n runes, appending an ellipsis
// when the content was cut.
func snippet(content string, n int) string {
	runes := []rune(content)
	if len(runes) <= n {
		return content
	}
	return string(runes[:n]) + "..."
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("writing response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := dserrors.HTTPStatusCode(err)
	message := err.Error()
	var appErr *dserrors.AppError
	if errors.As(err, &appErr) {
		status = appErr.StatusCode
		message = appErr.Message
	}
	log := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
		if status == http.StatusInternalServerError {
			message = "internal server error"
		}
	} else {
		log.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	h.writeJSON(w, status, model.ErrorResponse{Error: message})
}
