package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/medir/amharic-medsearch/internal/analytics"
	"github.com/medir/amharic-medsearch/internal/document"
	"github.com/medir/amharic-medsearch/internal/evaluator"
	"github.com/medir/amharic-medsearch/internal/indexer"
	"github.com/medir/amharic-medsearch/internal/searcher/cache"
	"github.com/medir/amharic-medsearch/internal/searcher/executor"
	apperrors "github.com/medir/amharic-medsearch/pkg/errors"
	"github.com/medir/amharic-medsearch/pkg/logger"
	"github.com/medir/amharic-medsearch/pkg/metrics"
	"github.com/medir/amharic-medsearch/pkg/middleware"
)

const defaultMaxBodyBytes = 16 << 20

// Persister stores documents accepted over HTTP. It is satisfied by
// *source.PostgresSource.
type Persister interface {
	Save(ctx context.Context, docs []document.Document) (int, error)
}

type Handler struct {
	engine    *indexer.Engine
	executor  *executor.Executor
	cache     *cache.QueryCache
	collector *analytics.Collector
	persister Persister
	evalOpts  evaluator.Options
	maxBody   int64
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

type Option func(*Handler)

// WithCache enables result caching; a nil cache disables it.
func WithCache(c *cache.QueryCache) Option {
	return func(h *Handler) { h.cache = c }
}

func WithCollector(c *analytics.Collector) Option {
	return func(h *Handler) { h.collector = c }
}

func WithPersister(p Persister) Option {
	return func(h *Handler) { h.persister = p }
}

func WithEvaluation(opts evaluator.Options) Option {
	return func(h *Handler) { h.evalOpts = opts }
}

func WithMaxBodyBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxBody = n
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

func New(engine *indexer.Engine, exec *executor.Executor, opts ...Option) *Handler {
	h := &Handler{
		engine:   engine,
		executor: exec,
		maxBody:  defaultMaxBodyBytes,
		logger:   slog.Default().With("component", "search-handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("POST /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/documents/{id}", h.GetDocument)
	mux.HandleFunc("POST /api/v1/documents", h.AddDocuments)
	mux.HandleFunc("GET /api/v1/statistics", h.Statistics)
	mux.HandleFunc("POST /api/v1/evaluate", h.Evaluate)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	if h.collector != nil {
		mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(h.collector.Aggregator()).Stats)
	}
}

// Search answers q with at most limit hits. A missing or malformed limit
// falls back to the default and an empty query yields an empty result.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.FormValue("q")
	limit, _ := strconv.Atoi(r.FormValue("limit"))
	limit = h.executor.NormalizeLimit(limit)
	plan := h.executor.Parse(query)

	var (
		result   *executor.SearchResult
		err      error
		cacheHit bool
	)
	cacheStatus := "disabled"
	switch {
	case plan.IsEmpty() || h.cache == nil:
		result, err = h.executor.Execute(ctx, plan, limit)
	default:
		key := cache.BuildKey(h.engine.Generation(), plan, limit)
		result, cacheHit, err = h.cache.GetOrCompute(ctx, key, func() (*executor.SearchResult, error) {
			return h.executor.Execute(ctx, plan, limit)
		})
		cacheStatus = "miss"
		if cacheHit {
			cacheStatus = "hit"
		}
	}
	if err != nil {
		log.Error("search execution failed", "query", query, "error", err)
		if h.metrics != nil {
			h.metrics.SearchQueriesTotal.WithLabelValues("error").Inc()
		}
		h.writeError(w, statusFor(err), "search failed")
		return
	}

	// Cached and shared results may come from a differently spelled query.
	out := *result
	out.Query = query

	elapsed := time.Since(start)
	if h.metrics != nil {
		h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(elapsed.Seconds())
	}
	log.Info("search completed",
		"query", query,
		"total_hits", out.TotalHits,
		"returned", len(out.Results),
		"cache", cacheStatus,
		"latency_ms", elapsed.Milliseconds(),
	)
	if h.collector != nil {
		h.collector.TrackSearch(analytics.SearchEvent{
			Query:     query,
			Terms:     plan.Terms,
			QueryType: plan.Type.String(),
			TotalHits: out.TotalHits,
			Returned:  len(out.Results),
			LatencyMs: elapsed.Milliseconds(),
			CacheHit:  cacheHit,
			Timestamp: time.Now().UTC(),
			RequestID: middleware.GetRequestID(ctx),
		})
	}
	h.writeJSON(w, http.StatusOK, &out)
}

func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.engine.GetDocument(r.PathValue("id"))
	if err != nil {
		h.writeError(w, statusFor(err), err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, doc)
}

// AddDocuments indexes a JSON document or array of documents as one batch.
func (h *Handler) AddDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	docs, err := h.decodeDocuments(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	start := time.Now()
	report, err := h.engine.AddDocuments(ctx, docs)
	if h.collector != nil {
		h.collector.TrackIndex(analytics.IndexEvent{
			Origin:    "http",
			Added:     report.Added,
			Skipped:   report.Skipped,
			Rejected:  err != nil,
			LatencyMs: time.Since(start).Milliseconds(),
			Timestamp: time.Now().UTC(),
		})
	}
	if err != nil {
		var validationErr *document.ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"id":     validationErr.ID,
				"fields": validationErr.Fields,
			})
			return
		}
		status := statusFor(err)
		log.Warn("document batch rejected", "size", len(docs), "status_code", status, "error", err)
		h.writeError(w, status, err.Error())
		return
	}

	resp := addResponse{AddReport: report}
	if h.persister != nil && len(report.AddedIDs) > 0 {
		added := make([]document.Document, 0, len(report.AddedIDs))
		for _, id := range report.AddedIDs {
			if d, err := h.engine.GetDocument(id); err == nil {
				added = append(added, d)
			}
		}
		n, err := h.persister.Save(ctx, added)
		if err != nil {
			// The documents are searchable but will not survive a restart.
			log.Error("failed to persist documents", "added", report.Added, "error", err)
			h.writeJSON(w, http.StatusInternalServerError, map[string]any{
				"error": "documents indexed but not persisted",
				"ids":   report.AddedIDs,
			})
			return
		}
		resp.Persisted = n
	}

	status := http.StatusOK
	if report.Added > 0 {
		status = http.StatusCreated
	}
	h.writeJSON(w, status, resp)
}

type addResponse struct {
	indexer.AddReport
	Persisted int `json:"persisted"`
}

func (h *Handler) decodeDocuments(w http.ResponseWriter, r *http.Request) ([]document.Document, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		return nil, err
	}
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		var docs []document.Document
		if err := json.Unmarshal(body, &docs); err != nil {
			return nil, err
		}
		return docs, nil
	}
	var doc document.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	return []document.Document{doc}, nil
}

func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	docs := h.engine.Documents()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"document_stats":        document.Statistics(docs),
		"index_stats":           h.engine.IndexStatistics(),
		"category_distribution": document.CategoryDistribution(docs),
	})
}

// Evaluate scores the engine against judgments posted as a JSON array, or
// against judgments generated from the indexed collection when the body is
// empty. The k parameter overrides the configured top K.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	opts := h.evalOpts
	if k, err := strconv.Atoi(r.URL.Query().Get("k")); err == nil && k > 0 {
		opts.TopK = k
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		h.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	origin := "generated"
	var judgments []evaluator.Judgment
	if len(bytes.TrimSpace(body)) > 0 {
		judgments, err = evaluator.LoadJudgments(bytes.NewReader(body))
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid judgments")
			return
		}
		origin = "provided"
	} else {
		judgments = evaluator.GenerateTestQueries(h.engine.Documents())
	}

	m, err := evaluator.Evaluate(ctx, h.executor, judgments, opts)
	if err != nil {
		logger.FromContext(ctx).Error("evaluation failed", "error", err)
		h.writeError(w, statusFor(err), "evaluation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"judgments": origin,
		"metrics":   m,
	})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func statusFor(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable
	}
	return apperrors.HTTPStatusCode(err)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
