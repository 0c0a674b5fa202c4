package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/minise/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/minise/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/minise/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/minise/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/minise/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/minise/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/minise/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/minise/pkg/resilience"
)

type SearchExecutor interface {
	Execute(ctx context.Context, query string, opts executor.Options) (*executor.SearchResult, error)
}

// EngineSource yields the engine currently serving queries, nil if none.
type EngineSource interface {
	Current() *indexer.Engine
}

type IndexInfo struct {
	Name      string `json:"name"`
	Documents int    `json:"documents"`
	Terms     int    `json:"terms"`
	SizeBytes int    `json:"size_bytes"`
}

type Handler struct {
	executor SearchExecutor
	engines  EngineSource
	cache    *cache.QueryCache
	cfg      config.SearchConfig
	logger   *slog.Logger
}

// New builds the search API. queryCache may be nil.
func New(exec SearchExecutor, engines EngineSource, queryCache *cache.QueryCache, cfg config.SearchConfig) *Handler {
	return &Handler{
		executor: exec,
		engines:  engines,
		cache:    queryCache,
		cfg:      cfg,
		logger:   slog.Default().With("component", "search-handler"),
	}
}

// Routes lists the paths served by Register, for metric labels.
var Routes = []string{"/api/v1/search", "/api/v1/index", "/api/v1/cache/stats", "/api/v1/cache/invalidate"}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/index", h.Index)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

// Search serves GET /api/v1/search?q=&num=&snippetnum=&snippetlen=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	params := r.URL.Query()
	query := params.Get("q")
	if query == "" {
		middleware.WriteError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	opts := executor.Options{Num: h.cfg.Num, SnippetNum: h.cfg.SnippetNum, SnippetLen: h.cfg.SnippetLen}
	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"num", &opts.Num},
		{"snippetnum", &opts.SnippetNum},
		{"snippetlen", &opts.SnippetLen},
	} {
		if err := intParam(params.Get(p.name), p.dst); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, fmt.Sprintf("%s must be a non-negative integer", p.name))
			return
		}
	}
	if h.cfg.MaxResults > 0 {
		opts.Num = min(opts.Num, h.cfg.MaxResults)
	}

	compute := func() (*executor.SearchResult, error) {
		return resilience.WithTimeout(ctx, h.cfg.Timeout, "search", func(ctx context.Context) (*executor.SearchResult, error) {
			return h.executor.Execute(ctx, query, opts)
		})
	}
	var (
		result   *executor.SearchResult
		cacheHit bool
		err      error
	)
	if h.cache != nil {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, query, opts, compute)
	} else {
		result, err = compute()
	}
	if err != nil {
		log.Error("search failed", "query", query, "error", err)
		status := apperrors.HTTPStatusCode(err)
		msg := "search failed"
		switch {
		case errors.Is(err, apperrors.ErrNotReady):
			msg = "index not ready"
		case errors.Is(err, apperrors.ErrTimeout):
			msg = "search timed out"
		}
		middleware.WriteError(w, status, msg)
		return
	}

	log.Info("search completed",
		"query", query,
		"total_docs", result.TotalDocs,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	if h.cache != nil {
		status := "MISS"
		if cacheHit {
			status = "HIT"
		}
		w.Header().Set("X-Cache", status)
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}

func intParam(raw string, dst *int) error {
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return apperrors.ErrInvalidInput
	}
	*dst = v
	return nil
}

// Index serves GET /api/v1/index with facts about the serving index.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	e := h.engines.Current()
	if e == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "index not ready")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, IndexInfo{
		Name:      e.IndexName(),
		Documents: e.DocCount(),
		Terms:     e.TermCount(),
		SizeBytes: e.IndexSize(),
	})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		middleware.WriteError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}
