package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/mp-nominations-api/internal/events"
	"github.com/Adithya-Monish-Kumar-K/mp-nominations-api/internal/mp"
	"github.com/Adithya-Monish-Kumar-K/mp-nominations-api/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/mp-nominations-api/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/mp-nominations-api/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/mp-nominations-api/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/mp-nominations-api/pkg/middleware"
)

const welcomeMessage = "Welcome to the MP API. Query /api/mps, /api/mps/{id} and /api/analytics."

// PageCache caches rendered list pages. *cache.PageCache implements it.
type PageCache interface {
	GetOrCompute(ctx context.Context, q mp.Query, page, limit int, computeFn func() (mp.Page, error)) (mp.Page, bool, error)
	Invalidate(ctx context.Context) (int64, error)
	Stats() (hits, misses int64)
}

type Handler struct {
	dataset      *mp.Dataset
	cache        PageCache
	collector    *events.Collector
	metrics      *metrics.Metrics
	defaultLimit int
	maxLimit     int
	logger       *slog.Logger
}

// New creates the API handler. pageCache, collector and m may be nil.
func New(ds *mp.Dataset, pageCache PageCache, collector *events.Collector, m *metrics.Metrics, cfg config.QueryConfig) *Handler {
	return &Handler{
		dataset:      ds,
		cache:        pageCache,
		collector:    collector,
		metrics:      m,
		defaultLimit: cfg.DefaultLimit,
		maxLimit:     cfg.MaxLimit,
		logger:       slog.Default().With("component", "mp-handler"),
	}
}

func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"message": welcomeMessage})
}

// ListMPs serves GET /api/mps: filter, then paginate.
func (h *Handler) ListMPs(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	page, limit, err := h.parsePaging(r)
	if err != nil {
		h.writeAppError(w, err)
		return
	}

	params := r.URL.Query()
	q := mp.Query{
		Party:        params.Get("party"),
		Constituency: params.Get("constituency"),
		Search:       params.Get("search"),
		Fuzzy:        params.Get("fuzzy"),
	}
	h.recordFilters(q)

	compute := func() (mp.Page, error) {
		matched, err := h.dataset.Resolve(q)
		if err != nil {
			return mp.Page{}, err
		}
		return mp.Paginate(matched, page, limit), nil
	}

	var result mp.Page
	cacheHit := false
	if h.cache != nil {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, q, page, limit, compute)
	} else {
		result, err = compute()
	}
	latency := time.Since(start)

	if err != nil {
		if errors.Is(err, apperrors.ErrDatasetUnavailable) {
			h.countQuery(metrics.ResultUnavailable)
		} else {
			h.countQuery(metrics.ResultError)
		}
		log.Error("mp list query failed", "query", q, "error", err)
		h.writeAppError(w, err)
		return
	}

	h.observeQuery(result, cacheHit, latency)

	log.Info("mp list query completed",
		"party", q.Party,
		"constituency", q.Constituency,
		"search", q.Search,
		"fuzzy", q.Fuzzy,
		"page", page,
		"limit", limit,
		"total_items", result.TotalItems,
		"returned", len(result.Items),
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)

	eventType := events.EventList
	if result.TotalItems == 0 {
		eventType = events.EventZeroResult
	}
	h.collector.Track(events.QueryEvent{
		Type:       eventType,
		Params:     q,
		Page:       page,
		Limit:      limit,
		TotalItems: result.TotalItems,
		Returned:   len(result.Items),
		LatencyMs:  latency.Milliseconds(),
		CacheHit:   cacheHit,
		RequestID:  middleware.GetRequestID(ctx),
		Timestamp:  time.Now().UTC(),
	})

	h.writeJSON(w, http.StatusOK, result)
}

// GetMP serves GET /api/mps/{id}.
func (h *Handler) GetMP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		h.writeAppError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "mp id must be an integer"))
		return
	}

	rec, err := h.dataset.Get(id)
	event := events.QueryEvent{
		Type:      events.EventLookup,
		MPID:      id,
		LatencyMs: time.Since(start).Milliseconds(),
		RequestID: middleware.GetRequestID(ctx),
		Timestamp: time.Now().UTC(),
	}
	if err != nil {
		if errors.Is(err, apperrors.ErrMPNotFound) {
			event.Type = events.EventLookupMiss
			h.collector.Track(event)
		} else {
			logger.FromContext(ctx).Error("mp lookup failed", "id", id, "error", err)
		}
		h.writeAppError(w, err)
		return
	}
	event.TotalItems, event.Returned = 1, 1
	h.collector.Track(event)

	h.writeJSON(w, http.StatusOK, rec)
}

// Analytics serves GET /api/analytics.
func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snapshot, err := h.dataset.Analytics()
	if err != nil {
		logger.FromContext(ctx).Error("analytics unavailable", "error", err)
		h.writeAppError(w, err)
		return
	}
	h.collector.Track(events.QueryEvent{
		Type:       events.EventAnalytics,
		TotalItems: snapshot.TotalMPs,
		Returned:   len(snapshot.PartyDistribution),
		RequestID:  middleware.GetRequestID(ctx),
		Timestamp:  time.Now().UTC(),
	})
	h.writeJSON(w, http.StatusOK, snapshot)
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

// parsePaging validates page and limit before any filtering runs.
func (h *Handler) parsePaging(r *http.Request) (page, limit int, err error) {
	page, limit = 1, h.defaultLimit

	if v := r.URL.Query().Get("page"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			return 0, 0, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "page must be a positive integer")
		}
		page = parsed
	}

	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > h.maxLimit {
			return 0, 0, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest,
				"limit must be an integer between 1 and %d", h.maxLimit)
		}
		limit = parsed
	}
	return page, limit, nil
}

func (h *Handler) recordFilters(q mp.Query) {
	if h.metrics == nil {
		return
	}
	for name, value := range map[string]string{
		"party":        q.Party,
		"constituency": q.Constituency,
		"search":       q.Search,
		"fuzzy":        q.Fuzzy,
	} {
		if value != "" {
			h.metrics.QueryFilters.WithLabelValues(name).Inc()
		}
	}
}

func (h *Handler) observeQuery(result mp.Page, cacheHit bool, latency time.Duration) {
	if h.metrics == nil {
		return
	}
	resultType := metrics.ResultHit
	if result.TotalItems == 0 {
		resultType = metrics.ResultZero
	}
	h.metrics.QueriesTotal.WithLabelValues(resultType).Inc()
	h.metrics.QueryResultsCount.Observe(float64(result.TotalItems))

	cacheStatus := "disabled"
	switch {
	case h.cache == nil:
	case cacheHit:
		cacheStatus = "hit"
		h.metrics.CacheHitsTotal.Inc()
	default:
		cacheStatus = "miss"
		h.metrics.CacheMissesTotal.Inc()
	}
	h.metrics.QueryLatency.WithLabelValues(cacheStatus).Observe(latency.Seconds())
}

func (h *Handler) countQuery(resultType string) {
	if h.metrics != nil {
		h.metrics.QueriesTotal.WithLabelValues(resultType).Inc()
	}
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

func (h *Handler) writeAppError(w http.ResponseWriter, err error) {
	h.writeError(w, apperrors.HTTPStatusCode(err), apperrors.Message(err))
}
