package handlers

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/wonny/gedash/internal/dashboard"
	"github.com/wonny/gedash/internal/snapshot"
	"github.com/wonny/gedash/internal/views"
	"github.com/wonny/gedash/pkg/logger"
	"github.com/wonny/gedash/pkg/metrics"
	"github.com/wonny/gedash/pkg/redis"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Store is the cached validation relation
type Store interface {
	Get(ctx context.Context) (*snapshot.Snapshot, error)
	Reload(ctx context.Context) (*snapshot.Snapshot, error)
}

// Limiter admits or rejects a request under a rate limit
type Limiter interface {
	Allow(ctx context.Context, cfg redis.RateLimitConfig) (bool, int, error)
}

// DashboardHandler serves the dashboard views
// ⭐ SSOT: dashboard API handlers live in this struct only
type DashboardHandler struct {
	store       Store
	renderer    *dashboard.Renderer
	limiter     Limiter
	reloadLimit redis.RateLimitConfig
	metrics     *metrics.Metrics
	logger      *logger.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(
	store Store,
	renderer *dashboard.Renderer,
	limiter Limiter,
	reloadLimit redis.RateLimitConfig,
	m *metrics.Metrics,
	log *logger.Logger,
) *DashboardHandler {
	return &DashboardHandler{
		store:       store,
		renderer:    renderer,
		limiter:     limiter,
		reloadLimit: reloadLimit,
		metrics:     m,
		logger:      log.WithComponent("dashboard"),
	}
}

// Page renders the HTML dashboard; query parameters are the raw data filter
// GET /
func (h *DashboardHandler) Page(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, err := ParseFilter(q)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	n, err := ParseTopN(q)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := h.store.Get(r.Context())
	if err != nil {
		respondLoadError(w, h.logger, err)
		return
	}

	var buf bytes.Buffer
	err = h.renderer.Render(&buf, dashboard.Input{
		Records:  snap.Records(),
		Filter:   filter,
		TopN:     n,
		LoadedAt: snap.LoadedAt,
		Relation: snap.Relation,
		Query:    r.URL.RawQuery,
	})
	if err != nil {
		h.logger.WithError(err).Error("Failed to render dashboard")
		respondError(w, http.StatusInternalServerError, "Failed to render dashboard")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// LatestFailures returns the latest record of every table whose latest run failed
// GET /api/v1/views/latest-failures
func (h *DashboardHandler) LatestFailures(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.Get(r.Context())
	if err != nil {
		respondLoadError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, views.LatestFailures(snap.Records()))
}

// DailySuccess returns the success rate of every observed day
// GET /api/v1/views/daily-success
func (h *DashboardHandler) DailySuccess(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.Get(r.Context())
	if err != nil {
		respondLoadError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, views.DailySuccessRates(snap.Records()))
}

// TopFailing returns the failure ranking and its monthly breakdown
// GET /api/v1/views/top-failing?n=10
func (h *DashboardHandler) TopFailing(w http.ResponseWriter, r *http.Request) {
	n, err := ParseTopN(r.URL.Query())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := h.store.Get(r.Context())
	if err != nil {
		respondLoadError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, views.TopFailing(snap.Records(), n))
}

// Records returns the raw records selected by the filter
// GET /api/v1/records?schema=&table=&from=&to=&success=
func (h *DashboardHandler) Records(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseFilter(r.URL.Query())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := h.store.Get(r.Context())
	if err != nil {
		respondLoadError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, views.Filter(snap.Records(), filter))
}

// Export returns the filtered records as a spreadsheet
// GET /api/v1/records/export.xlsx
func (h *DashboardHandler) Export(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseFilter(r.URL.Query())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := h.store.Get(r.Context())
	if err != nil {
		respondLoadError(w, h.logger, err)
		return
	}

	var buf bytes.Buffer
	if err := h.renderer.Layout().WriteXLSX(&buf, views.Filter(snap.Records(), filter)); err != nil {
		h.logger.WithError(err).Error("Failed to export records")
		respondError(w, http.StatusInternalServerError, "Failed to export records")
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="validations.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// Options returns the values the filter controls can offer
// GET /api/v1/filters/options?schema=
func (h *DashboardHandler) Options(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.Get(r.Context())
	if err != nil {
		respondLoadError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, views.Options(snap.Records(), r.URL.Query().Get("schema")))
}

// ReloadResponse reports a completed reload
type ReloadResponse struct {
	Status     string    `json:"status"`
	Relation   string    `json:"relation"`
	Records    int       `json:"records"`
	LoadedAt   time.Time `json:"loaded_at"`
	DurationMs int64     `json:"duration_ms"`
	Remaining  int       `json:"remaining"`
}

// Reload drops the cached relation and reads it again
// POST /api/v1/reload
func (h *DashboardHandler) Reload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	allowed, remaining, err := h.limiter.Allow(ctx, h.reloadLimit)
	if err != nil {
		h.logger.WithError(err).Error("Reload rate limiter failed")
		respondError(w, http.StatusServiceUnavailable, "Reload rate limiter unavailable")
		return
	}
	if !allowed {
		h.metrics.ReloadThrottle.Inc()
		w.Header().Set("Retry-After", strconv.Itoa(int(h.reloadLimit.Window.Seconds())))
		respondError(w, http.StatusTooManyRequests, "Reload rate limit exceeded")
		return
	}

	snap, err := h.store.Reload(ctx)
	if err != nil {
		respondLoadError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, ReloadResponse{
		Status:     "reloaded",
		Relation:   snap.Relation,
		Records:    snap.Len(),
		LoadedAt:   snap.LoadedAt,
		DurationMs: snap.Duration.Milliseconds(),
		Remaining:  remaining,
	})
}
