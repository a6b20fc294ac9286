package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/mohamedkhairy/nse-analytics/internal/analytics"
	"github.com/mohamedkhairy/nse-analytics/internal/scheduler"
	"github.com/mohamedkhairy/nse-analytics/pkg/logger"
)

// SchedulerController is the part of the scheduler exposed over HTTP
type SchedulerController interface {
	Status() scheduler.Status
	TriggerRefresh(ctx context.Context) (*scheduler.RunResult, error)
}

// SystemHandler serves health checks, cache administration and scheduler control
type SystemHandler struct {
	service   *analytics.Service
	scheduler SchedulerController
	startedAt time.Time
}

// NewSystemHandler creates a new system handler. sched may be nil when the
// scheduler is disabled.
func NewSystemHandler(service *analytics.Service, sched SchedulerController) *SystemHandler {
	return &SystemHandler{service: service, scheduler: sched, startedAt: time.Now()}
}

// Health handles GET /health
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"provider":  h.service.Provider(),
		"uptime":    time.Since(h.startedAt).Round(time.Second).String(),
		"timestamp": time.Now().UTC(),
	})
}

// Ready handles GET /ready; the service is ready once its cache answers
func (h *SystemHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if _, err := h.service.CacheStats(ctx); err != nil {
		logger.WithContext(r.Context()).Warn("Readiness check failed", logger.ErrorField(err))
		respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Live handles GET /live
func (h *SystemHandler) Live(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// CacheStats handles GET /api/v1/cache/stats
func (h *SystemHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.CacheStats(r.Context())
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to read cache statistics")
		return
	}
	respondWithData(w, stats, nil)
}

// ClearCache handles DELETE /api/v1/cache
func (h *SystemHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearCache(r.Context()); err != nil {
		respondWithServiceError(w, r, err, "Failed to clear cache")
		return
	}
	respondWithData(w, map[string]string{"message": "Cache cleared"}, nil)
}

// SchedulerStatus handles GET /api/v1/scheduler/status
func (h *SystemHandler) SchedulerStatus(w http.ResponseWriter, r *http.Request) {
	if h.scheduler == nil {
		respondWithError(w, http.StatusServiceUnavailable, "Scheduler is disabled")
		return
	}
	respondWithData(w, h.scheduler.Status(), nil)
}

// TriggerRefresh handles POST /api/v1/scheduler/trigger
func (h *SystemHandler) TriggerRefresh(w http.ResponseWriter, r *http.Request) {
	if h.scheduler == nil {
		respondWithError(w, http.StatusServiceUnavailable, "Scheduler is disabled")
		return
	}

	result, err := h.scheduler.TriggerRefresh(r.Context())
	switch {
	case errors.Is(err, scheduler.ErrRefreshInProgress):
		respondWithError(w, http.StatusConflict, "A refresh is already in progress")
		return
	case err != nil:
		respondWithServiceError(w, r, err, "Failed to refresh analyses")
		return
	}
	respondWithData(w, result, nil)
}
