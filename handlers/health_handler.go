package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/quotagate/gateway/internal/lifecycle"
	"github.com/quotagate/gateway/internal/memguard"
	"github.com/quotagate/gateway/utils"
	"go.uber.org/zap"
)

// StoreChecker reports store reachability for readiness probing
type StoreChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthResponse represents the basic health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// DetailedHealthResponse aggregates the individual subsystem checks
type DetailedHealthResponse struct {
	Status        string            `json:"status"`
	Timestamp     string            `json:"timestamp"`
	State         string            `json:"lifecycle_state"`
	UptimeSeconds float64           `json:"uptime_seconds"`
	Checks        map[string]string `json:"checks"`
	Memory        *memguard.Sample  `json:"memory,omitempty"`
}

// HealthHandler serves the orchestration probes. Liveness never consults
// dependencies; readiness gates on lifecycle state and store reachability.
type HealthHandler struct {
	store     StoreChecker
	lifecycle *lifecycle.Controller
	guardian  *memguard.Guardian
	logger    *zap.Logger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(store StoreChecker, ctrl *lifecycle.Controller, guardian *memguard.Guardian, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		store:     store,
		lifecycle: ctrl,
		guardian:  guardian,
		logger:    logger,
	}
}

// HandleLiveness handles GET /health/live.
// Answers 200 for as long as the process can serve HTTP at all, including
// while draining.
func (h *HealthHandler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteJSON(w, http.StatusOK, HealthResponse{
		Status:    "alive",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleReadiness handles GET /health/ready.
// Ready means the lifecycle admits work AND the store answers a ping.
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	if !h.lifecycle.AllowAdmission() {
		_ = utils.WriteJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:    "not_ready",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.store.HealthCheck(ctx); err != nil {
		h.logger.Warn("store health check failed", zap.Error(err))
		_ = utils.WriteJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:    "not_ready",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	_ = utils.WriteJSON(w, http.StatusOK, HealthResponse{
		Status:    "ready",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleHealth handles GET /health.
// Basic health check - always returns 200 if the service is running.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleDetailed handles GET /health/detailed.
// Composite status: unhealthy (503) when the store is unreachable or memory
// hit the max threshold; degraded (207) when memory is under pressure or the
// lifecycle is not admitting; healthy (200) otherwise.
func (h *HealthHandler) HandleDetailed(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	unhealthy := false
	degraded := false

	if err := h.store.HealthCheck(ctx); err != nil {
		h.logger.Warn("store health check failed", zap.Error(err))
		checks["store"] = "unhealthy"
		unhealthy = true
	} else {
		checks["store"] = "healthy"
	}

	state := h.lifecycle.State()
	checks["lifecycle"] = state.String()
	if state != lifecycle.StateReady {
		degraded = true
	}

	sample := h.guardian.Status()
	checks["memory"] = string(sample.Level)
	switch sample.Level {
	case memguard.LevelMax:
		unhealthy = true
	case memguard.LevelWarning, memguard.LevelCritical:
		degraded = true
	}

	status := "healthy"
	httpStatus := http.StatusOK
	switch {
	case unhealthy:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	case degraded:
		status = "degraded"
		httpStatus = http.StatusMultiStatus
	}

	response := DetailedHealthResponse{
		Status:        status,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		State:         state.String(),
		UptimeSeconds: h.lifecycle.Uptime().Seconds(),
		Checks:        checks,
	}
	if sample.Level != memguard.LevelDisabled {
		response.Memory = &sample
	}

	if err := utils.WriteJSON(w, httpStatus, response); err != nil {
		h.logger.Error("failed to write detailed health response", zap.Error(err))
	}
}
