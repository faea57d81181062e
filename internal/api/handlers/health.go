package handlers

import (
	"net/http"

	"github.com/wonny/gedash/pkg/database"
)

// HealthHandler reports liveness and database health
type HealthHandler struct {
	db database.Checker
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db database.Checker) *HealthHandler {
	return &HealthHandler{db: db}
}

// Health returns server health status
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"service": "gedash",
	})
}

// Database pings the validation store
// GET /health/db
func (h *HealthHandler) Database(w http.ResponseWriter, r *http.Request) {
	status, err := h.db.HealthCheck(r.Context())
	if status == nil {
		respondError(w, http.StatusServiceUnavailable, "Database health check failed")
		return
	}
	if err != nil || !status.Healthy {
		respondJSON(w, http.StatusServiceUnavailable, status)
		return
	}

	respondJSON(w, http.StatusOK, status)
}
