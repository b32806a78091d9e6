package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// HealthHandler answers the liveness probe.
type HealthHandler struct {
	logger *slog.Logger
}

func NewHealthHandler(logger *slog.Logger) *HealthHandler {
	return &HealthHandler{logger: logHandler(logger, "health")}
}

// HealthCheck reports that the process is up. Anything deeper (bucket
// reachability, collector liveness) belongs to /api/v1/status.
// GET /healthz
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
