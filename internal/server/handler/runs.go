package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/kalshibot/internal/domain"
)

// RunTailer reads recent run-log entries.
type RunTailer interface {
	Tail(ctx context.Context, n int) ([]domain.RunEntry, error)
}

// RunsHandler serves recent entries from the run log.
type RunsHandler struct {
	log    RunTailer
	logger *slog.Logger
}

// NewRunsHandler creates a RunsHandler backed by the given run log.
func NewRunsHandler(log RunTailer, logger *slog.Logger) *RunsHandler {
	return &RunsHandler{
		log:    log,
		logger: logHandler(logger, "runs"),
	}
}

// ListRuns responds with the most recent run-log entries in append order.
// GET /api/v1/runs?limit=N (default 20, max 200)
func (h *RunsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 20, 200)

	entries, err := h.log.Tail(r.Context(), limit)
	if err != nil {
		h.logger.Error("run log read failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "run log unavailable")
		return
	}
	if entries == nil {
		entries = []domain.RunEntry{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(entries),
		"runs":  entries,
	})
}
