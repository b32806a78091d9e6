package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/kalshibot/internal/snapshots"
)

// CollectorStats is the narrow counter surface the status endpoint reads.
type CollectorStats interface {
	Stats() snapshots.Stats
}

// RunCounter counts logged pipeline runs.
type RunCounter interface {
	Count(ctx context.Context) (int, error)
}

// StatusHandler serves runtime counters for the status API. Either collector
// or runs may be nil when the corresponding subsystem is not running.
type StatusHandler struct {
	mode      string
	source    string
	started   time.Time
	collector CollectorStats
	runs      RunCounter
	logger    *slog.Logger
}

// NewStatusHandler creates a StatusHandler. Uptime is measured from the call.
func NewStatusHandler(mode, source string, collector CollectorStats, runs RunCounter, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{
		mode:      mode,
		source:    source,
		started:   time.Now().UTC(),
		collector: collector,
		runs:      runs,
		logger:    logHandler(logger, "status"),
	}
}

// GetStatus responds with uptime, collector counters, and the run-log size.
// GET /api/v1/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"mode":    h.mode,
		"source":  h.source,
		"started": h.started.Format(time.RFC3339),
		"uptime":  time.Since(h.started).Round(time.Second).String(),
	}

	if h.collector != nil {
		resp["collector"] = h.collector.Stats()
	}
	if h.runs != nil {
		count, err := h.runs.Count(r.Context())
		if err != nil {
			h.logger.Warn("run count failed", slog.String("error", err.Error()))
		} else {
			resp["runs_logged"] = count
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
