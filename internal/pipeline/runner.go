package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/kalshibot/internal/domain"
	"github.com/alanyoungcy/kalshibot/internal/tools"
)

// Runner executes the validated formula's tools in selection order.
type Runner struct {
	registry *tools.Registry
	logger   *slog.Logger
}

// NewRunner creates a Runner over the given registry.
func NewRunner(registry *tools.Registry, logger *slog.Logger) *Runner {
	return &Runner{
		registry: registry,
		logger:   logger.With(slog.String("component", "runner")),
	}
}

// Run executes each selected tool, passing its tool_inputs, and returns the
// outputs in selection order together with per-tool execution statuses. The
// first failure aborts the run; statuses up to and including the failure are
// still returned so the run summary can show what happened.
func (r *Runner) Run(ctx context.Context, event domain.Event, formula domain.Formula) ([]domain.ToolOutput, []domain.ToolStatus, error) {
	outputs := make([]domain.ToolOutput, 0, len(formula.Selections))
	statuses := make([]domain.ToolStatus, 0, len(formula.Selections))

	for _, sel := range formula.Selections {
		tool, err := r.registry.Get(sel.Tool)
		if err != nil {
			statuses = append(statuses, domain.ToolStatus{
				Tool:  sel.Tool,
				OK:    false,
				Error: err.Error(),
			})
			return outputs, statuses, fmt.Errorf("pipeline: %w", err)
		}

		r.logger.Info("running tool",
			slog.String("tool", sel.Tool),
			slog.Float64("weight", sel.Weight),
		)

		started := time.Now()
		out, err := tool.Run(ctx, event, sel.Inputs)
		latency := float64(time.Since(started).Microseconds()) / 1e3

		if err != nil {
			statuses = append(statuses, domain.ToolStatus{
				Tool:      sel.Tool,
				OK:        false,
				LatencyMS: latency,
				Error:     err.Error(),
			})
			return outputs, statuses, fmt.Errorf("pipeline: tool %s: %w: %v", sel.Tool, domain.ErrToolExecution, err)
		}

		statuses = append(statuses, domain.ToolStatus{
			Tool:      sel.Tool,
			OK:        true,
			LatencyMS: latency,
		})
		outputs = append(outputs, out)

		r.logger.Info("tool finished",
			slog.String("tool", sel.Tool),
			slog.Any("vector", out.Vector),
			slog.Float64("latency_ms", latency),
		)
	}

	return outputs, statuses, nil
}
