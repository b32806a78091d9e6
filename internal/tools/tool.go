// Package tools contains the deterministic signal tools the selector can
// choose from. Every tool maps the same event (and the same snapshot history)
// to the same output vector; nothing here calls the network or draws
// unseeded randomness.
package tools

import (
	"context"
	"time"

	"github.com/alanyoungcy/kalshibot/internal/domain"
)

// Tool is the interface every prediction tool implements.
type Tool interface {
	// Name is the unique tool identifier (must match the registry key).
	Name() string

	// Description is the one-line description shown to the selector.
	Description() string

	// Run executes the tool deterministically. inputs carries the optional
	// tool_inputs from the selection.
	Run(ctx context.Context, event domain.Event, inputs map[string]any) (domain.ToolOutput, error)
}

// SnapshotSource provides windowed snapshot history for a market. The
// snapshot store implements it.
type SnapshotSource interface {
	Rows(ctx context.Context, marketID string, window time.Duration) ([]domain.MarketSnapshot, error)
}
