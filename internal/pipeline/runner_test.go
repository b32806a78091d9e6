package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/kalshibot/internal/domain"
	"github.com/alanyoungcy/kalshibot/internal/tools"
)

func registryOf(t *testing.T, ts ...tools.Tool) *tools.Registry {
	t.Helper()
	r := tools.NewRegistry()
	for _, tool := range ts {
		require.NoError(t, r.Register(tool))
	}
	return r
}

func TestRunnerRun_SelectionOrder(t *testing.T) {
	a := &stubTool{name: "tool_a", vector: []float64{0.1}}
	b := &stubTool{name: "tool_b", vector: []float64{0.2}}
	// Register in the opposite order of the selection to prove output order
	// follows the formula, not the registry.
	reg := registryOf(t, b, a)

	formula := domain.Formula{Selections: []domain.ToolSelection{
		{Tool: "tool_a", Weight: 0.5},
		{Tool: "tool_b", Weight: 0.5},
	}}

	outputs, statuses, err := NewRunner(reg, testLogger()).Run(context.Background(), domain.Event{}, formula)
	require.NoError(t, err)
	require.Len(t, outputs, 2)
	assert.Equal(t, "tool_a", outputs[0].Tool)
	assert.Equal(t, "tool_b", outputs[1].Tool)
	require.Len(t, statuses, 2)
	assert.True(t, statuses[0].OK)
	assert.True(t, statuses[1].OK)
}

func TestRunnerRun_PassesToolInputs(t *testing.T) {
	a := &stubTool{name: "tool_a", vector: []float64{0.1}}
	reg := registryOf(t, a)

	formula := domain.Formula{Selections: []domain.ToolSelection{
		{Tool: "tool_a", Weight: 1, Inputs: map[string]any{"window_minutes": 5.0}},
	}}

	_, _, err := NewRunner(reg, testLogger()).Run(context.Background(), domain.Event{}, formula)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"window_minutes": 5.0}, a.lastInputs)
}

func TestRunnerRun_FirstFailureAborts(t *testing.T) {
	a := &stubTool{name: "tool_a", vector: []float64{0.1}}
	b := &stubTool{name: "tool_b", err: errors.New("boom")}
	c := &stubTool{name: "tool_c", vector: []float64{0.3}}
	reg := registryOf(t, a, b, c)

	formula := domain.Formula{Selections: []domain.ToolSelection{
		{Tool: "tool_a", Weight: 0.3},
		{Tool: "tool_b", Weight: 0.3},
		{Tool: "tool_c", Weight: 0.4},
	}}

	outputs, statuses, err := NewRunner(reg, testLogger()).Run(context.Background(), domain.Event{}, formula)
	assert.ErrorIs(t, err, domain.ErrToolExecution)

	// tool_a ran, tool_b failed, tool_c never started.
	require.Len(t, outputs, 1)
	require.Len(t, statuses, 2)
	assert.True(t, statuses[0].OK)
	assert.False(t, statuses[1].OK)
	assert.Contains(t, statuses[1].Error, "boom")
	assert.Equal(t, 0, c.calls)
}

func TestRunnerRun_MissingToolFails(t *testing.T) {
	reg := registryOf(t)

	formula := domain.Formula{Selections: []domain.ToolSelection{
		{Tool: "ghost", Weight: 1},
	}}

	outputs, statuses, err := NewRunner(reg, testLogger()).Run(context.Background(), domain.Event{}, formula)
	assert.ErrorIs(t, err, domain.ErrUnknownTool)
	assert.Empty(t, outputs)
	require.Len(t, statuses, 1)
	assert.False(t, statuses[0].OK)
}
