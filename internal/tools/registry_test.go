package tools

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/kalshibot/internal/domain"
)

// fixedSource serves a canned snapshot history and records the window the
// tool asked for.
type fixedSource struct {
	rows      []domain.MarketSnapshot
	err       error
	gotWindow time.Duration
}

func (f *fixedSource) Rows(_ context.Context, _ string, window time.Duration) ([]domain.MarketSnapshot, error) {
	f.gotWindow = window
	return f.rows, f.err
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(NewPriceSignal()))

	tool, err := r.Get("mock_price_signal")
	require.NoError(t, err)
	assert.Equal(t, "mock_price_signal", tool.Name())
	assert.True(t, r.Has("mock_price_signal"))
	assert.False(t, r.Has("ghost"))
}

func TestRegistry_DuplicateRejected(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(NewPriceSignal()))

	err := r.Register(NewPriceSignal())
	assert.ErrorIs(t, err, domain.ErrDuplicateTool)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("ghost")
	assert.ErrorIs(t, err, domain.ErrUnknownTool)
}

func TestRegistry_SpecsInRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(NewRandomContext()))
	require.NoError(t, r.Register(NewPriceSignal()))

	specs := r.Specs()
	require.Len(t, specs, 2)
	assert.Equal(t, "mock_random_context", specs[0].Name)
	assert.Equal(t, "mock_price_signal", specs[1].Name)
	assert.NotEmpty(t, specs[0].Description)
}

func TestNewDefaultRegistry_AllBuiltins(t *testing.T) {
	r, err := NewDefaultRegistry(&fixedSource{})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"mock_price_signal",
		"mock_random_context",
		"snapshot_volatility_tool",
		"spread_compression_tool",
		"price_jump_detector_tool",
		"liquidity_spike_tool",
	}, r.Names())
}
