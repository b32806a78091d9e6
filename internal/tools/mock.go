package tools

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math/rand"

	"github.com/alanyoungcy/kalshibot/internal/domain"
)

// PriceSignal returns the current market price as a normalized signal.
// It exists to prove the tool plumbing works end to end.
type PriceSignal struct{}

// NewPriceSignal returns the mock price-signal tool.
func NewPriceSignal() PriceSignal { return PriceSignal{} }

func (PriceSignal) Name() string { return "mock_price_signal" }

func (PriceSignal) Description() string {
	return "Returns the current Kalshi YES price as a [0,1] signal vector. " +
		"Higher price = market thinks event is more likely."
}

// Run implements Tool. Same price in, same vector out.
func (t PriceSignal) Run(ctx context.Context, event domain.Event, inputs map[string]any) (domain.ToolOutput, error) {
	return domain.ToolOutput{
		Tool:   t.Name(),
		Vector: []float64{domain.Clamp01(event.Price)},
		Metadata: map[string]any{
			"source":    "kalshi_price",
			"raw_price": event.Price,
		},
	}, nil
}

// RandomContext returns a pseudo-random value seeded by event_id, simulating
// an external context signal. Same event_id, same output every time.
type RandomContext struct{}

// NewRandomContext returns the mock context tool.
func NewRandomContext() RandomContext { return RandomContext{} }

func (RandomContext) Name() string { return "mock_random_context" }

func (RandomContext) Description() string {
	return "Returns a deterministic pseudo-random [0,1] value seeded by event_id. " +
		"Simulates an external context signal (placeholder for real data)."
}

// Run implements Tool. The seed is the low 32 bits of SHA-256(event_id); the
// value is the first draw from a PRNG seeded with it.
func (t RandomContext) Run(ctx context.Context, event domain.Event, inputs map[string]any) (domain.ToolOutput, error) {
	sum := sha256.Sum256([]byte(event.EventID))
	seed := binary.BigEndian.Uint32(sum[28:])
	value := rand.New(rand.NewSource(int64(seed))).Float64()

	return domain.ToolOutput{
		Tool:   t.Name(),
		Vector: []float64{domain.Round(value, 6)},
		Metadata: map[string]any{
			"seed":     seed,
			"event_id": event.EventID,
		},
	}, nil
}
