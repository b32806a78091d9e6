package tools

import (
	"context"
	"math"

	"github.com/alanyoungcy/kalshibot/internal/domain"
)

// priceJumpMinSamples is the minimum price points needed for a meaningful
// vector.
const priceJumpMinSamples = 5

// PriceJumpDetector detects and quantifies consecutive price jumps for a
// single market from stored snapshot history.
//
// Output vector: [max_jump, mean_jump, jump_count, jump_density].
type PriceJumpDetector struct {
	source SnapshotSource
}

// NewPriceJumpDetector returns the price jump detector tool.
func NewPriceJumpDetector(source SnapshotSource) *PriceJumpDetector {
	return &PriceJumpDetector{source: source}
}

func (*PriceJumpDetector) Name() string { return "price_jump_detector_tool" }

func (*PriceJumpDetector) Description() string {
	return "Detects price jumps and computes max jump, mean jump, " +
		"jump count (>|0.05|), and jump density from local market " +
		"snapshots. Deterministic numeric feature vector for agent weighting."
}

// Run implements Tool.
func (t *PriceJumpDetector) Run(ctx context.Context, event domain.Event, inputs map[string]any) (domain.ToolOutput, error) {
	rows, err := t.source.Rows(ctx, event.MarketID, window(inputs))
	if err != nil {
		return domain.ToolOutput{}, err
	}

	prices := extractPrices(rows)
	samples := len(prices)
	if samples < priceJumpMinSamples {
		return zeroOutput(t.Name(), 4, samples), nil
	}

	steps := samples - 1
	var maxJump, sumJump float64
	jumpCount := 0
	for i := 0; i < steps; i++ {
		d := math.Abs(prices[i+1] - prices[i])
		if d > maxJump {
			maxJump = d
		}
		sumJump += d
		if d > jumpThreshold {
			jumpCount++
		}
	}

	return domain.ToolOutput{
		Tool: t.Name(),
		Vector: []float64{
			domain.Round(maxJump, 8),
			domain.Round(sumJump/float64(steps), 8),
			domain.Round(float64(jumpCount), 8),
			domain.Round(float64(jumpCount)/float64(steps), 8),
		},
		Metadata: map[string]any{
			"confidence":   domain.Round(confidence(samples), 4),
			"sample_count": samples,
		},
	}, nil
}
