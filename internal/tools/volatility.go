package tools

import (
	"context"

	"github.com/alanyoungcy/kalshibot/internal/domain"
)

// volatilityMinSamples is the minimum price points needed for a meaningful
// vector; below it the tool returns zeros with confidence 0.
const volatilityMinSamples = 3

// Volatility computes market behavior metrics for a single market from
// stored snapshot history. Pure math over the snapshot window.
//
// Output vector: [volatility, price_range, mean_spread, jump_rate, liquidity_proxy].
type Volatility struct {
	source SnapshotSource
}

// NewVolatility returns the snapshot volatility tool.
func NewVolatility(source SnapshotSource) *Volatility {
	return &Volatility{source: source}
}

func (*Volatility) Name() string { return "snapshot_volatility_tool" }

func (*Volatility) Description() string {
	return "Computes volatility, price range, mean spread, jump rate, " +
		"and liquidity proxy from local market snapshots. " +
		"Deterministic numeric feature vector for agent weighting."
}

// Run implements Tool. Identical snapshot history and inputs produce an
// identical vector.
func (t *Volatility) Run(ctx context.Context, event domain.Event, inputs map[string]any) (domain.ToolOutput, error) {
	rows, err := t.source.Rows(ctx, event.MarketID, window(inputs))
	if err != nil {
		return domain.ToolOutput{}, err
	}

	prices := extractPrices(rows)
	samples := len(prices)
	if samples < volatilityMinSamples {
		return zeroOutput(t.Name(), 5, samples), nil
	}

	minPrice, maxPrice := prices[0], prices[0]
	for _, p := range prices[1:] {
		if p < minPrice {
			minPrice = p
		}
		if p > maxPrice {
			maxPrice = p
		}
	}

	diffs := len(prices) - 1
	jumps := 0
	for i := 0; i < diffs; i++ {
		d := prices[i+1] - prices[i]
		if d < 0 {
			d = -d
		}
		if d > jumpThreshold {
			jumps++
		}
	}

	return domain.ToolOutput{
		Tool: t.Name(),
		Vector: []float64{
			domain.Round(stdev(prices), 8),
			domain.Round(maxPrice-minPrice, 8),
			domain.Round(mean(extractSpreads(rows)), 8),
			domain.Round(float64(jumps)/float64(diffs), 8),
			domain.Round(mean(extractLiquidity(rows)), 4),
		},
		Metadata: map[string]any{
			"confidence":   domain.Round(confidence(samples), 4),
			"sample_count": samples,
		},
	}, nil
}
