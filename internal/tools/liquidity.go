package tools

import (
	"context"

	"github.com/alanyoungcy/kalshibot/internal/domain"
)

// liquidityMinSamples is the minimum liquidity points needed for a meaningful
// vector.
const liquidityMinSamples = 5

// LiquiditySpike detects and quantifies liquidity spikes for a single market
// from stored snapshot history. Uses open interest when quoted, else volume.
//
// Output vector: [mean_liquidity, std_liquidity, latest_vs_mean_ratio, zscore_latest].
type LiquiditySpike struct {
	source SnapshotSource
}

// NewLiquiditySpike returns the liquidity spike tool.
func NewLiquiditySpike(source SnapshotSource) *LiquiditySpike {
	return &LiquiditySpike{source: source}
}

func (*LiquiditySpike) Name() string { return "liquidity_spike_tool" }

func (*LiquiditySpike) Description() string {
	return "Computes mean liquidity, std liquidity, latest-vs-mean ratio, " +
		"and z-score of latest observation from local market snapshots. " +
		"Deterministic numeric feature vector for agent weighting."
}

// Run implements Tool.
func (t *LiquiditySpike) Run(ctx context.Context, event domain.Event, inputs map[string]any) (domain.ToolOutput, error) {
	rows, err := t.source.Rows(ctx, event.MarketID, window(inputs))
	if err != nil {
		return domain.ToolOutput{}, err
	}

	series := extractLiquidity(rows)
	samples := len(series)
	if samples < liquidityMinSamples {
		return zeroOutput(t.Name(), 4, samples), nil
	}

	meanLiq := mean(series)
	stdLiq := stdev(series)
	latest := series[samples-1]

	ratio := 0.0
	if meanLiq != 0 {
		ratio = latest / meanLiq
	}
	zscore := 0.0
	if stdLiq != 0 {
		zscore = (latest - meanLiq) / stdLiq
	}

	return domain.ToolOutput{
		Tool: t.Name(),
		Vector: []float64{
			domain.Round(meanLiq, 4),
			domain.Round(stdLiq, 4),
			domain.Round(ratio, 8),
			domain.Round(zscore, 8),
		},
		Metadata: map[string]any{
			"confidence":   domain.Round(confidence(samples), 4),
			"sample_count": samples,
		},
	}, nil
}
