package tools

import (
	"context"

	"github.com/alanyoungcy/kalshibot/internal/domain"
)

// spreadMinSamples is the minimum spread points needed for a meaningful
// vector.
const spreadMinSamples = 3

// SpreadCompression analyses bid-ask spread compression and expansion for a
// single market from stored snapshot history.
//
// Output vector: [mean_spread, spread_std, spread_trend, compression_ratio].
type SpreadCompression struct {
	source SnapshotSource
}

// NewSpreadCompression returns the spread compression tool.
func NewSpreadCompression(source SnapshotSource) *SpreadCompression {
	return &SpreadCompression{source: source}
}

func (*SpreadCompression) Name() string { return "spread_compression_tool" }

func (*SpreadCompression) Description() string {
	return "Computes mean spread, spread std-dev, spread trend, and " +
		"compression ratio from local market snapshots. " +
		"Deterministic numeric feature vector for agent weighting."
}

// Run implements Tool.
func (t *SpreadCompression) Run(ctx context.Context, event domain.Event, inputs map[string]any) (domain.ToolOutput, error) {
	rows, err := t.source.Rows(ctx, event.MarketID, window(inputs))
	if err != nil {
		return domain.ToolOutput{}, err
	}

	spreads := extractSpreads(rows)
	samples := len(spreads)
	if samples < spreadMinSamples {
		return zeroOutput(t.Name(), 4, samples), nil
	}

	meanSpread := mean(spreads)
	trend := spreads[samples-1] - spreads[0]
	compression := 0.0
	if meanSpread != 0 {
		compression = spreads[samples-1] / meanSpread
	}

	return domain.ToolOutput{
		Tool: t.Name(),
		Vector: []float64{
			domain.Round(meanSpread, 8),
			domain.Round(stdev(spreads), 8),
			domain.Round(trend, 8),
			domain.Round(compression, 8),
		},
		Metadata: map[string]any{
			"confidence":   domain.Round(confidence(samples), 4),
			"sample_count": samples,
		},
	}, nil
}
