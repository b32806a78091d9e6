package tools

import (
	"math"
	"time"

	"github.com/alanyoungcy/kalshibot/internal/domain"
)

// defaultWindowMinutes is the snapshot lookback used when tool_inputs does
// not override it.
const defaultWindowMinutes = 120

// confidenceFullSamples is the sample count at which confidence saturates.
const confidenceFullSamples = 50

// jumpThreshold is the absolute price move that counts as a jump.
const jumpThreshold = 0.05

// window resolves the lookback duration from tool inputs. JSON numbers
// arrive as float64; explicit ints are accepted too.
func window(inputs map[string]any) time.Duration {
	minutes := defaultWindowMinutes
	if raw, ok := inputs["window_minutes"]; ok {
		switch v := raw.(type) {
		case float64:
			minutes = int(v)
		case int:
			minutes = v
		}
	}
	if minutes < 1 {
		minutes = defaultWindowMinutes
	}
	return time.Duration(minutes) * time.Minute
}

// confidence maps a sample count to [0,1], saturating at
// confidenceFullSamples.
func confidence(samples int) float64 {
	return math.Min(1.0, float64(samples)/confidenceFullSamples)
}

// zeroOutput is the fallback vector a snapshot tool returns when the window
// holds too few samples to compute anything meaningful.
func zeroOutput(name string, vectorLen, samples int) domain.ToolOutput {
	return domain.ToolOutput{
		Tool:   name,
		Vector: make([]float64, vectorLen),
		Metadata: map[string]any{
			"confidence":   0.0,
			"sample_count": samples,
		},
	}
}

// extractPrices applies the price rule (last_price, else bid/ask midpoint)
// to each row and returns the usable series.
func extractPrices(rows []domain.MarketSnapshot) []float64 {
	prices := make([]float64, 0, len(rows))
	for _, r := range rows {
		if p, ok := r.Price(); ok {
			prices = append(prices, p)
		}
	}
	return prices
}

// extractSpreads returns yes_ask - yes_bid for each row.
func extractSpreads(rows []domain.MarketSnapshot) []float64 {
	spreads := make([]float64, 0, len(rows))
	for _, r := range rows {
		spreads = append(spreads, r.YesAsk-r.YesBid)
	}
	return spreads
}

// extractLiquidity returns the liquidity series: open interest when quoted,
// else volume, else zero.
func extractLiquidity(rows []domain.MarketSnapshot) []float64 {
	values := make([]float64, 0, len(rows))
	for _, r := range rows {
		switch {
		case r.OpenInterest > 0:
			values = append(values, float64(r.OpenInterest))
		case r.Volume > 0:
			values = append(values, float64(r.Volume))
		default:
			values = append(values, 0)
		}
	}
	return values
}

// mean returns the arithmetic mean of xs, or 0 for an empty series.
func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdev returns the sample standard deviation (n-1 denominator), or 0 when
// fewer than two samples exist.
func stdev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var sum float64
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)-1))
}
