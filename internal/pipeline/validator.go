// Package pipeline implements the single-pass prediction flow: validate the
// selector's proposal, run the selected tools, compute the deterministic
// score, watch the market, and hand the outcome to the paper broker.
package pipeline

import (
	"fmt"
	"math"

	"github.com/alanyoungcy/kalshibot/internal/domain"
)

// weightSumTolerance is how far the weight sum may drift from 1.0 before the
// validator renormalizes.
const weightSumTolerance = 0.01

// ToolChecker reports whether a tool name is registered.
type ToolChecker interface {
	Has(name string) bool
}

// ValidateProposal checks an untrusted proposal and returns a normalized
// Formula. Checks run in a fixed order and the first failure wins: empty
// selections, unknown tool, negative weight, threshold out of [0,1].
//
// When the weights sum to something other than 1 (beyond a 0.01 tolerance)
// and the sum is positive, every weight is divided by the sum. An all-zero
// weight set passes through unchanged; the score it produces is 0 and no bet
// triggers. The aggregation method is always rewritten to weighted_sum.
// The input proposal is never mutated.
func ValidateProposal(p domain.Proposal, registry ToolChecker) (domain.Formula, error) {
	if len(p.Selections) == 0 {
		return domain.Formula{}, fmt.Errorf("pipeline: %w", domain.ErrEmptySelection)
	}

	for _, sel := range p.Selections {
		if !registry.Has(sel.Tool) {
			return domain.Formula{}, fmt.Errorf("pipeline: tool %q: %w", sel.Tool, domain.ErrUnknownTool)
		}
	}

	for _, sel := range p.Selections {
		if sel.Weight < 0 {
			return domain.Formula{}, fmt.Errorf("pipeline: tool %q weight %g: %w", sel.Tool, sel.Weight, domain.ErrInvalidWeight)
		}
	}

	if p.Threshold < 0 || p.Threshold > 1 {
		return domain.Formula{}, fmt.Errorf("pipeline: threshold %g: %w", p.Threshold, domain.ErrInvalidThreshold)
	}

	selections := make([]domain.ToolSelection, len(p.Selections))
	copy(selections, p.Selections)

	var total float64
	for _, sel := range selections {
		total += sel.Weight
	}
	if math.Abs(total-1) > weightSumTolerance && total > 0 {
		for i := range selections {
			selections[i].Weight /= total
		}
	}

	return domain.Formula{
		Selections:  selections,
		Aggregation: domain.AggregationWeightedSum,
		Threshold:   p.Threshold,
		Rationale:   p.Rationale,
	}, nil
}
