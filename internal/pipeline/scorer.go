package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/kalshibot/internal/domain"
)

// Scorer computes the weighted-sum score from tool outputs. Pure arithmetic
// over slices in selection order; the same outputs and formula always produce
// the same float64.
type Scorer struct {
	logger *slog.Logger
}

// NewScorer creates a Scorer.
func NewScorer(logger *slog.Logger) *Scorer {
	return &Scorer{logger: logger.With(slog.String("component", "scorer"))}
}

// Score reduces each output vector to its mean (empty vector scores 0),
// multiplies by the selection weight, and sums the contributions. The final
// score is rounded to six decimal places; the bet triggers when it reaches
// the formula threshold.
func (s *Scorer) Score(outputs []domain.ToolOutput, formula domain.Formula) (domain.ScoreResult, error) {
	if len(outputs) != len(formula.Selections) {
		return domain.ScoreResult{}, fmt.Errorf(
			"pipeline: %d tool outputs vs %d selections", len(outputs), len(formula.Selections),
		)
	}

	weights := make([]float64, len(outputs))
	contributions := make([]float64, len(outputs))
	var sum float64

	for i, out := range outputs {
		w := formula.Selections[i].Weight

		signal := 0.0
		if len(out.Vector) > 0 {
			var total float64
			for _, v := range out.Vector {
				total += v
			}
			signal = total / float64(len(out.Vector))
		}

		weights[i] = w
		contributions[i] = w * signal
		sum += w * signal
	}

	final := domain.Round(sum, 6)
	triggered := final >= formula.Threshold

	s.logger.Info("score computed",
		slog.Float64("final_score", final),
		slog.Float64("threshold", formula.Threshold),
		slog.Bool("bet_triggered", triggered),
	)

	return domain.ScoreResult{
		FinalScore:    final,
		Outputs:       outputs,
		Weights:       weights,
		Contributions: contributions,
		Threshold:     formula.Threshold,
		BetTriggered:  triggered,
	}, nil
}
