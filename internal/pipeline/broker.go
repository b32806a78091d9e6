package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/kalshibot/internal/betlog"
	"github.com/alanyoungcy/kalshibot/internal/domain"
)

// Broker simulates bet placement. It decides whether the run's evidence
// places a paper bet, then appends the full record to the bet log and a flat
// summary to the run log. No order ever reaches the exchange.
type Broker struct {
	logs   *betlog.Logs
	amount float64
	logger *slog.Logger
}

// NewBroker creates a Broker that stakes amount on every placed paper bet.
func NewBroker(logs *betlog.Logs, amount float64, logger *slog.Logger) *Broker {
	return &Broker{
		logs:   logs,
		amount: amount,
		logger: logger.With(slog.String("component", "broker")),
	}
}

// LogPaperBet records the run. A bet is placed when the score triggered or
// any watcher tick triggered; the side is YES when the final score cleared
// the threshold, NO when only the watcher tripped. outcome may be nil when
// the watch phase was skipped.
func (b *Broker) LogPaperBet(ctx context.Context, event domain.Event, formula domain.Formula, score domain.ScoreResult, outcome *domain.WatchOutcome) (domain.BetRecord, error) {
	var ticks []domain.WatcherTick
	if outcome != nil {
		ticks = outcome.Ticks
	}

	placed := score.BetTriggered
	for _, tick := range ticks {
		if tick.Triggered {
			placed = true
			break
		}
	}

	rec := domain.BetRecord{
		RunID:     uuid.NewString()[:8],
		Event:     event,
		Formula:   formula,
		Score:     score,
		Ticks:     ticks,
		Outcome:   outcome,
		BetPlaced: placed,
		At:        time.Now().UTC(),
	}
	if placed {
		rec.BetAmount = b.amount
		if score.FinalScore >= formula.Threshold {
			rec.BetSide = domain.BetSideYes
		} else {
			rec.BetSide = domain.BetSideNo
		}
	}

	if err := b.logs.Bets.Append(ctx, rec); err != nil {
		return rec, fmt.Errorf("pipeline: bet log: %w", err)
	}

	entry := domain.RunEntry{
		RunID:        rec.RunID,
		MarketID:     event.MarketID,
		MarketTitle:  event.Title,
		CurrentPrice: event.Price,
		Tools:        formula.ToolNames(),
		Weights:      formula.Weights(),
		Threshold:    formula.Threshold,
		FinalScore:   score.FinalScore,
		BetTriggered: rec.BetPlaced,
		BetSide:      rec.BetSide,
		BetAmount:    rec.BetAmount,
		WatcherTicks: len(ticks),
		At:           rec.At,
	}
	if err := b.logs.Runs.Append(ctx, entry); err != nil {
		return rec, fmt.Errorf("pipeline: run log: %w", err)
	}

	b.logger.Info("paper bet recorded",
		slog.String("run_id", rec.RunID),
		slog.String("market_id", event.MarketID),
		slog.Bool("bet_placed", rec.BetPlaced),
		slog.String("bet_side", rec.BetSide),
		slog.Float64("bet_amount", rec.BetAmount),
		slog.Float64("final_score", score.FinalScore),
	)
	return rec, nil
}
