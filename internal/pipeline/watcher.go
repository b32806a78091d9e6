package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/kalshibot/internal/domain"
)

// PriceSource polls the current price for a market.
type PriceSource interface {
	MarketPrice(ctx context.Context, marketID string) (float64, error)
}

// WatchOptions bounds a watch loop.
type WatchOptions struct {
	// PollInterval is the sleep between polls.
	PollInterval time.Duration
	// Timeout is the wall-clock bound on the whole watch.
	Timeout time.Duration
	// MaxTicks caps the number of tick slots. Zero means the watch times out
	// immediately without calling the price source.
	MaxTicks int
	// Direction selects the trigger comparison.
	Direction domain.WatchDirection
	// FailureLimit is how many consecutive poll failures abort the watch.
	FailureLimit int
}

// Watcher polls a market price until the threshold trips, a bound is
// reached, or consecutive poll failures exceed the limit.
type Watcher struct {
	source PriceSource
	opts   WatchOptions
	logger *slog.Logger
}

// NewWatcher creates a Watcher.
func NewWatcher(source PriceSource, opts WatchOptions, logger *slog.Logger) *Watcher {
	if opts.FailureLimit < 1 {
		opts.FailureLimit = 1
	}
	return &Watcher{
		source: source,
		opts:   opts,
		logger: logger.With(slog.String("component", "watcher")),
	}
}

// Watch runs the poll loop for marketID against threshold. Every successful
// poll appends a tick and consumes a tick slot; a failed poll consumes a slot
// without appending. The partial outcome is returned alongside any error so
// the broker can still log what was observed.
func (w *Watcher) Watch(ctx context.Context, marketID string, threshold float64) (domain.WatchOutcome, error) {
	w.logger.Info("watcher started",
		slog.String("market_id", marketID),
		slog.Float64("threshold", threshold),
		slog.Duration("poll_interval", w.opts.PollInterval),
		slog.Duration("timeout", w.opts.Timeout),
		slog.Int("max_ticks", w.opts.MaxTicks),
		slog.String("direction", string(w.opts.Direction)),
	)

	var (
		ticks     []domain.WatcherTick
		tickCount int
		failures  int
		lastPrice float64
		hitIndex  = -1
	)
	start := time.Now()

	for {
		elapsed := time.Since(start)
		if elapsed >= w.opts.Timeout {
			w.logger.Info("watcher timeout", slog.Duration("elapsed", elapsed.Round(time.Millisecond)))
			break
		}
		if tickCount >= w.opts.MaxTicks {
			w.logger.Info("watcher reached max ticks", slog.Int("max_ticks", w.opts.MaxTicks))
			break
		}
		if err := ctx.Err(); err != nil {
			return w.outcome(ticks, tickCount, lastPrice, hitIndex),
				fmt.Errorf("pipeline: watch cancelled: %w", err)
		}

		price, err := w.source.MarketPrice(ctx, marketID)
		if err != nil {
			failures++
			tickCount++
			w.logger.Warn("price poll failed",
				slog.String("market_id", marketID),
				slog.Int("consecutive_failures", failures),
				slog.String("error", err.Error()),
			)
			if failures >= w.opts.FailureLimit {
				return w.outcome(ticks, tickCount, lastPrice, hitIndex),
					fmt.Errorf("pipeline: %d consecutive poll failures: %w", failures, domain.ErrPriceUnavailable)
			}
			if err := w.sleepBetweenTicks(ctx, start, tickCount); err != nil {
				return w.outcome(ticks, tickCount, lastPrice, hitIndex),
					fmt.Errorf("pipeline: watch cancelled: %w", err)
			}
			continue
		}

		failures = 0
		lastPrice = price
		triggered := w.opts.Direction.Triggered(price, threshold)

		ticks = append(ticks, domain.WatcherTick{
			MarketID:  marketID,
			Price:     price,
			Threshold: threshold,
			At:        time.Now().UTC(),
			Triggered: triggered,
		})
		tickCount++

		w.logger.Info("watcher tick",
			slog.Int("tick", tickCount),
			slog.Float64("price", price),
			slog.Float64("threshold", threshold),
			slog.Bool("triggered", triggered),
		)

		if triggered {
			hitIndex = len(ticks) - 1
			w.logger.Info("threshold hit, watcher stopping")
			break
		}

		if err := w.sleepBetweenTicks(ctx, start, tickCount); err != nil {
			return w.outcome(ticks, tickCount, lastPrice, hitIndex),
				fmt.Errorf("pipeline: watch cancelled: %w", err)
		}
	}

	return w.outcome(ticks, tickCount, lastPrice, hitIndex), nil
}

// sleepBetweenTicks sleeps one poll interval, but only when another tick is
// still possible within both the tick cap and the timeout.
func (w *Watcher) sleepBetweenTicks(ctx context.Context, start time.Time, tickCount int) error {
	if tickCount >= w.opts.MaxTicks {
		return nil
	}
	if time.Since(start)+w.opts.PollInterval >= w.opts.Timeout {
		return nil
	}

	timer := time.NewTimer(w.opts.PollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// outcome assembles the terminal WatchOutcome from the loop state.
func (w *Watcher) outcome(ticks []domain.WatcherTick, tickCount int, lastPrice float64, hitIndex int) domain.WatchOutcome {
	if hitIndex >= 0 {
		return domain.WatchOutcome{
			State:        domain.WatchHit,
			Price:        ticks[hitIndex].Price,
			TickIndex:    hitIndex,
			LastPrice:    ticks[hitIndex].Price,
			TicksElapsed: tickCount,
			Ticks:        ticks,
		}
	}
	return domain.WatchOutcome{
		State:        domain.WatchTimedOut,
		LastPrice:    lastPrice,
		TicksElapsed: tickCount,
		Ticks:        ticks,
	}
}
