package snapshots

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/kalshibot/internal/domain"
)

// minPollInterval is the floor for the collector poll interval.
const minPollInterval = 2 * time.Second

// SnapshotFetcher retrieves one batch of normalized market snapshots.
type SnapshotFetcher interface {
	FetchSnapshots(ctx context.Context, series string, limit int) ([]domain.MarketSnapshot, error)
}

// Appender persists snapshot rows.
type Appender interface {
	Append(ctx context.Context, rows []domain.MarketSnapshot) error
}

// CollectorOptions configures a collection run.
type CollectorOptions struct {
	// Interval between polls. Clamped to a 2s minimum.
	Interval time.Duration
	// Duration bounds the whole run. A non-positive duration stops the
	// collector after zero polls.
	Duration time.Duration
	// MaxMarkets caps how many markets each poll observes.
	MaxMarkets int
	// Series restricts polling to one series ticker. Empty means all.
	Series string
}

// Stats is a snapshot of the collector's live counters.
type Stats struct {
	Polls      int64     `json:"polls"`
	Rows       int64     `json:"rows"`
	LastPollAt time.Time `json:"last_poll_at"`
}

// Collector polls the market API on a fixed interval and appends every
// observed market to the snapshot store. A failed fetch or append is logged
// and the loop keeps going; the run ends when the duration elapses or the
// context is cancelled.
type Collector struct {
	fetcher SnapshotFetcher
	store   Appender
	opts    CollectorOptions
	logger  *slog.Logger

	mu    sync.Mutex
	stats Stats
}

// NewCollector creates a Collector.
func NewCollector(fetcher SnapshotFetcher, store Appender, opts CollectorOptions, logger *slog.Logger) *Collector {
	if opts.Interval < minPollInterval {
		opts.Interval = minPollInterval
	}
	return &Collector{
		fetcher: fetcher,
		store:   store,
		opts:    opts,
		logger:  logger.With(slog.String("component", "collector")),
	}
}

// Stats returns a copy of the live counters. Safe to call while Run is
// polling.
func (c *Collector) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Run executes one duration-bounded collection run.
func (c *Collector) Run(ctx context.Context) error {
	c.logger.Info("starting snapshot collection",
		slog.Duration("interval", c.opts.Interval),
		slog.Duration("duration", c.opts.Duration),
		slog.Int("max_markets", c.opts.MaxMarkets),
		slog.String("series", c.opts.Series),
	)

	start := time.Now()

	for {
		if time.Since(start) >= c.opts.Duration {
			c.logger.Info("collection duration reached")
			break
		}

		cycleStart := time.Now()
		rows, err := c.fetcher.FetchSnapshots(ctx, c.opts.Series, c.opts.MaxMarkets)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("collector: fetch cancelled: %w", ctx.Err())
			}
			c.logger.Error("snapshot fetch failed", slog.String("error", err.Error()))
			rows = nil
		}
		if len(rows) == 0 {
			c.logger.Warn("no markets returned")
		}

		if err := c.store.Append(ctx, rows); err != nil {
			c.logger.Error("snapshot append failed", slog.String("error", err.Error()))
		}

		c.mu.Lock()
		c.stats.Polls++
		c.stats.Rows += int64(len(rows))
		c.stats.LastPollAt = time.Now().UTC()
		polls, totalRows := c.stats.Polls, c.stats.Rows
		c.mu.Unlock()

		c.logger.Info("poll complete",
			slog.Int64("poll", polls),
			slog.Int("rows", len(rows)),
			slog.Int64("total_rows", totalRows),
			slog.Duration("elapsed", time.Since(start).Round(time.Second)),
		)

		// Sleep only the remainder of the interval not consumed by work.
		sleep := c.opts.Interval - time.Since(cycleStart)
		if sleep < 0 {
			sleep = 0
		}
		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			c.logger.Info("snapshot collection stopped",
				slog.Int64("polls", polls),
				slog.Int64("total_rows", totalRows),
			)
			return ctx.Err()
		case <-timer.C:
		}
	}

	final := c.Stats()
	c.logger.Info("snapshot collection finished",
		slog.Int64("polls", final.Polls),
		slog.Int64("total_rows", final.Rows),
	)
	return nil
}
