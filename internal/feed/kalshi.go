// Package feed streams live Kalshi ticker updates into the snapshot store.
// It is the WebSocket alternative to REST polling for collection runs.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/kalshibot/internal/domain"
	"github.com/alanyoungcy/kalshibot/internal/platform/kalshi"
)

// SnapshotAppender persists snapshot rows.
type SnapshotAppender interface {
	Append(ctx context.Context, rows []domain.MarketSnapshot) error
}

// MarketLister provides the initial market set whose tickers get streamed.
type MarketLister interface {
	ListTopMarkets(ctx context.Context, series string, limit int) ([]kalshi.Market, error)
}

// SnapshotFeeder bridges the Kalshi WebSocket ticker channel into the
// snapshot store. It seeds one base row per market from a REST listing,
// then folds each ticker update into its base row and appends the merged
// snapshot. Updates for tickers outside the seeded set are ignored.
type SnapshotFeeder struct {
	ws     *kalshi.WSClient
	lister MarketLister
	store  SnapshotAppender
	series string
	limit  int
	logger *slog.Logger

	mu   sync.Mutex
	base map[string]domain.MarketSnapshot
}

// NewSnapshotFeeder creates a SnapshotFeeder.
func NewSnapshotFeeder(ws *kalshi.WSClient, lister MarketLister, store SnapshotAppender, series string, limit int, logger *slog.Logger) *SnapshotFeeder {
	return &SnapshotFeeder{
		ws:     ws,
		lister: lister,
		store:  store,
		series: series,
		limit:  limit,
		logger: logger.With(slog.String("component", "feed")),
		base:   make(map[string]domain.MarketSnapshot),
	}
}

// Run seeds the base rows, subscribes to the ticker channel, and appends a
// snapshot for every update until the context is cancelled.
func (f *SnapshotFeeder) Run(ctx context.Context) error {
	markets, err := f.lister.ListTopMarkets(ctx, f.series, f.limit)
	if err != nil {
		return fmt.Errorf("feed: list markets: %w", err)
	}
	if len(markets) == 0 {
		return fmt.Errorf("feed: %w", domain.ErrNoMarkets)
	}

	now := time.Now().UTC()
	tickers := make([]string, 0, len(markets))
	f.mu.Lock()
	for _, m := range markets {
		f.base[m.Ticker] = m.ToSnapshot(now)
		tickers = append(tickers, m.Ticker)
	}
	f.mu.Unlock()

	// Updates are queued so the websocket read loop never blocks on disk.
	updates := make(chan kalshi.TickerUpdate, 256)
	f.ws.OnTicker(func(u kalshi.TickerUpdate) {
		select {
		case updates <- u:
		default:
			f.logger.Warn("dropping ticker update, appender backlogged",
				slog.String("ticker", u.MarketTicker),
			)
		}
	})

	if err := f.ws.Connect(ctx); err != nil {
		return fmt.Errorf("feed: connect: %w", err)
	}
	defer f.ws.Close()

	if err := f.ws.Subscribe(ctx, tickers); err != nil {
		return fmt.Errorf("feed: subscribe: %w", err)
	}

	f.logger.Info("kalshi feed started", slog.Int("tickers", len(tickers)))
	defer f.logger.Info("kalshi feed stopped")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u := <-updates:
			if err := f.handleUpdate(ctx, u); err != nil {
				f.logger.Debug("ticker update append failed",
					slog.String("ticker", u.MarketTicker),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// handleUpdate merges a ticker update into its base row and appends the
// result. Zero-valued update fields keep the base row's last known value.
func (f *SnapshotFeeder) handleUpdate(ctx context.Context, u kalshi.TickerUpdate) error {
	f.mu.Lock()
	row, ok := f.base[u.MarketTicker]
	if !ok {
		f.mu.Unlock()
		return nil
	}

	row.Timestamp = u.At
	if u.Price > 0 {
		row.LastPrice = u.Price
	}
	if u.YesBid > 0 {
		row.YesBid = u.YesBid
	}
	if u.YesAsk > 0 {
		row.YesAsk = u.YesAsk
	}
	if u.Volume > 0 {
		row.Volume = u.Volume
	}
	if u.OpenInterest > 0 {
		row.OpenInterest = u.OpenInterest
	}
	if row.CloseTime != "" {
		if t, err := time.Parse(time.RFC3339, row.CloseTime); err == nil {
			row.TimeToClose = int64(t.Sub(u.At).Seconds())
		}
	}

	f.base[u.MarketTicker] = row
	f.mu.Unlock()

	return f.store.Append(ctx, []domain.MarketSnapshot{row})
}
