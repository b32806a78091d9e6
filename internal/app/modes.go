package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/kalshibot/internal/crypto"
	"github.com/alanyoungcy/kalshibot/internal/domain"
	"github.com/alanyoungcy/kalshibot/internal/feed"
	"github.com/alanyoungcy/kalshibot/internal/pipeline"
	"github.com/alanyoungcy/kalshibot/internal/server"
	"github.com/alanyoungcy/kalshibot/internal/server/handler"
	"github.com/alanyoungcy/kalshibot/internal/snapshots"
)

// RunMode executes a single pipeline pass: pick a market, ask the selector
// for a formula, run the tools, score, watch the price, and record the
// paper bet.
func (a *App) RunMode(ctx context.Context, deps *Dependencies) error {
	watcher := pipeline.NewWatcher(deps.Kalshi, pipeline.WatchOptions{
		PollInterval: a.cfg.Watcher.PollInterval.Duration,
		Timeout:      a.cfg.Watcher.Timeout.Duration,
		MaxTicks:     a.cfg.Watcher.MaxTicks,
		Direction:    watchDirection(a.cfg.Watcher.Direction),
		FailureLimit: a.cfg.Watcher.FailureLimit,
	}, a.logger)
	broker := pipeline.NewBroker(deps.Logs, a.cfg.Run.BetAmount, a.logger)

	orch := pipeline.NewOrchestrator(pipeline.Deps{
		Source:   deps.Kalshi,
		Snaps:    deps.Store,
		Selector: deps.Selector,
		Registry: deps.Registry,
		Watcher:  watcher,
		Broker:   broker,
		ExecLog:  deps.Logs.Executions,
		Console:  deps.Console,
		Notifier: deps.Notifier,
	}, pipeline.RunOptions{
		Series:      a.cfg.Run.Series,
		Limit:       a.cfg.Run.MarketLimit,
		MarketIndex: a.cfg.Run.MarketIndex,
		SkipWatcher: a.cfg.Run.SkipWatcher,
	}, a.logger)

	res, err := orch.Run(ctx)
	if err != nil {
		return fmt.Errorf("app: pipeline run: %w", err)
	}

	a.logger.InfoContext(ctx, "run finished",
		slog.String("run_id", res.RunID),
		slog.Bool("bet_placed", res.Bet.BetPlaced),
	)
	return nil
}

// CollectMode runs the snapshot collector, either REST polling or the
// WebSocket feed depending on collector.source, plus the status server and
// the archive cron when enabled. The mode winds down once collection
// finishes or the context is cancelled.
func (a *App) CollectMode(ctx context.Context, deps *Dependencies) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	var collector *snapshots.Collector
	if deps.WS != nil {
		feeder := feed.NewSnapshotFeeder(deps.WS, deps.Kalshi, deps.Store,
			a.cfg.Run.Series, a.cfg.Collector.MaxMarkets, a.logger)
		g.Go(func() error {
			defer cancel()
			err := feeder.Run(ctx)
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("app: snapshot feed: %w", err)
		})
	} else {
		collector = snapshots.NewCollector(deps.Kalshi, deps.Store, snapshots.CollectorOptions{
			Interval:   a.cfg.Collector.Interval.Duration,
			Duration:   a.cfg.Collector.Duration.Duration,
			MaxMarkets: a.cfg.Collector.MaxMarkets,
			Series:     a.cfg.Run.Series,
		}, a.logger)
		g.Go(func() error {
			// Collection is duration-bounded; its completion winds the
			// whole mode down, server included.
			defer cancel()
			err := collector.Run(ctx)
			if ctx.Err() != nil {
				return nil
			}
			if err != nil {
				return fmt.Errorf("app: snapshot collector: %w", err)
			}
			return nil
		})
	}

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, collector)
	}

	if deps.Archiver != nil && a.cfg.S3.ArchiveCron != "" {
		archiver := pipeline.NewArchiver(deps.Archiver, a.logger)
		cron := a.cfg.S3.ArchiveCron
		g.Go(func() error {
			err := archiver.RunCron(ctx, cron)
			if ctx.Err() != nil {
				return nil
			}
			return err
		})
	}

	return g.Wait()
}

// ArchiveMode uploads today's log files to object storage once and exits.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	if deps.Archiver == nil {
		return fmt.Errorf("app: archive mode requires s3.enabled = true")
	}
	if err := deps.S3.Health(ctx); err != nil {
		return fmt.Errorf("app: s3 health: %w", err)
	}

	archiver := pipeline.NewArchiver(deps.Archiver, a.logger)
	if err := archiver.Run(ctx); err != nil {
		return fmt.Errorf("app: archive: %w", err)
	}

	objs, err := deps.Archiver.ListArchives(ctx)
	if err != nil {
		a.logger.WarnContext(ctx, "archive listing failed", slog.String("error", err.Error()))
		return nil
	}
	var total int64
	for _, obj := range objs {
		total += obj.Bytes
	}
	a.logger.InfoContext(ctx, "archive inventory",
		slog.Int("objects", len(objs)),
		slog.Int64("bytes", total),
	)
	return nil
}

// EncryptKeyMode encrypts the plaintext PEM key with the configured password
// and writes the JSON blob to the encrypted key path. The plaintext file is
// left in place for the operator to remove.
func (a *App) EncryptKeyMode(ctx context.Context) error {
	kc := a.cfg.Kalshi
	if kc.PrivateKeyPath == "" || kc.EncryptedKeyPath == "" {
		return fmt.Errorf("app: encrypt-key requires kalshi.private_key_path and kalshi.encrypted_key_path")
	}
	if kc.KeyPassword == "" {
		return fmt.Errorf("app: encrypt-key requires kalshi.key_password")
	}

	pemBytes, err := os.ReadFile(kc.PrivateKeyPath)
	if err != nil {
		return fmt.Errorf("app: read key: %w", err)
	}
	blob, err := crypto.EncryptKey(pemBytes, kc.KeyPassword)
	if err != nil {
		return fmt.Errorf("app: encrypt key: %w", err)
	}
	if err := os.WriteFile(kc.EncryptedKeyPath, blob, 0o600); err != nil {
		return fmt.Errorf("app: write encrypted key: %w", err)
	}

	a.logger.InfoContext(ctx, "key encrypted",
		slog.String("source", kc.PrivateKeyPath),
		slog.String("dest", kc.EncryptedKeyPath),
	)
	return nil
}

// ToolsMode prints the registered tools and exits.
func (a *App) ToolsMode(_ context.Context, deps *Dependencies) error {
	deps.Console.PrintToolList(deps.Registry.Specs())
	return nil
}

// startHTTPServer registers the status API goroutines on the group. A nil
// collector leaves the collector counters out of the status payload.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, collector *snapshots.Collector) {
	var stats handler.CollectorStats
	if collector != nil {
		stats = collector
	}

	srv := server.NewServer(server.Config{
		Port:            a.cfg.Server.Port,
		RateLimitPerMin: a.cfg.Server.RateLimitPerMin,
	}, server.Handlers{
		Health: handler.NewHealthHandler(a.logger),
		Status: handler.NewStatusHandler(a.cfg.Mode, a.cfg.Collector.Source, stats, deps.Logs.Runs, a.logger),
		Runs:   handler.NewRunsHandler(deps.Logs.Runs, a.logger),
	}, a.logger)

	g.Go(func() error {
		err := srv.Start()
		if ctx.Err() != nil {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("server shutdown", slog.String("error", err.Error()))
		}
		return nil
	})
}

// watchDirection maps the configured direction string onto a domain
// direction. Anything other than "below" watches above.
func watchDirection(s string) domain.WatchDirection {
	if strings.EqualFold(s, string(domain.WatchBelow)) {
		return domain.WatchBelow
	}
	return domain.WatchAbove
}
