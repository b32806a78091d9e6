package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/kalshibot/internal/betlog"
	"github.com/alanyoungcy/kalshibot/internal/domain"
	"github.com/alanyoungcy/kalshibot/internal/notify"
	"github.com/alanyoungcy/kalshibot/internal/selector"
	"github.com/alanyoungcy/kalshibot/internal/tools"
)

// MarketSource lists live market snapshots for run setup.
type MarketSource interface {
	FetchSnapshots(ctx context.Context, series string, limit int) ([]domain.MarketSnapshot, error)
}

// SnapshotSink persists snapshot rows mid-run so file-driven tools read
// current data.
type SnapshotSink interface {
	Append(ctx context.Context, rows []domain.MarketSnapshot) error
}

// RunOptions bounds a single pipeline pass.
type RunOptions struct {
	// Series filters the market listing (e.g. "KXNBA").
	Series string
	// Limit caps how many markets are fetched.
	Limit int
	// MarketIndex picks the market from the fetched list, clamped to range.
	MarketIndex int
	// SkipWatcher skips the price-watch phase entirely.
	SkipWatcher bool
}

// RunResult is everything a completed (or aborted) run produced.
type RunResult struct {
	RunID        string
	Event        domain.Event
	Formula      domain.Formula
	Score        domain.ScoreResult
	Outcome      *domain.WatchOutcome
	Bet          domain.BetRecord
	Statuses     []domain.ToolStatus
	UsedFallback bool
	Stale        bool
}

// Deps bundles the collaborators a pipeline run needs. Console and Notifier
// may be nil; ExecLog may be nil when execution logging is disabled.
type Deps struct {
	Source   MarketSource
	Snaps    SnapshotSink
	Selector selector.Selector
	Registry *tools.Registry
	Watcher  *Watcher
	Broker   *Broker
	ExecLog  *betlog.ExecutionLog
	Console  *notify.Console
	Notifier *notify.Notifier
}

// Orchestrator drives one full pipeline pass: pick a market, ask the selector
// for a formula, validate it, run the tools, score, watch the price, and
// record the paper bet.
type Orchestrator struct {
	source   MarketSource
	snaps    SnapshotSink
	selector selector.Selector
	registry *tools.Registry
	runner   *Runner
	scorer   *Scorer
	watcher  *Watcher
	broker   *Broker
	execLog  *betlog.ExecutionLog
	console  *notify.Console
	notifier *notify.Notifier
	opts     RunOptions
	logger   *slog.Logger
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(deps Deps, opts RunOptions, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		source:   deps.Source,
		snaps:    deps.Snaps,
		selector: deps.Selector,
		registry: deps.Registry,
		runner:   NewRunner(deps.Registry, logger),
		scorer:   NewScorer(logger),
		watcher:  deps.Watcher,
		broker:   deps.Broker,
		execLog:  deps.ExecLog,
		console:  deps.Console,
		notifier: deps.Notifier,
		opts:     opts,
		logger:   logger.With(slog.String("component", "orchestrator")),
	}
}

// Run executes one pipeline pass. Validation and tool failures abort the run;
// watch failures and log-write failures are reported and the run continues so
// the evidence gathered so far still lands in the logs. A cancellation during
// the watch records the run with the partial outcome before the error
// returns. The returned RunResult is populated as far as the run got, even on
// error.
func (o *Orchestrator) Run(ctx context.Context) (RunResult, error) {
	var res RunResult

	rows, err := o.source.FetchSnapshots(ctx, o.opts.Series, o.opts.Limit)
	if err != nil {
		return res, fmt.Errorf("pipeline: fetch markets: %w", err)
	}
	if len(rows) == 0 {
		return res, fmt.Errorf("pipeline: %w", domain.ErrNoMarkets)
	}

	idx := o.opts.MarketIndex
	if idx < 0 {
		idx = 0
	}
	if idx >= len(rows) {
		o.logger.Warn("market index out of range, using last market",
			slog.Int("index", o.opts.MarketIndex),
			slog.Int("markets", len(rows)),
		)
		idx = len(rows) - 1
	}
	event := rows[idx].Event()
	res.Event = event
	o.logger.Info("market selected",
		slog.String("market_id", event.MarketID),
		slog.String("title", event.Title),
		slog.Float64("price", event.Price),
	)

	proposal, err := o.selector.Propose(ctx, event, o.registry.Specs())
	if err != nil {
		if ctx.Err() != nil {
			return res, fmt.Errorf("pipeline: selector: %w", err)
		}
		o.logger.Warn("selector failed, using fallback proposal", slog.String("error", err.Error()))
		proposal = selector.FallbackProposal()
		res.UsedFallback = true
	}

	formula, err := ValidateProposal(proposal, o.registry)
	if err != nil {
		return res, err
	}
	res.Formula = formula

	// Refresh the snapshot file before the tools read it.
	if o.snaps != nil {
		if err := o.snaps.Append(ctx, rows); err != nil {
			o.logger.Warn("snapshot refresh failed", slog.String("error", err.Error()))
		}
	}

	outputs, statuses, err := o.runner.Run(ctx, event, formula)
	res.Statuses = statuses
	if err != nil {
		return res, err
	}

	score, err := o.scorer.Score(outputs, formula)
	if err != nil {
		return res, err
	}
	res.Score = score

	var outcome *domain.WatchOutcome
	if o.opts.SkipWatcher {
		o.logger.Info("watcher skipped")
	} else {
		watched, werr := o.watcher.Watch(ctx, event.MarketID, formula.Threshold)
		outcome = &watched
		res.Outcome = outcome
		if werr != nil {
			if ctx.Err() != nil {
				// An external abort still gets the run recorded with the
				// partial outcome before the error surfaces.
				o.record(context.WithoutCancel(ctx), &res, event, formula, score, outcome, outputs, statuses)
				return res, werr
			}
			o.logger.Error("watch failed, continuing with partial outcome",
				slog.String("error", werr.Error()),
			)
		}
	}

	o.record(ctx, &res, event, formula, score, outcome, outputs, statuses)

	if o.console != nil {
		o.console.PrintRunSummary(summaryInput(res))
	}
	o.dispatch(ctx, res)

	o.logger.Info("run complete",
		slog.String("run_id", res.RunID),
		slog.Float64("final_score", score.FinalScore),
		slog.Bool("bet_placed", res.Bet.BetPlaced),
		slog.Bool("used_fallback", res.UsedFallback),
	)
	return res, nil
}

// record writes the bet, run, and execution log entries and fills the
// result's bet fields. Log-write failures are logged, never fatal.
func (o *Orchestrator) record(
	ctx context.Context,
	res *RunResult,
	event domain.Event,
	formula domain.Formula,
	score domain.ScoreResult,
	outcome *domain.WatchOutcome,
	outputs []domain.ToolOutput,
	statuses []domain.ToolStatus,
) {
	rec, err := o.broker.LogPaperBet(ctx, event, formula, score, outcome)
	res.Bet = rec
	res.RunID = rec.RunID
	if err != nil {
		o.logger.Error("bet logging failed", slog.String("error", err.Error()))
	}
	res.Stale = o.logExecution(ctx, rec.RunID, event, formula, score, outputs, statuses)
}

// logExecution appends the execution entry and reports whether the market
// data was flagged stale. Failures are logged, never fatal.
func (o *Orchestrator) logExecution(
	ctx context.Context,
	runID string,
	event domain.Event,
	formula domain.Formula,
	score domain.ScoreResult,
	outputs []domain.ToolOutput,
	statuses []domain.ToolStatus,
) bool {
	if o.execLog == nil {
		return false
	}

	entry := domain.ExecutionEntry{
		RunID:        runID,
		MarketID:     event.MarketID,
		MarketTitle:  event.Title,
		Tools:        formula.ToolNames(),
		Weights:      formula.Weights(),
		Outputs:      outputs,
		FinalScore:   score.FinalScore,
		Threshold:    formula.Threshold,
		BetTriggered: score.BetTriggered,
		Rationale:    formula.Rationale,
		ResponseHash: betlog.EventHash(event),
		ResponseAt:   event.CapturedAt,
		Statuses:     statuses,
		At:           time.Now().UTC(),
	}

	stale, err := o.execLog.Append(ctx, entry)
	if err != nil {
		o.logger.Error("execution logging failed", slog.String("error", err.Error()))
	}
	return stale
}

// dispatch sends the run's notification events. Best-effort: failures are
// logged and swallowed.
func (o *Orchestrator) dispatch(ctx context.Context, res RunResult) {
	if o.notifier == nil {
		return
	}

	o.notify(ctx, notify.EventRunCompleted,
		fmt.Sprintf("Run %s completed", res.RunID),
		fmt.Sprintf("%s scored %.6f against threshold %.2f", res.Event.Title, res.Score.FinalScore, res.Formula.Threshold),
	)
	if res.Bet.BetPlaced {
		o.notify(ctx, notify.EventBetPlaced,
			"Paper bet placed",
			fmt.Sprintf("%s $%.2f on %s (score %.6f)", res.Bet.BetSide, res.Bet.BetAmount, res.Event.Title, res.Score.FinalScore),
		)
	}
	if res.Outcome != nil && res.Outcome.Hit() {
		o.notify(ctx, notify.EventWatchHit,
			"Watcher threshold hit",
			fmt.Sprintf("%s hit %.4f at tick %d", res.Event.MarketID, res.Outcome.Price, res.Outcome.TickIndex+1),
		)
	}
	if res.Stale {
		o.notify(ctx, notify.EventStaleData,
			"Stale market data",
			fmt.Sprintf("%s returned identical data across recent runs", res.Event.MarketID),
		)
	}
}

func (o *Orchestrator) notify(ctx context.Context, event, title, message string) {
	if err := o.notifier.Notify(ctx, event, title, message); err != nil {
		o.logger.Warn("notification failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

// summaryInput flattens a RunResult for the console table.
func summaryInput(res RunResult) notify.RunSummaryInput {
	in := notify.RunSummaryInput{
		RunID:          res.RunID,
		MarketTitle:    res.Event.Title,
		MarketID:       res.Event.MarketID,
		CurrentPrice:   res.Event.Price,
		Threshold:      res.Formula.Threshold,
		FinalScore:     res.Score.FinalScore,
		ScoreTriggered: res.Score.BetTriggered,
		BetPlaced:      res.Bet.BetPlaced,
		BetSide:        res.Bet.BetSide,
		BetAmount:      res.Bet.BetAmount,
		UsedFallback:   res.UsedFallback,
		Stale:          res.Stale,
	}
	for i, sel := range res.Formula.Selections {
		line := notify.ToolLine{Name: sel.Tool, Weight: sel.Weight}
		if i < len(res.Score.Outputs) {
			line.Signal = vectorMean(res.Score.Outputs[i].Vector)
		}
		in.Tools = append(in.Tools, line)
	}
	if res.Outcome != nil {
		in.WatchState = string(res.Outcome.State)
		in.WatcherTicks = res.Outcome.TicksElapsed
	}
	return in
}

func vectorMean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	var total float64
	for _, x := range v {
		total += x
	}
	return total / float64(len(v))
}
