// Package betlog appends pipeline outcomes to append-only JSONL logs and
// reads them back for the status endpoints. Three logs exist: full paper-bet
// records, flat per-run summaries, and execution entries carrying the
// response fingerprint used for stale-data detection.
package betlog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/alanyoungcy/kalshibot/internal/domain"
)

// Config names the log files inside the output directory.
type Config struct {
	Dir           string
	BetFile       string
	RunFile       string
	ExecutionFile string
	StaleCheck    bool
}

// Logs bundles the three pipeline logs.
type Logs struct {
	Bets       *BetLog
	Runs       *RunLog
	Executions *ExecutionLog
}

// Open builds the log set under cfg.Dir.
func Open(cfg Config, logger *slog.Logger) *Logs {
	return &Logs{
		Bets:       NewBetLog(filepath.Join(cfg.Dir, cfg.BetFile)),
		Runs:       NewRunLog(filepath.Join(cfg.Dir, cfg.RunFile)),
		Executions: NewExecutionLog(filepath.Join(cfg.Dir, cfg.ExecutionFile), cfg.StaleCheck, logger),
	}
}

// BetLog stores full simulated-bet records.
type BetLog struct {
	file jsonlFile
}

// NewBetLog creates a BetLog backed by the JSONL file at path.
func NewBetLog(path string) *BetLog {
	return &BetLog{file: jsonlFile{path: path}}
}

// Path returns the backing file path.
func (l *BetLog) Path() string { return l.file.path }

// Append writes one bet record.
func (l *BetLog) Append(ctx context.Context, rec domain.BetRecord) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("betlog: append cancelled: %w", err)
	}
	return l.file.append(rec)
}

// Tail returns up to the last n bet records, oldest first. Malformed lines
// are skipped.
func (l *BetLog) Tail(ctx context.Context, n int) ([]domain.BetRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("betlog: tail cancelled: %w", err)
	}
	lines, err := l.file.tail(n)
	if err != nil {
		return nil, err
	}
	recs := make([]domain.BetRecord, 0, len(lines))
	for _, line := range lines {
		var rec domain.BetRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// RunLog stores flat one-line run summaries.
type RunLog struct {
	file jsonlFile
}

// NewRunLog creates a RunLog backed by the JSONL file at path.
func NewRunLog(path string) *RunLog {
	return &RunLog{file: jsonlFile{path: path}}
}

// Path returns the backing file path.
func (l *RunLog) Path() string { return l.file.path }

// Append writes one run entry.
func (l *RunLog) Append(ctx context.Context, rec domain.RunEntry) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("betlog: append cancelled: %w", err)
	}
	return l.file.append(rec)
}

// Tail returns up to the last n run entries, oldest first. Malformed lines
// are skipped.
func (l *RunLog) Tail(ctx context.Context, n int) ([]domain.RunEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("betlog: tail cancelled: %w", err)
	}
	lines, err := l.file.tail(n)
	if err != nil {
		return nil, err
	}
	recs := make([]domain.RunEntry, 0, len(lines))
	for _, line := range lines {
		var rec domain.RunEntry
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// Count returns the number of logged runs.
func (l *RunLog) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("betlog: count cancelled: %w", err)
	}
	return l.file.count()
}
