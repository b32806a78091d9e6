package betlog

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/kalshibot/internal/domain"
)

// staleWindow is how many recent entries the stale-data check inspects.
const staleWindow = 3

// ExecutionLog stores structured per-run execution entries. When stale
// checking is enabled, an append whose response hash matches every hash in
// the recent entries raises a warning: the market API is serving the same
// data run after run.
type ExecutionLog struct {
	file       jsonlFile
	staleCheck bool
	logger     *slog.Logger
}

// NewExecutionLog creates an ExecutionLog backed by the JSONL file at path.
func NewExecutionLog(path string, staleCheck bool, logger *slog.Logger) *ExecutionLog {
	return &ExecutionLog{
		file:       jsonlFile{path: path},
		staleCheck: staleCheck,
		logger:     logger.With(slog.String("component", "execution_log")),
	}
}

// Path returns the backing file path.
func (l *ExecutionLog) Path() string { return l.file.path }

// EventHash fingerprints the market data a run saw. The event is re-encoded
// through a map so keys are ordered canonically; identical events always map
// to the same hash.
func EventHash(event domain.Event) string {
	raw, err := json.Marshal(event)
	if err != nil {
		return ""
	}
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return ""
	}
	canonical, err := json.Marshal(generic)
	if err != nil {
		return ""
	}
	sum := md5.Sum(canonical)
	return hex.EncodeToString(sum[:])
}

// Append writes one execution entry, running the stale-data check first when
// the entry carries a response hash. stale reports whether the entry's hash
// matched every hash in the recent window.
func (l *ExecutionLog) Append(ctx context.Context, entry domain.ExecutionEntry) (stale bool, err error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("betlog: append cancelled: %w", err)
	}

	if l.staleCheck && entry.ResponseHash != "" {
		stale = l.isStale(entry.ResponseHash)
	}

	if err := l.file.append(entry); err != nil {
		return stale, err
	}

	hashPrefix := "n/a"
	if len(entry.ResponseHash) >= 8 {
		hashPrefix = entry.ResponseHash[:8]
	}
	l.logger.Info("execution logged",
		slog.String("run_id", entry.RunID),
		slog.String("market_id", entry.MarketID),
		slog.Float64("final_score", entry.FinalScore),
		slog.String("response_hash", hashPrefix),
	)
	return stale, nil
}

// Tail returns up to the last n execution entries, oldest first. Malformed
// lines are skipped.
func (l *ExecutionLog) Tail(ctx context.Context, n int) ([]domain.ExecutionEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("betlog: tail cancelled: %w", err)
	}
	lines, err := l.file.tail(n)
	if err != nil {
		return nil, err
	}
	recs := make([]domain.ExecutionEntry, 0, len(lines))
	for _, line := range lines {
		var rec domain.ExecutionEntry
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// isStale reports whether currentHash matches the hash of every entry in the
// recent window and logs a warning when it does. At least two prior entries
// must exist before the check applies.
func (l *ExecutionLog) isStale(currentHash string) bool {
	lines, err := l.file.tail(staleWindow)
	if err != nil || len(lines) < 2 {
		return false
	}

	recent := make([]string, 0, len(lines))
	for _, line := range lines {
		var entry domain.ExecutionEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		if entry.ResponseHash != "" {
			recent = append(recent, entry.ResponseHash)
		}
	}
	if len(recent) == 0 {
		return false
	}
	for _, h := range recent {
		if h != currentHash {
			return false
		}
	}

	l.logger.Warn("stale market data detected",
		slog.String("response_hash", currentHash[:8]),
		slog.Int("consecutive_runs", len(recent)+1),
	)
	return true
}
