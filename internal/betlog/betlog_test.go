package betlog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/kalshibot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openLogs(t *testing.T, staleCheck bool) *Logs {
	t.Helper()
	return Open(Config{
		Dir:           t.TempDir(),
		BetFile:       "bets.jsonl",
		RunFile:       "runs.jsonl",
		ExecutionFile: "executions.jsonl",
		StaleCheck:    staleCheck,
	}, testLogger())
}

func runEntry(id string) domain.RunEntry {
	return domain.RunEntry{
		RunID:      id,
		MarketID:   "KXNBA-LAL",
		FinalScore: 0.7,
		At:         time.Now().UTC(),
	}
}

func TestRunLog_AppendTailOrdered(t *testing.T) {
	logs := openLogs(t, false)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, logs.Runs.Append(ctx, runEntry(fmt.Sprintf("run-%d", i))))
	}

	recs, err := logs.Runs.Tail(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	// Oldest first within the tail window.
	assert.Equal(t, "run-2", recs[0].RunID)
	assert.Equal(t, "run-4", recs[2].RunID)

	count, err := logs.Runs.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestRunLog_TailMissingFile(t *testing.T) {
	logs := openLogs(t, false)

	recs, err := logs.Runs.Tail(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, recs)

	count, err := logs.Runs.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestRunLog_TailSkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	logs := Open(Config{Dir: dir, BetFile: "b.jsonl", RunFile: "r.jsonl", ExecutionFile: "e.jsonl"}, testLogger())
	ctx := context.Background()

	require.NoError(t, logs.Runs.Append(ctx, runEntry("good-1")))

	// Corrupt the file with a half-written line.
	fh, err := os.OpenFile(filepath.Join(dir, "r.jsonl"), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = fh.WriteString("{\"run_id\": \"trunc\n")
	require.NoError(t, err)
	require.NoError(t, fh.Close())

	require.NoError(t, logs.Runs.Append(ctx, runEntry("good-2")))

	recs, err := logs.Runs.Tail(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "good-1", recs[0].RunID)
	assert.Equal(t, "good-2", recs[1].RunID)
}

func TestBetLog_RoundTrip(t *testing.T) {
	logs := openLogs(t, false)
	ctx := context.Background()

	rec := domain.BetRecord{
		RunID:     "abc12345",
		Event:     domain.Event{MarketID: "KXNBA-LAL", Title: "Will the Lakers win?", Price: 0.55},
		BetPlaced: true,
		BetSide:   domain.BetSideYes,
		BetAmount: 10,
		At:        time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, logs.Bets.Append(ctx, rec))

	got, err := logs.Bets.Tail(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec.RunID, got[0].RunID)
	assert.Equal(t, rec.Event.MarketID, got[0].Event.MarketID)
	assert.Equal(t, domain.BetSideYes, got[0].BetSide)
	assert.Equal(t, 10.0, got[0].BetAmount)
}

func TestAppend_CreatesParentDirs(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	logs := Open(Config{Dir: dir, BetFile: "b.jsonl", RunFile: "r.jsonl", ExecutionFile: "e.jsonl"}, testLogger())

	require.NoError(t, logs.Runs.Append(context.Background(), runEntry("x")))
	_, err := os.Stat(filepath.Join(dir, "r.jsonl"))
	assert.NoError(t, err)
}

func TestAppend_CancelledContext(t *testing.T) {
	logs := openLogs(t, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := logs.Runs.Append(ctx, runEntry("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

// --- EventHash ---

func TestEventHash_StableAcrossCalls(t *testing.T) {
	ev := domain.Event{
		EventID:    "KXNBAGAME-26AUG",
		MarketID:   "KXNBA-LAL",
		Title:      "Will the Lakers win?",
		Price:      0.55,
		CapturedAt: time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC),
	}

	assert.Equal(t, EventHash(ev), EventHash(ev))
	assert.Len(t, EventHash(ev), 32)
}

func TestEventHash_DiffersOnPriceChange(t *testing.T) {
	ev := domain.Event{MarketID: "KXNBA-LAL", Price: 0.55}
	moved := ev
	moved.Price = 0.56

	assert.NotEqual(t, EventHash(ev), EventHash(moved))
}

// --- ExecutionLog stale detection ---

func execEntry(runID, hash string) domain.ExecutionEntry {
	return domain.ExecutionEntry{
		RunID:        runID,
		MarketID:     "KXNBA-LAL",
		FinalScore:   0.7,
		ResponseHash: hash,
		At:           time.Now().UTC(),
	}
}

func TestExecutionLog_StaleAfterTwoMatchingPriors(t *testing.T) {
	logs := openLogs(t, true)
	ctx := context.Background()

	stale, err := logs.Executions.Append(ctx, execEntry("r1", "aaaa1111aaaa1111"))
	require.NoError(t, err)
	assert.False(t, stale)

	stale, err = logs.Executions.Append(ctx, execEntry("r2", "aaaa1111aaaa1111"))
	require.NoError(t, err)
	assert.False(t, stale, "one prior entry is not enough")

	stale, err = logs.Executions.Append(ctx, execEntry("r3", "aaaa1111aaaa1111"))
	require.NoError(t, err)
	assert.True(t, stale)
}

func TestExecutionLog_FreshHashResets(t *testing.T) {
	logs := openLogs(t, true)
	ctx := context.Background()

	for _, h := range []string{"aaaa1111aaaa1111", "aaaa1111aaaa1111"} {
		_, err := logs.Executions.Append(ctx, execEntry("r", h))
		require.NoError(t, err)
	}

	stale, err := logs.Executions.Append(ctx, execEntry("r3", "bbbb2222bbbb2222"))
	require.NoError(t, err)
	assert.False(t, stale)
}

func TestExecutionLog_StaleCheckDisabled(t *testing.T) {
	logs := openLogs(t, false)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		stale, err := logs.Executions.Append(ctx, execEntry("r", "aaaa1111aaaa1111"))
		require.NoError(t, err)
		assert.False(t, stale)
	}
}

func TestExecutionLog_EmptyHashSkipsCheck(t *testing.T) {
	logs := openLogs(t, true)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		stale, err := logs.Executions.Append(ctx, execEntry("r", ""))
		require.NoError(t, err)
		assert.False(t, stale)
	}
}
