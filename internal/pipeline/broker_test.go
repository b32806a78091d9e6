package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/kalshibot/internal/betlog"
	"github.com/alanyoungcy/kalshibot/internal/domain"
)

func tempLogs(t *testing.T) *betlog.Logs {
	t.Helper()
	return betlog.Open(betlog.Config{
		Dir:           t.TempDir(),
		BetFile:       "bets.jsonl",
		RunFile:       "runs.jsonl",
		ExecutionFile: "executions.jsonl",
	}, testLogger())
}

func brokerEvent() domain.Event {
	return domain.Event{
		EventID:  "KXNBAGAME-26AUG",
		MarketID: "KXNBAGAME-26AUG-LAL",
		Title:    "Will the Lakers win?",
		Price:    0.55,
	}
}

func brokerFormula() domain.Formula {
	return domain.Formula{
		Selections: []domain.ToolSelection{
			{Tool: "mock_price_signal", Weight: 0.5},
			{Tool: "mock_random_context", Weight: 0.5},
		},
		Aggregation: domain.AggregationWeightedSum,
		Threshold:   0.6,
	}
}

func TestLogPaperBet_ScoreTriggeredYesSide(t *testing.T) {
	logs := tempLogs(t)
	b := NewBroker(logs, 10.0, testLogger())

	score := domain.ScoreResult{FinalScore: 0.8, Threshold: 0.6, BetTriggered: true}
	outcome := &domain.WatchOutcome{State: domain.WatchTimedOut, TicksElapsed: 2}

	rec, err := b.LogPaperBet(context.Background(), brokerEvent(), brokerFormula(), score, outcome)
	require.NoError(t, err)

	assert.Len(t, rec.RunID, 8)
	assert.True(t, rec.BetPlaced)
	assert.Equal(t, domain.BetSideYes, rec.BetSide)
	assert.Equal(t, 10.0, rec.BetAmount)

	bets, err := logs.Bets.Tail(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, bets, 1)
	assert.Equal(t, rec.RunID, bets[0].RunID)

	runs, err := logs.Runs.Tail(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].BetTriggered)
	assert.Equal(t, "KXNBAGAME-26AUG-LAL", runs[0].MarketID)
	assert.Equal(t, []string{"mock_price_signal", "mock_random_context"}, runs[0].Tools)
}

func TestLogPaperBet_WatcherOnlyTriggerNoSide(t *testing.T) {
	logs := tempLogs(t)
	b := NewBroker(logs, 10.0, testLogger())

	// Score stayed below threshold but a watcher tick tripped: the bet is
	// placed on the NO side.
	score := domain.ScoreResult{FinalScore: 0.4, Threshold: 0.6, BetTriggered: false}
	outcome := &domain.WatchOutcome{
		State: domain.WatchHit,
		Price: 0.65,
		Ticks: []domain.WatcherTick{
			{Price: 0.50, Triggered: false},
			{Price: 0.65, Triggered: true},
		},
		TicksElapsed: 2,
	}

	rec, err := b.LogPaperBet(context.Background(), brokerEvent(), brokerFormula(), score, outcome)
	require.NoError(t, err)

	assert.True(t, rec.BetPlaced)
	assert.Equal(t, domain.BetSideNo, rec.BetSide)

	runs, err := logs.Runs.Tail(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	// The run log reports the placed bet even though the score alone did
	// not trigger.
	assert.True(t, runs[0].BetTriggered)
	assert.Equal(t, 2, runs[0].WatcherTicks)
}

func TestLogPaperBet_NoTrigger(t *testing.T) {
	logs := tempLogs(t)
	b := NewBroker(logs, 10.0, testLogger())

	score := domain.ScoreResult{FinalScore: 0.3, Threshold: 0.6}
	outcome := &domain.WatchOutcome{
		State:        domain.WatchTimedOut,
		Ticks:        []domain.WatcherTick{{Price: 0.50}},
		TicksElapsed: 1,
	}

	rec, err := b.LogPaperBet(context.Background(), brokerEvent(), brokerFormula(), score, outcome)
	require.NoError(t, err)

	assert.False(t, rec.BetPlaced)
	assert.Empty(t, rec.BetSide)
	assert.Equal(t, 0.0, rec.BetAmount)
}

func TestLogPaperBet_NilOutcomeSkippedWatch(t *testing.T) {
	logs := tempLogs(t)
	b := NewBroker(logs, 5.0, testLogger())

	score := domain.ScoreResult{FinalScore: 0.9, Threshold: 0.6, BetTriggered: true}

	rec, err := b.LogPaperBet(context.Background(), brokerEvent(), brokerFormula(), score, nil)
	require.NoError(t, err)

	assert.True(t, rec.BetPlaced)
	assert.Equal(t, domain.BetSideYes, rec.BetSide)
	assert.Empty(t, rec.Ticks)

	runs, err := logs.Runs.Tail(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 0, runs[0].WatcherTicks)
}

func TestLogPaperBet_UniqueRunIDs(t *testing.T) {
	logs := tempLogs(t)
	b := NewBroker(logs, 10.0, testLogger())

	score := domain.ScoreResult{FinalScore: 0.3, Threshold: 0.6}
	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		rec, err := b.LogPaperBet(context.Background(), brokerEvent(), brokerFormula(), score, nil)
		require.NoError(t, err)
		assert.False(t, seen[rec.RunID], "run id %q repeated", rec.RunID)
		seen[rec.RunID] = true
	}

	count, err := logs.Runs.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}
