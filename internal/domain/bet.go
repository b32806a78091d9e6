package domain

import "time"

// Bet sides for a placed paper bet.
const (
	BetSideYes = "YES"
	BetSideNo  = "NO"
)

// BetRecord is the full simulated-bet record appended to the paper bet log.
// No real order ever leaves this struct.
type BetRecord struct {
	RunID     string        `json:"run_id"`
	Event     Event         `json:"event_input"`
	Formula   Formula       `json:"formula_spec"`
	Score     ScoreResult   `json:"score_result"`
	Ticks     []WatcherTick `json:"watcher_ticks"`
	Outcome   *WatchOutcome `json:"watch_outcome,omitempty"`
	BetPlaced bool          `json:"bet_placed"`
	BetSide   string        `json:"bet_side,omitempty"`
	BetAmount float64       `json:"bet_amount"`
	At        time.Time     `json:"timestamp"`
}

// RunEntry is the flat one-line summary appended to the run log.
type RunEntry struct {
	RunID        string    `json:"run_id"`
	MarketID     string    `json:"market_id"`
	MarketTitle  string    `json:"market_title"`
	CurrentPrice float64   `json:"current_price"`
	Tools        []string  `json:"tools_used"`
	Weights      []float64 `json:"weights"`
	Threshold    float64   `json:"threshold"`
	FinalScore   float64   `json:"final_score"`
	BetTriggered bool      `json:"bet_triggered"`
	BetSide      string    `json:"bet_side,omitempty"`
	BetAmount    float64   `json:"bet_amount"`
	WatcherTicks int       `json:"watcher_ticks_count"`
	At           time.Time `json:"timestamp"`
}

// ExecutionEntry is the structured per-run record appended to the execution
// log. ResponseHash fingerprints the market data the run saw so consecutive
// identical responses can be flagged as stale.
type ExecutionEntry struct {
	RunID        string       `json:"run_id"`
	MarketID     string       `json:"market_id"`
	MarketTitle  string       `json:"market_title"`
	Tools        []string     `json:"selected_tools"`
	Weights      []float64    `json:"tool_weights"`
	Outputs      []ToolOutput `json:"tool_outputs"`
	FinalScore   float64      `json:"final_score"`
	Threshold    float64      `json:"threshold"`
	BetTriggered bool         `json:"bet_triggered"`
	Rationale    string       `json:"reasoning"`
	ResponseHash string       `json:"response_hash,omitempty"`
	ResponseAt   time.Time    `json:"response_timestamp"`
	Statuses     []ToolStatus `json:"tool_execution_statuses,omitempty"`
	At           time.Time    `json:"timestamp"`
}
