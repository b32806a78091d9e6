package domain

import "math"

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

// ToolOutput is the result vector produced by a single tool run.
type ToolOutput struct {
	Tool     string         `json:"tool_name"`
	Vector   []float64      `json:"output_vector"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ToolStatus records how a single tool execution went, for the run summary
// and the execution log.
type ToolStatus struct {
	Tool      string  `json:"tool_name"`
	OK        bool    `json:"success"`
	LatencyMS float64 `json:"latency_ms"`
	Error     string  `json:"error,omitempty"`
}

// ScoreResult is the deterministic scoring output. Contributions holds the
// per-tool weight×signal products in selection order; FinalScore is their
// sum rounded to six decimal places.
type ScoreResult struct {
	FinalScore    float64      `json:"final_score"`
	Outputs       []ToolOutput `json:"tool_outputs"`
	Weights       []float64    `json:"weights"`
	Contributions []float64    `json:"contributions"`
	Threshold     float64      `json:"threshold"`
	BetTriggered  bool         `json:"bet_triggered"`
}
