package domain

// AggregationWeightedSum is the only supported aggregation method.
const AggregationWeightedSum = "weighted_sum"

// ToolInfo describes a registered tool to the selector prompt.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ToolSelection is one tool choice with its weight and optional inputs.
type ToolSelection struct {
	Tool   string         `json:"tool_name"`
	Inputs map[string]any `json:"tool_inputs,omitempty"`
	Weight float64        `json:"weight"`
}

// Proposal is the selector's raw output: an ordered set of tool selections,
// a trigger threshold, and the reasoning behind them. It is untrusted until
// it passes validation.
type Proposal struct {
	Selections  []ToolSelection `json:"selections"`
	Aggregation string          `json:"aggregation"`
	Threshold   float64         `json:"threshold"`
	Rationale   string          `json:"rationale"`
}

// Formula is a validated, weight-normalized Proposal. Selection order is
// preserved exactly as proposed; scoring iterates it in that order.
type Formula struct {
	Selections  []ToolSelection `json:"selections"`
	Aggregation string          `json:"aggregation"`
	Threshold   float64         `json:"threshold"`
	Rationale   string          `json:"rationale"`
}

// ToolNames returns the selected tool names in selection order.
func (f Formula) ToolNames() []string {
	names := make([]string, len(f.Selections))
	for i, sel := range f.Selections {
		names[i] = sel.Tool
	}
	return names
}

// Weights returns the selection weights in selection order.
func (f Formula) Weights() []float64 {
	weights := make([]float64, len(f.Selections))
	for i, sel := range f.Selections {
		weights[i] = sel.Weight
	}
	return weights
}
