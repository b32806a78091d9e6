package selector

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/kalshibot/internal/domain"
)

// systemPrompt pins the selector to its one job: choosing tools, weights, and
// a threshold. Scoring stays in the deterministic engine.
const systemPrompt = `You are a prediction tool selector for basketball markets.

Your ONLY job is to:
1. Review the available tools and the market event.
2. Select which tools to use (at least one).
3. Assign a weight to each selected tool (weights must sum to 1.0).
4. Choose a threshold (0.0 to 1.0) — if the weighted score exceeds this, a paper bet triggers.
5. Provide a brief rationale.

STRICT RULES:
- You can ONLY select tools from the available tools list provided.
- You CANNOT invent new tools.
- You CANNOT compute scores — the engine does that.
- Weights must be between 0.0 and 1.0 and sum to 1.0.
- Threshold must be between 0.0 and 1.0.
- Aggregation is ALWAYS "weighted_sum".

Respond with ONLY valid JSON matching the formula schema. No markdown, no explanation outside the JSON.`

const userPromptTemplate = `## Market Event
- Event ID: %s
- Market ID: %s
- Title: %s
- Current YES Price: %s
- Timestamp: %s

## Available Tools
%s

## Instructions
Select tools, assign weights (sum to 1.0), set a threshold, and provide rationale.

Respond with JSON matching this exact schema:
{
  "selections": [
    {
      "tool_name": "<name from available tools>",
      "tool_inputs": {},
      "weight": <float 0-1>
    }
  ],
  "aggregation": "weighted_sum",
  "threshold": <float 0-1>,
  "rationale": "<brief explanation>"
}`

// BuildUserPrompt renders the market event and the available tools into the
// selector's user prompt.
func BuildUserPrompt(event domain.Event, tools []domain.ToolInfo) string {
	return fmt.Sprintf(userPromptTemplate,
		event.EventID,
		event.MarketID,
		event.Title,
		strconv.FormatFloat(event.Price, 'g', -1, 64),
		event.CapturedAt.Format(time.RFC3339),
		formatToolsDescription(tools),
	)
}

// formatToolsDescription formats registry tools into a numbered prompt block.
func formatToolsDescription(tools []domain.ToolInfo) string {
	lines := make([]string, 0, len(tools))
	for i, t := range tools {
		lines = append(lines, fmt.Sprintf("%d. **%s**: %s", i+1, t.Name, t.Description))
	}
	return strings.Join(lines, "\n")
}
