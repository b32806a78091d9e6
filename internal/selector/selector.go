// Package selector produces tool-selection proposals for a market event,
// either by prompting an LLM through Bedrock or deterministically.
package selector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/kalshibot/internal/domain"
)

// Selector proposes which tools to run for an event, with weights and a
// trigger threshold. Proposals are untrusted; the pipeline validates them.
type Selector interface {
	Propose(ctx context.Context, event domain.Event, tools []domain.ToolInfo) (domain.Proposal, error)
}

// TextCompleter is the narrow LLM surface the Bedrock selector consumes.
type TextCompleter interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// --------------------------------------------------------------------------
// Bedrock selector
// --------------------------------------------------------------------------

// Bedrock asks an Anthropic model on AWS Bedrock to pick tools for the event.
type Bedrock struct {
	llm    TextCompleter
	logger *slog.Logger
}

// NewBedrock creates a Bedrock-backed selector.
func NewBedrock(llm TextCompleter, logger *slog.Logger) *Bedrock {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bedrock{
		llm:    llm,
		logger: logger.With(slog.String("component", "selector")),
	}
}

// Propose prompts the model and parses its JSON reply into a Proposal. Tool
// names are re-checked against the offered list so a hallucinated tool fails
// here rather than deep in the pipeline.
func (b *Bedrock) Propose(ctx context.Context, event domain.Event, tools []domain.ToolInfo) (domain.Proposal, error) {
	raw, err := b.llm.Complete(ctx, systemPrompt, BuildUserPrompt(event, tools))
	if err != nil {
		return domain.Proposal{}, fmt.Errorf("selector: llm call: %w", err)
	}

	var proposal domain.Proposal
	if err := json.Unmarshal([]byte(stripFences(raw)), &proposal); err != nil {
		return domain.Proposal{}, fmt.Errorf("selector: parse llm reply: %w", err)
	}

	offered := make(map[string]struct{}, len(tools))
	for _, t := range tools {
		offered[t.Name] = struct{}{}
	}
	for _, sel := range proposal.Selections {
		if _, ok := offered[sel.Tool]; !ok {
			return domain.Proposal{}, fmt.Errorf("selector: proposed tool %q: %w", sel.Tool, domain.ErrUnknownTool)
		}
	}

	names := make([]string, len(proposal.Selections))
	for i, sel := range proposal.Selections {
		names[i] = sel.Tool
	}
	b.logger.Info("selected tools", slog.Any("tools", names), slog.Float64("threshold", proposal.Threshold))

	return proposal, nil
}

// stripFences removes a surrounding markdown code fence from an LLM reply.
// Replies without fences pass through unchanged.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}

	if strings.HasSuffix(s, "```") {
		s = s[:strings.LastIndex(s, "```")]
	}

	return strings.TrimSpace(s)
}

// --------------------------------------------------------------------------
// Deterministic selectors
// --------------------------------------------------------------------------

// FallbackProposal is the safe default used when the LLM is unavailable or
// produces garbage: both mock tools at equal weight, threshold 0.6.
func FallbackProposal() domain.Proposal {
	return domain.Proposal{
		Selections: []domain.ToolSelection{
			{Tool: "mock_price_signal", Inputs: map[string]any{}, Weight: 0.5},
			{Tool: "mock_random_context", Inputs: map[string]any{}, Weight: 0.5},
		},
		Aggregation: domain.AggregationWeightedSum,
		Threshold:   0.6,
		Rationale:   "Deterministic fallback: equal-weight both mock tools, threshold 0.6.",
	}
}

// Fallback is a Selector that always returns FallbackProposal. It is the
// provider used when no LLM is configured.
type Fallback struct{}

// Propose implements Selector.
func (Fallback) Propose(ctx context.Context, event domain.Event, tools []domain.ToolInfo) (domain.Proposal, error) {
	return FallbackProposal(), nil
}

// Static is a Selector that always returns a fixed proposal. Useful for
// replays and tests.
type Static struct {
	Proposal domain.Proposal
}

// Propose implements Selector.
func (s Static) Propose(ctx context.Context, event domain.Event, tools []domain.ToolInfo) (domain.Proposal, error) {
	return s.Proposal, nil
}
