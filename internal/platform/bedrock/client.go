// Package bedrock wraps the AWS Bedrock runtime for Anthropic model
// invocations used by the tool selector.
package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// anthropicVersion is the Bedrock-required schema version for Anthropic
// message payloads.
const anthropicVersion = "bedrock-2023-05-31"

// ClientConfig holds the configuration for the Bedrock runtime client.
type ClientConfig struct {
	// Region is the AWS region hosting the model or inference profile.
	Region string

	// ModelID is the Bedrock model identifier or inference profile ARN.
	ModelID string

	// Temperature controls sampling randomness. The selector runs at 0 so
	// identical inputs produce identical proposals.
	Temperature float64

	// MaxTokens caps the response length. Defaults to 1024 when zero.
	MaxTokens int
}

// Client invokes Anthropic models through the Bedrock runtime.
type Client struct {
	runtime     *bedrockruntime.Client
	modelID     string
	temperature float64
	maxTokens   int
}

// New creates a Bedrock client using the default AWS credential chain.
func New(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if cfg.ModelID == "" {
		return nil, fmt.Errorf("bedrock: model id is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("bedrock: region is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("bedrock: load aws config: %w", err)
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	return &Client{
		runtime:     bedrockruntime.NewFromConfig(awsCfg),
		modelID:     cfg.ModelID,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
	}, nil
}

// --------------------------------------------------------------------------
// Anthropic messages payload
// --------------------------------------------------------------------------

type invokeRequest struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	Temperature      float64   `json:"temperature"`
	System           string    `json:"system,omitempty"`
	Messages         []message `json:"messages"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type invokeResponse struct {
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
}

// Complete sends a system+user prompt pair to the model and returns the
// concatenated text of the response.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	payload, err := json.Marshal(invokeRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        c.maxTokens,
		Temperature:      c.temperature,
		System:           system,
		Messages: []message{
			{
				Role:    "user",
				Content: []contentBlock{{Type: "text", Text: user}},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("bedrock: marshal request: %w", err)
	}

	out, err := c.runtime.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        payload,
	})
	if err != nil {
		return "", fmt.Errorf("bedrock: invoke %s: %w", c.modelID, err)
	}

	var resp invokeResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", fmt.Errorf("bedrock: decode response: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("bedrock: empty response (stop_reason=%s)", resp.StopReason)
	}
	return text, nil
}
