package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"intent-trader/internal/config"
	dErrors "intent-trader/internal/errors"
	"intent-trader/internal/models"
)

const strategySystemPrompt = `You convert a user's natural-language trading instruction into a strategy document.
Respond with a single JSON object and nothing else, in this exact shape:
{
  "pair": "<BASE/QUOTE>",
  "conditions": [{"type": "price_below|price_above|funding_below|funding_above|volatility_above", "value": <positive number>}],
  "actions": [{"type": "swap", "amount_usdc": <positive number>, "direction": "buy|sell"}],
  "controls": {"max_slippage_bps": <integer 1-500>, "approval_mode": "auto|manual", "expires_in_minutes": <positive integer>}
}
Hard limits are provided for context; prefer strategies that fit inside them.`

// OpenAIParser implements Parser with an OpenAI chat completion. Its output
// is exactly as untrusted as any other parser's.
type OpenAIParser struct {
	client *openai.Client
	model  string
}

// NewOpenAIParser creates a new OpenAI-backed parser.
func NewOpenAIParser(apiKey, model string) *OpenAIParser {
	return &OpenAIParser{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// Parse asks the model for a strategy document.
func (p *OpenAIParser) Parse(ctx context.Context, userPrompt string, limits config.Limits) (*Result, error) {
	userContext := fmt.Sprintf("Instruction: %s\n\nHard limits: allowed pairs %v, max spend %.2f USDC per action, max slippage %d bps.",
		userPrompt, limits.AllowedPairs, limits.MaxSpendUSDC, limits.MaxSlippageBps)

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: strategySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userContext},
		},
	})
	if err != nil {
		return nil, dErrors.NewUpstreamError("parser", "openai completion", err)
	}
	if len(resp.Choices) == 0 {
		return nil, dErrors.NewUpstreamError("parser", "openai completion", fmt.Errorf("no response from openai"))
	}

	raw := stripFences(resp.Choices[0].Message.Content)
	if !json.Valid([]byte(raw)) {
		return nil, dErrors.NewUpstreamError("parser", "openai completion", fmt.Errorf("model did not return valid JSON"))
	}

	return &Result{
		StrategyDSL: json.RawMessage(raw),
		Explanation: fmt.Sprintf("strategy proposed by %s", p.model),
		RiskNotes:   []string{},
		Metadata:    models.ParserMetadata{Model: p.model, Confidence: 0},
	}, nil
}

// stripFences removes a markdown code fence if the model wrapped its JSON in one.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}
