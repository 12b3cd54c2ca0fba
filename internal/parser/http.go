package parser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"intent-trader/internal/config"
	dErrors "intent-trader/internal/errors"
)

// HTTPParser calls an opaque parser endpoint over HTTP. Non-2xx responses and
// timeouts are surfaced as errors and never retried at this layer.
type HTTPParser struct {
	http     *resty.Client
	endpoint string
}

// NewHTTPParser creates a parser client for the given endpoint.
func NewHTTPParser(endpoint string, timeout time.Duration) *HTTPParser {
	httpClient := resty.New()
	httpClient.SetTimeout(timeout)
	return &HTTPParser{http: httpClient, endpoint: endpoint}
}

type parseRequest struct {
	UserPrompt string       `json:"user_prompt"`
	Context    parseContext `json:"context"`
}

type parseContext struct {
	AllowedPairs       []string `json:"allowed_pairs"`
	MaxSpendUSDCHard   float64  `json:"max_spend_usdc_hard"`
	MaxSlippageBpsHard int      `json:"max_slippage_bps_hard"`
}

// Parse posts the prompt to the parser endpoint.
func (p *HTTPParser) Parse(ctx context.Context, userPrompt string, limits config.Limits) (*Result, error) {
	req := parseRequest{
		UserPrompt: userPrompt,
		Context: parseContext{
			AllowedPairs:       limits.AllowedPairs,
			MaxSpendUSDCHard:   limits.MaxSpendUSDC,
			MaxSlippageBpsHard: limits.MaxSlippageBps,
		},
	}

	result := &Result{}
	resp, err := p.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(result).
		Post(p.endpoint)
	if err != nil {
		return nil, dErrors.NewUpstreamError("parser", "parse prompt", err)
	}
	if !resp.IsSuccess() {
		return nil, dErrors.NewUpstreamError("parser", "parse prompt", fmt.Errorf("unexpected status %d: %s", resp.StatusCode(), resp.String()))
	}
	if len(result.StrategyDSL) == 0 {
		return nil, dErrors.NewUpstreamError("parser", "parse prompt", fmt.Errorf("response missing strategy_dsl"))
	}
	return result, nil
}
