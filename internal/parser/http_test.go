package parser

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intent-trader/internal/config"
	dErrors "intent-trader/internal/errors"
)

func parserLimits() config.Limits {
	return config.Limits{
		AllowedPairs:   []string{"ETH/USDC", "BTC/USDC"},
		MaxSpendUSDC:   500,
		MaxSlippageBps: 75,
	}
}

func TestHTTPParserParse(t *testing.T) {
	var gotReq parseRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"strategy_dsl": {"pair": "ETH/USDC"},
			"explanation": "buys ETH on a dip",
			"risk_notes": ["price may keep falling"],
			"parser_metadata": {"model": "gpt-4o-mini", "confidence": 0.92}
		}`))
	}))
	defer srv.Close()

	p := NewHTTPParser(srv.URL, 5*time.Second)
	result, err := p.Parse(context.Background(), "buy some ETH when it dips", parserLimits())
	require.NoError(t, err)

	// The hard limits ride along as parser context.
	assert.Equal(t, "buy some ETH when it dips", gotReq.UserPrompt)
	assert.Equal(t, []string{"ETH/USDC", "BTC/USDC"}, gotReq.Context.AllowedPairs)
	assert.Equal(t, 500.0, gotReq.Context.MaxSpendUSDCHard)
	assert.Equal(t, 75, gotReq.Context.MaxSlippageBpsHard)

	assert.JSONEq(t, `{"pair": "ETH/USDC"}`, string(result.StrategyDSL))
	assert.Equal(t, "buys ETH on a dip", result.Explanation)
	assert.Equal(t, []string{"price may keep falling"}, result.RiskNotes)
	assert.Equal(t, "gpt-4o-mini", result.Metadata.Model)
	assert.InDelta(t, 0.92, result.Metadata.Confidence, 0.001)
}

func TestHTTPParserNon2xxFailsWithoutRetry(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewHTTPParser(srv.URL, 5*time.Second)
	_, err := p.Parse(context.Background(), "anything", parserLimits())
	require.Error(t, err)

	var upErr *dErrors.UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, "parser", upErr.Service)
	assert.Equal(t, 1, calls, "parser failures are never retried at this layer")
}

func TestHTTPParserMissingStrategyDSL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"explanation": "no strategy here"}`))
	}))
	defer srv.Close()

	p := NewHTTPParser(srv.URL, 5*time.Second)
	_, err := p.Parse(context.Background(), "anything", parserLimits())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strategy_dsl")
}

func TestHTTPParserUnreachableEndpoint(t *testing.T) {
	p := NewHTTPParser("http://127.0.0.1:1", 500*time.Millisecond)

	_, err := p.Parse(context.Background(), "anything", parserLimits())
	require.Error(t, err)
	var upErr *dErrors.UpstreamError
	assert.ErrorAs(t, err, &upErr)
}
