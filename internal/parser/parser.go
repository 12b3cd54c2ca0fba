// Package parser provides clients for the natural-language strategy parser
// boundary. Parser output is fully untrusted: the raw strategy document is
// handed to the limit enforcer before any other stage sees it.
package parser

import (
	"context"
	"encoding/json"

	"intent-trader/internal/config"
	"intent-trader/internal/models"
)

// Result is the untrusted parser output. StrategyDSL is raw JSON; nothing in
// it is validated here.
type Result struct {
	StrategyDSL json.RawMessage       `json:"strategy_dsl"`
	Explanation string                `json:"explanation"`
	RiskNotes   []string              `json:"risk_notes"`
	Metadata    models.ParserMetadata `json:"parser_metadata"`
}

// Parser converts a natural-language prompt into an untrusted strategy
// proposal. The hard limits are passed as context so the parser can aim for
// something executable, but nothing it returns is trusted to honor them.
type Parser interface {
	Parse(ctx context.Context, userPrompt string, limits config.Limits) (*Result, error)
}
