package guard

import (
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"intent-trader/internal/config"
	"intent-trader/internal/models"
)

func testLimits() config.Limits {
	return config.Limits{
		AllowedPairs:   []string{"ETH/USDC", "BTC/USDC"},
		MaxSpendUSDC:   500,
		MaxSlippageBps: 75,
	}
}

func strategyJSON(pair string, amountUSDC float64, slippageBps int) []byte {
	return []byte(fmt.Sprintf(`{
		"pair": %q,
		"conditions": [{"type": "price_below", "value": 3000}],
		"actions": [{"type": "swap", "amount_usdc": %v, "direction": "buy"}],
		"controls": {"max_slippage_bps": %d, "approval_mode": "auto", "expires_in_minutes": 60}
	}`, pair, amountUSDC, slippageBps))
}

func TestValidateJSONAcceptsValidStrategy(t *testing.T) {
	e := NewEnforcer(testLimits())

	result := e.ValidateJSON(strategyJSON("ETH/USDC", 100, 50))
	if !result.Valid {
		t.Fatalf("Expected valid strategy, got errors: %v", result.Errors)
	}
	if result.Strategy == nil {
		t.Fatal("Expected a strategy on a valid result")
	}
	if len(result.Errors) != 0 {
		t.Errorf("Expected no errors, got %v", result.Errors)
	}
	if len(result.Clamped) != 0 {
		t.Errorf("Expected no clamp notes, got %v", result.Clamped)
	}
	if result.Strategy.Pair != "ETH/USDC" {
		t.Errorf("Expected pair ETH/USDC, got %s", result.Strategy.Pair)
	}
	if !result.Strategy.Actions[0].AmountUSDC.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected amount 100, got %s", result.Strategy.Actions[0].AmountUSDC)
	}
}

func TestValidateJSONClampsSlippage(t *testing.T) {
	e := NewEnforcer(testLimits())

	result := e.ValidateJSON(strategyJSON("ETH/USDC", 100, 200))
	if !result.Valid {
		t.Fatalf("Clamping must not invalidate the strategy, got errors: %v", result.Errors)
	}
	if result.Strategy.Controls.MaxSlippageBps != 75 {
		t.Errorf("Expected slippage clamped to 75, got %d", result.Strategy.Controls.MaxSlippageBps)
	}
	if len(result.Clamped) != 1 {
		t.Fatalf("Expected exactly one clamp note, got %v", result.Clamped)
	}
	if result.Clamped[0] != "max_slippage_bps clamped from 200 to 75" {
		t.Errorf("Unexpected clamp note: %s", result.Clamped[0])
	}
}

func TestValidateJSONRejectsUnlistedPair(t *testing.T) {
	e := NewEnforcer(testLimits())

	result := e.ValidateJSON(strategyJSON("DOGE/USDC", 100, 50))
	if result.Valid {
		t.Fatal("Expected unlisted pair to be rejected")
	}
	if result.Strategy != nil {
		t.Error("A rejected result must not carry a strategy")
	}
	if len(result.Errors) != 1 {
		t.Fatalf("Expected exactly one error, got %v", result.Errors)
	}
	if !strings.Contains(result.Errors[0], "DOGE/USDC") {
		t.Errorf("Error should name the offending pair, got: %s", result.Errors[0])
	}
}

func TestValidateJSONRejectsOversizedAction(t *testing.T) {
	e := NewEnforcer(testLimits())

	result := e.ValidateJSON(strategyJSON("ETH/USDC", 9999, 50))
	if result.Valid {
		t.Fatal("Expected oversized spend to be rejected")
	}
	if len(result.Errors) != 1 {
		t.Fatalf("Expected exactly one error, got %v", result.Errors)
	}
	// The violating amount itself must appear in the error.
	if !strings.Contains(result.Errors[0], "9999") {
		t.Errorf("Error should name the violating amount, got: %s", result.Errors[0])
	}
	if !strings.Contains(result.Errors[0], "500") {
		t.Errorf("Error should name the cap, got: %s", result.Errors[0])
	}
}

func TestValidateJSONReportsClampAndErrorIndependently(t *testing.T) {
	e := NewEnforcer(testLimits())

	// Unlisted pair (fatal) plus excessive slippage (clampable) in one document.
	result := e.ValidateJSON(strategyJSON("DOGE/USDC", 100, 300))
	if result.Valid {
		t.Fatal("Expected rejection on the pair error")
	}
	if len(result.Errors) != 1 {
		t.Errorf("Expected one error, got %v", result.Errors)
	}
	if len(result.Clamped) != 1 {
		t.Errorf("Clamp note should still be reported alongside the error, got %v", result.Clamped)
	}
}

func TestValidateJSONRejectsMalformedJSON(t *testing.T) {
	e := NewEnforcer(testLimits())

	result := e.ValidateJSON([]byte(`{"pair": "ETH/USDC", "conditions":`))
	if result.Valid {
		t.Fatal("Expected malformed JSON to be rejected")
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "not valid JSON") {
		t.Errorf("Unexpected errors: %v", result.Errors)
	}
}

func TestValidateJSONAccumulatesStructuralErrors(t *testing.T) {
	e := NewEnforcer(testLimits())

	// Missing pair, empty conditions, empty actions, missing controls.
	result := e.ValidateJSON([]byte(`{"conditions": [], "actions": []}`))
	if result.Valid {
		t.Fatal("Expected structural rejection")
	}
	if len(result.Errors) != 4 {
		t.Errorf("Expected one message per violation (4), got %d: %v", len(result.Errors), result.Errors)
	}
}

func TestValidateJSONRejectsUnknownConditionType(t *testing.T) {
	e := NewEnforcer(testLimits())

	raw := []byte(`{
		"pair": "ETH/USDC",
		"conditions": [{"type": "moon_phase", "value": 3000}],
		"actions": [{"type": "swap", "amount_usdc": 100, "direction": "buy"}],
		"controls": {"max_slippage_bps": 50, "approval_mode": "auto", "expires_in_minutes": 60}
	}`)
	result := e.ValidateJSON(raw)
	if result.Valid {
		t.Fatal("Expected unknown condition type to be rejected")
	}
	if !strings.Contains(result.Errors[0], "conditions[0]") {
		t.Errorf("Error should locate the bad condition, got: %v", result.Errors)
	}
}

func TestValidateJSONRejectsNegativeAmount(t *testing.T) {
	e := NewEnforcer(testLimits())

	result := e.ValidateJSON(strategyJSON("ETH/USDC", -50, 50))
	if result.Valid {
		t.Fatal("Expected negative amount to be rejected")
	}
}

func TestValidateJSONRejectsSlippageOutOfSchemaRange(t *testing.T) {
	e := NewEnforcer(testLimits())

	// 600 is outside the schema range 1..500; that is a structural error,
	// not a clamp.
	result := e.ValidateJSON(strategyJSON("ETH/USDC", 100, 600))
	if result.Valid {
		t.Fatal("Expected out-of-range slippage to be rejected")
	}
	if len(result.Clamped) != 0 {
		t.Errorf("Schema violations must not produce clamp notes, got %v", result.Clamped)
	}
}

func TestValidateJSONRejectsExpiryPastCeiling(t *testing.T) {
	limits := testLimits()
	limits.MaxExpiryMinutes = 30
	e := NewEnforcer(limits)

	raw := []byte(`{
		"pair": "ETH/USDC",
		"conditions": [{"type": "price_below", "value": 3000}],
		"actions": [{"type": "swap", "amount_usdc": 100, "direction": "buy"}],
		"controls": {"max_slippage_bps": 50, "approval_mode": "auto", "expires_in_minutes": 500}
	}`)
	result := e.ValidateJSON(raw)
	if result.Valid {
		t.Fatal("Expiry past the operator ceiling must be rejected")
	}
	if len(result.Errors) != 1 {
		t.Fatalf("Expected exactly one error, got %v", result.Errors)
	}
	// An error, never a clamp: shortening the window would change what the
	// user authorized.
	if len(result.Clamped) != 0 {
		t.Errorf("Expiry must not be clamped, got %v", result.Clamped)
	}
	if !strings.Contains(result.Errors[0], "500") || !strings.Contains(result.Errors[0], "30") {
		t.Errorf("Error should name the window and the ceiling, got: %s", result.Errors[0])
	}
}

func TestValidateJSONNoExpiryCeilingMeansNoCheck(t *testing.T) {
	// testLimits leaves MaxExpiryMinutes at zero, meaning no ceiling.
	e := NewEnforcer(testLimits())

	raw := []byte(`{
		"pair": "ETH/USDC",
		"conditions": [{"type": "price_below", "value": 3000}],
		"actions": [{"type": "swap", "amount_usdc": 100, "direction": "buy"}],
		"controls": {"max_slippage_bps": 50, "approval_mode": "auto", "expires_in_minutes": 100000}
	}`)
	result := e.ValidateJSON(raw)
	if !result.Valid {
		t.Fatalf("Without a ceiling any positive expiry is fine, got errors: %v", result.Errors)
	}
}

func TestValidateDoesNotMutateInput(t *testing.T) {
	e := NewEnforcer(testLimits())

	s := &models.Strategy{
		Pair:       "ETH/USDC",
		Conditions: []models.Condition{{Type: models.ConditionPriceBelow, Value: decimal.NewFromInt(3000)}},
		Actions:    []models.Action{{Type: models.ActionSwap, AmountUSDC: decimal.NewFromInt(100), Direction: models.DirectionBuy}},
		Controls:   models.Controls{MaxSlippageBps: 200, ApprovalMode: models.ApprovalAuto, ExpiresInMinutes: 60},
	}

	result := e.Validate(s)
	if !result.Valid {
		t.Fatalf("Expected valid strategy, got errors: %v", result.Errors)
	}
	if s.Controls.MaxSlippageBps != 200 {
		t.Errorf("Input strategy was mutated: slippage is now %d", s.Controls.MaxSlippageBps)
	}
	if result.Strategy.Controls.MaxSlippageBps != 75 {
		t.Errorf("Clamp should land on the returned copy, got %d", result.Strategy.Controls.MaxSlippageBps)
	}
}
