package guard

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"intent-trader/internal/models"
)

func recheckStrategy(pair string, amounts ...float64) *models.Strategy {
	s := &models.Strategy{
		Pair:       pair,
		Conditions: []models.Condition{{Type: models.ConditionPriceBelow, Value: decimal.NewFromInt(3000)}},
		Controls:   models.Controls{MaxSlippageBps: 50, ApprovalMode: models.ApprovalAuto, ExpiresInMinutes: 60},
	}
	for _, a := range amounts {
		s.Actions = append(s.Actions, models.Action{
			Type:       models.ActionSwap,
			AmountUSDC: decimal.NewFromFloat(a),
			Direction:  models.DirectionBuy,
		})
	}
	return s
}

func TestReCheckPassesCompliantStrategy(t *testing.T) {
	r := NewRiskChecker(testLimits())

	result := r.ReCheck(recheckStrategy("ETH/USDC", 100), time.Now().Add(time.Hour))
	if !result.Passed {
		t.Fatalf("Expected pass, got violations: %v", result.Violations)
	}
}

func TestReCheckCatchesAggregateOverspend(t *testing.T) {
	r := NewRiskChecker(testLimits())

	// Each action is under the 500 cap; the sum is 600.
	result := r.ReCheck(recheckStrategy("ETH/USDC", 200, 200, 200), time.Now().Add(time.Hour))
	if result.Passed {
		t.Fatal("Expected aggregate spend violation")
	}
	if len(result.Violations) != 1 {
		t.Fatalf("Expected one violation, got %v", result.Violations)
	}
	if !strings.Contains(result.Violations[0], "600") {
		t.Errorf("Violation should name the aggregate, got: %s", result.Violations[0])
	}
}

func TestReCheckAllowsAggregateAtExactCap(t *testing.T) {
	r := NewRiskChecker(testLimits())

	result := r.ReCheck(recheckStrategy("ETH/USDC", 250, 250), time.Now().Add(time.Hour))
	if !result.Passed {
		t.Fatalf("Spend exactly at the cap must pass, got: %v", result.Violations)
	}
}

func TestReCheckAccumulatesAllViolations(t *testing.T) {
	r := NewRiskChecker(testLimits())
	r.now = func() time.Time { return time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC) }

	s := recheckStrategy("DOGE/USDC", 400, 400)
	s.Controls.MaxSlippageBps = 200

	expired := time.Date(2026, 1, 2, 11, 0, 0, 0, time.UTC)
	result := r.ReCheck(s, expired)
	if result.Passed {
		t.Fatal("Expected failure")
	}
	// Pair, aggregate spend, slippage and expiry must all be reported; the
	// check never stops at the first violation.
	if len(result.Violations) != 4 {
		t.Fatalf("Expected 4 violations, got %d: %v", len(result.Violations), result.Violations)
	}
}

func TestReCheckUsesAbsoluteExpiry(t *testing.T) {
	r := NewRiskChecker(testLimits())
	r.now = func() time.Time { return time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC) }

	s := recheckStrategy("ETH/USDC", 100)

	fresh := r.ReCheck(s, time.Date(2026, 1, 2, 12, 30, 0, 0, time.UTC))
	if !fresh.Passed {
		t.Fatalf("Intent within its window must pass, got: %v", fresh.Violations)
	}

	stale := r.ReCheck(s, time.Date(2026, 1, 2, 11, 59, 0, 0, time.UTC))
	if stale.Passed {
		t.Fatal("Intent past its absolute expiry must fail")
	}
	if !strings.Contains(stale.Violations[0], "expired") {
		t.Errorf("Expected an expiry violation, got: %v", stale.Violations)
	}
}

func TestReCheckCatchesExpiryPastCeiling(t *testing.T) {
	limits := testLimits()
	limits.MaxExpiryMinutes = 30
	r := NewRiskChecker(limits)

	s := recheckStrategy("ETH/USDC", 100)
	s.Controls.ExpiresInMinutes = 500

	result := r.ReCheck(s, time.Now().Add(500*time.Minute))
	if result.Passed {
		t.Fatal("Expiry window past the operator ceiling must fail the re-check")
	}
	if len(result.Violations) != 1 {
		t.Fatalf("Expected one violation, got %v", result.Violations)
	}
	if !strings.Contains(result.Violations[0], "500") || !strings.Contains(result.Violations[0], "30") {
		t.Errorf("Violation should name the window and the ceiling, got: %s", result.Violations[0])
	}
}

func TestReCheckNilStrategy(t *testing.T) {
	r := NewRiskChecker(testLimits())

	result := r.ReCheck(nil, time.Now().Add(time.Hour))
	if result.Passed {
		t.Fatal("Nil strategy must fail the re-check")
	}
}
