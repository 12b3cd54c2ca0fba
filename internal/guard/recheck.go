package guard

import (
	"fmt"
	"time"

	"intent-trader/internal/config"
	dErrors "intent-trader/internal/errors"
	"intent-trader/internal/models"
)

// RiskResult is the outcome of the pre-execution risk re-check.
type RiskResult struct {
	Passed     bool     `json:"passed"`
	Violations []string `json:"violations"`
}

// RiskChecker re-validates a decrypted strategy immediately before execution.
// It is a second, independent pass: the pre-encryption enforcer caps each
// action, this one caps the aggregate, so both one oversized action and many
// small actions that sum past the cap are caught.
type RiskChecker struct {
	limits config.Limits
	now    func() time.Time
}

// NewRiskChecker creates a new risk re-checker.
func NewRiskChecker(limits config.Limits) *RiskChecker {
	return &RiskChecker{limits: limits, now: time.Now}
}

// ReCheck accumulates every violation independently; it never short-circuits.
// Expiry is checked against the absolute expires_at captured at encryption
// time, not the strategy's own relative window.
func (r *RiskChecker) ReCheck(s *models.Strategy, expiresAt time.Time) RiskResult {
	violations := []string{}

	if s == nil {
		return RiskResult{Passed: false, Violations: []string{"strategy is required"}}
	}

	if !r.limits.PairAllowed(s.Pair) {
		violations = append(violations, fmt.Sprintf("pair %q is not in the allowed pair list %v", s.Pair, r.limits.AllowedPairs))
	}

	total := s.TotalSpendUSDC()
	if maxSpend := r.limits.MaxSpend(); total.GreaterThan(maxSpend) {
		violations = append(violations, fmt.Sprintf("aggregate spend %s USDC exceeds hard spend cap %s USDC", total.String(), maxSpend.String()))
	}

	if s.Controls.MaxSlippageBps > r.limits.MaxSlippageBps {
		violations = append(violations, fmt.Sprintf("max_slippage_bps %d exceeds hard max %d", s.Controls.MaxSlippageBps, r.limits.MaxSlippageBps))
	}

	if r.limits.MaxExpiryMinutes > 0 && s.Controls.ExpiresInMinutes > r.limits.MaxExpiryMinutes {
		violations = append(violations, dErrors.NewPolicyError(
			"max_expiry_minutes",
			fmt.Sprintf("%d", s.Controls.ExpiresInMinutes),
			fmt.Sprintf("%d", r.limits.MaxExpiryMinutes),
			"expiry window exceeds hard max",
		).Error())
	}

	if !expiresAt.IsZero() && r.now().After(expiresAt) {
		violations = append(violations, fmt.Sprintf("intent expired at %s", expiresAt.Format(time.RFC3339)))
	}

	return RiskResult{Passed: len(violations) == 0, Violations: violations}
}
