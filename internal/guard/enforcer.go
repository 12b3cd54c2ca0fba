// Package guard validates untrusted strategies against operator hard limits.
package guard

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"intent-trader/internal/config"
	dErrors "intent-trader/internal/errors"
	"intent-trader/internal/models"
)

// ValidationResult is the outcome of a limit-enforcement pass. Clamp notes are
// informational only; any error forces Valid=false and a nil strategy.
type ValidationResult struct {
	Valid    bool             `json:"valid"`
	Strategy *models.Strategy `json:"strategy,omitempty"`
	Errors   []string         `json:"errors"`
	Clamped  []string         `json:"clamped"`
}

// Enforcer validates candidate strategies against hard limits. The limits are
// read-only for the life of the enforcer.
type Enforcer struct {
	limits config.Limits
}

// NewEnforcer creates a new limit enforcer.
func NewEnforcer(limits config.Limits) *Enforcer {
	return &Enforcer{limits: limits}
}

// candidate mirrors models.Strategy with pointer fields so missing values are
// distinguishable from zero values. Parser output lands here before anything
// is promoted to the trusted strategy type.
type candidate struct {
	Pair       *string              `json:"pair"`
	Conditions []candidateCondition `json:"conditions"`
	Actions    []candidateAction    `json:"actions"`
	Controls   *candidateControls   `json:"controls"`
}

type candidateCondition struct {
	Type  *string          `json:"type"`
	Value *decimal.Decimal `json:"value"`
}

type candidateAction struct {
	Type       *string          `json:"type"`
	AmountUSDC *decimal.Decimal `json:"amount_usdc"`
	Direction  *string          `json:"direction"`
}

type candidateControls struct {
	MaxSlippageBps   *int    `json:"max_slippage_bps"`
	ApprovalMode     *string `json:"approval_mode"`
	ExpiresInMinutes *int    `json:"expires_in_minutes"`
}

// ValidateJSON validates a raw, untrusted strategy document.
func (e *Enforcer) ValidateJSON(raw []byte) ValidationResult {
	var c candidate
	if err := json.Unmarshal(raw, &c); err != nil {
		return ValidationResult{
			Valid:   false,
			Errors:  []string{dErrors.NewSchemaError("document", "", fmt.Sprintf("strategy is not valid JSON: %v", err)).Error()},
			Clamped: []string{},
		}
	}

	s, schemaErrs := promote(&c)
	if len(schemaErrs) > 0 {
		return ValidationResult{Valid: false, Errors: schemaErrs, Clamped: []string{}}
	}

	return e.Validate(s)
}

// Validate runs the policy checks over an already well-formed strategy.
// Clamping and erroring are evaluated independently so a single call can
// report both a slippage clamp and a fatal allowlist error.
func (e *Enforcer) Validate(s *models.Strategy) ValidationResult {
	if errs := checkStructure(s); len(errs) > 0 {
		return ValidationResult{Valid: false, Errors: errs, Clamped: []string{}}
	}

	out := s.Clone()
	errs := []string{}
	clamped := []string{}

	// Pair allowlist: an unlisted pair is an error, never a clamp.
	if !e.limits.PairAllowed(out.Pair) {
		errs = append(errs, fmt.Sprintf("pair %q is not in the allowed pair list %v", out.Pair, e.limits.AllowedPairs))
	}

	// Slippage above the hard max is safely correctable.
	if out.Controls.MaxSlippageBps > e.limits.MaxSlippageBps {
		clamped = append(clamped, fmt.Sprintf("max_slippage_bps clamped from %d to %d", out.Controls.MaxSlippageBps, e.limits.MaxSlippageBps))
		out.Controls.MaxSlippageBps = e.limits.MaxSlippageBps
	}

	// Per-action spend above the hard cap is an error. Silently shrinking a
	// trade size is unsafe, so there is no clamp here.
	maxSpend := e.limits.MaxSpend()
	for i, a := range out.Actions {
		if a.AmountUSDC.GreaterThan(maxSpend) {
			errs = append(errs, fmt.Sprintf("actions[%d] amount %s USDC exceeds hard spend cap %s USDC", i, a.AmountUSDC.String(), maxSpend.String()))
		}
	}

	// Expiry is schema-guaranteed positive; re-checked defensively.
	if out.Controls.ExpiresInMinutes <= 0 {
		errs = append(errs, fmt.Sprintf("expires_in_minutes must be positive, got %d", out.Controls.ExpiresInMinutes))
	}

	// Expiry past the operator ceiling is an error, not a clamp. Shortening a
	// window silently would change what the user authorized, same as shrinking
	// a trade.
	if e.limits.MaxExpiryMinutes > 0 && out.Controls.ExpiresInMinutes > e.limits.MaxExpiryMinutes {
		errs = append(errs, dErrors.NewPolicyError(
			"max_expiry_minutes",
			fmt.Sprintf("%d", out.Controls.ExpiresInMinutes),
			fmt.Sprintf("%d", e.limits.MaxExpiryMinutes),
			"expiry window exceeds hard max",
		).Error())
	}

	if len(errs) > 0 {
		return ValidationResult{Valid: false, Errors: errs, Clamped: clamped}
	}
	return ValidationResult{Valid: true, Strategy: out, Errors: errs, Clamped: clamped}
}

// promote converts a candidate into the trusted strategy type, accumulating
// one message per structural violation.
func promote(c *candidate) (*models.Strategy, []string) {
	errs := []string{}

	s := &models.Strategy{}

	if c.Pair == nil || *c.Pair == "" {
		errs = append(errs, "pair is required and must be a non-empty string")
	} else {
		s.Pair = *c.Pair
	}

	if len(c.Conditions) == 0 {
		errs = append(errs, "conditions must contain at least one entry")
	}
	for i, cc := range c.Conditions {
		cond := models.Condition{}
		if cc.Type == nil || !models.ValidConditionType(models.ConditionType(*cc.Type)) {
			errs = append(errs, fmt.Sprintf("conditions[%d] has unknown type", i))
		} else {
			cond.Type = models.ConditionType(*cc.Type)
		}
		if cc.Value == nil || !cc.Value.IsPositive() {
			errs = append(errs, fmt.Sprintf("conditions[%d] value must be a positive number", i))
		} else {
			cond.Value = *cc.Value
		}
		s.Conditions = append(s.Conditions, cond)
	}

	if len(c.Actions) == 0 {
		errs = append(errs, "actions must contain at least one entry")
	}
	for i, ca := range c.Actions {
		act := models.Action{}
		if ca.Type == nil || models.ActionType(*ca.Type) != models.ActionSwap {
			errs = append(errs, fmt.Sprintf("actions[%d] type must be %q", i, models.ActionSwap))
		} else {
			act.Type = models.ActionType(*ca.Type)
		}
		if ca.AmountUSDC == nil || !ca.AmountUSDC.IsPositive() {
			errs = append(errs, fmt.Sprintf("actions[%d] amount_usdc must be a positive number", i))
		} else {
			act.AmountUSDC = *ca.AmountUSDC
		}
		if ca.Direction == nil || (models.Direction(*ca.Direction) != models.DirectionBuy && models.Direction(*ca.Direction) != models.DirectionSell) {
			errs = append(errs, fmt.Sprintf("actions[%d] direction must be buy or sell", i))
		} else {
			act.Direction = models.Direction(*ca.Direction)
		}
		s.Actions = append(s.Actions, act)
	}

	if c.Controls == nil {
		errs = append(errs, "controls is required")
	} else {
		if c.Controls.MaxSlippageBps == nil || *c.Controls.MaxSlippageBps < 1 || *c.Controls.MaxSlippageBps > 500 {
			errs = append(errs, "controls.max_slippage_bps must be an integer in 1..500")
		} else {
			s.Controls.MaxSlippageBps = *c.Controls.MaxSlippageBps
		}
		if c.Controls.ApprovalMode == nil || (models.ApprovalMode(*c.Controls.ApprovalMode) != models.ApprovalAuto && models.ApprovalMode(*c.Controls.ApprovalMode) != models.ApprovalManual) {
			errs = append(errs, "controls.approval_mode must be auto or manual")
		} else {
			s.Controls.ApprovalMode = models.ApprovalMode(*c.Controls.ApprovalMode)
		}
		if c.Controls.ExpiresInMinutes == nil || *c.Controls.ExpiresInMinutes <= 0 {
			errs = append(errs, "controls.expires_in_minutes must be a positive integer")
		} else {
			s.Controls.ExpiresInMinutes = *c.Controls.ExpiresInMinutes
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return s, nil
}

// checkStructure re-validates the structural invariants on a typed strategy.
func checkStructure(s *models.Strategy) []string {
	errs := []string{}
	if s == nil {
		return []string{"strategy is required"}
	}
	if s.Pair == "" {
		errs = append(errs, "pair is required and must be a non-empty string")
	}
	if len(s.Conditions) == 0 {
		errs = append(errs, "conditions must contain at least one entry")
	}
	for i, c := range s.Conditions {
		if !models.ValidConditionType(c.Type) {
			errs = append(errs, fmt.Sprintf("conditions[%d] has unknown type %q", i, c.Type))
		}
		if !c.Value.IsPositive() {
			errs = append(errs, fmt.Sprintf("conditions[%d] value must be a positive number", i))
		}
	}
	if len(s.Actions) == 0 {
		errs = append(errs, "actions must contain at least one entry")
	}
	for i, a := range s.Actions {
		if a.Type != models.ActionSwap {
			errs = append(errs, fmt.Sprintf("actions[%d] type must be %q", i, models.ActionSwap))
		}
		if !a.AmountUSDC.IsPositive() {
			errs = append(errs, fmt.Sprintf("actions[%d] amount_usdc must be a positive number", i))
		}
		if a.Direction != models.DirectionBuy && a.Direction != models.DirectionSell {
			errs = append(errs, fmt.Sprintf("actions[%d] direction must be buy or sell", i))
		}
	}
	if s.Controls.MaxSlippageBps < 1 || s.Controls.MaxSlippageBps > 500 {
		errs = append(errs, "controls.max_slippage_bps must be an integer in 1..500")
	}
	if s.Controls.ApprovalMode != models.ApprovalAuto && s.Controls.ApprovalMode != models.ApprovalManual {
		errs = append(errs, "controls.approval_mode must be auto or manual")
	}
	if s.Controls.ExpiresInMinutes <= 0 {
		errs = append(errs, "controls.expires_in_minutes must be a positive integer")
	}
	return errs
}
