// Package models defines the core domain types for the intent pipeline.
package models

import (
	"github.com/shopspring/decimal"
)

// ConditionType represents a trigger condition type.
type ConditionType string

const (
	ConditionPriceBelow      ConditionType = "price_below"
	ConditionPriceAbove      ConditionType = "price_above"
	ConditionFundingBelow    ConditionType = "funding_below"
	ConditionFundingAbove    ConditionType = "funding_above"
	ConditionVolatilityAbove ConditionType = "volatility_above"
)

// ValidConditionType reports whether t is a recognized condition type.
func ValidConditionType(t ConditionType) bool {
	switch t {
	case ConditionPriceBelow, ConditionPriceAbove, ConditionFundingBelow,
		ConditionFundingAbove, ConditionVolatilityAbove:
		return true
	}
	return false
}

// ActionType represents a strategy action type.
type ActionType string

// ActionSwap is the only supported action type.
const ActionSwap ActionType = "swap"

// Direction represents the side of a swap.
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// ApprovalMode controls whether execution requires manual approval.
type ApprovalMode string

const (
	ApprovalAuto   ApprovalMode = "auto"
	ApprovalManual ApprovalMode = "manual"
)

// Condition is a single trigger condition.
type Condition struct {
	Type  ConditionType   `json:"type"`
	Value decimal.Decimal `json:"value"`
}

// Action is a single strategy action.
type Action struct {
	Type       ActionType      `json:"type"`
	AmountUSDC decimal.Decimal `json:"amount_usdc"`
	Direction  Direction       `json:"direction"`
}

// Controls holds execution controls for a strategy.
type Controls struct {
	MaxSlippageBps   int          `json:"max_slippage_bps"`
	ApprovalMode     ApprovalMode `json:"approval_mode"`
	ExpiresInMinutes int          `json:"expires_in_minutes"`
}

// Strategy is a validated, structured trading instruction. It is treated as
// immutable once validated; stages that need to adjust a field work on a clone.
type Strategy struct {
	Pair       string      `json:"pair"`
	Conditions []Condition `json:"conditions"`
	Actions    []Action    `json:"actions"`
	Controls   Controls    `json:"controls"`
}

// TotalSpendUSDC returns the sum of all action amounts.
func (s *Strategy) TotalSpendUSDC() decimal.Decimal {
	total := decimal.Zero
	for _, a := range s.Actions {
		total = total.Add(a.AmountUSDC)
	}
	return total
}

// Clone returns a deep copy of the strategy.
func (s *Strategy) Clone() *Strategy {
	out := &Strategy{
		Pair:       s.Pair,
		Conditions: make([]Condition, len(s.Conditions)),
		Actions:    make([]Action, len(s.Actions)),
		Controls:   s.Controls,
	}
	copy(out.Conditions, s.Conditions)
	copy(out.Actions, s.Actions)
	return out
}
