package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus represents the outcome of a paid-tool payment attempt.
type PaymentStatus string

const (
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
)

// PaymentRecord is one entry in the append-only payment ledger.
type PaymentRecord struct {
	Tool      string          `json:"tool"`
	CostUSDC  decimal.Decimal `json:"cost_usdc"`
	TxRef     string          `json:"tx_ref"`
	Timestamp time.Time       `json:"timestamp"`
	Status    PaymentStatus   `json:"status"`
}

// PurchaseDecision is the outcome of an economic reasoning check.
type PurchaseDecision string

const (
	DecisionProceed PurchaseDecision = "proceed"
	DecisionSkip    PurchaseDecision = "skip"
)

// ReasonCode is an audit record explaining one purchase decision. One is
// appended per decision regardless of outcome.
type ReasonCode struct {
	Tool                string           `json:"tool"`
	CostUSDC            decimal.Decimal  `json:"cost_usdc"`
	BudgetRemainingUSDC decimal.Decimal  `json:"budget_remaining_usdc"`
	Decision            PurchaseDecision `json:"decision"`
	Justification       string           `json:"justification"`
	Timestamp           time.Time        `json:"timestamp"`
}
