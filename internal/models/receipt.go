package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReceiptStatus is the terminal status of a workflow run.
type ReceiptStatus string

const (
	ReceiptExecuted ReceiptStatus = "executed"
	ReceiptAborted  ReceiptStatus = "aborted"
	ReceiptExpired  ReceiptStatus = "expired"
)

// ParserMetadata carries provenance information about the parser output.
type ParserMetadata struct {
	Model      string  `json:"model"`
	Confidence float64 `json:"confidence"`
}

// ExecutionReceipt is the immutable audit record of one workflow run.
// The encrypted payload is stored only as its sha256 hash. No field is
// mutated after construction.
type ExecutionReceipt struct {
	IntentID          string            `json:"intent_id,omitempty"`
	Prompt            string            `json:"prompt"`
	ParserExplanation string            `json:"parser_explanation"`
	ParserRiskNotes   []string          `json:"parser_risk_notes"`
	ParserMetadata    ParserMetadata    `json:"parser_metadata"`
	Strategy          *Strategy         `json:"strategy,omitempty"`
	PayloadSHA256     string            `json:"payload_sha256,omitempty"`
	Payments          []PaymentRecord   `json:"payments"`
	ReasonCodes       []ReasonCode      `json:"reason_codes"`
	ConditionsMet     bool              `json:"conditions_met"`
	ExecutionTxRef    string            `json:"execution_tx_ref,omitempty"`
	TotalSpendUSDC    decimal.Decimal   `json:"total_spend_usdc"`
	Status            ReceiptStatus     `json:"status"`
	Timestamp         time.Time         `json:"timestamp"`
	ValidationErrors  []string          `json:"validation_errors,omitempty"`
	RiskViolations    []string          `json:"risk_violations,omitempty"`
}
