// Package receipt assembles the immutable audit record of a workflow run.
package receipt

import (
	"time"

	"github.com/shopspring/decimal"

	"intent-trader/internal/bite"
	"intent-trader/internal/models"
)

// Params carries every intermediate artifact a receipt is built from.
type Params struct {
	IntentID          string
	Prompt            string
	ParserExplanation string
	ParserRiskNotes   []string
	ParserMetadata    models.ParserMetadata
	Strategy          *models.Strategy
	Intent            *models.EncryptedIntent
	Payments          []models.PaymentRecord
	ReasonCodes       []models.ReasonCode
	ConditionsMet     bool
	ExecutionTxRef    string
	TotalSpendUSDC    decimal.Decimal
	Status            models.ReceiptStatus
	ValidationErrors  []string
	RiskViolations    []string
}

// Build constructs a receipt with a server-assigned timestamp. The encrypted
// payload is stored only as its sha256 hash, never the payload itself.
func Build(p Params) *models.ExecutionReceipt {
	r := &models.ExecutionReceipt{
		IntentID:          p.IntentID,
		Prompt:            p.Prompt,
		ParserExplanation: p.ParserExplanation,
		ParserRiskNotes:   copyStrings(p.ParserRiskNotes),
		ParserMetadata:    p.ParserMetadata,
		Payments:          copyPayments(p.Payments),
		ReasonCodes:       copyReasonCodes(p.ReasonCodes),
		ConditionsMet:     p.ConditionsMet,
		ExecutionTxRef:    p.ExecutionTxRef,
		TotalSpendUSDC:    p.TotalSpendUSDC,
		Status:            p.Status,
		Timestamp:         time.Now().UTC(),
		ValidationErrors:  copyStrings(p.ValidationErrors),
		RiskViolations:    copyStrings(p.RiskViolations),
	}
	if p.Strategy != nil {
		r.Strategy = p.Strategy.Clone()
	}
	if p.Intent != nil {
		r.PayloadSHA256 = bite.PayloadSHA256(p.Intent)
	}
	return r
}

func copyStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func copyPayments(in []models.PaymentRecord) []models.PaymentRecord {
	if in == nil {
		return []models.PaymentRecord{}
	}
	out := make([]models.PaymentRecord, len(in))
	copy(out, in)
	return out
}

func copyReasonCodes(in []models.ReasonCode) []models.ReasonCode {
	if in == nil {
		return []models.ReasonCode{}
	}
	out := make([]models.ReasonCode, len(in))
	copy(out, in)
	return out
}
