package workflow

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"

	"intent-trader/internal/audit"
	dErrors "intent-trader/internal/errors"
	"intent-trader/internal/ledger"
	"intent-trader/internal/models"
	"intent-trader/internal/x402"
)

// SignalSession bundles the per-run paid-data client and reasoning ledger. A
// condition checker uses it to buy paid signals while monitoring; the
// workflow folds its records into the run's receipt.
type SignalSession struct {
	signer   x402.PaymentSigner
	ledger   *ledger.Ledger
	payments *x402.Client
	audit    *audit.Logger
	runID    string
}

func newSignalSession(signer x402.PaymentSigner, l *ledger.Ledger, c *x402.Client, auditLog *audit.Logger, runID string) *SignalSession {
	return &SignalSession{
		signer:   signer,
		ledger:   l,
		payments: c,
		audit:    auditLog,
		runID:    runID,
	}
}

// FetchSignal buys one paid signal: decide against the budget, pay the 402
// challenge, debit only after the fetch succeeded. A payment retry failure
// propagates and fails the run closed; it is never downgraded to a skip.
func (s *SignalSession) FetchSignal(ctx context.Context, toolURL string, costUSDC decimal.Decimal) (json.RawMessage, error) {
	if !s.ledger.ShouldPurchase(toolURL, costUSDC) {
		s.audit.LogStage(audit.EventPurchaseSkipped, s.runID, "", "", true, map[string]interface{}{
			"tool": toolURL, "cost_usdc": costUSDC.StringFixed(2),
		})
		return nil, dErrors.Wrapf(dErrors.ErrBudgetExhausted, "tool %s costs %s USDC", toolURL, costUSDC.StringFixed(2))
	}

	if s.signer == nil {
		return nil, dErrors.NewUpstreamError("payment-signer", "sign payment", dErrors.ErrConfigInvalid)
	}

	s.audit.LogStage(audit.EventPaymentAttempted, s.runID, "", "", true, map[string]interface{}{
		"tool": toolURL, "cost_usdc": costUSDC.StringFixed(2),
	})
	data, err := s.payments.FetchWithPayment(ctx, toolURL, s.signer, costUSDC)
	if err != nil {
		s.audit.LogStage(audit.EventPaymentFailed, s.runID, "", "", false, map[string]interface{}{
			"tool": toolURL, "error": err.Error(),
		})
		return nil, err
	}

	s.ledger.RecordSpend(costUSDC)
	return data, nil
}

// BudgetRemaining returns the paid-signal budget left in this run.
func (s *SignalSession) BudgetRemaining() decimal.Decimal {
	return s.ledger.Remaining()
}

// PaymentRecords returns a copy of the run's payment ledger.
func (s *SignalSession) PaymentRecords() []models.PaymentRecord {
	return s.payments.Records()
}

// ReasonCodes returns a copy of the run's purchase decision log.
func (s *SignalSession) ReasonCodes() []models.ReasonCode {
	return s.ledger.ReasonCodes()
}

// TotalSignalSpend returns what this run actually paid for signals.
func (s *SignalSession) TotalSignalSpend() decimal.Decimal {
	return s.payments.TotalSpent()
}
