// Package ledger decides whether paid signals are worth buying and records an
// auditable reason for every decision.
package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"intent-trader/internal/models"
)

// Ledger tracks the remaining paid-signal budget for one run. Deciding to
// purchase does not debit the budget; the caller debits with RecordSpend once
// a purchase actually succeeds, so failed purchases never reduce it.
type Ledger struct {
	mu     sync.Mutex
	budget decimal.Decimal
	spent  decimal.Decimal
	codes  []models.ReasonCode
	now    func() time.Time
}

// New creates a ledger with the given budget.
func New(budgetUSDC decimal.Decimal) *Ledger {
	return &Ledger{
		budget: budgetUSDC,
		spent:  decimal.Zero,
		codes:  make([]models.ReasonCode, 0),
		now:    time.Now,
	}
}

// ShouldPurchase reports whether a paid call is affordable. Ties favor
// proceeding: spending exactly the remaining budget is allowed. One reason
// code is appended per call regardless of outcome.
func (l *Ledger) ShouldPurchase(tool string, costUSDC decimal.Decimal) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	remaining := l.budget.Sub(l.spent)
	proceed := costUSDC.LessThanOrEqual(remaining)

	decision := models.DecisionSkip
	justification := fmt.Sprintf("skip %s: cost %s USDC exceeds remaining budget %s USDC", tool, costUSDC.StringFixed(2), remaining.StringFixed(2))
	if proceed {
		decision = models.DecisionProceed
		justification = fmt.Sprintf("proceed with %s: cost %s USDC within remaining budget %s USDC", tool, costUSDC.StringFixed(2), remaining.StringFixed(2))
	}

	l.codes = append(l.codes, models.ReasonCode{
		Tool:                tool,
		CostUSDC:            costUSDC,
		BudgetRemainingUSDC: remaining,
		Decision:            decision,
		Justification:       justification,
		Timestamp:           l.now().UTC(),
	})

	return proceed
}

// RecordSpend debits the budget after a purchase actually succeeded.
func (l *Ledger) RecordSpend(amountUSDC decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.spent = l.spent.Add(amountUSDC)
}

// Remaining returns the budget left at this moment.
func (l *Ledger) Remaining() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.budget.Sub(l.spent)
}

// ReasonCodes returns a copy of the append-only decision log.
func (l *Ledger) ReasonCodes() []models.ReasonCode {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.ReasonCode, len(l.codes))
	copy(out, l.codes)
	return out
}
