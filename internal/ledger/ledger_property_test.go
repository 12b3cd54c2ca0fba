package ledger

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"

	"intent-trader/internal/models"
)

// Property: for any sequence of purchase decisions, a decision proceeds
// exactly when its cost fits the remaining budget, remaining never goes
// negative when only approved purchases are debited, and the reason-code
// count equals the decision count.
func TestProperty_BudgetNeverOverdrawn(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("Approved purchases never overdraw the budget", prop.ForAll(
		func(budget float64, costs []float64) bool {
			l := New(decimal.NewFromFloat(budget))

			for _, c := range costs {
				cost := decimal.NewFromFloat(c)
				remainingBefore := l.Remaining()
				proceed := l.ShouldPurchase("tool", cost)

				if proceed != cost.LessThanOrEqual(remainingBefore) {
					return false
				}
				if proceed {
					l.RecordSpend(cost)
				}
			}

			if l.Remaining().IsNegative() {
				return false
			}
			return len(l.ReasonCodes()) == len(costs)
		},
		gen.Float64Range(0, 100),
		gen.SliceOf(gen.Float64Range(0.01, 30)),
	))

	properties.Property("Skipped purchases leave the budget untouched", prop.ForAll(
		func(budget float64, excess float64) bool {
			b := decimal.NewFromFloat(budget)
			l := New(b)

			cost := b.Add(decimal.NewFromFloat(excess))
			if l.ShouldPurchase("tool", cost) {
				return false
			}

			codes := l.ReasonCodes()
			return l.Remaining().Equal(b) &&
				len(codes) == 1 &&
				codes[0].Decision == models.DecisionSkip
		},
		gen.Float64Range(0, 100),
		gen.Float64Range(0.01, 50),
	))

	properties.TestingRun(t)
}
