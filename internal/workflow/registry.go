package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	dErrors "intent-trader/internal/errors"
	"intent-trader/internal/models"
)

// Registry is the in-memory table of monitored trades. All access is
// serialized; statuses only ever move forward.
type Registry struct {
	mu     sync.RWMutex
	trades map[string]*models.Trade
}

// NewRegistry creates an empty trade registry.
func NewRegistry() *Registry {
	return &Registry{trades: make(map[string]*models.Trade)}
}

// Register creates a new pending trade for a prompt.
func (r *Registry) Register(prompt string) models.Trade {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	t := &models.Trade{
		ID:        uuid.NewString(),
		Prompt:    prompt,
		Status:    models.TradePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.trades[t.ID] = t
	return *t
}

// UpdateStatus advances a trade's status. Reverting to an earlier status is
// an error.
func (r *Registry) UpdateStatus(id string, status models.TradeStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.trades[id]
	if !ok {
		return dErrors.ErrTradeNotFound
	}
	if !t.Status.CanTransition(status) {
		return dErrors.Wrapf(dErrors.ErrInvalidTransition, "%s -> %s", t.Status, status)
	}
	t.Status = status
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// AttachIntent records the intent produced for a trade.
func (r *Registry) AttachIntent(id, intentID, pair string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.trades[id]
	if !ok {
		return dErrors.ErrTradeNotFound
	}
	t.IntentID = intentID
	t.Pair = pair
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// Cancel stops further progress on a monitored trade. It is coarse: the trade
// is marked expired and neither decryption nor execution will run for it.
// Cancelling a trade that already reached a terminal status is an error.
func (r *Registry) Cancel(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.trades[id]
	if !ok {
		return dErrors.ErrTradeNotFound
	}
	if t.Status.IsTerminal() {
		return dErrors.Wrapf(dErrors.ErrInvalidTransition, "trade %s is already %s", id, t.Status)
	}
	t.Status = models.TradeExpired
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// Get returns a copy of a trade.
func (r *Registry) Get(id string) (models.Trade, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.trades[id]
	if !ok {
		return models.Trade{}, dErrors.ErrTradeNotFound
	}
	return *t, nil
}

// List returns copies of all trades.
func (r *Registry) List() []models.Trade {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Trade, 0, len(r.trades))
	for _, t := range r.trades {
		out = append(out, *t)
	}
	return out
}

func (r *Registry) status(id string) models.TradeStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if t, ok := r.trades[id]; ok {
		return t.Status
	}
	return ""
}

// RunMonitored runs a prompt with its lifecycle tracked in the registry. If
// the trade is cancelled while the condition checker is out, the run expires
// without ever invoking decryption or execution.
func (h *Handler) RunMonitored(ctx context.Context, userPrompt string, checker ConditionChecker, reg *Registry) (models.Trade, *RunResult, error) {
	trade := reg.Register(userPrompt)

	wrapped := CheckerFunc(func(ctx context.Context, s *models.Strategy, signals *SignalSession) (bool, error) {
		if err := reg.UpdateStatus(trade.ID, models.TradeMonitoring); err != nil {
			// Already cancelled before monitoring began.
			return false, nil
		}
		met, err := checker.CheckConditions(ctx, s, signals)
		if err != nil {
			return false, err
		}
		if reg.status(trade.ID) == models.TradeExpired {
			// Cancelled mid-monitoring; do not proceed to decryption.
			return false, nil
		}
		return met, nil
	})

	result, err := h.Run(ctx, userPrompt, wrapped)
	if err != nil {
		_ = reg.UpdateStatus(trade.ID, models.TradeFailed)
		return trade, nil, err
	}

	if result.Intent != nil {
		_ = reg.AttachIntent(trade.ID, result.Intent.IntentID, result.Intent.PublicMetadata.Pair)
	}

	switch result.Receipt.Status {
	case models.ReceiptExecuted:
		_ = reg.UpdateStatus(trade.ID, models.TradeExecuted)
	case models.ReceiptExpired:
		_ = reg.UpdateStatus(trade.ID, models.TradeExpired)
	default:
		_ = reg.UpdateStatus(trade.ID, models.TradeFailed)
	}

	trade, _ = reg.Get(trade.ID)
	return trade, result, nil
}
