package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "intent-trader/internal/errors"
	"intent-trader/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "trader.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleReceipt(intentID string, status models.ReceiptStatus, pair string) *models.ExecutionReceipt {
	return &models.ExecutionReceipt{
		IntentID: intentID,
		Prompt:   "buy 100 USDC of ETH below 3000",
		Strategy: &models.Strategy{
			Pair:       pair,
			Conditions: []models.Condition{{Type: models.ConditionPriceBelow, Value: decimal.NewFromInt(3000)}},
			Actions:    []models.Action{{Type: models.ActionSwap, AmountUSDC: decimal.NewFromInt(100), Direction: models.DirectionBuy}},
			Controls:   models.Controls{MaxSlippageBps: 50, ApprovalMode: models.ApprovalAuto, ExpiresInMinutes: 60},
		},
		PayloadSHA256:  "deadbeef",
		Payments:       []models.PaymentRecord{},
		ReasonCodes:    []models.ReasonCode{},
		ConditionsMet:  status == models.ReceiptExecuted,
		TotalSpendUSDC: decimal.NewFromInt(100),
		Status:         status,
		Timestamp:      time.Now().UTC(),
	}
}

func TestReceiptRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	want := sampleReceipt("intent-1", models.ReceiptExecuted, "ETH/USDC")
	id, err := s.SaveReceipt(ctx, want)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := s.GetReceipt(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, want.IntentID, got.IntentID)
	assert.Equal(t, want.Status, got.Status)
	assert.Equal(t, want.Prompt, got.Prompt)
	assert.Equal(t, want.PayloadSHA256, got.PayloadSHA256)
	assert.True(t, got.TotalSpendUSDC.Equal(want.TotalSpendUSDC))
	require.NotNil(t, got.Strategy)
	assert.Equal(t, "ETH/USDC", got.Strategy.Pair)
}

func TestGetReceiptByIntent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.SaveReceipt(ctx, sampleReceipt("intent-a", models.ReceiptExecuted, "ETH/USDC"))
	require.NoError(t, err)
	_, err = s.SaveReceipt(ctx, sampleReceipt("intent-b", models.ReceiptExpired, "BTC/USDC"))
	require.NoError(t, err)

	got, err := s.GetReceiptByIntent(ctx, "intent-b")
	require.NoError(t, err)
	assert.Equal(t, models.ReceiptExpired, got.Status)
}

func TestGetReceiptNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetReceipt(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, dErrors.ErrReceiptNotFound)

	_, err = s.GetReceiptByIntent(context.Background(), "no-such-intent")
	assert.ErrorIs(t, err, dErrors.ErrReceiptNotFound)
}

func TestListReceiptsFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, r := range []*models.ExecutionReceipt{
		sampleReceipt("i1", models.ReceiptExecuted, "ETH/USDC"),
		sampleReceipt("i2", models.ReceiptExecuted, "BTC/USDC"),
		sampleReceipt("i3", models.ReceiptAborted, "ETH/USDC"),
	} {
		_, err := s.SaveReceipt(ctx, r)
		require.NoError(t, err)
	}

	all, err := s.ListReceipts(ctx, ReceiptFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	executed, err := s.ListReceipts(ctx, ReceiptFilter{Status: models.ReceiptExecuted})
	require.NoError(t, err)
	assert.Len(t, executed, 2)

	ethExecuted, err := s.ListReceipts(ctx, ReceiptFilter{Status: models.ReceiptExecuted, Pair: "ETH/USDC"})
	require.NoError(t, err)
	require.Len(t, ethExecuted, 1)
	assert.Equal(t, "i1", ethExecuted[0].Receipt.IntentID)

	limited, err := s.ListReceipts(ctx, ReceiptFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestTradeLifecyclePersistence(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	trade := &models.Trade{
		ID:        "trade-1",
		Prompt:    "buy 100 USDC of ETH",
		Pair:      "ETH/USDC",
		IntentID:  "intent-1",
		Status:    models.TradePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.SaveTrade(ctx, trade))

	require.NoError(t, s.UpdateTradeStatus(ctx, "trade-1", models.TradeMonitoring))
	require.NoError(t, s.UpdateTradeStatus(ctx, "trade-1", models.TradeExecuted))

	// Monotonic rule holds in the store too.
	err := s.UpdateTradeStatus(ctx, "trade-1", models.TradeMonitoring)
	assert.ErrorIs(t, err, dErrors.ErrInvalidTransition)

	got, err := s.GetTrade(ctx, "trade-1")
	require.NoError(t, err)
	assert.Equal(t, models.TradeExecuted, got.Status)
	assert.Equal(t, "intent-1", got.IntentID)
}

func TestUpdateTradeStatusUnknownTrade(t *testing.T) {
	s := newTestStore(t)

	err := s.UpdateTradeStatus(context.Background(), "missing", models.TradeMonitoring)
	assert.ErrorIs(t, err, dErrors.ErrTradeNotFound)
}

func TestListTradesFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	for i, status := range []models.TradeStatus{models.TradePending, models.TradeExpired, models.TradeExpired} {
		require.NoError(t, s.SaveTrade(ctx, &models.Trade{
			ID:        string(rune('a' + i)),
			Prompt:    "p",
			Pair:      "ETH/USDC",
			Status:    status,
			CreatedAt: now,
			UpdatedAt: now,
		}))
	}

	expired, err := s.ListTrades(ctx, TradeFilter{Status: models.TradeExpired})
	require.NoError(t, err)
	assert.Len(t, expired, 2)

	all, err := s.ListTrades(ctx, TradeFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
