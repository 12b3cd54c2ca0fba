// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"intent-trader/internal/models"
)

// DataStore defines the interface for receipt and trade persistence.
type DataStore interface {
	// Receipts
	SaveReceipt(ctx context.Context, receipt *models.ExecutionReceipt) (string, error)
	GetReceipt(ctx context.Context, id string) (*models.ExecutionReceipt, error)
	GetReceiptByIntent(ctx context.Context, intentID string) (*models.ExecutionReceipt, error)
	ListReceipts(ctx context.Context, filter ReceiptFilter) ([]StoredReceipt, error)

	// Trades
	SaveTrade(ctx context.Context, trade *models.Trade) error
	UpdateTradeStatus(ctx context.Context, id string, status models.TradeStatus) error
	GetTrade(ctx context.Context, id string) (*models.Trade, error)
	ListTrades(ctx context.Context, filter TradeFilter) ([]models.Trade, error)

	// Lifecycle
	Close() error
}

// StoredReceipt pairs a persisted receipt with its store-assigned ID.
type StoredReceipt struct {
	ID      string
	Receipt *models.ExecutionReceipt
}

// ReceiptFilter represents filters for querying receipts.
type ReceiptFilter struct {
	Status models.ReceiptStatus
	Pair   string
	Limit  int
}

// TradeFilter represents filters for querying trades.
type TradeFilter struct {
	Status models.TradeStatus
	Pair   string
	Limit  int
}
