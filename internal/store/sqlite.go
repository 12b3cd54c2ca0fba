// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	dErrors "intent-trader/internal/errors"
	"intent-trader/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Receipts table; full receipt kept as a JSON document, filterable
	-- columns denormalized alongside it.
	CREATE TABLE IF NOT EXISTS receipts (
		id TEXT PRIMARY KEY,
		intent_id TEXT,
		status TEXT NOT NULL,
		pair TEXT,
		prompt TEXT NOT NULL,
		conditions_met INTEGER NOT NULL,
		total_spend_usdc TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		document TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_receipts_intent ON receipts(intent_id);
	CREATE INDEX IF NOT EXISTS idx_receipts_status ON receipts(status);

	-- Trade lifecycle table
	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		prompt TEXT NOT NULL,
		pair TEXT,
		intent_id TEXT,
		status TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_trades_status ON trades(status);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveReceipt persists a receipt and returns its store-assigned ID. Receipts
// are write-once: there is no update path.
func (s *SQLiteStore) SaveReceipt(ctx context.Context, receipt *models.ExecutionReceipt) (string, error) {
	document, err := json.Marshal(receipt)
	if err != nil {
		return "", fmt.Errorf("serializing receipt: %w", err)
	}

	id := uuid.NewString()
	pair := ""
	if receipt.Strategy != nil {
		pair = receipt.Strategy.Pair
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO receipts (id, intent_id, status, pair, prompt, conditions_met, total_spend_usdc, timestamp, document)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, receipt.IntentID, string(receipt.Status), pair, receipt.Prompt,
		boolToInt(receipt.ConditionsMet), receipt.TotalSpendUSDC.String(), receipt.Timestamp, string(document),
	)
	if err != nil {
		return "", fmt.Errorf("inserting receipt: %w", err)
	}
	return id, nil
}

// GetReceipt retrieves a receipt by store ID.
func (s *SQLiteStore) GetReceipt(ctx context.Context, id string) (*models.ExecutionReceipt, error) {
	return s.queryReceipt(ctx, `SELECT document FROM receipts WHERE id = ?`, id)
}

// GetReceiptByIntent retrieves a receipt by intent ID.
func (s *SQLiteStore) GetReceiptByIntent(ctx context.Context, intentID string) (*models.ExecutionReceipt, error) {
	return s.queryReceipt(ctx, `SELECT document FROM receipts WHERE intent_id = ? ORDER BY created_at DESC LIMIT 1`, intentID)
}

func (s *SQLiteStore) queryReceipt(ctx context.Context, query string, arg interface{}) (*models.ExecutionReceipt, error) {
	var document string
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&document)
	if err == sql.ErrNoRows {
		return nil, dErrors.ErrReceiptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying receipt: %w", err)
	}

	receipt := &models.ExecutionReceipt{}
	if err := json.Unmarshal([]byte(document), receipt); err != nil {
		return nil, fmt.Errorf("parsing receipt: %w", err)
	}
	return receipt, nil
}

// ListReceipts retrieves receipts matching the filter, newest first.
func (s *SQLiteStore) ListReceipts(ctx context.Context, filter ReceiptFilter) ([]StoredReceipt, error) {
	query := `SELECT id, document FROM receipts`
	conditions := []string{}
	args := []interface{}{}

	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Pair != "" {
		conditions = append(conditions, "pair = ?")
		args = append(args, filter.Pair)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying receipts: %w", err)
	}
	defer rows.Close()

	out := []StoredReceipt{}
	for rows.Next() {
		var id, document string
		if err := rows.Scan(&id, &document); err != nil {
			return nil, fmt.Errorf("scanning receipt: %w", err)
		}
		receipt := &models.ExecutionReceipt{}
		if err := json.Unmarshal([]byte(document), receipt); err != nil {
			return nil, fmt.Errorf("parsing receipt %s: %w", id, err)
		}
		out = append(out, StoredReceipt{ID: id, Receipt: receipt})
	}
	return out, rows.Err()
}

// SaveTrade inserts or replaces a trade row.
func (s *SQLiteStore) SaveTrade(ctx context.Context, trade *models.Trade) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO trades (id, prompt, pair, intent_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		trade.ID, trade.Prompt, trade.Pair, trade.IntentID, string(trade.Status), trade.CreatedAt, trade.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving trade: %w", err)
	}
	return nil
}

// UpdateTradeStatus advances a persisted trade's status. The monotonic
// transition rule is enforced before writing.
func (s *SQLiteStore) UpdateTradeStatus(ctx context.Context, id string, status models.TradeStatus) error {
	current, err := s.GetTrade(ctx, id)
	if err != nil {
		return err
	}
	if !current.Status.CanTransition(status) {
		return dErrors.Wrapf(dErrors.ErrInvalidTransition, "%s -> %s", current.Status, status)
	}

	_, err = s.db.ExecContext(ctx, `UPDATE trades SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating trade status: %w", err)
	}
	return nil
}

// GetTrade retrieves a trade by ID.
func (s *SQLiteStore) GetTrade(ctx context.Context, id string) (*models.Trade, error) {
	t := &models.Trade{}
	var status string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, prompt, pair, intent_id, status, created_at, updated_at FROM trades WHERE id = ?`, id).
		Scan(&t.ID, &t.Prompt, &t.Pair, &t.IntentID, &status, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, dErrors.ErrTradeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying trade: %w", err)
	}
	t.Status = models.TradeStatus(status)
	return t, nil
}

// ListTrades retrieves trades matching the filter, newest first.
func (s *SQLiteStore) ListTrades(ctx context.Context, filter TradeFilter) ([]models.Trade, error) {
	query := `SELECT id, prompt, pair, intent_id, status, created_at, updated_at FROM trades`
	conditions := []string{}
	args := []interface{}{}

	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Pair != "" {
		conditions = append(conditions, "pair = ?")
		args = append(args, filter.Pair)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying trades: %w", err)
	}
	defer rows.Close()

	out := []models.Trade{}
	for rows.Next() {
		t := models.Trade{}
		var status string
		if err := rows.Scan(&t.ID, &t.Prompt, &t.Pair, &t.IntentID, &status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning trade: %w", err)
		}
		t.Status = models.TradeStatus(status)
		out = append(out, t)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
