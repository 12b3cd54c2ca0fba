// Package audit provides an append-only audit trail for workflow events.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// EventType represents the type of audit event.
type EventType string

const (
	// Pipeline events
	EventStrategyParsed    EventType = "STRATEGY_PARSED"
	EventStrategyValidated EventType = "STRATEGY_VALIDATED"
	EventStrategyRejected  EventType = "STRATEGY_REJECTED"
	EventIntentSealed      EventType = "INTENT_SEALED"
	EventIntentOpened      EventType = "INTENT_OPENED"
	EventRiskRejected      EventType = "RISK_REJECTED"

	// Monitoring events
	EventMonitoringStarted EventType = "MONITORING_STARTED"
	EventConditionsMet     EventType = "CONDITIONS_MET"
	EventConditionsNotMet  EventType = "CONDITIONS_NOT_MET"

	// Payment events
	EventPaymentAttempted EventType = "PAYMENT_ATTEMPTED"
	EventPaymentFailed    EventType = "PAYMENT_FAILED"
	EventPurchaseSkipped  EventType = "PURCHASE_SKIPPED"

	// Terminal events
	EventTradeExecuted  EventType = "TRADE_EXECUTED"
	EventTradeAborted   EventType = "TRADE_ABORTED"
	EventTradeExpired   EventType = "TRADE_EXPIRED"
	EventTradeCancelled EventType = "TRADE_CANCELLED"
)

// Event represents a single audit log entry.
type Event struct {
	Timestamp time.Time              `json:"timestamp"`
	EventType EventType              `json:"event_type"`
	RunID     string                 `json:"run_id,omitempty"`
	IntentID  string                 `json:"intent_id,omitempty"`
	Pair      string                 `json:"pair,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Success   bool                   `json:"success"`
	ErrorMsg  string                 `json:"error,omitempty"`
}

// Config holds audit logger configuration.
type Config struct {
	LogDir     string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

// DefaultConfig returns the default audit configuration.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		LogDir:     filepath.Join(home, ".config", "intent-trader", "audit"),
		MaxSize:    50,
		MaxBackups: 30,
		MaxAge:     365,
		Compress:   true,
	}
}

// Logger handles append-only audit logging of workflow events.
type Logger struct {
	writer *lumberjack.Logger
	mu     sync.Mutex
}

// NewLogger creates a new audit logger.
func NewLogger(cfg Config) (*Logger, error) {
	// Audit directory gets restricted permissions
	if err := os.MkdirAll(cfg.LogDir, 0700); err != nil {
		return nil, fmt.Errorf("creating audit directory: %w", err)
	}

	writer := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.LogDir, "audit.log"),
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	return &Logger{writer: writer}, nil
}

// Log writes one audit event as a JSON line.
func (l *Logger) Log(event Event) error {
	if l == nil {
		return nil
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("serializing audit event: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing audit event: %w", err)
	}
	return nil
}

// LogStage records a workflow stage event.
func (l *Logger) LogStage(eventType EventType, runID, intentID, pair string, success bool, details map[string]interface{}) {
	if l == nil {
		return
	}
	// Audit write failures must not take down the pipeline.
	_ = l.Log(Event{
		EventType: eventType,
		RunID:     runID,
		IntentID:  intentID,
		Pair:      pair,
		Success:   success,
		Details:   details,
	})
}

// Close closes the underlying writer.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	return l.writer.Close()
}
