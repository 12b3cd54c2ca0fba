package models

import "time"

// TradeStatus is the workflow-visible lifecycle status of a monitored trade.
// Statuses progress monotonically and never revert.
type TradeStatus string

const (
	TradePending    TradeStatus = "pending"
	TradeMonitoring TradeStatus = "monitoring"
	TradeExecuted   TradeStatus = "executed"
	TradeFailed     TradeStatus = "failed"
	TradeExpired    TradeStatus = "expired"
)

// statusRank orders trade statuses. Terminal statuses share the highest rank.
var statusRank = map[TradeStatus]int{
	TradePending:    0,
	TradeMonitoring: 1,
	TradeExecuted:   2,
	TradeFailed:     2,
	TradeExpired:    2,
}

// IsTerminal reports whether s is a terminal trade status.
func (s TradeStatus) IsTerminal() bool {
	return statusRank[s] == 2
}

// CanTransition reports whether a trade may move from s to next.
func (s TradeStatus) CanTransition(next TradeStatus) bool {
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to > from
}

// Trade is the workflow-visible wrapper around one monitored run.
type Trade struct {
	ID        string      `json:"id"`
	Prompt    string      `json:"prompt"`
	Pair      string      `json:"pair,omitempty"`
	IntentID  string      `json:"intent_id,omitempty"`
	Status    TradeStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}
