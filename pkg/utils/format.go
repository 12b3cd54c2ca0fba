// Package utils provides shared formatting helpers for terminal output.
package utils

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// FormatUSDC formats a USDC amount to two decimals with the unit suffix.
func FormatUSDC(amount decimal.Decimal) string {
	return amount.StringFixed(2) + " USDC"
}

// FormatBps formats basis points with their percentage equivalent.
func FormatBps(bps int) string {
	return fmt.Sprintf("%d bps (%.2f%%)", bps, float64(bps)/100)
}

// ShortID returns a truncated identifier for list display.
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// FormatTimestamp formats a timestamp for terminal display.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// OrDash substitutes a dash for an empty display value.
func OrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
