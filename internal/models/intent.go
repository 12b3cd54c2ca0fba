package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PublicMetadata is the non-secret envelope of an encrypted intent. Only the
// pair and the pre-aggregated budget cap are intentionally public; per-condition
// thresholds and per-action amounts stay inside the ciphertext.
type PublicMetadata struct {
	IntentID          string          `json:"intent_id"`
	BudgetCapUSDC     decimal.Decimal `json:"budget_cap_usdc"`
	Pair              string          `json:"pair"`
	ExpiresAt         time.Time       `json:"expires_at"`
	AuthorizationHash string          `json:"authorization_hash"`
}

// EncryptedIntent is an opaque, authenticated wrapper around a sealed strategy.
// Payload, IV and auth tag are hex-encoded.
type EncryptedIntent struct {
	IntentID         string         `json:"intent_id"`
	EncryptedPayload string         `json:"encrypted_payload"`
	IV               string         `json:"iv"`
	AuthTag          string         `json:"auth_tag"`
	PublicMetadata   PublicMetadata `json:"public_metadata"`
	CreatedAt        time.Time      `json:"created_at"`
}
