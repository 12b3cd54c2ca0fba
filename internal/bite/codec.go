// Package bite seals validated strategies into authenticated ciphertext
// envelopes and reverses the transform under the same key.
package bite

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	dErrors "intent-trader/internal/errors"
	"intent-trader/internal/models"
)

const (
	// KeySize is the size of the AES-256 key in bytes.
	KeySize = 32
	// NonceSize is the size of the GCM nonce.
	NonceSize = 12
	// TagSize is the size of the GCM authentication tag.
	TagSize = 16
)

// Codec seals and opens encrypted intents. It holds exactly one symmetric key
// for its lifetime; an intent sealed by one codec can only be opened by a
// codec holding the same key.
type Codec struct {
	key []byte
	now func() time.Time
}

// NewCodec creates a codec with a fresh random key.
func NewCodec() (*Codec, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("generating key: %w", err)
	}
	return NewCodecWithKey(key)
}

// NewCodecWithKey creates a codec with the given 32-byte key.
func NewCodecWithKey(key []byte) (*Codec, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", KeySize, len(key))
	}
	k := make([]byte, KeySize)
	copy(k, key)
	return &Codec{key: k, now: time.Now}, nil
}

// Encrypt seals a validated strategy into an encrypted intent. The nonce and
// the intent ID are freshly random per call and never derived from strategy
// content, so two encryptions of the same strategy never correlate.
func (c *Codec) Encrypt(s *models.Strategy) (*models.EncryptedIntent, error) {
	if s == nil {
		return nil, fmt.Errorf("strategy is required")
	}

	plaintext, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("serializing strategy: %w", err)
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}

	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	ciphertext := sealed[:len(sealed)-TagSize]
	tag := sealed[len(sealed)-TagSize:]

	intentID := uuid.NewString()
	now := c.now().UTC()

	intent := &models.EncryptedIntent{
		IntentID:         intentID,
		EncryptedPayload: hex.EncodeToString(ciphertext),
		IV:               hex.EncodeToString(nonce),
		AuthTag:          hex.EncodeToString(tag),
		PublicMetadata: models.PublicMetadata{
			IntentID:          intentID,
			BudgetCapUSDC:     s.TotalSpendUSDC(),
			Pair:              s.Pair,
			ExpiresAt:         now.Add(time.Duration(s.Controls.ExpiresInMinutes) * time.Minute),
			AuthorizationHash: authorizationHash(intentID, ciphertext),
		},
		CreatedAt: now,
	}
	return intent, nil
}

// Decrypt authenticates and opens an encrypted intent. Any tag mismatch or
// tampering with the intent ID or ciphertext fails closed; decryption never
// partially succeeds.
func (c *Codec) Decrypt(intent *models.EncryptedIntent) (*models.Strategy, error) {
	if intent == nil {
		return nil, fmt.Errorf("intent is required")
	}

	ciphertext, err := hex.DecodeString(intent.EncryptedPayload)
	if err != nil {
		return nil, dErrors.NewAuthError(intent.IntentID, fmt.Errorf("decoding payload: %w", err))
	}
	nonce, err := hex.DecodeString(intent.IV)
	if err != nil {
		return nil, dErrors.NewAuthError(intent.IntentID, fmt.Errorf("decoding iv: %w", err))
	}
	tag, err := hex.DecodeString(intent.AuthTag)
	if err != nil {
		return nil, dErrors.NewAuthError(intent.IntentID, fmt.Errorf("decoding auth tag: %w", err))
	}
	if len(nonce) != NonceSize || len(tag) != TagSize {
		return nil, dErrors.NewAuthError(intent.IntentID, fmt.Errorf("malformed iv or auth tag"))
	}

	if authorizationHash(intent.IntentID, ciphertext) != intent.PublicMetadata.AuthorizationHash {
		return nil, dErrors.NewAuthError(intent.IntentID, dErrors.ErrIntentTampered)
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}

	sealed := append(append([]byte{}, ciphertext...), tag...)
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, dErrors.NewAuthError(intent.IntentID, fmt.Errorf("authentication tag mismatch: %w", err))
	}

	s := &models.Strategy{}
	if err := json.Unmarshal(plaintext, s); err != nil {
		return nil, dErrors.NewAuthError(intent.IntentID, fmt.Errorf("parsing strategy: %w", err))
	}
	return s, nil
}

// PayloadSHA256 returns the sha256 hash of an intent's encrypted payload as
// it appears on receipts.
func PayloadSHA256(intent *models.EncryptedIntent) string {
	sum := sha256.Sum256([]byte(intent.EncryptedPayload))
	return hex.EncodeToString(sum[:])
}

// authorizationHash binds an intent ID to the ciphertext bytes so tampering
// with either is detectable before decryption runs.
func authorizationHash(intentID string, ciphertext []byte) string {
	h := sha256.New()
	h.Write([]byte(intentID))
	h.Write(ciphertext)
	return hex.EncodeToString(h.Sum(nil))
}
