// Package execution provides the strategy execution stub.
package execution

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	dErrors "intent-trader/internal/errors"
	"intent-trader/internal/models"
)

// Result is the outcome of one execution attempt. Failures are carried in the
// result rather than returned as errors; the workflow folds them into the
// receipt status.
type Result struct {
	Success bool   `json:"success"`
	TxRef   string `json:"tx_ref,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Executor executes decrypted strategies. Only simulation mode is
// implemented; live DEX execution is an external concern.
type Executor struct {
	simulate bool
}

// NewExecutor creates a new executor.
func NewExecutor(simulate bool) *Executor {
	return &Executor{simulate: simulate}
}

// Execute runs a decrypted strategy. In simulation mode the transaction
// reference is a hash of the strategy content salted with fresh randomness,
// so two executions of an identical strategy never share a reference.
func (e *Executor) Execute(ctx context.Context, s *models.Strategy) Result {
	if s == nil || len(s.Actions) == 0 {
		return Result{Success: false, Error: dErrors.ErrNoActions.Error()}
	}
	for i, a := range s.Actions {
		if a.Type != models.ActionSwap {
			return Result{Success: false, Error: dErrors.NewExecutionError(s.Pair, fmt.Sprintf("actions[%d]: unsupported action type %q", i, a.Type)).Error()}
		}
	}

	if !e.simulate {
		return Result{Success: false, Error: dErrors.ErrNotImplemented.Error()}
	}

	ref, err := simulatedTxRef(s)
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	return Result{Success: true, TxRef: ref}
}

func simulatedTxRef(s *models.Strategy) (string, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("serializing strategy: %w", err)
	}

	salt := make([]byte, 8)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	h := sha256.New()
	h.Write(payload)
	h.Write(salt)
	return "sim-" + hex.EncodeToString(h.Sum(nil))[:32], nil
}
