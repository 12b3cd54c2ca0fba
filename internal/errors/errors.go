// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrNotImplemented    = errors.New("live execution not implemented")
	ErrNoActions         = errors.New("strategy has no actions")
	ErrIntentTampered    = errors.New("intent authorization hash mismatch")
	ErrBudgetExhausted   = errors.New("signal budget exhausted")
	ErrTradeNotFound     = errors.New("trade not found")
	ErrReceiptNotFound   = errors.New("receipt not found")
	ErrInvalidTransition = errors.New("invalid trade status transition")
	ErrConfigInvalid     = errors.New("invalid configuration")
)

// SchemaError represents a structural violation in an untrusted strategy.
type SchemaError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema violation: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewSchemaError creates a new SchemaError.
func NewSchemaError(field string, value interface{}, message string) *SchemaError {
	return &SchemaError{Field: field, Value: value, Message: message}
}

// PolicyError represents a hard-limit policy breach.
type PolicyError struct {
	Rule    string
	Current string
	Limit   string
	Message string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("policy violation [%s]: %s (current: %s, limit: %s)", e.Rule, e.Message, e.Current, e.Limit)
}

// NewPolicyError creates a new PolicyError.
func NewPolicyError(rule, current, limit, message string) *PolicyError {
	return &PolicyError{Rule: rule, Current: current, Limit: limit, Message: message}
}

// AuthError represents an authenticated-decryption failure. It is always
// fatal, never retried, and never carries partial plaintext.
type AuthError struct {
	IntentID string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failure [%s]: %v", e.IntentID, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// NewAuthError creates a new AuthError.
func NewAuthError(intentID string, err error) *AuthError {
	return &AuthError{IntentID: intentID, Err: err}
}

// PaymentError represents a failed paid-tool payment retry.
type PaymentError struct {
	Tool   string
	TxRef  string
	Reason string
	Err    error
}

func (e *PaymentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("payment failure [%s] tx %s: %s: %v", e.Tool, e.TxRef, e.Reason, e.Err)
	}
	return fmt.Sprintf("payment failure [%s] tx %s: %s", e.Tool, e.TxRef, e.Reason)
}

func (e *PaymentError) Unwrap() error {
	return e.Err
}

// NewPaymentError creates a new PaymentError.
func NewPaymentError(tool, txRef, reason string, err error) *PaymentError {
	return &PaymentError{Tool: tool, TxRef: txRef, Reason: reason, Err: err}
}

// UpstreamError represents a failure from an external collaborator
// (parser endpoint, paid tool, payment signer).
type UpstreamError struct {
	Service   string
	Operation string
	Err       error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error [%s] %s: %v", e.Service, e.Operation, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// NewUpstreamError creates a new UpstreamError.
func NewUpstreamError(service, operation string, err error) *UpstreamError {
	return &UpstreamError{Service: service, Operation: operation, Err: err}
}

// ExecutionError represents an execution-stage failure. It is captured in the
// receipt status rather than thrown across the workflow boundary.
type ExecutionError struct {
	Pair    string
	Message string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution error [%s]: %s", e.Pair, e.Message)
}

// NewExecutionError creates a new ExecutionError.
func NewExecutionError(pair, message string) *ExecutionError {
	return &ExecutionError{Pair: pair, Message: message}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
