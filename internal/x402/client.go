// Package x402 implements the HTTP 402 challenge/pay/retry protocol for
// metered data tools.
package x402

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	dErrors "intent-trader/internal/errors"
	"intent-trader/internal/models"
)

// PaymentHeader carries the proof-of-payment transaction reference on the
// post-payment retry.
const PaymentHeader = "X-Payment"

// PaymentSigner signs a payment for the given amount and returns a
// transaction reference. The actual signer is an external collaborator.
type PaymentSigner interface {
	SignPayment(ctx context.Context, amountUSDC decimal.Decimal) (string, error)
}

// SignerFunc adapts a function to the PaymentSigner interface.
type SignerFunc func(ctx context.Context, amountUSDC decimal.Decimal) (string, error)

// SignPayment implements PaymentSigner.
func (f SignerFunc) SignPayment(ctx context.Context, amountUSDC decimal.Decimal) (string, error) {
	return f(ctx, amountUSDC)
}

// Client executes paid-tool fetches and keeps an append-only ledger of every
// payment attempt. Ledgers are per run, never shared across runs.
type Client struct {
	http    *resty.Client
	mu      sync.Mutex
	records []models.PaymentRecord
	now     func() time.Time
}

// NewClient creates a new paid-data client.
func NewClient(timeout time.Duration) *Client {
	httpClient := resty.New()
	httpClient.SetTimeout(timeout)
	return &Client{
		http:    httpClient,
		records: make([]models.PaymentRecord, 0),
		now:     time.Now,
	}
}

// FetchWithPayment fetches a paid tool, paying the 402 challenge if one is
// issued. A successful payment leaves a success record; a payment whose retry
// fails leaves a failed record and raises a payment error. A first request
// that fails for any reason other than payment-required records nothing,
// because no payment was ever attempted.
func (c *Client) FetchWithPayment(ctx context.Context, toolURL string, signer PaymentSigner, costUSDC decimal.Decimal) (json.RawMessage, error) {
	resp, err := c.http.R().SetContext(ctx).Get(toolURL)
	if err != nil {
		return nil, dErrors.NewUpstreamError("paid-tool", "fetch "+toolURL, err)
	}

	if resp.StatusCode() != http.StatusPaymentRequired {
		if !resp.IsSuccess() {
			return nil, dErrors.NewUpstreamError("paid-tool", "fetch "+toolURL, fmt.Errorf("unexpected status %d", resp.StatusCode()))
		}
		return resp.Body(), nil
	}

	txRef, err := signer.SignPayment(ctx, costUSDC)
	if err != nil {
		return nil, dErrors.NewUpstreamError("payment-signer", "sign payment", err)
	}

	// Tentative success record; flipped to failed if the retry does not land.
	idx := c.append(models.PaymentRecord{
		Tool:      toolURL,
		CostUSDC:  costUSDC,
		TxRef:     txRef,
		Timestamp: c.now().UTC(),
		Status:    models.PaymentSuccess,
	})

	retry, err := c.http.R().SetContext(ctx).SetHeader(PaymentHeader, txRef).Get(toolURL)
	if err != nil {
		c.markFailed(idx)
		return nil, dErrors.NewPaymentError(toolURL, txRef, "retry after payment failed", err)
	}
	if !retry.IsSuccess() {
		c.markFailed(idx)
		return nil, dErrors.NewPaymentError(toolURL, txRef, fmt.Sprintf("retry after payment returned status %d", retry.StatusCode()), nil)
	}

	return retry.Body(), nil
}

// Records returns a copy of the payment ledger. Failed attempts are retained;
// they must stay auditable.
func (c *Client) Records() []models.PaymentRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.PaymentRecord, len(c.records))
	copy(out, c.records)
	return out
}

// TotalSpent returns the sum of cost over successful payments only. Failed
// attempts cost nothing.
func (c *Client) TotalSpent() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := decimal.Zero
	for _, r := range c.records {
		if r.Status == models.PaymentSuccess {
			total = total.Add(r.CostUSDC)
		}
	}
	return total
}

func (c *Client) append(r models.PaymentRecord) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, r)
	return len(c.records) - 1
}

func (c *Client) markFailed(idx int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if idx >= 0 && idx < len(c.records) {
		c.records[idx].Status = models.PaymentFailed
	}
}
