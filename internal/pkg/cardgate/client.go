package cardgate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrChargeDeclined is returned when the gateway rejects the card.
var ErrChargeDeclined = errors.New("charge declined")

// Config holds CardGate API configuration
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client represents CardGate payment gateway client
type Client struct {
	httpClient *http.Client
	config     Config
}

// ChargeRequest represents a charge creation request.
// Amount is a decimal string in major currency units ("70.00").
type ChargeRequest struct {
	Amount         string `json:"amount"`
	Currency       string `json:"currency"`
	PaymentNonce   string `json:"payment_method_nonce"`
	Description    string `json:"description,omitempty"`
	IdempotencyKey string `json:"-"`
}

// Charge represents a settled charge
type Charge struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Amount        string `json:"amount"`
}

// Refund represents a reversal of a settled charge
type Refund struct {
	RefundID string `json:"refund_id"`
	Status   string `json:"status"`
}

// NewClient creates new CardGate API client
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		config:     cfg,
	}
}

// AmountFromCents renders integer cents as the decimal string the gateway expects.
func AmountFromCents(cents int64) string {
	if cents < 0 {
		return fmt.Sprintf("-%d.%02d", -cents/100, -cents%100)
	}
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

// Charge captures a payment against the provided card nonce
func (c *Client) Charge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	if strings.TrimSpace(req.Amount) == "" {
		return nil, fmt.Errorf("validation error: amount must be non-empty")
	}
	if strings.TrimSpace(req.PaymentNonce) == "" {
		return nil, fmt.Errorf("validation error: payment_method_nonce must be non-empty")
	}
	if strings.TrimSpace(req.IdempotencyKey) == "" {
		return nil, fmt.Errorf("validation error: idempotency key must be non-empty")
	}

	var out Charge
	if err := c.post(ctx, "/v1/charges", req, req.IdempotencyKey, &out); err != nil {
		return nil, err
	}

	if strings.EqualFold(out.Status, "declined") {
		return nil, fmt.Errorf("%w: transaction %s", ErrChargeDeclined, out.TransactionID)
	}

	return &out, nil
}

// Refund reverses a previously captured charge
func (c *Client) Refund(ctx context.Context, transactionID, idempotencyKey string) (*Refund, error) {
	if strings.TrimSpace(transactionID) == "" {
		return nil, fmt.Errorf("validation error: transaction id must be non-empty")
	}
	if strings.TrimSpace(idempotencyKey) == "" {
		return nil, fmt.Errorf("validation error: idempotency key must be non-empty")
	}

	var out Refund
	if err := c.post(ctx, "/v1/charges/"+transactionID+"/refund", struct{}{}, idempotencyKey, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, payload interface{}, idempotencyKey string, out interface{}) error {
	if c == nil || c.httpClient == nil {
		return fmt.Errorf("cardgate client is not initialized")
	}
	if strings.TrimSpace(c.config.BaseURL) == "" {
		return fmt.Errorf("cardgate config error: base_url is empty")
	}
	if strings.TrimSpace(c.config.APIKey) == "" {
		return fmt.Errorf("cardgate config error: api_key is empty")
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode cardgate request: %w", err)
	}

	base := strings.TrimRight(c.config.BaseURL, "/")
	url := base + path

	timeout := c.config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("cardgate api call failed: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	httpReq.Header.Set("Idempotency-Key", idempotencyKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("cardgate api call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("cardgate api call failed: %w", err)
	}

	if resp.StatusCode == http.StatusPaymentRequired {
		return fmt.Errorf("%w: %s", ErrChargeDeclined, string(body))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("cardgate api returned non-2xx status: %d, body: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse cardgate response: %w", err)
	}

	return nil
}
