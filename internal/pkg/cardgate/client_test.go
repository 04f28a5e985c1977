package cardgate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestChargeSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("invalid method"))
			return
		}
		if r.URL.Path != "/v1/charges" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("invalid path"))
			return
		}
		if r.Header.Get("Content-Type") != "application/json" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("invalid content type"))
			return
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("invalid auth"))
			return
		}
		if r.Header.Get("Idempotency-Key") != "enroll:class:student" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("invalid idempotency key"))
			return
		}

		var req ChargeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("invalid body"))
			return
		}
		if req.Amount != "70.00" || req.Currency != "USD" || req.PaymentNonce != "nonce-abc" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("unexpected payload"))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"transaction_id":"txn_123","status":"settled","amount":"70.00"}`))
	}))
	t.Cleanup(server.Close)

	client := NewClient(Config{BaseURL: server.URL, APIKey: "test-key", Timeout: time.Second})
	charge, err := client.Charge(context.Background(), ChargeRequest{
		Amount:         "70.00",
		Currency:       "USD",
		PaymentNonce:   "nonce-abc",
		Description:    "okulab enrollment (2 classes)",
		IdempotencyKey: "enroll:class:student",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if charge.TransactionID != "txn_123" {
		t.Fatalf("expected transaction txn_123, got %s", charge.TransactionID)
	}
	if charge.Status != "settled" {
		t.Fatalf("expected settled status, got %s", charge.Status)
	}
}

func TestChargeDeclinedInBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"transaction_id":"txn_901","status":"DECLINED","amount":"70.00"}`))
	}))
	t.Cleanup(server.Close)

	client := NewClient(Config{BaseURL: server.URL, APIKey: "test-key", Timeout: time.Second})
	_, err := client.Charge(context.Background(), ChargeRequest{
		Amount:         "70.00",
		Currency:       "USD",
		PaymentNonce:   "nonce-abc",
		IdempotencyKey: "key",
	})
	if !errors.Is(err, ErrChargeDeclined) {
		t.Fatalf("expected ErrChargeDeclined, got %v", err)
	}
	if !strings.Contains(err.Error(), "txn_901") {
		t.Fatalf("expected transaction id in error, got %v", err)
	}
}

func TestChargeDeclinedStatusCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte("card expired"))
	}))
	t.Cleanup(server.Close)

	client := NewClient(Config{BaseURL: server.URL, APIKey: "test-key", Timeout: time.Second})
	_, err := client.Charge(context.Background(), ChargeRequest{
		Amount:         "10.00",
		Currency:       "USD",
		PaymentNonce:   "nonce-abc",
		IdempotencyKey: "key",
	})
	if !errors.Is(err, ErrChargeDeclined) {
		t.Fatalf("expected ErrChargeDeclined, got %v", err)
	}
	if !strings.Contains(err.Error(), "card expired") {
		t.Fatalf("expected gateway body in error, got %v", err)
	}
}

func TestChargeHTTPErrorIncludesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("gateway down"))
	}))
	t.Cleanup(server.Close)

	client := NewClient(Config{BaseURL: server.URL, APIKey: "test-key", Timeout: time.Second})
	_, err := client.Charge(context.Background(), ChargeRequest{
		Amount:         "10.00",
		Currency:       "USD",
		PaymentNonce:   "nonce-abc",
		IdempotencyKey: "key",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrChargeDeclined) {
		t.Fatalf("server error must not read as a decline, got %v", err)
	}
	if !strings.Contains(err.Error(), "non-2xx status: 500") || !strings.Contains(err.Error(), "gateway down") {
		t.Fatalf("expected status and body in error, got %v", err)
	}
}

func TestChargeValidation(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://localhost:1", APIKey: "test-key", Timeout: time.Second})

	cases := []struct {
		name string
		req  ChargeRequest
	}{
		{"empty amount", ChargeRequest{Currency: "USD", PaymentNonce: "n", IdempotencyKey: "k"}},
		{"empty nonce", ChargeRequest{Amount: "10.00", Currency: "USD", IdempotencyKey: "k"}},
		{"empty idempotency key", ChargeRequest{Amount: "10.00", Currency: "USD", PaymentNonce: "n"}},
	}
	for _, tc := range cases {
		_, err := client.Charge(context.Background(), tc.req)
		if err == nil || !strings.Contains(err.Error(), "validation error") {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

func TestRefundSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("invalid method"))
			return
		}
		if r.URL.Path != "/v1/charges/txn_123/refund" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("invalid path"))
			return
		}
		if r.Header.Get("Idempotency-Key") != "refund:txn_123" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("invalid idempotency key"))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"refund_id":"rf_9","status":"refunded"}`))
	}))
	t.Cleanup(server.Close)

	client := NewClient(Config{BaseURL: server.URL, APIKey: "test-key", Timeout: time.Second})
	refund, err := client.Refund(context.Background(), "txn_123", "refund:txn_123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if refund.RefundID != "rf_9" {
		t.Fatalf("expected refund rf_9, got %s", refund.RefundID)
	}
	if refund.Status != "refunded" {
		t.Fatalf("expected refunded status, got %s", refund.Status)
	}
}

func TestRefundValidation(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://localhost:1", APIKey: "test-key", Timeout: time.Second})

	if _, err := client.Refund(context.Background(), "", "key"); err == nil || !strings.Contains(err.Error(), "validation error") {
		t.Fatalf("expected validation error for empty transaction id, got %v", err)
	}
	if _, err := client.Refund(context.Background(), "txn_123", ""); err == nil || !strings.Contains(err.Error(), "validation error") {
		t.Fatalf("expected validation error for empty idempotency key, got %v", err)
	}
}

func TestAmountFromCents(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{100, "1.00"},
		{7000, "70.00"},
		{12345, "123.45"},
	}
	for _, tc := range cases {
		if got := AmountFromCents(tc.cents); got != tc.want {
			t.Fatalf("AmountFromCents(%d) = %s, want %s", tc.cents, got, tc.want)
		}
	}
}
