package services

import (
	"testing"

	domain "github.com/talaad-shop/api/internal/domain"
)

func TestDecodeWebhookEventKeyPriority(t *testing.T) {
	// When both a high and a low priority key are present, the higher wins.
	raw := []byte(`{"transaction_id":"TXN-A","referenceNo":"TXN-B","order_id":"ORD-1","ref":"ORD-2","status":"success"}`)
	event, err := decodeWebhookEvent(raw)
	if err != nil {
		t.Fatalf("decodeWebhookEvent returned error: %v", err)
	}
	if event.TransactionID != "TXN-A" {
		t.Fatalf("TransactionID = %q, want TXN-A", event.TransactionID)
	}
	if event.OrderNo != "ORD-1" {
		t.Fatalf("OrderNo = %q, want ORD-1", event.OrderNo)
	}
}

func TestDecodeWebhookEventMissingOptionalFields(t *testing.T) {
	event, err := decodeWebhookEvent([]byte(`{"order_no":"ORD-1"}`))
	if err != nil {
		t.Fatalf("decodeWebhookEvent returned error: %v", err)
	}
	if event.TransactionID != "" || event.RawStatus != "" || event.Amount != 0 {
		t.Fatalf("event = %+v, want zero optional fields", event)
	}
}

func TestDecodeWebhookEventAmountForms(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want int64
	}{
		{"numeric baht", `{"order_id":"ORD-1","amount":1234.5}`, 123450},
		{"string baht", `{"order_id":"ORD-1","total":"1234.50"}`, 123450},
		{"integer baht", `{"order_id":"ORD-1","total_amount":500}`, 50000},
		{"unparseable string", `{"order_id":"ORD-1","amount":"n/a"}`, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			event, err := decodeWebhookEvent([]byte(tc.raw))
			if err != nil {
				t.Fatalf("decodeWebhookEvent returned error: %v", err)
			}
			if event.Amount != tc.want {
				t.Fatalf("Amount = %d, want %d", event.Amount, tc.want)
			}
		})
	}
}

func TestNormalizedStatusTokens(t *testing.T) {
	success := []string{"success", "PaySuccess", "OK", "Completed", "PAID", " success "}
	for _, token := range success {
		event := webhookEvent{RawStatus: token}
		if got := event.NormalizedStatus(); got != domain.TransactionStatusSuccess {
			t.Fatalf("NormalizedStatus(%q) = %q, want success", token, got)
		}
	}
	failed := []string{"failed", "declined", "cancel", "", "pending", "error"}
	for _, token := range failed {
		event := webhookEvent{RawStatus: token}
		if got := event.NormalizedStatus(); got != domain.TransactionStatusFailed {
			t.Fatalf("NormalizedStatus(%q) = %q, want failed", token, got)
		}
	}
}

func TestDecodeWebhookEventMalformed(t *testing.T) {
	if _, err := decodeWebhookEvent([]byte(`[1,2,3]`)); err == nil {
		t.Fatal("expected error for non-object payload")
	}
	if _, err := decodeWebhookEvent([]byte(`{`)); err == nil {
		t.Fatal("expected error for truncated payload")
	}
}
