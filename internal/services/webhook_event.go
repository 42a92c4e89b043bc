package services

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	domain "github.com/talaad-shop/api/internal/domain"
)

// webhookEvent is the canonical record decoded from a gateway callback.
// Every field except the order number is optional.
type webhookEvent struct {
	TransactionID string
	OrderNo       string
	RawStatus     string
	// Amount is in satang; zero when the gateway omitted it.
	Amount int64
}

// The gateway's payload shape changed across integration iterations; each
// field accepts several historical key names, highest priority first.
var (
	transactionIDKeys = []string{"transaction_id", "transaction_ID", "transactionId", "txn_id", "txnId", "referenceNo"}
	orderNoKeys       = []string{"order_id", "order_no", "orderNo", "orderId", "reference", "ref"}
	statusKeys        = []string{"status", "payment_status", "paymentStatus", "txn_status", "result"}
	amountKeys        = []string{"amount", "total", "total_amount", "totalAmount"}
)

// decodeWebhookEvent extracts the canonical event from a raw gateway body.
// Extraction never fails on missing optional fields; only malformed JSON is
// an error.
func decodeWebhookEvent(raw []byte) (webhookEvent, error) {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return webhookEvent{}, fmt.Errorf("webhook: malformed payload: %w", err)
	}

	return webhookEvent{
		TransactionID: firstString(payload, transactionIDKeys),
		OrderNo:       firstString(payload, orderNoKeys),
		RawStatus:     firstString(payload, statusKeys),
		Amount:        firstAmount(payload, amountKeys),
	}, nil
}

// NormalizedStatus maps gateway-specific status tokens onto the internal
// success/failed domain. Anything unrecognised counts as failed.
func (e webhookEvent) NormalizedStatus() TransactionStatus {
	switch strings.ToLower(strings.TrimSpace(e.RawStatus)) {
	case "success", "paysuccess", "ok", "completed", "paid":
		return domain.TransactionStatusSuccess
	default:
		return domain.TransactionStatusFailed
	}
}

func firstString(payload map[string]any, keys []string) string {
	for _, key := range keys {
		value, ok := payload[key]
		if !ok {
			continue
		}
		switch v := value.(type) {
		case string:
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				return trimmed
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// firstAmount reads a baht amount, numeric or string-encoded, and converts
// it to satang.
func firstAmount(payload map[string]any, keys []string) int64 {
	for _, key := range keys {
		value, ok := payload[key]
		if !ok {
			continue
		}
		switch v := value.(type) {
		case float64:
			return int64(v*100 + 0.5)
		case string:
			parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err == nil {
				return int64(parsed*100 + 0.5)
			}
		}
	}
	return 0
}
