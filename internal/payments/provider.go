// Package payments encapsulates the external payment gateway: transaction
// creation, response normalisation, and the degraded fallback mode used when
// the gateway is unconfigured or unreachable.
package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Method selects how the customer pays.
type Method string

const (
	// MethodQR collects via a Thai PromptPay QR code.
	MethodQR Method = "qr"
	// MethodCard collects via a hosted card payment page.
	MethodCard Method = "card"
)

// ParseMethod validates a client-supplied payment method string.
func ParseMethod(value string) (Method, error) {
	switch Method(strings.ToLower(strings.TrimSpace(value))) {
	case MethodQR:
		return MethodQR, nil
	case MethodCard:
		return MethodCard, nil
	default:
		return "", fmt.Errorf("payments: unsupported method %q", value)
	}
}

// FailureKind categorises a gateway failure for the orchestrator.
type FailureKind string

const (
	// FailureRejected is a gateway-reported business error (status:"error" body).
	FailureRejected FailureKind = "rejected"
	// FailureUnreachable covers transport errors and timeouts.
	FailureUnreachable FailureKind = "unreachable"
	// FailureHTTP is a non-2xx response with a body.
	FailureHTTP FailureKind = "http"
	// FailureProtocol is a success response missing expected result fields.
	FailureProtocol FailureKind = "protocol"
)

// GatewayFailure is the typed error all provider failures are reported as,
// so callers can distinguish fallback-worthy failures without string matching.
type GatewayFailure struct {
	Kind    FailureKind
	Message string
	Err     error
}

func (e *GatewayFailure) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("payments: gateway %s: %s", e.Kind, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("payments: gateway %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("payments: gateway %s", e.Kind)
}

func (e *GatewayFailure) Unwrap() error { return e.Err }

// AsGatewayFailure extracts a GatewayFailure from an error chain.
func AsGatewayFailure(err error) (*GatewayFailure, bool) {
	var failure *GatewayFailure
	if errors.As(err, &failure) {
		return failure, true
	}
	return nil, false
}

// TransactionRequest captures everything the gateway needs to start collecting.
type TransactionRequest struct {
	OrderNo       string
	Amount        int64 // satang
	Method        Method
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
}

// TransactionResult is the normalised gateway response.
type TransactionResult struct {
	TransactionID string
	PaymentURL    string
	QRCodeURL     string
	// Fallback marks synthetic results produced without a gateway call.
	Fallback bool
	Raw      map[string]any
}

// Provider is the contract gateway adapters implement.
type Provider interface {
	Name() string
	CreateTransaction(ctx context.Context, req TransactionRequest) (TransactionResult, error)
}

// Logger is the event-hook signature providers accept for structured logging.
type Logger func(ctx context.Context, event string, fields map[string]any)

// SanitizeReference reduces an order number to the alphanumeric,
// length-capped reference the gateway accepts.
func SanitizeReference(orderNo string) string {
	var b strings.Builder
	for _, r := range orderNo {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		}
	}
	ref := b.String()
	if len(ref) > 20 {
		ref = ref[:20]
	}
	return ref
}

// FormatAmount renders satang as a baht string with exactly two decimals.
func FormatAmount(satang int64) string {
	sign := ""
	if satang < 0 {
		sign = "-"
		satang = -satang
	}
	return fmt.Sprintf("%s%d.%02d", sign, satang/100, satang%100)
}

// SplitName divides a full customer name into the first/last fields the
// gateway expects. A single-token name leaves the last name empty.
func SplitName(full string) (first, last string) {
	fields := strings.Fields(strings.TrimSpace(full))
	if len(fields) == 0 {
		return "", ""
	}
	if len(fields) == 1 {
		return fields[0], ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}
