package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/talaad-shop/api/internal/services"
)

type stubPaymentService struct {
	createPayment func(ctx context.Context, cmd services.CreatePaymentCommand) (services.CreatePaymentResult, error)
}

func (s *stubPaymentService) CreatePayment(ctx context.Context, cmd services.CreatePaymentCommand) (services.CreatePaymentResult, error) {
	if s.createPayment == nil {
		return services.CreatePaymentResult{}, errors.New("unexpected CreatePayment call")
	}
	return s.createPayment(ctx, cmd)
}

type stubWebhookService struct {
	handleWebhook func(ctx context.Context, raw []byte, signature string) (services.WebhookResult, error)
}

func (s *stubWebhookService) HandleWebhook(ctx context.Context, raw []byte, signature string) (services.WebhookResult, error) {
	if s.handleWebhook == nil {
		return services.WebhookResult{}, errors.New("unexpected HandleWebhook call")
	}
	return s.handleWebhook(ctx, raw, signature)
}

func newPaymentRouter(payments services.PaymentService, webhooks services.WebhookService) http.Handler {
	return NewRouter(WithPaymentRoutes(NewPaymentHandlers(payments, webhooks).Routes))
}

func TestCreatePaymentEndpoint(t *testing.T) {
	svc := &stubPaymentService{
		createPayment: func(_ context.Context, cmd services.CreatePaymentCommand) (services.CreatePaymentResult, error) {
			if cmd.OrderID != 77 || cmd.Method != "qr" {
				t.Errorf("command = %+v", cmd)
			}
			return services.CreatePaymentResult{
				PaymentID:     301,
				TransactionID: "TXN-1",
				PaymentURL:    "https://pay.example.com/TXN-1",
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/create", strings.NewReader(`{"order_id":77,"method":"qr"}`))
	rec := httptest.NewRecorder()
	newPaymentRouter(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var result services.CreatePaymentResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.TransactionID != "TXN-1" || result.Fallback {
		t.Fatalf("result = %+v", result)
	}
}

func TestCreatePaymentSurfacesFallbackFlag(t *testing.T) {
	svc := &stubPaymentService{
		createPayment: func(context.Context, services.CreatePaymentCommand) (services.CreatePaymentResult, error) {
			return services.CreatePaymentResult{
				PaymentID:      302,
				TransactionID:  "MOCK-01HV5K",
				PaymentURL:     "#fallback-ord2026011000042",
				Fallback:       true,
				FallbackReason: "payments: gateway unreachable: dial timeout",
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/create", strings.NewReader(`{"order_id":77,"method":"qr"}`))
	rec := httptest.NewRecorder()
	newPaymentRouter(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 even in degraded mode", rec.Code)
	}
	var result services.CreatePaymentResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !result.Fallback || result.FallbackReason == "" {
		t.Fatalf("result = %+v, want visible fallback flag", result)
	}
}

func TestCreatePaymentErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"invalid input", services.ErrPaymentInvalidInput, http.StatusBadRequest},
		{"order not found", services.ErrOrderNotFound, http.StatusNotFound},
		{"invalid state", services.ErrInvalidPaymentState, http.StatusConflict},
		{"internal", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubPaymentService{
				createPayment: func(context.Context, services.CreatePaymentCommand) (services.CreatePaymentResult, error) {
					return services.CreatePaymentResult{}, tc.err
				},
			}
			req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/create", strings.NewReader(`{"order_id":1,"method":"qr"}`))
			rec := httptest.NewRecorder()
			newPaymentRouter(svc, nil).ServeHTTP(rec, req)
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
		})
	}
}

func TestPaysolWebhookPassesRawBodyAndSignature(t *testing.T) {
	body := `{"order_id":"ORD-20260110-00042","status":"success","transaction_id":"TXN1"}`
	webhooks := &stubWebhookService{
		handleWebhook: func(_ context.Context, raw []byte, signature string) (services.WebhookResult, error) {
			if string(raw) != body {
				t.Errorf("raw body altered: %s", raw)
			}
			if signature != "sha256=abc123" {
				t.Errorf("signature = %q", signature)
			}
			return services.WebhookResult{Success: true, OrderID: 77}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/paysol/webhook", strings.NewReader(body))
	req.Header.Set("X-Paysol-Signature", "sha256=abc123")
	rec := httptest.NewRecorder()
	newPaymentRouter(nil, webhooks).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var result services.WebhookResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !result.Success || result.OrderID != 77 {
		t.Fatalf("result = %+v", result)
	}
}

func TestPaysolWebhookErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"invalid signature", services.ErrInvalidSignature, http.StatusUnauthorized},
		{"invalid payload", services.ErrWebhookInvalidPayload, http.StatusBadRequest},
		{"order not found", services.ErrOrderNotFound, http.StatusNotFound},
		{"internal triggers retry", errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			webhooks := &stubWebhookService{
				handleWebhook: func(context.Context, []byte, string) (services.WebhookResult, error) {
					return services.WebhookResult{}, tc.err
				},
			}
			req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/paysol/webhook", strings.NewReader(`{}`))
			rec := httptest.NewRecorder()
			newPaymentRouter(nil, webhooks).ServeHTTP(rec, req)
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
		})
	}
}
