package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/talaad-shop/api/internal/platform/httpx"
	"github.com/talaad-shop/api/internal/services"
)

const (
	maxPaymentBodySize = 16 * 1024
	maxWebhookBodySize = 1 << 20

	// paysolSignatureHeader carries the gateway's HMAC over the raw body.
	paysolSignatureHeader = "X-Paysol-Signature"
)

type createPaymentRequest struct {
	OrderID uint   `json:"order_id"`
	Method  string `json:"method"`
}

// PaymentHandlers exposes payment creation and the inbound gateway webhook.
type PaymentHandlers struct {
	payments services.PaymentService
	webhooks services.WebhookService
}

// NewPaymentHandlers constructs a new PaymentHandlers instance.
func NewPaymentHandlers(payments services.PaymentService, webhooks services.WebhookService) *PaymentHandlers {
	return &PaymentHandlers{payments: payments, webhooks: webhooks}
}

// Routes registers the /payments endpoints.
func (h *PaymentHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/create", h.createPayment)
	r.Post("/paysol/webhook", h.handlePaysolWebhook)
}

func (h *PaymentHandlers) createPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.payments == nil {
		httpx.WriteError(ctx, w, httpx.NewError("payment_service_unavailable", "payment service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req createPaymentRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPaymentBodySize)).Decode(&req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	result, err := h.payments.CreatePayment(ctx, services.CreatePaymentCommand{
		OrderID: req.OrderID,
		Method:  req.Method,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPaymentInvalidInput):
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order_id and a supported method are required", http.StatusBadRequest))
		case errors.Is(err, services.ErrOrderNotFound):
			httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
		case errors.Is(err, services.ErrInvalidPaymentState):
			httpx.WriteError(ctx, w, httpx.NewError("invalid_payment_state", "order is not awaiting payment", http.StatusConflict))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("internal_error", "could not create the payment", http.StatusInternalServerError))
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, result)
}

// handlePaysolWebhook consumes the raw body so the signature is computed
// over exactly the bytes the gateway sent.
func (h *PaymentHandlers) handlePaysolWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.webhooks == nil {
		httpx.WriteError(ctx, w, httpx.NewError("webhook_service_unavailable", "webhook service unavailable", http.StatusServiceUnavailable))
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodySize))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "could not read webhook body", http.StatusBadRequest))
		return
	}

	result, err := h.webhooks.HandleWebhook(ctx, raw, r.Header.Get(paysolSignatureHeader))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidSignature):
			httpx.WriteError(ctx, w, httpx.NewError("invalid_signature", "webhook signature verification failed", http.StatusUnauthorized))
		case errors.Is(err, services.ErrWebhookInvalidPayload):
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "webhook payload could not be decoded", http.StatusBadRequest))
		case errors.Is(err, services.ErrOrderNotFound):
			httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "webhook references an unknown order", http.StatusNotFound))
		default:
			// Non-2xx so the gateway retries the delivery.
			httpx.WriteError(ctx, w, httpx.NewError("internal_error", "could not reconcile the webhook", http.StatusInternalServerError))
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, result)
}
