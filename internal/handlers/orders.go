package handlers

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/talaad-shop/api/internal/domain"
	"github.com/talaad-shop/api/internal/platform/httpx"
	"github.com/talaad-shop/api/internal/services"
)

const maxOrderBodySize = 64 * 1024

type createOrderRequest struct {
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	CustomerEmail string `json:"customer_email"`

	AddressLine string `json:"address_line"`
	Subdistrict string `json:"subdistrict"`
	District    string `json:"district"`
	Province    string `json:"province"`
	PostalCode  string `json:"postal_code"`

	Items []createOrderItem `json:"items"`
}

type createOrderItem struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// OrderHandlers exposes checkout and order lookup endpoints.
type OrderHandlers struct {
	orders  services.OrderService
	limiter RateLimiter
}

// NewOrderHandlers constructs a new OrderHandlers instance. A nil limiter
// disables rate limiting.
func NewOrderHandlers(orders services.OrderService, limiter RateLimiter) *OrderHandlers {
	return &OrderHandlers{orders: orders, limiter: limiter}
}

// Routes registers the /orders endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.createOrder)
	r.Get("/{orderID}", h.getOrder)
}

func (h *OrderHandlers) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}
	if h.limiter != nil && !h.limiter.Allow(clientKey(r)) {
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many checkout attempts, try again shortly", http.StatusTooManyRequests))
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxOrderBodySize)).Decode(&req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	lines := make([]domain.CartLine, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, domain.CartLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	result, err := h.orders.CreateOrder(ctx, services.CreateOrderCommand{
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		CustomerEmail: req.CustomerEmail,
		AddressLine:   req.AddressLine,
		Subdistrict:   req.Subdistrict,
		District:      req.District,
		Province:      req.Province,
		PostalCode:    req.PostalCode,
		Lines:         lines,
	})
	if err != nil {
		writeOrderError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, result)
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	raw := chi.URLParam(r, "orderID")
	orderID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || orderID == 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "orderID must be a positive integer", http.StatusBadRequest))
		return
	}

	order, err := h.orders.GetOrder(ctx, uint(orderID))
	if err != nil {
		writeOrderError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, order)
}

func writeOrderError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	var validation *services.ValidationError
	switch {
	case errors.As(err, &validation):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", validation.Message, http.StatusBadRequest).
			WithDetails(map[string]any{"field": validation.Field}))
	case errors.Is(err, services.ErrProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "an item in the cart references an unknown product", http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrProductInactive):
		httpx.WriteError(ctx, w, httpx.NewError("product_inactive", "an item in the cart is no longer for sale", http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "could not process the order", http.StatusInternalServerError))
	}
}

// clientKey derives the rate-limit bucket from the caller's IP.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
