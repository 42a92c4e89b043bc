// Package services contains the business workflows tying the catalog,
// ledger, payment gateway, and notification dispatcher together.
package services

import (
	"context"

	domain "github.com/talaad-shop/api/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Order             = domain.Order
	OrderItem         = domain.OrderItem
	Payment           = domain.Payment
	Product           = domain.Product
	CartLine          = domain.CartLine
	PaymentStatus     = domain.PaymentStatus
	TransactionStatus = domain.TransactionStatus
	FreeGiftRule      = domain.FreeGiftRule
)

// CreateOrderCommand carries everything checkout submits for one order.
type CreateOrderCommand struct {
	CustomerName  string
	CustomerPhone string
	CustomerEmail string

	AddressLine string
	Subdistrict string
	District    string
	Province    string
	PostalCode  string

	Lines []CartLine
}

// CreateOrderResult is the caller-facing view of a freshly created order.
type CreateOrderResult struct {
	OrderID     uint   `json:"order_id"`
	OrderNo     string `json:"order_no"`
	TotalAmount int64  `json:"total_amount"`
}

// OrderService assembles and reads orders.
type OrderService interface {
	CreateOrder(ctx context.Context, cmd CreateOrderCommand) (CreateOrderResult, error)
	GetOrder(ctx context.Context, orderID uint) (Order, error)
}

// CreatePaymentCommand requests a collection attempt against an order.
type CreatePaymentCommand struct {
	OrderID uint
	Method  string
}

// CreatePaymentResult is the uniform payment artifact handed back to
// checkout regardless of whether the real gateway answered.
type CreatePaymentResult struct {
	PaymentID     uint   `json:"payment_id"`
	TransactionID string `json:"transaction_id"`
	PaymentURL    string `json:"payment_url"`
	QRCodeURL     string `json:"qr_code_url,omitempty"`
	Fallback      bool   `json:"fallback"`
	// FallbackReason is set only when Fallback is true.
	FallbackReason string `json:"fallback_reason,omitempty"`
}

// PaymentService orchestrates payment creation against the gateway.
type PaymentService interface {
	CreatePayment(ctx context.Context, cmd CreatePaymentCommand) (CreatePaymentResult, error)
}

// WebhookResult acknowledges a reconciled gateway callback.
type WebhookResult struct {
	Success bool `json:"success"`
	OrderID uint `json:"order_id"`
	// Duplicate marks deliveries ignored because the order was already in a
	// terminal payment state.
	Duplicate bool `json:"duplicate,omitempty"`
}

// WebhookService reconciles inbound gateway callbacks against the ledger.
type WebhookService interface {
	HandleWebhook(ctx context.Context, raw []byte, signature string) (WebhookResult, error)
}

// CatalogService lists products a storefront may sell.
type CatalogService interface {
	ListProducts(ctx context.Context) ([]Product, error)
}

// Notifier sends the payment-success SMS. Satisfied by a thin adapter over
// sms.Dispatcher, which returns the provider response alongside the error.
type Notifier interface {
	SendPaymentSuccess(ctx context.Context, phone, orderNo string) error
}
