package services

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/talaad-shop/api/internal/domain"
	"github.com/talaad-shop/api/internal/payments"
	"github.com/talaad-shop/api/internal/repositories"
)

const (
	paymentEventCreated  = "payment.created"
	paymentEventFallback = "payment.gateway.fallback"
)

var (
	// ErrInvalidPaymentState indicates the order is not awaiting payment.
	ErrInvalidPaymentState = errors.New("payment: order is not pending payment")
	// ErrPaymentInvalidInput signals a malformed payment request.
	ErrPaymentInvalidInput = errors.New("payment: invalid input")
)

// PaymentServiceDeps bundles collaborators required to construct the payment service.
type PaymentServiceDeps struct {
	Orders   repositories.OrderRepository
	Payments repositories.PaymentRepository
	Provider payments.Provider
	// Fallback produces synthetic payable artifacts when Provider fails.
	Fallback payments.Provider
	Logger   func(ctx context.Context, event string, fields map[string]any)
}

type paymentService struct {
	orders   repositories.OrderRepository
	payments repositories.PaymentRepository
	provider payments.Provider
	fallback payments.Provider
	logger   func(ctx context.Context, event string, fields map[string]any)
}

// NewPaymentService wires a PaymentService from its dependencies.
func NewPaymentService(deps PaymentServiceDeps) (PaymentService, error) {
	if deps.Orders == nil {
		return nil, errors.New("payment: order repository is required")
	}
	if deps.Payments == nil {
		return nil, errors.New("payment: payment repository is required")
	}
	if deps.Provider == nil {
		return nil, errors.New("payment: gateway provider is required")
	}
	if deps.Fallback == nil {
		return nil, errors.New("payment: fallback provider is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &paymentService{
		orders:   deps.Orders,
		payments: deps.Payments,
		provider: deps.Provider,
		fallback: deps.Fallback,
		logger:   logger,
	}, nil
}

func (s *paymentService) CreatePayment(ctx context.Context, cmd CreatePaymentCommand) (CreatePaymentResult, error) {
	if cmd.OrderID == 0 {
		return CreatePaymentResult{}, fmt.Errorf("%w: order id is required", ErrPaymentInvalidInput)
	}
	method, err := payments.ParseMethod(cmd.Method)
	if err != nil {
		return CreatePaymentResult{}, fmt.Errorf("%w: %v", ErrPaymentInvalidInput, err)
	}

	order, err := s.orders.FindByID(ctx, cmd.OrderID)
	if err != nil {
		if isNotFound(err) {
			return CreatePaymentResult{}, fmt.Errorf("%w: id %d", ErrOrderNotFound, cmd.OrderID)
		}
		return CreatePaymentResult{}, fmt.Errorf("payment: load order: %w", err)
	}
	if order.PaymentStatus != domain.PaymentStatusPending {
		return CreatePaymentResult{}, fmt.Errorf("%w: status %s", ErrInvalidPaymentState, order.PaymentStatus)
	}

	payment := domain.Payment{
		OrderID: order.ID,
		Gateway: fmt.Sprintf("%s-%s", s.provider.Name(), method),
		Amount:  order.TotalAmount,
		Status:  domain.TransactionStatusPending,
	}
	if err := s.payments.Insert(ctx, &payment); err != nil {
		return CreatePaymentResult{}, fmt.Errorf("payment: persist payment: %w", err)
	}

	req := payments.TransactionRequest{
		OrderNo:       order.OrderNo,
		Amount:        order.TotalAmount,
		Method:        method,
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
		CustomerPhone: order.CustomerPhone,
	}

	result, gatewayErr := s.provider.CreateTransaction(ctx, req)
	reason := ""
	if gatewayErr != nil {
		reason = gatewayErr.Error()
		if failure, ok := payments.AsGatewayFailure(gatewayErr); ok {
			reason = failure.Error()
		}
		s.logger(ctx, paymentEventFallback, map[string]any{
			"orderId":  order.ID,
			"orderNo":  order.OrderNo,
			"gateway":  s.provider.Name(),
			"reason":   reason,
			"severity": "warn",
		})
		result, err = s.fallback.CreateTransaction(ctx, req)
		if err != nil {
			return CreatePaymentResult{}, fmt.Errorf("payment: fallback provider: %w", err)
		}
	}

	s.logger(ctx, paymentEventCreated, map[string]any{
		"orderId":       order.ID,
		"orderNo":       order.OrderNo,
		"paymentId":     payment.ID,
		"transactionId": result.TransactionID,
		"fallback":      result.Fallback,
	})

	return CreatePaymentResult{
		PaymentID:      payment.ID,
		TransactionID:  result.TransactionID,
		PaymentURL:     result.PaymentURL,
		QRCodeURL:      result.QRCodeURL,
		Fallback:       result.Fallback,
		FallbackReason: reason,
	}, nil
}
