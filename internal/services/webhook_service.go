package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/talaad-shop/api/internal/domain"
	"github.com/talaad-shop/api/internal/platform/dedup"
	"github.com/talaad-shop/api/internal/repositories"
)

const (
	webhookEventReceived       = "webhook.received"
	webhookEventDuplicate      = "webhook.duplicate"
	webhookEventReconciled     = "webhook.reconciled"
	webhookEventOrderMissing   = "webhook.order.missing"
	webhookEventNotifyFailed   = "webhook.notify.failed"
	webhookEventAmountMismatch = "webhook.amount.mismatch"

	notifyTimeout          = 30 * time.Second
	defaultNotifyDedupTTL  = 24 * time.Hour
	notifyDedupKeyTemplate = "notify:order:%d"
)

var (
	// ErrInvalidSignature rejects a webhook before any state mutation.
	ErrInvalidSignature = errors.New("webhook: invalid signature")
	// ErrWebhookInvalidPayload indicates an undecodable or incomplete body.
	ErrWebhookInvalidPayload = errors.New("webhook: invalid payload")
)

// WebhookServiceDeps bundles collaborators required to construct the webhook service.
type WebhookServiceDeps struct {
	Orders     repositories.OrderRepository
	Payments   repositories.PaymentRepository
	UnitOfWork repositories.UnitOfWork
	// Secret is the shared HMAC key; verification is skipped when empty.
	Secret   string
	Notifier Notifier
	// Dedup guards the success notification so redeliveries that race the
	// terminal-state check still send at most one SMS per order.
	Dedup          dedup.Store
	NotifyDedupTTL time.Duration
	Logger         func(ctx context.Context, event string, fields map[string]any)
	// notifyDone is closed-loop test support; invoked after the async
	// notification attempt finishes.
	notifyDone func()
}

type webhookService struct {
	orders         repositories.OrderRepository
	payments       repositories.PaymentRepository
	unitOfWork     repositories.UnitOfWork
	secret         string
	notifier       Notifier
	dedup          dedup.Store
	notifyDedupTTL time.Duration
	logger         func(ctx context.Context, event string, fields map[string]any)
	notifyDone     func()
}

// NewWebhookService wires a WebhookService from its dependencies.
func NewWebhookService(deps WebhookServiceDeps) (WebhookService, error) {
	if deps.Orders == nil {
		return nil, errors.New("webhook: order repository is required")
	}
	if deps.Payments == nil {
		return nil, errors.New("webhook: payment repository is required")
	}
	if deps.UnitOfWork == nil {
		return nil, errors.New("webhook: unit of work is required")
	}
	ttl := deps.NotifyDedupTTL
	if ttl <= 0 {
		ttl = defaultNotifyDedupTTL
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	done := deps.notifyDone
	if done == nil {
		done = func() {}
	}
	return &webhookService{
		orders:         deps.Orders,
		payments:       deps.Payments,
		unitOfWork:     deps.UnitOfWork,
		secret:         deps.Secret,
		notifier:       deps.Notifier,
		dedup:          deps.Dedup,
		notifyDedupTTL: ttl,
		logger:         logger,
		notifyDone:     done,
	}, nil
}

func (s *webhookService) HandleWebhook(ctx context.Context, raw []byte, signature string) (WebhookResult, error) {
	if err := s.verifySignature(raw, signature); err != nil {
		return WebhookResult{}, err
	}

	event, err := decodeWebhookEvent(raw)
	if err != nil {
		return WebhookResult{}, fmt.Errorf("%w: %v", ErrWebhookInvalidPayload, err)
	}
	if event.OrderNo == "" {
		return WebhookResult{}, fmt.Errorf("%w: order number missing", ErrWebhookInvalidPayload)
	}

	s.logger(ctx, webhookEventReceived, map[string]any{
		"orderNo":       event.OrderNo,
		"transactionId": event.TransactionID,
		"rawStatus":     event.RawStatus,
	})

	order, err := s.orders.FindByOrderNo(ctx, event.OrderNo)
	if err != nil {
		if isNotFound(err) {
			s.logger(ctx, webhookEventOrderMissing, map[string]any{
				"orderNo":  event.OrderNo,
				"severity": "error",
			})
			return WebhookResult{}, fmt.Errorf("%w: order number %s", ErrOrderNotFound, event.OrderNo)
		}
		return WebhookResult{}, fmt.Errorf("webhook: load order: %w", err)
	}

	// Terminal states are never mutated again; a failed redelivery must not
	// downgrade an already paid order.
	if order.PaymentStatus.Terminal() {
		s.logger(ctx, webhookEventDuplicate, map[string]any{
			"orderId": order.ID,
			"orderNo": order.OrderNo,
			"status":  string(order.PaymentStatus),
		})
		return WebhookResult{Success: true, OrderID: order.ID, Duplicate: true}, nil
	}

	if event.Amount > 0 && event.Amount != order.TotalAmount {
		s.logger(ctx, webhookEventAmountMismatch, map[string]any{
			"orderId":       order.ID,
			"orderNo":       order.OrderNo,
			"orderAmount":   order.TotalAmount,
			"gatewayAmount": event.Amount,
			"severity":      "warn",
		})
	}

	status := event.NormalizedStatus()
	orderStatus := domain.PaymentStatusFailed
	if status == domain.TransactionStatusSuccess {
		orderStatus = domain.PaymentStatusPaid
	}

	err = s.unitOfWork.RunInTx(ctx, func(ctx context.Context) error {
		payment, err := s.payments.LatestForOrder(ctx, order.ID)
		if err != nil && !isNotFound(err) {
			return fmt.Errorf("load latest payment: %w", err)
		}
		if err == nil {
			if err := s.payments.UpdateResult(ctx, payment.ID, event.TransactionID, status, string(raw)); err != nil {
				return fmt.Errorf("update payment: %w", err)
			}
		}
		if err := s.orders.UpdatePaymentStatus(ctx, order.ID, domain.PaymentStatusPending, orderStatus); err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		return nil
	})
	if err != nil {
		// A concurrent delivery that also read pending settled the status
		// first; its transaction wins and this one rolls back whole.
		if isConflict(err) {
			s.logger(ctx, webhookEventDuplicate, map[string]any{
				"orderId": order.ID,
				"orderNo": order.OrderNo,
				"status":  string(order.PaymentStatus),
				"raced":   true,
			})
			return WebhookResult{Success: true, OrderID: order.ID, Duplicate: true}, nil
		}
		return WebhookResult{}, fmt.Errorf("webhook: reconcile: %w", err)
	}

	s.logger(ctx, webhookEventReconciled, map[string]any{
		"orderId":       order.ID,
		"orderNo":       order.OrderNo,
		"status":        string(orderStatus),
		"transactionId": event.TransactionID,
	})

	if orderStatus == domain.PaymentStatusPaid {
		go s.notifyPaymentSuccess(order)
	}

	return WebhookResult{Success: true, OrderID: order.ID}, nil
}

// notifyPaymentSuccess runs detached from the webhook request so a closed
// connection cannot cancel the SMS, and so the HTTP response never waits.
func (s *webhookService) notifyPaymentSuccess(order domain.Order) {
	defer s.notifyDone()

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	if s.notifier == nil {
		return
	}

	if s.dedup != nil {
		key := fmt.Sprintf(notifyDedupKeyTemplate, order.ID)
		acquired, err := s.dedup.Acquire(ctx, key, s.notifyDedupTTL)
		if err != nil {
			s.logger(ctx, webhookEventNotifyFailed, map[string]any{
				"orderId":  order.ID,
				"stage":    "dedup",
				"error":    err.Error(),
				"severity": "warn",
			})
			return
		}
		if !acquired {
			return
		}
	}

	if err := s.notifier.SendPaymentSuccess(ctx, order.CustomerPhone, order.OrderNo); err != nil {
		s.logger(ctx, webhookEventNotifyFailed, map[string]any{
			"orderId":  order.ID,
			"orderNo":  order.OrderNo,
			"stage":    "send",
			"error":    err.Error(),
			"severity": "warn",
		})
	}
}

// verifySignature checks an HMAC-SHA256 over the raw body. An optional
// "sha256=" prefix on the header value is tolerated. Verification is skipped
// entirely when no secret is configured.
func (s *webhookService) verifySignature(raw []byte, signature string) error {
	if strings.TrimSpace(s.secret) == "" {
		return nil
	}
	provided := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(signature), "sha256="))
	if provided == "" {
		return fmt.Errorf("%w: signature header missing", ErrInvalidSignature)
	}

	mac := hmac.New(sha256.New, []byte(s.secret))
	mac.Write(raw)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(strings.ToLower(provided)), []byte(expected)) {
		return ErrInvalidSignature
	}
	return nil
}
