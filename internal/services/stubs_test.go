package services

import (
	"context"
	"errors"
	"time"

	domain "github.com/talaad-shop/api/internal/domain"
	"github.com/talaad-shop/api/internal/payments"
)

var errStubUnexpectedCall = errors.New("unexpected call on stub")

type stubOrderRepo struct {
	insert              func(ctx context.Context, order *domain.Order) error
	findByID            func(ctx context.Context, orderID uint) (domain.Order, error)
	findByOrderNo       func(ctx context.Context, orderNo string) (domain.Order, error)
	updatePaymentStatus func(ctx context.Context, orderID uint, from, to domain.PaymentStatus) error
}

func (s *stubOrderRepo) Insert(ctx context.Context, order *domain.Order) error {
	if s.insert == nil {
		return errStubUnexpectedCall
	}
	return s.insert(ctx, order)
}

func (s *stubOrderRepo) FindByID(ctx context.Context, orderID uint) (domain.Order, error) {
	if s.findByID == nil {
		return domain.Order{}, errStubUnexpectedCall
	}
	return s.findByID(ctx, orderID)
}

func (s *stubOrderRepo) FindByOrderNo(ctx context.Context, orderNo string) (domain.Order, error) {
	if s.findByOrderNo == nil {
		return domain.Order{}, errStubUnexpectedCall
	}
	return s.findByOrderNo(ctx, orderNo)
}

func (s *stubOrderRepo) UpdatePaymentStatus(ctx context.Context, orderID uint, from, to domain.PaymentStatus) error {
	if s.updatePaymentStatus == nil {
		return errStubUnexpectedCall
	}
	return s.updatePaymentStatus(ctx, orderID, from, to)
}

type stubPaymentRepo struct {
	insert         func(ctx context.Context, payment *domain.Payment) error
	latestForOrder func(ctx context.Context, orderID uint) (domain.Payment, error)
	updateResult   func(ctx context.Context, paymentID uint, txnID string, status domain.TransactionStatus, raw string) error
}

func (s *stubPaymentRepo) Insert(ctx context.Context, payment *domain.Payment) error {
	if s.insert == nil {
		return errStubUnexpectedCall
	}
	return s.insert(ctx, payment)
}

func (s *stubPaymentRepo) LatestForOrder(ctx context.Context, orderID uint) (domain.Payment, error) {
	if s.latestForOrder == nil {
		return domain.Payment{}, errStubUnexpectedCall
	}
	return s.latestForOrder(ctx, orderID)
}

func (s *stubPaymentRepo) UpdateResult(ctx context.Context, paymentID uint, txnID string, status domain.TransactionStatus, raw string) error {
	if s.updateResult == nil {
		return errStubUnexpectedCall
	}
	return s.updateResult(ctx, paymentID, txnID, status, raw)
}

type stubProductRepo struct {
	findByID   func(ctx context.Context, productID uint) (domain.Product, error)
	listActive func(ctx context.Context) ([]domain.Product, error)
}

func (s *stubProductRepo) FindByID(ctx context.Context, productID uint) (domain.Product, error) {
	if s.findByID == nil {
		return domain.Product{}, errStubUnexpectedCall
	}
	return s.findByID(ctx, productID)
}

func (s *stubProductRepo) ListActive(ctx context.Context) ([]domain.Product, error) {
	if s.listActive == nil {
		return nil, errStubUnexpectedCall
	}
	return s.listActive(ctx)
}

// stubUnitOfWork runs fn inline, optionally failing before or after.
type stubUnitOfWork struct {
	runInTx func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (s *stubUnitOfWork) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.runInTx == nil {
		return fn(ctx)
	}
	return s.runInTx(ctx, fn)
}

type stubProvider struct {
	name              string
	createTransaction func(ctx context.Context, req payments.TransactionRequest) (payments.TransactionResult, error)
}

func (s *stubProvider) Name() string {
	if s.name == "" {
		return "stub"
	}
	return s.name
}

func (s *stubProvider) CreateTransaction(ctx context.Context, req payments.TransactionRequest) (payments.TransactionResult, error) {
	if s.createTransaction == nil {
		return payments.TransactionResult{}, errStubUnexpectedCall
	}
	return s.createTransaction(ctx, req)
}

type stubNotifier struct {
	send func(ctx context.Context, phone, orderNo string) error
}

func (s *stubNotifier) SendPaymentSuccess(ctx context.Context, phone, orderNo string) error {
	if s.send == nil {
		return errStubUnexpectedCall
	}
	return s.send(ctx, phone, orderNo)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
