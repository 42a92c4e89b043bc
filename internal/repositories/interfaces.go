package repositories

import (
	"context"

	domain "github.com/talaad-shop/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Orders() OrderRepository
	Payments() PaymentRepository
	Products() ProductRepository
	UnitOfWork
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork allows grouping repository operations in a transactional boundary.
// Repository calls made with the context passed to fn join the transaction;
// an error return rolls back every write made inside fn.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// OrderRepository persists orders and their owned line items.
type OrderRepository interface {
	// Insert writes the order together with all of its items. Inside a
	// transaction either everything or nothing becomes visible.
	Insert(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, orderID uint) (domain.Order, error)
	FindByOrderNo(ctx context.Context, orderNo string) (domain.Order, error)
	// UpdatePaymentStatus transitions payment_status only while the row still
	// holds from, reporting a conflict otherwise. Concurrent webhook
	// deliveries therefore settle the status exactly once.
	UpdatePaymentStatus(ctx context.Context, orderID uint, from, to domain.PaymentStatus) error
}

// PaymentRepository persists collection attempts against orders.
type PaymentRepository interface {
	Insert(ctx context.Context, payment *domain.Payment) error
	// LatestForOrder returns the most recently created payment row for the
	// order; this is the row webhook reconciliation updates.
	LatestForOrder(ctx context.Context, orderID uint) (domain.Payment, error)
	// UpdateResult binds the gateway transaction id, normalised status, and
	// raw payload to an existing payment row.
	UpdateResult(ctx context.Context, paymentID uint, txnID string, status domain.TransactionStatus, raw string) error
}

// ProductRepository reads catalog entries for checkout validation.
type ProductRepository interface {
	FindByID(ctx context.Context, productID uint) (domain.Product, error)
	ListActive(ctx context.Context) ([]domain.Product, error)
}
