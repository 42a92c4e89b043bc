// Package gormstore implements the ledger store repositories on gorm.
package gormstore

import (
	"context"
	"errors"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	domain "github.com/talaad-shop/api/internal/domain"
	"github.com/talaad-shop/api/internal/repositories"
)

type txContextKey struct{}

// Store bundles the gorm connection and satisfies repositories.Registry.
type Store struct {
	db *gorm.DB
}

// Open connects to the sqlite ledger database and migrates the schema.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, repositories.NewUnavailable("open database", err)
	}
	return New(db)
}

// New wraps an existing gorm connection and migrates the schema.
func New(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("gormstore: db is required")
	}
	if err := db.AutoMigrate(
		&domain.Product{},
		&domain.Order{},
		&domain.OrderItem{},
		&domain.Payment{},
	); err != nil {
		return nil, repositories.NewUnavailable("migrate schema", err)
	}
	return &Store{db: db}, nil
}

// Ping verifies the database connection, for readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return repositories.NewUnavailable("ping database", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying database connection.
func (s *Store) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return repositories.NewUnavailable("close database", err)
	}
	return sqlDB.Close()
}

// Orders returns the order repository.
func (s *Store) Orders() repositories.OrderRepository { return &orderRepository{store: s} }

// Payments returns the payment repository.
func (s *Store) Payments() repositories.PaymentRepository { return &paymentRepository{store: s} }

// Products returns the product repository.
func (s *Store) Products() repositories.ProductRepository { return &productRepository{store: s} }

// RunInTx executes fn inside a single database transaction. Repository calls
// made with the context passed to fn join the transaction.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txContextKey{}, tx))
	})
}

// conn returns the transaction bound to ctx when inside RunInTx, otherwise
// the root connection.
func (s *Store) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txContextKey{}).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return s.db.WithContext(ctx)
}

// classify maps gorm failures onto the repository error taxonomy. sqlite has
// no typed unique-violation error, so the error text is inspected the same
// way the driver reports it.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repositories.NewNotFound(op, err)
	}
	if isUniqueViolation(err) {
		return repositories.NewConflict(op, err)
	}
	return repositories.NewUnavailable(op, err)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(strings.ToLower(msg), "duplicate")
}
