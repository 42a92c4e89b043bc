package gormstore

import (
	"context"
	"errors"

	domain "github.com/talaad-shop/api/internal/domain"
	"github.com/talaad-shop/api/internal/repositories"
)

type paymentRepository struct {
	store *Store
}

func (r *paymentRepository) Insert(ctx context.Context, payment *domain.Payment) error {
	if err := r.store.conn(ctx).Create(payment).Error; err != nil {
		return classify("insert payment", err)
	}
	return nil
}

func (r *paymentRepository) LatestForOrder(ctx context.Context, orderID uint) (domain.Payment, error) {
	var payment domain.Payment
	err := r.store.conn(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC, id DESC").
		First(&payment).Error
	if err != nil {
		return domain.Payment{}, classify("latest payment for order", err)
	}
	return payment, nil
}

func (r *paymentRepository) UpdateResult(ctx context.Context, paymentID uint, txnID string, status domain.TransactionStatus, raw string) error {
	res := r.store.conn(ctx).Model(&domain.Payment{}).
		Where("id = ?", paymentID).
		Updates(map[string]any{
			"gateway_txn_id": txnID,
			"status":         status,
			"raw_response":   raw,
		})
	if res.Error != nil {
		return classify("update payment result", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFoundRows("update payment result")
	}
	return nil
}

func notFoundRows(op string) error {
	return repositories.NewNotFound(op, errors.New("no rows affected"))
}
