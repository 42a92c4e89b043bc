package gormstore

import (
	"context"
	"errors"

	domain "github.com/talaad-shop/api/internal/domain"
	"github.com/talaad-shop/api/internal/repositories"
)

type orderRepository struct {
	store *Store
}

func (r *orderRepository) Insert(ctx context.Context, order *domain.Order) error {
	if err := r.store.conn(ctx).Create(order).Error; err != nil {
		return classify("insert order", err)
	}
	return nil
}

func (r *orderRepository) FindByID(ctx context.Context, orderID uint) (domain.Order, error) {
	var order domain.Order
	err := r.store.conn(ctx).Preload("Items").First(&order, orderID).Error
	if err != nil {
		return domain.Order{}, classify("find order by id", err)
	}
	return order, nil
}

func (r *orderRepository) FindByOrderNo(ctx context.Context, orderNo string) (domain.Order, error) {
	var order domain.Order
	err := r.store.conn(ctx).Preload("Items").Where("order_no = ?", orderNo).First(&order).Error
	if err != nil {
		return domain.Order{}, classify("find order by order_no", err)
	}
	return order, nil
}

func (r *orderRepository) UpdatePaymentStatus(ctx context.Context, orderID uint, from, to domain.PaymentStatus) error {
	res := r.store.conn(ctx).Model(&domain.Order{}).
		Where("id = ? AND payment_status = ?", orderID, from).
		Update("payment_status", to)
	if res.Error != nil {
		return classify("update order payment_status", res.Error)
	}
	if res.RowsAffected == 0 {
		return conflictRows("update order payment_status")
	}
	return nil
}

func conflictRows(op string) error {
	return repositories.NewConflict(op, errors.New("no rows affected"))
}
