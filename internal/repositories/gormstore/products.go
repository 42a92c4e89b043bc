package gormstore

import (
	"context"

	domain "github.com/talaad-shop/api/internal/domain"
)

type productRepository struct {
	store *Store
}

func (r *productRepository) FindByID(ctx context.Context, productID uint) (domain.Product, error) {
	var product domain.Product
	err := r.store.conn(ctx).First(&product, productID).Error
	if err != nil {
		return domain.Product{}, classify("find product by id", err)
	}
	return product, nil
}

func (r *productRepository) ListActive(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	err := r.store.conn(ctx).
		Where("active = ?", true).
		Order("id ASC").
		Find(&products).Error
	if err != nil {
		return nil, classify("list active products", err)
	}
	return products, nil
}
