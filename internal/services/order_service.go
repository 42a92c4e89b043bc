package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	domain "github.com/talaad-shop/api/internal/domain"
	"github.com/talaad-shop/api/internal/repositories"
)

const (
	orderEventCreated       = "order.created"
	orderNoMaxAttempts      = 5
	orderNoRandomDigits     = 100000
	orderEventNumberRetried = "order.number.retried"
)

var (
	// ErrOrderInvalidInput signals the caller provided invalid data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrProductNotFound indicates a cart line references an unknown product.
	ErrProductNotFound = errors.New("order: product not found")
	// ErrProductInactive indicates a cart line references a retired product.
	ErrProductInactive = errors.New("order: product inactive")
	// ErrOrderNumberExhausted indicates repeated order-number collisions.
	ErrOrderNumberExhausted = errors.New("order: could not allocate a unique order number")
)

// ValidationError names the first offending input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("order: invalid field %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrOrderInvalidInput }

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders     repositories.OrderRepository
	Products   repositories.ProductRepository
	UnitOfWork repositories.UnitOfWork
	GiftRule   FreeGiftRule
	Clock      func() time.Time
	// RandomDigits returns a value in [0, orderNoRandomDigits); overridable in tests.
	RandomDigits func() int
	Logger       func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders       repositories.OrderRepository
	products     repositories.ProductRepository
	unitOfWork   repositories.UnitOfWork
	giftRule     FreeGiftRule
	clock        func() time.Time
	randomDigits func() int
	logger       func(ctx context.Context, event string, fields map[string]any)
}

// NewOrderService wires an OrderService from its dependencies.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order: order repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("order: product repository is required")
	}
	if deps.UnitOfWork == nil {
		return nil, errors.New("order: unit of work is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	random := deps.RandomDigits
	if random == nil {
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		random = func() int { return rng.Intn(orderNoRandomDigits) }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &orderService{
		orders:       deps.Orders,
		products:     deps.Products,
		unitOfWork:   deps.UnitOfWork,
		giftRule:     deps.GiftRule,
		clock:        clock,
		randomDigits: random,
		logger:       logger,
	}, nil
}

func (s *orderService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (CreateOrderResult, error) {
	if err := validateOrderCommand(cmd); err != nil {
		return CreateOrderResult{}, err
	}

	lines, err := s.priceLines(ctx, cmd.Lines)
	if err != nil {
		return CreateOrderResult{}, err
	}
	lines = s.giftRule.Apply(lines)
	// A cart holding only gift lines prices down to nothing; the gift is a
	// reward on a purchase, not a purchasable item.
	if len(lines) == 0 {
		return CreateOrderResult{}, &ValidationError{Field: "items", Message: "cart must contain at least one purchasable item"}
	}

	var total int64
	items := make([]domain.OrderItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, domain.OrderItem{
			ProductID:  line.ProductID,
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPrice,
			TotalPrice: line.LineTotal(),
			IsFreeGift: s.giftRule.Enabled() && line.ProductID == s.giftRule.ProductID,
		})
		total += line.LineTotal()
	}

	var created domain.Order
	for attempt := 1; attempt <= orderNoMaxAttempts; attempt++ {
		order := domain.Order{
			OrderNo:       s.newOrderNo(),
			CustomerName:  strings.TrimSpace(cmd.CustomerName),
			CustomerPhone: strings.TrimSpace(cmd.CustomerPhone),
			CustomerEmail: strings.TrimSpace(cmd.CustomerEmail),
			AddressLine:   strings.TrimSpace(cmd.AddressLine),
			Subdistrict:   strings.TrimSpace(cmd.Subdistrict),
			District:      strings.TrimSpace(cmd.District),
			Province:      strings.TrimSpace(cmd.Province),
			PostalCode:    strings.TrimSpace(cmd.PostalCode),
			TotalAmount:   total,
			PaymentStatus: domain.PaymentStatusPending,
			FulfillStatus: domain.FulfillStatusPending,
			Items:         items,
		}

		err := s.unitOfWork.RunInTx(ctx, func(ctx context.Context) error {
			return s.orders.Insert(ctx, &order)
		})
		if err == nil {
			created = order
			break
		}
		if isConflict(err) && attempt < orderNoMaxAttempts {
			s.logger(ctx, orderEventNumberRetried, map[string]any{
				"orderNo": order.OrderNo,
				"attempt": attempt,
			})
			continue
		}
		if isConflict(err) {
			return CreateOrderResult{}, fmt.Errorf("%w after %d attempts", ErrOrderNumberExhausted, orderNoMaxAttempts)
		}
		return CreateOrderResult{}, fmt.Errorf("order: persist order: %w", err)
	}

	s.logger(ctx, orderEventCreated, map[string]any{
		"orderId":     created.ID,
		"orderNo":     created.OrderNo,
		"totalAmount": created.TotalAmount,
		"items":       len(created.Items),
	})

	return CreateOrderResult{
		OrderID:     created.ID,
		OrderNo:     created.OrderNo,
		TotalAmount: created.TotalAmount,
	}, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID uint) (Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if isNotFound(err) {
			return Order{}, fmt.Errorf("%w: id %d", ErrOrderNotFound, orderID)
		}
		return Order{}, fmt.Errorf("order: load order: %w", err)
	}
	return order, nil
}

// priceLines re-fetches each product and replaces client-submitted prices
// with the stored catalog price. The gift line is synthesised later and is
// therefore never validated here.
func (s *orderService) priceLines(ctx context.Context, lines []CartLine) ([]CartLine, error) {
	priced := make([]CartLine, 0, len(lines))
	for _, line := range lines {
		if s.giftRule.Enabled() && line.ProductID == s.giftRule.ProductID {
			continue
		}
		product, err := s.products.FindByID(ctx, line.ProductID)
		if err != nil {
			if isNotFound(err) {
				return nil, fmt.Errorf("%w: id %d", ErrProductNotFound, line.ProductID)
			}
			return nil, fmt.Errorf("order: load product %d: %w", line.ProductID, err)
		}
		if !product.Active {
			return nil, fmt.Errorf("%w: id %d", ErrProductInactive, line.ProductID)
		}
		priced = append(priced, CartLine{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: product.Price,
		})
	}
	return priced, nil
}

func (s *orderService) newOrderNo() string {
	now := s.clock()
	return fmt.Sprintf("ORD-%s-%05d", now.Format("20060102"), s.randomDigits())
}

func validateOrderCommand(cmd CreateOrderCommand) error {
	required := []struct {
		field string
		value string
	}{
		{"customer_name", cmd.CustomerName},
		{"customer_phone", cmd.CustomerPhone},
		{"address_line", cmd.AddressLine},
		{"subdistrict", cmd.Subdistrict},
		{"district", cmd.District},
		{"province", cmd.Province},
		{"postal_code", cmd.PostalCode},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &ValidationError{Field: r.field, Message: "must not be empty"}
		}
	}
	if len(cmd.Lines) == 0 {
		return &ValidationError{Field: "items", Message: "cart must contain at least one item"}
	}
	for i, line := range cmd.Lines {
		if line.ProductID == 0 {
			return &ValidationError{Field: fmt.Sprintf("items[%d].product_id", i), Message: "must be a valid product id"}
		}
		if line.Quantity <= 0 {
			return &ValidationError{Field: fmt.Sprintf("items[%d].quantity", i), Message: "must be greater than zero"}
		}
	}
	return nil
}

func isNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

func isConflict(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsConflict()
}
