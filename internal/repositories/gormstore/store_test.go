package gormstore

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	domain "github.com/talaad-shop/api/internal/domain"
	"github.com/talaad-shop/api/internal/repositories"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	// A named shared-cache database keeps every pooled connection of this
	// test on the same in-memory store without leaking across tests.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	store, err := New(db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close(context.Background())
	})
	return store
}

func seedOrder(t *testing.T, store *Store, orderNo string) domain.Order {
	t.Helper()
	order := domain.Order{
		OrderNo:       orderNo,
		CustomerName:  "Somchai Jaidee",
		CustomerPhone: "0812345678",
		AddressLine:   "99/1 Sukhumvit Rd",
		Subdistrict:   "Khlong Toei",
		District:      "Khlong Toei",
		Province:      "Bangkok",
		PostalCode:    "10110",
		TotalAmount:   120000,
		PaymentStatus: domain.PaymentStatusPending,
		FulfillStatus: domain.FulfillStatusPending,
		Items: []domain.OrderItem{
			{ProductID: 1, Quantity: 2, UnitPrice: 60000, TotalPrice: 120000},
		},
	}
	if err := store.Orders().Insert(context.Background(), &order); err != nil {
		t.Fatalf("insert order: %v", err)
	}
	return order
}

func TestOrderInsertAndLookup(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	order := seedOrder(t, store, "ORD-20260110-00001")

	byID, err := store.Orders().FindByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if len(byID.Items) != 1 || byID.Items[0].TotalPrice != 120000 {
		t.Fatalf("items not loaded: %#v", byID.Items)
	}

	byNo, err := store.Orders().FindByOrderNo(ctx, "ORD-20260110-00001")
	if err != nil {
		t.Fatalf("find by order_no: %v", err)
	}
	if byNo.ID != order.ID {
		t.Fatalf("expected order %d, got %d", order.ID, byNo.ID)
	}
}

func TestOrderNoUniqueConflict(t *testing.T) {
	store := newTestStore(t)
	seedOrder(t, store, "ORD-20260110-00002")

	dup := domain.Order{
		OrderNo:       "ORD-20260110-00002",
		CustomerName:  "Duplicate",
		CustomerPhone: "0899999999",
		AddressLine:   "1 Rama IV Rd",
		Subdistrict:   "Pathum Wan",
		District:      "Pathum Wan",
		Province:      "Bangkok",
		PostalCode:    "10330",
		TotalAmount:   100,
	}
	err := store.Orders().Insert(context.Background(), &dup)
	if err == nil {
		t.Fatal("expected conflict error")
	}
	var repoErr repositories.RepositoryError
	if !errors.As(err, &repoErr) || !repoErr.IsConflict() {
		t.Fatalf("expected conflict categorisation, got %v", err)
	}
}

func TestOrderLookupNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Orders().FindByOrderNo(context.Background(), "ORD-00000000-00000")
	var repoErr repositories.RepositoryError
	if !errors.As(err, &repoErr) || !repoErr.IsNotFound() {
		t.Fatalf("expected not-found categorisation, got %v", err)
	}
}

func TestOrderPaymentStatusTransitionIsConditional(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	order := seedOrder(t, store, "ORD-20260110-00001")

	err := store.Orders().UpdatePaymentStatus(ctx, order.ID, domain.PaymentStatusPending, domain.PaymentStatusPaid)
	if err != nil {
		t.Fatalf("transition pending->paid: %v", err)
	}

	// A second delivery that also observed pending loses the transition.
	err = store.Orders().UpdatePaymentStatus(ctx, order.ID, domain.PaymentStatusPending, domain.PaymentStatusFailed)
	var repoErr repositories.RepositoryError
	if !errors.As(err, &repoErr) || !repoErr.IsConflict() {
		t.Fatalf("expected conflict categorisation, got %v", err)
	}

	loaded, err := store.Orders().FindByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if loaded.PaymentStatus != domain.PaymentStatusPaid {
		t.Fatalf("payment status = %q, want paid to stand", loaded.PaymentStatus)
	}
}

func TestRunInTxRollsBackAllWrites(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	boom := errors.New("boom")
	err := store.RunInTx(ctx, func(ctx context.Context) error {
		order := domain.Order{
			OrderNo:       "ORD-20260110-00003",
			CustomerName:  "Rollback",
			CustomerPhone: "0812345678",
			AddressLine:   "1 Silom Rd",
			Subdistrict:   "Silom",
			District:      "Bang Rak",
			Province:      "Bangkok",
			PostalCode:    "10500",
			TotalAmount:   500,
			Items: []domain.OrderItem{
				{ProductID: 1, Quantity: 1, UnitPrice: 500, TotalPrice: 500},
			},
		}
		if err := store.Orders().Insert(ctx, &order); err != nil {
			return err
		}
		// Simulate a failure after the order insert succeeded.
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}

	if _, err := store.Orders().FindByOrderNo(ctx, "ORD-20260110-00003"); err == nil {
		t.Fatal("order must not be visible after rollback")
	}

	var count int64
	if err := store.db.Model(&domain.OrderItem{}).Count(&count).Error; err != nil {
		t.Fatalf("count items: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected zero order items after rollback, got %d", count)
	}
}

func TestPaymentLatestForOrder(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	order := seedOrder(t, store, "ORD-20260110-00004")

	first := domain.Payment{OrderID: order.ID, Gateway: "paysol-qr", Amount: order.TotalAmount, Status: domain.TransactionStatusPending}
	if err := store.Payments().Insert(ctx, &first); err != nil {
		t.Fatalf("insert first payment: %v", err)
	}
	second := domain.Payment{OrderID: order.ID, Gateway: "paysol-card", Amount: order.TotalAmount, Status: domain.TransactionStatusPending}
	if err := store.Payments().Insert(ctx, &second); err != nil {
		t.Fatalf("insert second payment: %v", err)
	}

	latest, err := store.Payments().LatestForOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("latest payment: %v", err)
	}
	if latest.ID != second.ID {
		t.Fatalf("expected latest payment %d, got %d", second.ID, latest.ID)
	}
}

func TestPaymentUpdateResult(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	order := seedOrder(t, store, "ORD-20260110-00005")

	payment := domain.Payment{OrderID: order.ID, Gateway: "paysol-qr", Amount: order.TotalAmount, Status: domain.TransactionStatusPending}
	if err := store.Payments().Insert(ctx, &payment); err != nil {
		t.Fatalf("insert payment: %v", err)
	}

	if err := store.Payments().UpdateResult(ctx, payment.ID, "TXN-1", domain.TransactionStatusSuccess, `{"status":"success"}`); err != nil {
		t.Fatalf("update result: %v", err)
	}

	latest, err := store.Payments().LatestForOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("latest payment: %v", err)
	}
	if latest.GatewayTxnID != "TXN-1" || latest.Status != domain.TransactionStatusSuccess {
		t.Fatalf("unexpected payment %#v", latest)
	}
	if latest.RawResponse == "" {
		t.Fatal("raw response must be retained")
	}

	err = store.Payments().UpdateResult(ctx, 9999, "TXN-X", domain.TransactionStatusFailed, "{}")
	var repoErr repositories.RepositoryError
	if !errors.As(err, &repoErr) || !repoErr.IsNotFound() {
		t.Fatalf("expected not-found for unknown payment, got %v", err)
	}
}

func TestProductsListActive(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	products := []domain.Product{
		{Name: "Jasmine Rice 5kg", Price: 25000, Active: true},
		{Name: "Retired", Price: 100, Active: false},
		{Name: "Gift Tote Bag", Price: 0, Active: true, IsFreeGift: true},
	}
	for i := range products {
		if err := store.db.Create(&products[i]).Error; err != nil {
			t.Fatalf("seed product: %v", err)
		}
	}

	active, err := store.Products().ListActive(ctx)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 active products, got %d", len(active))
	}

	if _, err := store.Products().FindByID(ctx, products[1].ID); err != nil {
		t.Fatalf("inactive product must still be fetchable by id: %v", err)
	}
}
