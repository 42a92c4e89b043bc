package domain

import (
	"time"

	"gorm.io/gorm"
)

// PaymentStatus tracks how far an order has progressed through payment.
type PaymentStatus string

const (
	// PaymentStatusPending indicates no authoritative gateway result has arrived yet.
	PaymentStatusPending PaymentStatus = "pending"
	// PaymentStatusPaid indicates the gateway confirmed the payment.
	PaymentStatusPaid PaymentStatus = "paid"
	// PaymentStatusFailed indicates the gateway reported a terminal failure.
	PaymentStatusFailed PaymentStatus = "failed"
)

// Terminal reports whether the status permits no further transitions.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusPaid || s == PaymentStatusFailed
}

// FulfillStatus tracks back-office fulfilment progress. The reconciliation
// flow never mutates it.
type FulfillStatus string

const (
	FulfillStatusPending    FulfillStatus = "pending"
	FulfillStatusProcessing FulfillStatus = "processing"
	FulfillStatusShipped    FulfillStatus = "shipped"
	FulfillStatusCompleted  FulfillStatus = "completed"
	FulfillStatusCancelled  FulfillStatus = "cancelled"
)

// TransactionStatus is the state of a single collection attempt.
type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "pending"
	TransactionStatusSuccess TransactionStatus = "success"
	TransactionStatusFailed  TransactionStatus = "failed"
)

// Product is a catalog entry. Checkout consumes it read-only; the stored
// price is authoritative over anything the client submits.
type Product struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name string `gorm:"size:255;not null" json:"name"`
	// Price is in satang.
	Price      int64 `gorm:"not null" json:"price"`
	Active     bool  `gorm:"not null;default:true" json:"active"`
	IsFreeGift bool  `gorm:"not null;default:false" json:"is_free_gift"`
}

func (Product) TableName() string { return "products" }

// Order is one checkout. Created atomically with its items; after creation
// only PaymentStatus is mutated, and only by the webhook reconciler.
type Order struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	OrderNo string `gorm:"size:32;uniqueIndex;not null" json:"order_no"`

	CustomerName  string `gorm:"size:255;not null" json:"customer_name"`
	CustomerPhone string `gorm:"size:32;not null" json:"customer_phone"`
	CustomerEmail string `gorm:"size:255" json:"customer_email"`

	AddressLine string `gorm:"size:512;not null" json:"address_line"`
	Subdistrict string `gorm:"size:128;not null" json:"subdistrict"`
	District    string `gorm:"size:128;not null" json:"district"`
	Province    string `gorm:"size:128;not null" json:"province"`
	PostalCode  string `gorm:"size:10;not null" json:"postal_code"`

	// TotalAmount is in satang and always equals the sum of the items'
	// TotalPrice.
	TotalAmount   int64         `gorm:"not null" json:"total_amount"`
	PaymentStatus PaymentStatus `gorm:"size:16;not null;default:pending;index" json:"payment_status"`
	FulfillStatus FulfillStatus `gorm:"size:16;not null;default:pending" json:"fulfill_status"`

	Items []OrderItem `gorm:"constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

func (Order) TableName() string { return "orders" }

// OrderItem is one immutable line of an order.
type OrderItem struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	OrderID   uint `gorm:"not null;index" json:"order_id"`
	ProductID uint `gorm:"not null;index" json:"product_id"`
	Quantity  int  `gorm:"not null" json:"quantity"`
	// UnitPrice and TotalPrice are in satang; TotalPrice = Quantity * UnitPrice.
	UnitPrice  int64 `gorm:"not null" json:"unit_price"`
	TotalPrice int64 `gorm:"not null" json:"total_price"`
	IsFreeGift bool  `gorm:"not null;default:false" json:"is_free_gift"`
}

func (OrderItem) TableName() string { return "order_items" }

// Payment is one attempt to collect money for an order. Retries create new
// rows; the most recent row per order is the reconciliation target.
type Payment struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OrderID uint   `gorm:"not null;index" json:"order_id"`
	Gateway string `gorm:"size:64;not null" json:"gateway"`
	// GatewayTxnID stays empty until the gateway reports a result.
	GatewayTxnID string            `gorm:"size:128;index" json:"gateway_txn_id"`
	Amount       int64             `gorm:"not null" json:"amount"`
	Status       TransactionStatus `gorm:"size:16;not null;default:pending" json:"status"`
	// RawResponse retains the gateway payload verbatim for audit.
	RawResponse string `gorm:"type:text" json:"-"`
}

func (Payment) TableName() string { return "payments" }

// CartLine is a transient checkout line. It is never persisted directly;
// the order assembler turns validated lines into OrderItems.
type CartLine struct {
	ProductID uint  `json:"product_id"`
	Quantity  int   `json:"quantity"`
	UnitPrice int64 `json:"unit_price"`
}

// LineTotal returns the line's contribution to the order total in satang.
func (l CartLine) LineTotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}
