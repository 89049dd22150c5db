package models

import "time"

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusBooked     OrderStatus = "BOOKED"
	StatusPurchased  OrderStatus = "PURCHASED"
	StatusCancelled  OrderStatus = "CANCELLED"
	StatusExpired    OrderStatus = "EXPIRED"
	StatusOutOfStock OrderStatus = "OUT_OF_STOCK"
)

// Valid reports whether the status is one of the five recognized values.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusBooked, StatusPurchased, StatusCancelled, StatusExpired, StatusOutOfStock:
		return true
	}
	return false
}

// PaymentStatus is the payment state of an order.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

// OrderItem is one line of an order. UnitPrice and ImageURL are snapshots
// taken from the product catalog at booking time.
type OrderItem struct {
	ID          int64  `json:"id"`
	OrderID     int64  `json:"order_id"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"` // paise
	Color       string `json:"color,omitempty"`
	Size        string `json:"size,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// HistoryEntry is one immutable audit record of a status change.
// History is append-only: entries are never updated or removed.
type HistoryEntry struct {
	ID        int64       `json:"id"`
	OrderID   int64       `json:"order_id"`
	Status    OrderStatus `json:"status"`
	ChangedBy int64       `json:"changed_by"`
	ChangedAt time.Time   `json:"changed_at"`
}

// OwnerInfo is the subset of owner fields a populated order exposes.
type OwnerInfo struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Mobile string `json:"mobile,omitempty"`
}

// Order is a customer's booked selection of products pending collection,
// not an immediate point-of-sale transaction.
type Order struct {
	ID              int64          `json:"id"`
	UserID          int64          `json:"user_id"`
	Items           []OrderItem    `json:"items"`
	Status          OrderStatus    `json:"status"`
	PaymentStatus   PaymentStatus  `json:"payment_status"`
	RazorpayOrderID string         `json:"razorpay_order_id,omitempty"`
	TransactionID   string         `json:"transaction_id,omitempty"` // gateway payment id, set once
	TotalAmount     int64          `json:"total_amount"`             // paise
	History         []HistoryEntry `json:"history,omitempty"`
	Owner           *OwnerInfo     `json:"owner,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}
