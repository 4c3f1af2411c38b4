package models

import "time"

// Book represents a catalog listing. Prices are stored in cents.
type Book struct {
	ID        string    `db:"id" json:"id"`
	SellerID  string    `db:"seller_id" json:"seller_id"`
	Title     string    `db:"title" json:"title"`
	Author    string    `db:"author" json:"author"`
	Price     int64     `db:"price" json:"price"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Buyer represents a customer account
type Buyer struct {
	ID              string    `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	Email           string    `db:"email" json:"email"`
	ShippingAddress string    `db:"shipping_address" json:"shipping_address"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// Seller represents a merchant account
type Seller struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	CompanyName string    `db:"company_name" json:"company_name"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// CartItem is one line of a buyer's persistent cart
type CartItem struct {
	BuyerID  string `db:"buyer_id" json:"buyer_id"`
	BookID   string `db:"book_id" json:"book_id"`
	Quantity int    `db:"quantity" json:"quantity"`
}

// InventoryEntry is the sellable stock a seller holds for one book.
// Count never goes negative; it is decremented only by the shipment
// reconciliation transaction.
type InventoryEntry struct {
	SellerID  string    `db:"seller_id" json:"seller_id"`
	BookID    string    `db:"book_id" json:"book_id"`
	Count     int       `db:"count" json:"count"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Order represents one purchase transaction. An order belongs to exactly
// one buyer and one seller; items, totals and the shipping address snapshot
// are immutable after creation. Only Status changes, through the lifecycle
// transition rules.
type Order struct {
	ID              string    `db:"id" json:"id"`
	BuyerID         string    `db:"buyer_id" json:"buyer_id"`
	SellerID        string    `db:"seller_id" json:"seller_id"`
	TotalAmount     int64     `db:"total_amount" json:"total_amount"`
	Status          string    `db:"status" json:"status"`
	ShippingAddress string    `db:"shipping_address" json:"shipping_address"`
	IdempotencyKey  string    `db:"idempotency_key" json:"idempotency_key,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// OrderItem represents one book+quantity line within an order
type OrderItem struct {
	ID        int64  `db:"id" json:"id"`
	OrderID   string `db:"order_id" json:"order_id"`
	BookID    string `db:"book_id" json:"book_id"`
	Quantity  int    `db:"quantity" json:"quantity"`
	UnitPrice int64  `db:"unit_price" json:"unit_price"`
	LineTotal int64  `db:"line_total" json:"line_total"`
}

// Order statuses
const (
	OrderStatusPending   = "Pending"
	OrderStatusShipped   = "Shipped"
	OrderStatusDelivered = "Delivered"
	OrderStatusCancelled = "Cancelled"
)

// transitions holds the forward-only edges of the order state machine.
// Delivered and Cancelled are terminal. Repeating a same-state request is
// not an edge, so it fails like any other invalid transition.
var transitions = map[string][]string{
	OrderStatusPending: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped: {OrderStatusDelivered},
}

// ValidStatus reports whether s is one of the enumerated order statuses.
func ValidStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether the state machine has an edge from -> to.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Caller roles propagated by the upstream gateway
const (
	RoleBuyer  = "buyer"
	RoleSeller = "seller"
)

// ProcessedEvent for consumer idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
