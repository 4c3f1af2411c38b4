package models

import "time"

// Event types
const (
	EventTypeOrderPlaced    = "ORDER_PLACED"
	EventTypeOrderShipped   = "ORDER_SHIPPED"
	EventTypeOrderDelivered = "ORDER_DELIVERED"
	EventTypeOrderCancelled = "ORDER_CANCELLED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	BookID    string `json:"book_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

// OrderPlacedEvent published when checkout creates an order
type OrderPlacedEvent struct {
	BaseEvent
	OrderID     string          `json:"order_id"`
	BuyerID     string          `json:"buyer_id"`
	SellerID    string          `json:"seller_id"`
	TotalAmount int64           `json:"total_amount"`
	Items       []OrderItemData `json:"items"`
}

// OrderShippedEvent published after a successful ship transition, once the
// seller's inventory has been decremented.
type OrderShippedEvent struct {
	BaseEvent
	OrderID  string          `json:"order_id"`
	SellerID string          `json:"seller_id"`
	Items    []OrderItemData `json:"items"`
}

// OrderDeliveredEvent published when an order reaches Delivered
type OrderDeliveredEvent struct {
	BaseEvent
	OrderID string `json:"order_id"`
	BuyerID string `json:"buyer_id"`
}

// OrderCancelledEvent published when a pending order is cancelled
type OrderCancelledEvent struct {
	BaseEvent
	OrderID     string `json:"order_id"`
	CancelledBy string `json:"cancelled_by"`
}
