package models

import "time"

// Event types
const (
	EventTypeOrderSent     = "ORDER_SENT"
	EventTypeOrderFinished = "ORDER_FINISHED"
	EventTypeCartCleared   = "CART_CLEARED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderSentEvent published when an order leaves PREPARING and stock is
// committed
type OrderSentEvent struct {
	BaseEvent
	OrderID    int64           `json:"order_id"`
	UserID     int64           `json:"user_id,omitempty"`
	TotalValue int64           `json:"total_value"`
	Items      []OrderItemData `json:"items"`
}

// OrderFinishedEvent published when an order reaches its terminal state
type OrderFinishedEvent struct {
	BaseEvent
	OrderID     int64 `json:"order_id"`
	UserID      int64 `json:"user_id,omitempty"`
	AffiliateID int64 `json:"affiliate_id,omitempty"`
	TotalValue  int64 `json:"total_value"`
}

// CartClearedEvent published when a cart is emptied (checkout or explicit
// clear)
type CartClearedEvent struct {
	BaseEvent
	CartID       int64 `json:"cart_id"`
	UserID       int64 `json:"user_id"`
	LinesRemoved int   `json:"lines_removed"`
}

// OrderItemData represents line item data in events
type OrderItemData struct {
	ProductID int64 `json:"product_id"`
	Amount    int   `json:"amount"`
	Price     int64 `json:"price"`
}
