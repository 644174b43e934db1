package models

import (
	"database/sql"
	"time"

	"sales-service/internal/outcome"
)

// OrderStatus is the order lifecycle state. Transitions go strictly
// PREPARING -> SENT -> FINISHED.
type OrderStatus string

const (
	OrderStatusPreparing OrderStatus = "PREPARING"
	OrderStatusSent      OrderStatus = "SENT"
	OrderStatusFinished  OrderStatus = "FINISHED"
)

// Order is the order aggregate. TotalValue (cents) is maintained
// incrementally by the line mutators and always equals the sum of
// LineItem.Amount * LineItem.Price at any committed state.
type Order struct {
	ID          int64         `db:"id" json:"id"`
	UserID      sql.NullInt64 `db:"user_id" json:"user_id,omitempty"`
	AffiliateID sql.NullInt64 `db:"affiliate_id" json:"affiliate_id,omitempty"`
	Holder      string        `db:"holder" json:"holder,omitempty"`
	Note        string        `db:"note" json:"note,omitempty"`
	TotalValue  int64         `db:"total_value" json:"total_value"`
	Status      OrderStatus   `db:"status" json:"status"`
	OrderDate   time.Time     `db:"order_date" json:"order_date"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

// NewOrder creates an order in PREPARING with no line items and zero total.
func NewOrder(userID, affiliateID *int64, holder, note string) *Order {
	o := &Order{
		Holder:    holder,
		Note:      note,
		Status:    OrderStatusPreparing,
		OrderDate: time.Now().UTC(),
	}
	if userID != nil {
		o.UserID = sql.NullInt64{Int64: *userID, Valid: true}
	}
	if affiliateID != nil {
		o.AffiliateID = sql.NullInt64{Int64: *affiliateID, Valid: true}
	}
	return o
}

// Editable reports whether line items may still be added or removed.
func (o *Order) Editable() bool {
	return o.Status == OrderStatusPreparing
}

// Send transitions PREPARING -> SENT. Stock checks belong to the caller;
// this only guards the state machine.
func (o *Order) Send() error {
	if o.Status != OrderStatusPreparing {
		return outcome.New(outcome.OrderFinishedOrSent, "order %d is %s", o.ID, o.Status)
	}
	o.Status = OrderStatusSent
	return nil
}

// Finish transitions SENT -> FINISHED. Finishing requires having passed
// through SENT.
func (o *Order) Finish() error {
	switch o.Status {
	case OrderStatusSent:
		o.Status = OrderStatusFinished
		return nil
	case OrderStatusPreparing:
		return outcome.New(outcome.OrderNotSent, "order %d has not been sent", o.ID)
	default:
		return outcome.New(outcome.OrderFinishedOrSent, "order %d is %s", o.ID, o.Status)
	}
}

// ApplyLineDelta adjusts TotalValue by delta cents, refusing a negative
// total.
func (o *Order) ApplyLineDelta(delta int64) error {
	if o.TotalValue+delta < 0 {
		return outcome.New(outcome.IncorrectFormatData, "order %d total would become negative", o.ID)
	}
	o.TotalValue += delta
	return nil
}

// LineItem is one priced, quantified product entry on an order. Price is the
// unit price snapshot (cents) taken when the product was first added and is
// immutable afterwards.
type LineItem struct {
	ID        int64 `db:"id" json:"id"`
	OrderID   int64 `db:"order_id" json:"order_id"`
	ProductID int64 `db:"product_id" json:"product_id"`
	Amount    int   `db:"amount" json:"amount"`
	Price     int64 `db:"price" json:"price"`
}

// Subtotal is the line's contribution to the order total.
func (li *LineItem) Subtotal() int64 {
	return int64(li.Amount) * li.Price
}
