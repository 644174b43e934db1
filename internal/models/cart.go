package models

import (
	"time"

	"sales-service/internal/outcome"
)

// ShoppingCart is the cart aggregate, one per user. ProductsCount counts
// distinct cart lines (not quantities); TotalValue (cents) is the subtotal
// of checked lines. Both are maintained incrementally by the mutators below,
// never by re-scanning the lines.
type ShoppingCart struct {
	ID            int64     `db:"id" json:"id"`
	UserID        int64     `db:"user_id" json:"user_id"`
	TotalValue    int64     `db:"total_value" json:"total_value"`
	ProductsCount int       `db:"products_count" json:"products_count"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// NewShoppingCart creates an empty cart for the user.
func NewShoppingCart(userID int64) *ShoppingCart {
	return &ShoppingCart{UserID: userID}
}

// AddLine registers one new cart line. The count grows by one line
// regardless of the line's amount; the value grows by the line's
// contribution because new lines enter checked.
func (c *ShoppingCart) AddLine(contribution int64) error {
	if contribution < 0 {
		return outcome.New(outcome.IncorrectFormatData, "cart %d: negative line contribution", c.ID)
	}
	c.ProductsCount++
	c.TotalValue += contribution
	return nil
}

// RemoveLine unregisters a cart line. contribution must be the removed
// line's current share of TotalValue: its subtotal when checked, zero when
// unchecked.
func (c *ShoppingCart) RemoveLine(contribution int64) error {
	if c.ProductsCount == 0 {
		return outcome.New(outcome.ProductNotFound, "cart %d has no lines", c.ID)
	}
	if c.TotalValue-contribution < 0 {
		return outcome.New(outcome.IncorrectFormatData, "cart %d total would become negative", c.ID)
	}
	c.ProductsCount--
	c.TotalValue -= contribution
	return nil
}

// ApplyValueDelta shifts TotalValue by delta cents (check/uncheck toggles
// and amount updates), refusing a negative total.
func (c *ShoppingCart) ApplyValueDelta(delta int64) error {
	if c.TotalValue+delta < 0 {
		return outcome.New(outcome.IncorrectFormatData, "cart %d total would become negative", c.ID)
	}
	c.TotalValue += delta
	return nil
}

// Reset zeroes both counters. Used by ClearCart together with the bulk line
// delete, in the same transaction.
func (c *ShoppingCart) Reset() {
	c.TotalValue = 0
	c.ProductsCount = 0
}

// ShoppingCartProduct is one cart line, keyed by (cart, product). Checked
// lines are included in the current checkout pass and contribute to the
// cart's TotalValue.
type ShoppingCartProduct struct {
	ShoppingCartID int64 `db:"shopping_cart_id" json:"shopping_cart_id"`
	ProductID      int64 `db:"product_id" json:"product_id"`
	Amount         int   `db:"amount" json:"amount"`
	Checked        bool  `db:"checked" json:"checked"`
}

// Contribution is the line's share of the cart TotalValue at the given unit
// price: zero while unchecked.
func (l *ShoppingCartProduct) Contribution(unitPrice int64) int64 {
	if !l.Checked {
		return 0
	}
	return int64(l.Amount) * unitPrice
}

// Subtotal is amount times unit price regardless of the checked flag.
func (l *ShoppingCartProduct) Subtotal(unitPrice int64) int64 {
	return int64(l.Amount) * unitPrice
}
