package store

import (
	"context"
	"database/sql"
	"errors"

	"sales-service/internal/models"
)

// GetOrder retrieves an order by ID without its lines. Returns nil when
// absent.
func (s *Store) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderWithLines retrieves an order together with its line items.
func (s *Store) GetOrderWithLines(ctx context.Context, id int64) (*models.Order, []models.LineItem, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil || order == nil {
		return nil, nil, err
	}

	var lines []models.LineItem
	err = s.db.SelectContext(ctx, &lines,
		"SELECT * FROM line_items WHERE order_id = $1 ORDER BY id", id)
	if err != nil {
		return nil, nil, err
	}
	return order, lines, nil
}

// GetOrdersByUserID retrieves orders for a user, newest first.
func (s *Store) GetOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return orders, err
}

func (t *sqlTx) InsertOrder(ctx context.Context, o *models.Order) error {
	query := `
		INSERT INTO orders (user_id, affiliate_id, holder, note, total_value, status, order_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	return t.tx.GetContext(ctx, o, query,
		o.UserID, o.AffiliateID, o.Holder, o.Note, o.TotalValue, o.Status, o.OrderDate)
}

func (t *sqlTx) GetOrderForUpdate(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := t.tx.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1 FOR UPDATE", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (t *sqlTx) UpdateOrder(ctx context.Context, o *models.Order) (int64, error) {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE orders SET total_value = $1, status = $2, holder = $3, note = $4, updated_at = NOW()
		 WHERE id = $5`,
		o.TotalValue, o.Status, o.Holder, o.Note, o.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (t *sqlTx) DeleteOrder(ctx context.Context, id int64) (int64, error) {
	res, err := t.tx.ExecContext(ctx, "DELETE FROM orders WHERE id = $1", id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (t *sqlTx) GetLine(ctx context.Context, orderID, productID int64) (*models.LineItem, error) {
	var line models.LineItem
	err := t.tx.GetContext(ctx, &line,
		"SELECT * FROM line_items WHERE order_id = $1 AND product_id = $2", orderID, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &line, nil
}

func (t *sqlTx) GetLines(ctx context.Context, orderID int64) ([]models.LineItem, error) {
	var lines []models.LineItem
	err := t.tx.SelectContext(ctx, &lines,
		"SELECT * FROM line_items WHERE order_id = $1 ORDER BY id", orderID)
	return lines, err
}

func (t *sqlTx) InsertLine(ctx context.Context, li *models.LineItem) error {
	query := `
		INSERT INTO line_items (order_id, product_id, amount, price)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	return t.tx.GetContext(ctx, &li.ID, query, li.OrderID, li.ProductID, li.Amount, li.Price)
}

func (t *sqlTx) UpdateLine(ctx context.Context, li *models.LineItem) (int64, error) {
	// price is a creation-time snapshot and is deliberately not updatable
	res, err := t.tx.ExecContext(ctx,
		"UPDATE line_items SET amount = $1 WHERE id = $2", li.Amount, li.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (t *sqlTx) DeleteLine(ctx context.Context, id int64) (int64, error) {
	res, err := t.tx.ExecContext(ctx, "DELETE FROM line_items WHERE id = $1", id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
