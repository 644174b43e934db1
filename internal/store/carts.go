package store

import (
	"context"
	"database/sql"
	"errors"

	"sales-service/internal/models"
)

// GetCartWithLines retrieves a user's cart together with its lines. Returns
// (nil, nil, nil) when the user has no cart yet.
func (s *Store) GetCartWithLines(ctx context.Context, userID int64) (*models.ShoppingCart, []models.ShoppingCartProduct, error) {
	var cart models.ShoppingCart
	err := s.db.GetContext(ctx, &cart, "SELECT * FROM shopping_carts WHERE user_id = $1", userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	var lines []models.ShoppingCartProduct
	err = s.db.SelectContext(ctx, &lines,
		"SELECT * FROM shopping_cart_products WHERE shopping_cart_id = $1 ORDER BY product_id", cart.ID)
	if err != nil {
		return nil, nil, err
	}
	return &cart, lines, nil
}

func (t *sqlTx) GetCartForUpdate(ctx context.Context, userID int64) (*models.ShoppingCart, error) {
	var cart models.ShoppingCart
	err := t.tx.GetContext(ctx, &cart,
		"SELECT * FROM shopping_carts WHERE user_id = $1 FOR UPDATE", userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (t *sqlTx) InsertCart(ctx context.Context, c *models.ShoppingCart) error {
	query := `
		INSERT INTO shopping_carts (user_id, total_value, products_count)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`

	return t.tx.GetContext(ctx, c, query, c.UserID, c.TotalValue, c.ProductsCount)
}

func (t *sqlTx) UpdateCart(ctx context.Context, c *models.ShoppingCart) (int64, error) {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE shopping_carts SET total_value = $1, products_count = $2, updated_at = NOW()
		 WHERE id = $3`,
		c.TotalValue, c.ProductsCount, c.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (t *sqlTx) GetCartLine(ctx context.Context, cartID, productID int64) (*models.ShoppingCartProduct, error) {
	var line models.ShoppingCartProduct
	err := t.tx.GetContext(ctx, &line,
		"SELECT * FROM shopping_cart_products WHERE shopping_cart_id = $1 AND product_id = $2",
		cartID, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &line, nil
}

func (t *sqlTx) GetCartLines(ctx context.Context, cartID int64) ([]models.ShoppingCartProduct, error) {
	var lines []models.ShoppingCartProduct
	err := t.tx.SelectContext(ctx, &lines,
		"SELECT * FROM shopping_cart_products WHERE shopping_cart_id = $1 ORDER BY product_id", cartID)
	return lines, err
}

func (t *sqlTx) InsertCartLine(ctx context.Context, l *models.ShoppingCartProduct) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO shopping_cart_products (shopping_cart_id, product_id, amount, checked)
		 VALUES ($1, $2, $3, $4)`,
		l.ShoppingCartID, l.ProductID, l.Amount, l.Checked)
	return err
}

func (t *sqlTx) UpdateCartLine(ctx context.Context, l *models.ShoppingCartProduct) (int64, error) {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE shopping_cart_products SET amount = $1, checked = $2
		 WHERE shopping_cart_id = $3 AND product_id = $4`,
		l.Amount, l.Checked, l.ShoppingCartID, l.ProductID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (t *sqlTx) DeleteCartLine(ctx context.Context, cartID, productID int64) (int64, error) {
	res, err := t.tx.ExecContext(ctx,
		"DELETE FROM shopping_cart_products WHERE shopping_cart_id = $1 AND product_id = $2",
		cartID, productID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (t *sqlTx) DeleteCartLines(ctx context.Context, cartID int64) (int64, error) {
	res, err := t.tx.ExecContext(ctx,
		"DELETE FROM shopping_cart_products WHERE shopping_cart_id = $1", cartID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
