package store

import (
	"context"
	"database/sql"
	"errors"

	"sales-service/internal/models"
)

// CreateProduct inserts a new catalog product.
func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (category_id, name, value, stock_quantity)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, p, query, p.CategoryID, p.Name, p.Value, p.StockQuantity)
}

// GetProductByID retrieves a product by ID. Returns nil when absent.
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProducts retrieves all products
func (s *Store) GetProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products, "SELECT * FROM products ORDER BY id")
	return products, err
}

// GetProductsByCategory retrieves products belonging to one category.
func (s *Store) GetProductsByCategory(ctx context.Context, categoryID int64) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products,
		"SELECT * FROM products WHERE category_id = $1 ORDER BY id", categoryID)
	return products, err
}

// UpdateProduct updates name, value and category. Stock moves only through
// the transactional stock mutators.
func (s *Store) UpdateProduct(ctx context.Context, p *models.Product) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE products SET category_id = $1, name = $2, value = $3, updated_at = NOW()
		 WHERE id = $4`,
		p.CategoryID, p.Name, p.Value, p.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteProduct removes a product.
func (s *Store) DeleteProduct(ctx context.Context, id int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CreateCategory inserts a new category.
func (s *Store) CreateCategory(ctx context.Context, c *models.Category) error {
	return s.db.GetContext(ctx, &c.ID,
		"INSERT INTO categories (name) VALUES ($1) RETURNING id", c.Name)
}

// GetCategories retrieves all categories.
func (s *Store) GetCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := s.db.SelectContext(ctx, &categories, "SELECT * FROM categories ORDER BY id")
	return categories, err
}

func (t *sqlTx) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := t.tx.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (t *sqlTx) GetProductForUpdate(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := t.tx.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1 FOR UPDATE", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (t *sqlTx) UpdateProductStock(ctx context.Context, p *models.Product) (int64, error) {
	res, err := t.tx.ExecContext(ctx,
		"UPDATE products SET stock_quantity = $1, updated_at = NOW() WHERE id = $2",
		p.StockQuantity, p.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
