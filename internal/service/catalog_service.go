package service

import (
	"context"

	"sales-service/internal/models"
	"sales-service/internal/outcome"
	"sales-service/internal/store"
	"sales-service/internal/util"

	"go.uber.org/zap"
)

// catalogStore is the persistence contract CatalogService needs.
type catalogStore interface {
	WithTx(ctx context.Context, fn func(tx store.Tx) error) error
	CreateProduct(ctx context.Context, p *models.Product) error
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	GetProducts(ctx context.Context) ([]models.Product, error)
	GetProductsByCategory(ctx context.Context, categoryID int64) ([]models.Product, error)
	UpdateProduct(ctx context.Context, p *models.Product) (int64, error)
	DeleteProduct(ctx context.Context, id int64) (int64, error)
	CreateCategory(ctx context.Context, c *models.Category) error
	GetCategories(ctx context.Context) ([]models.Category, error)
}

// CatalogService manages products and categories. Product reads go through
// the redis cache; every write invalidates the cached entry.
type CatalogService struct {
	store  catalogStore
	cache  productCache
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(store catalogStore, cache productCache) *CatalogService {
	return &CatalogService{
		store:  store,
		cache:  cache,
		logger: util.NamedLogger("catalog"),
	}
}

// ProductRequest carries product fields for create and update.
type ProductRequest struct {
	ID            int64  `json:"id,omitempty"`
	CategoryID    int64  `json:"category_id" binding:"required"`
	Name          string `json:"name" binding:"required"`
	Value         int64  `json:"value"`
	StockQuantity int    `json:"stock_quantity"`
}

func validateProduct(req *ProductRequest) *outcome.Error {
	fields := map[string]string{}
	if req.Name == "" {
		fields["name"] = "must not be empty"
	}
	if req.Value < 0 {
		fields["value"] = "must not be negative"
	}
	if req.StockQuantity < 0 {
		fields["stock_quantity"] = "must not be negative"
	}
	if len(fields) > 0 {
		return outcome.Invalid(fields)
	}
	return nil
}

// CreateProduct adds a product to the catalog.
func (s *CatalogService) CreateProduct(ctx context.Context, req *ProductRequest) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.CreateProduct")
	defer span.End()

	if req == nil {
		return nil, outcome.New(outcome.DataIsNull, "create product request is nil")
	}
	if err := validateProduct(req); err != nil {
		return nil, err
	}

	product := &models.Product{
		CategoryID:    req.CategoryID,
		Name:          req.Name,
		Value:         req.Value,
		StockQuantity: req.StockQuantity,
	}
	if err := s.store.CreateProduct(ctx, product); err != nil {
		if store.IsForeignKeyViolation(err) {
			return nil, outcome.New(outcome.NotFound, "category %d not found", req.CategoryID)
		}
		return nil, err
	}

	s.logger.Info("Product created", zap.Int64("product_id", product.ID), zap.String("name", product.Name))
	return product, nil
}

// GetProduct retrieves a product, read-through the cache.
func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	if cached, err := s.cache.GetProduct(ctx, id); err != nil {
		s.logger.Warn("Product cache read failed", zap.Int64("product_id", id), zap.Error(err))
	} else if cached != nil {
		util.ProductCacheHitsTotal.WithLabelValues("hit").Inc()
		return cached, nil
	}
	util.ProductCacheHitsTotal.WithLabelValues("miss").Inc()

	product, err := s.store.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, outcome.New(outcome.NotFound, "product %d not found", id)
	}

	if err := s.cache.SetProduct(ctx, product); err != nil {
		s.logger.Warn("Product cache write failed", zap.Int64("product_id", id), zap.Error(err))
	}
	return product, nil
}

// ListProducts lists the whole catalog, or one category when categoryID is
// non-zero.
func (s *CatalogService) ListProducts(ctx context.Context, categoryID int64) ([]models.Product, error) {
	if categoryID != 0 {
		return s.store.GetProductsByCategory(ctx, categoryID)
	}
	return s.store.GetProducts(ctx)
}

// UpdateProduct changes name, value and category. Stock moves only through
// AddStock and the order lifecycle.
func (s *CatalogService) UpdateProduct(ctx context.Context, id int64, req *ProductRequest) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.UpdateProduct")
	defer span.End()

	if req == nil {
		return nil, outcome.New(outcome.DataIsNull, "update product request is nil")
	}
	if req.ID != 0 && req.ID != id {
		return nil, outcome.New(outcome.IdMismatch, "path id %d does not match body id %d", id, req.ID)
	}
	if err := validateProduct(req); err != nil {
		return nil, err
	}

	product := &models.Product{
		ID:         id,
		CategoryID: req.CategoryID,
		Name:       req.Name,
		Value:      req.Value,
	}
	rows, err := s.store.UpdateProduct(ctx, product)
	if err != nil {
		if store.IsForeignKeyViolation(err) {
			return nil, outcome.New(outcome.NotFound, "category %d not found", req.CategoryID)
		}
		return nil, err
	}
	if rows == 0 {
		return nil, outcome.New(outcome.NotFound, "product %d not found", id)
	}

	if err := s.cache.InvalidateProduct(ctx, id); err != nil {
		s.logger.Warn("Product cache invalidation failed", zap.Int64("product_id", id), zap.Error(err))
	}
	return s.store.GetProductByID(ctx, id)
}

// DeleteProduct removes a product from the catalog.
func (s *CatalogService) DeleteProduct(ctx context.Context, id int64) error {
	ctx, span := util.StartSpan(ctx, "CatalogService.DeleteProduct")
	defer span.End()

	rows, err := s.store.DeleteProduct(ctx, id)
	if err != nil {
		return err
	}
	if rows == 0 {
		return outcome.New(outcome.NotFound, "product %d not found", id)
	}

	if err := s.cache.InvalidateProduct(ctx, id); err != nil {
		s.logger.Warn("Product cache invalidation failed", zap.Int64("product_id", id), zap.Error(err))
	}
	return nil
}

// AddStock replenishes a product's stock inside a row-locking transaction.
func (s *CatalogService) AddStock(ctx context.Context, id int64, amount int) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.AddStock")
	defer span.End()

	if amount <= 0 {
		return nil, outcome.Invalid(map[string]string{"amount": "must be greater than zero"})
	}

	var product *models.Product
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		product, err = tx.GetProductForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if product == nil {
			return outcome.New(outcome.NotFound, "product %d not found", id)
		}
		product.AddStock(amount)

		rows, err := tx.UpdateProductStock(ctx, product)
		if err != nil {
			return err
		}
		if rows == 0 {
			return outcome.New(outcome.NoRowsAffected, "product %d stock update affected no rows", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.cache.InvalidateProduct(ctx, id); err != nil {
		s.logger.Warn("Product cache invalidation failed", zap.Int64("product_id", id), zap.Error(err))
	}
	s.logger.Info("Stock replenished", zap.Int64("product_id", id), zap.Int("amount", amount))
	return product, nil
}

// CreateCategory adds a category.
func (s *CatalogService) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	if name == "" {
		return nil, outcome.Invalid(map[string]string{"name": "must not be empty"})
	}

	category := &models.Category{Name: name}
	if err := s.store.CreateCategory(ctx, category); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, outcome.New(outcome.DuplicateData, "category %q already exists", name)
		}
		return nil, err
	}
	return category, nil
}

// ListCategories lists all categories.
func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.store.GetCategories(ctx)
}
