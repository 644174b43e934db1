package service

import (
	"context"

	"sales-service/internal/models"
	"sales-service/internal/outcome"
	"sales-service/internal/store"
	"sales-service/internal/util"

	"go.uber.org/zap"
)

// cartStore is the persistence contract CartService needs from the store.
type cartStore interface {
	WithTx(ctx context.Context, fn func(tx store.Tx) error) error
	GetCartWithLines(ctx context.Context, userID int64) (*models.ShoppingCart, []models.ShoppingCartProduct, error)
}

// CartService owns the shopping cart aggregate. Every mutation follows the
// same shape inside one transaction: validate existence, compute the numeric
// delta from old state, apply it to the line and the cart counters, write
// both. TotalValue is the checked-only subtotal; ProductsCount counts all
// lines. Neither is ever recomputed by re-scanning the lines.
type CartService struct {
	store  cartStore
	events eventPublisher
	logger *zap.Logger
}

// NewCartService creates a new cart service
func NewCartService(store cartStore, events eventPublisher) *CartService {
	return &CartService{
		store:  store,
		events: events,
		logger: util.NamedLogger("cart"),
	}
}

// GetCart returns the user's cart and lines, creating the cart on first
// access.
func (s *CartService) GetCart(ctx context.Context, userID int64) (*models.ShoppingCart, []models.ShoppingCartProduct, error) {
	ctx, span := util.StartSpan(ctx, "CartService.GetCart")
	defer span.End()

	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		_, err := s.cartForUpdate(ctx, tx, userID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	cart, lines, err := s.store.GetCartWithLines(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if cart == nil {
		return nil, nil, outcome.New(outcome.NotFound, "cart for user %d not found", userID)
	}
	return cart, lines, nil
}

// cartForUpdate locks the user's cart row, creating the cart when the user
// exists but has none yet.
func (s *CartService) cartForUpdate(ctx context.Context, tx store.Tx, userID int64) (*models.ShoppingCart, error) {
	cart, err := tx.GetCartForUpdate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart != nil {
		return cart, nil
	}

	user, err := tx.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, outcome.New(outcome.NotFound, "user %d not found", userID)
	}

	cart = models.NewShoppingCart(userID)
	if err := tx.InsertCart(ctx, cart); err != nil {
		if store.IsUniqueViolation(err) {
			// another request created the cart between our two reads
			return nil, outcome.New(outcome.ConcurrencyConflict, "cart for user %d created concurrently", userID)
		}
		return nil, err
	}
	s.logger.Info("Cart created", zap.Int64("user_id", userID), zap.Int64("cart_id", cart.ID))
	return cart, nil
}

// AddProductToCart upserts a cart line with Checked=true. A new line grows
// ProductsCount by one (one more product type, not the quantity) and
// TotalValue by amount*value; adding to an existing line grows only its
// amount and, when the line is checked, the value.
func (s *CartService) AddProductToCart(ctx context.Context, userID, productID int64, amount int) (*models.ShoppingCart, error) {
	ctx, span := util.StartSpan(ctx, "CartService.AddProductToCart")
	defer span.End()

	if amount <= 0 {
		return nil, outcome.Invalid(map[string]string{"amount": "must be greater than zero"})
	}

	var cart *models.ShoppingCart
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		cart, err = s.cartForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}

		product, err := tx.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if product == nil {
			return outcome.New(outcome.ProductNotFound, "product %d not found", productID)
		}
		if !product.InStock() {
			util.StockGateFailuresTotal.WithLabelValues("cart_add").Inc()
			return outcome.New(outcome.StockUnavailable, "product %d is out of stock", productID)
		}

		line, err := tx.GetCartLine(ctx, cart.ID, productID)
		if err != nil {
			return err
		}
		if line == nil {
			line = &models.ShoppingCartProduct{
				ShoppingCartID: cart.ID,
				ProductID:      productID,
				Amount:         amount,
				Checked:        true,
			}
			if err := tx.InsertCartLine(ctx, line); err != nil {
				return err
			}
			if err := cart.AddLine(int64(amount) * product.Value); err != nil {
				return err
			}
		} else {
			line.Amount += amount
			rows, err := tx.UpdateCartLine(ctx, line)
			if err != nil {
				return err
			}
			if rows == 0 {
				return outcome.New(outcome.NoRowsAffected, "cart line (%d, %d) update affected no rows", cart.ID, productID)
			}
			if line.Checked {
				if err := cart.ApplyValueDelta(int64(amount) * product.Value); err != nil {
					return err
				}
			}
		}

		return s.writeCart(ctx, tx, cart)
	})
	if err != nil {
		util.CartMutationsFailedTotal.WithLabelValues("add", failureReason(err)).Inc()
		return nil, err
	}

	util.CartMutationsTotal.WithLabelValues("add").Inc()
	s.logger.Info("Product added to cart",
		zap.Int64("user_id", userID),
		zap.Int64("product_id", productID),
		zap.Int("amount", amount))
	return cart, nil
}

// RemoveProductFromCart deletes a cart line, shrinking ProductsCount by one
// and TotalValue by the line's contribution (zero when unchecked).
func (s *CartService) RemoveProductFromCart(ctx context.Context, userID, productID int64) (*models.ShoppingCart, error) {
	ctx, span := util.StartSpan(ctx, "CartService.RemoveProductFromCart")
	defer span.End()

	var cart *models.ShoppingCart
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		cart, err = tx.GetCartForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if cart == nil {
			return outcome.New(outcome.NotFound, "cart for user %d not found", userID)
		}

		line, err := tx.GetCartLine(ctx, cart.ID, productID)
		if err != nil {
			return err
		}
		if line == nil {
			return outcome.New(outcome.ProductNotFound, "cart %d has no line for product %d", cart.ID, productID)
		}

		product, err := tx.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if product == nil {
			return outcome.New(outcome.ProductNotFound, "product %d not found", productID)
		}

		rows, err := tx.DeleteCartLine(ctx, cart.ID, productID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return outcome.New(outcome.NoRowsAffected, "cart line (%d, %d) delete affected no rows", cart.ID, productID)
		}

		if err := cart.RemoveLine(line.Contribution(product.Value)); err != nil {
			return err
		}
		return s.writeCart(ctx, tx, cart)
	})
	if err != nil {
		util.CartMutationsFailedTotal.WithLabelValues("remove", failureReason(err)).Inc()
		return nil, err
	}

	util.CartMutationsTotal.WithLabelValues("remove").Inc()
	s.logger.Info("Product removed from cart",
		zap.Int64("user_id", userID),
		zap.Int64("product_id", productID))
	return cart, nil
}

// CheckProduct includes a cart line in the checkout subtotal.
func (s *CartService) CheckProduct(ctx context.Context, userID, productID int64) (*models.ShoppingCart, error) {
	return s.setChecked(ctx, userID, productID, true)
}

// UncheckProduct excludes a cart line from the checkout subtotal; the line
// stays in the cart.
func (s *CartService) UncheckProduct(ctx context.Context, userID, productID int64) (*models.ShoppingCart, error) {
	return s.setChecked(ctx, userID, productID, false)
}

func (s *CartService) setChecked(ctx context.Context, userID, productID int64, checked bool) (*models.ShoppingCart, error) {
	ctx, span := util.StartSpan(ctx, "CartService.SetChecked")
	defer span.End()

	op := "uncheck"
	if checked {
		op = "check"
	}

	var cart *models.ShoppingCart
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		cart, err = tx.GetCartForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if cart == nil {
			return outcome.New(outcome.NotFound, "cart for user %d not found", userID)
		}

		line, err := tx.GetCartLine(ctx, cart.ID, productID)
		if err != nil {
			return err
		}
		if line == nil {
			return outcome.New(outcome.ProductNotFound, "cart %d has no line for product %d", cart.ID, productID)
		}
		if line.Checked == checked {
			// toggling to the current state changes nothing
			return nil
		}

		product, err := tx.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if product == nil {
			return outcome.New(outcome.ProductNotFound, "product %d not found", productID)
		}

		line.Checked = checked
		rows, err := tx.UpdateCartLine(ctx, line)
		if err != nil {
			return err
		}
		if rows == 0 {
			return outcome.New(outcome.NoRowsAffected, "cart line (%d, %d) update affected no rows", cart.ID, productID)
		}

		delta := line.Subtotal(product.Value)
		if !checked {
			delta = -delta
		}
		if err := cart.ApplyValueDelta(delta); err != nil {
			return err
		}
		return s.writeCart(ctx, tx, cart)
	})
	if err != nil {
		util.CartMutationsFailedTotal.WithLabelValues(op, failureReason(err)).Inc()
		return nil, err
	}

	util.CartMutationsTotal.WithLabelValues(op).Inc()
	return cart, nil
}

// UpdateProductAmount changes a line's amount, shifting TotalValue by
// (new-old)*value when the line is checked. Zero and negative amounts are
// rejected; removal is a separate operation.
func (s *CartService) UpdateProductAmount(ctx context.Context, userID, productID int64, newAmount int) (*models.ShoppingCart, error) {
	ctx, span := util.StartSpan(ctx, "CartService.UpdateProductAmount")
	defer span.End()

	if newAmount <= 0 {
		return nil, outcome.Invalid(map[string]string{"amount": "must be greater than zero; use remove instead"})
	}

	var cart *models.ShoppingCart
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		cart, err = tx.GetCartForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if cart == nil {
			return outcome.New(outcome.NotFound, "cart for user %d not found", userID)
		}

		line, err := tx.GetCartLine(ctx, cart.ID, productID)
		if err != nil {
			return err
		}
		if line == nil {
			return outcome.New(outcome.ProductNotFound, "cart %d has no line for product %d", cart.ID, productID)
		}

		product, err := tx.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if product == nil {
			return outcome.New(outcome.ProductNotFound, "product %d not found", productID)
		}

		delta := int64(newAmount-line.Amount) * product.Value
		line.Amount = newAmount
		rows, err := tx.UpdateCartLine(ctx, line)
		if err != nil {
			return err
		}
		if rows == 0 {
			return outcome.New(outcome.NoRowsAffected, "cart line (%d, %d) update affected no rows", cart.ID, productID)
		}

		if line.Checked {
			if err := cart.ApplyValueDelta(delta); err != nil {
				return err
			}
		}
		return s.writeCart(ctx, tx, cart)
	})
	if err != nil {
		util.CartMutationsFailedTotal.WithLabelValues("update_amount", failureReason(err)).Inc()
		return nil, err
	}

	util.CartMutationsTotal.WithLabelValues("update_amount").Inc()
	return cart, nil
}

// ClearCart deletes every cart line and zeroes both counters in one
// transaction; a partial clear is never observable.
func (s *CartService) ClearCart(ctx context.Context, userID int64) (*models.ShoppingCart, error) {
	ctx, span := util.StartSpan(ctx, "CartService.ClearCart")
	defer span.End()

	var cart *models.ShoppingCart
	var removed int64
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		cart, err = tx.GetCartForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if cart == nil {
			return outcome.New(outcome.NotFound, "cart for user %d not found", userID)
		}

		removed, err = tx.DeleteCartLines(ctx, cart.ID)
		if err != nil {
			return err
		}
		cart.Reset()
		return s.writeCart(ctx, tx, cart)
	})
	if err != nil {
		util.CartMutationsFailedTotal.WithLabelValues("clear", failureReason(err)).Inc()
		return nil, err
	}

	util.CartMutationsTotal.WithLabelValues("clear").Inc()
	s.logger.Info("Cart cleared",
		zap.Int64("user_id", userID),
		zap.Int64("lines_removed", removed))

	if err := s.events.PublishCartCleared(ctx, newCartClearedEvent(cart, int(removed))); err != nil {
		s.logger.Error("Failed to publish CartCleared event", zap.Error(err))
	}
	return cart, nil
}

func (s *CartService) writeCart(ctx context.Context, tx store.Tx, cart *models.ShoppingCart) error {
	rows, err := tx.UpdateCart(ctx, cart)
	if err != nil {
		return err
	}
	if rows == 0 {
		return outcome.New(outcome.NoRowsAffected, "cart %d update affected no rows", cart.ID)
	}
	return nil
}

func failureReason(err error) string {
	if kind := outcome.KindOf(err); kind != "" {
		return string(kind)
	}
	return "internal"
}
