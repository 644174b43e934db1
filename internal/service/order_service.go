package service

import (
	"context"
	"time"

	"sales-service/internal/models"
	"sales-service/internal/outcome"
	"sales-service/internal/store"
	"sales-service/internal/util"

	"go.uber.org/zap"
)

// orderStore is the persistence contract OrderService needs from the store.
type orderStore interface {
	WithTx(ctx context.Context, fn func(tx store.Tx) error) error
	GetOrderWithLines(ctx context.Context, id int64) (*models.Order, []models.LineItem, error)
	GetOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error)
	OrderReport(ctx context.Context, start, end time.Time) (*models.OrderReport, error)
}

// eventPublisher publishes domain events after a successful commit. Publish
// failures are logged, never surfaced to the caller.
type eventPublisher interface {
	PublishOrderSent(ctx context.Context, event *models.OrderSentEvent) error
	PublishOrderFinished(ctx context.Context, event *models.OrderFinishedEvent) error
	PublishCartCleared(ctx context.Context, event *models.CartClearedEvent) error
}

// productCache is the read-through product cache. A (nil, nil) result is a
// miss.
type productCache interface {
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	SetProduct(ctx context.Context, p *models.Product) error
	InvalidateProduct(ctx context.Context, id int64) error
}

// OrderService owns the order lifecycle: line item composition while
// PREPARING, the PREPARING -> SENT -> FINISHED transitions, and the
// read-side report.
type OrderService struct {
	store  orderStore
	events eventPublisher
	cache  productCache
	logger *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(store orderStore, events eventPublisher, cache productCache) *OrderService {
	return &OrderService{
		store:  store,
		events: events,
		cache:  cache,
		logger: util.NamedLogger("order"),
	}
}

// CreateOrderRequest represents a request to create an order. UserID is
// optional: guest orders carry only a holder name.
type CreateOrderRequest struct {
	UserID      *int64 `json:"user_id,omitempty"`
	AffiliateID *int64 `json:"affiliate_id,omitempty"`
	Holder      string `json:"holder,omitempty"`
	Note        string `json:"note,omitempty"`
}

// CreateOrder creates an empty order in PREPARING.
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	if req == nil {
		return nil, outcome.New(outcome.DataIsNull, "create order request is nil")
	}

	order := models.NewOrder(req.UserID, req.AffiliateID, req.Holder, req.Note)

	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		if req.UserID != nil {
			user, err := tx.GetUser(ctx, *req.UserID)
			if err != nil {
				return err
			}
			if user == nil {
				return outcome.New(outcome.NotFound, "user %d not found", *req.UserID)
			}
		}
		return tx.InsertOrder(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created", zap.Int64("order_id", order.ID))
	return order, nil
}

// GetOrder retrieves an order with its line items.
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*models.Order, []models.LineItem, error) {
	order, lines, err := s.store.GetOrderWithLines(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if order == nil {
		return nil, nil, outcome.New(outcome.NotFound, "order %d not found", orderID)
	}
	return order, lines, nil
}

// GetOrdersByUser retrieves a user's orders, newest first.
func (s *OrderService) GetOrdersByUser(ctx context.Context, userID int64) ([]models.Order, error) {
	return s.store.GetOrdersByUserID(ctx, userID)
}

// AddProduct appends a product to a PREPARING order, or raises the amount of
// an existing line. The line keeps the unit price snapshotted when it was
// first created, so the total delta for an existing line uses that snapshot,
// not the current product value.
func (s *OrderService) AddProduct(ctx context.Context, orderID, productID int64, amount int) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.AddProduct")
	defer span.End()

	if amount <= 0 {
		return nil, outcome.Invalid(map[string]string{"amount": "must be greater than zero"})
	}

	var order *models.Order
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		order, err = tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return outcome.New(outcome.NotFound, "order %d not found", orderID)
		}
		if !order.Editable() {
			util.OrdersRejectedTotal.WithLabelValues("not_editable").Inc()
			return outcome.New(outcome.OrderFinishedOrSent, "order %d is %s", orderID, order.Status)
		}

		product, err := tx.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if product == nil {
			return outcome.New(outcome.ProductNotFound, "product %d not found", productID)
		}
		if !product.InStock() {
			util.StockGateFailuresTotal.WithLabelValues("order_add").Inc()
			return outcome.New(outcome.StockUnavailable, "product %d is out of stock", productID)
		}

		line, err := tx.GetLine(ctx, orderID, productID)
		if err != nil {
			return err
		}

		var delta int64
		if line == nil {
			line = &models.LineItem{
				OrderID:   orderID,
				ProductID: productID,
				Amount:    amount,
				Price:     product.Value,
			}
			if err := tx.InsertLine(ctx, line); err != nil {
				return err
			}
			delta = int64(amount) * product.Value
		} else {
			line.Amount += amount
			rows, err := tx.UpdateLine(ctx, line)
			if err != nil {
				return err
			}
			if rows == 0 {
				return outcome.New(outcome.NoRowsAffected, "line item %d update affected no rows", line.ID)
			}
			delta = int64(amount) * line.Price
		}

		if err := order.ApplyLineDelta(delta); err != nil {
			return err
		}
		rows, err := tx.UpdateOrder(ctx, order)
		if err != nil {
			return err
		}
		if rows == 0 {
			return outcome.New(outcome.NoRowsAffected, "order %d update affected no rows", orderID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Product added to order",
		zap.Int64("order_id", orderID),
		zap.Int64("product_id", productID),
		zap.Int("amount", amount))
	return order, nil
}

// RemoveProduct deletes a line item from a PREPARING order, decreasing the
// total by the line's stored (price, amount) snapshot.
func (s *OrderService) RemoveProduct(ctx context.Context, orderID, productID int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.RemoveProduct")
	defer span.End()

	var order *models.Order
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		order, err = tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return outcome.New(outcome.NotFound, "order %d not found", orderID)
		}
		if !order.Editable() {
			util.OrdersRejectedTotal.WithLabelValues("not_editable").Inc()
			return outcome.New(outcome.OrderFinishedOrSent, "order %d is %s", orderID, order.Status)
		}

		line, err := tx.GetLine(ctx, orderID, productID)
		if err != nil {
			return err
		}
		if line == nil {
			return outcome.New(outcome.ProductNotFound, "order %d has no line for product %d", orderID, productID)
		}

		rows, err := tx.DeleteLine(ctx, line.ID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return outcome.New(outcome.NoRowsAffected, "line item %d delete affected no rows", line.ID)
		}

		if err := order.ApplyLineDelta(-line.Subtotal()); err != nil {
			return err
		}
		rows, err = tx.UpdateOrder(ctx, order)
		if err != nil {
			return err
		}
		if rows == 0 {
			return outcome.New(outcome.NoRowsAffected, "order %d update affected no rows", orderID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Product removed from order",
		zap.Int64("order_id", orderID),
		zap.Int64("product_id", productID))
	return order, nil
}

// SendOrder transitions PREPARING -> SENT, decrementing stock for every line
// in the same transaction. A single line with insufficient stock aborts the
// whole transition with no partial decrement.
func (s *OrderService) SendOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.SendOrder")
	defer span.End()

	start := time.Now()
	defer func() {
		util.OrderSendLatency.Observe(time.Since(start).Seconds())
	}()

	var order *models.Order
	var lines []models.LineItem
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		order, err = tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return outcome.New(outcome.NotFound, "order %d not found", orderID)
		}
		if err := order.Send(); err != nil {
			util.OrdersRejectedTotal.WithLabelValues("illegal_transition").Inc()
			return err
		}

		lines, err = tx.GetLines(ctx, orderID)
		if err != nil {
			return err
		}
		for i := range lines {
			product, err := tx.GetProductForUpdate(ctx, lines[i].ProductID)
			if err != nil {
				return err
			}
			if product == nil {
				return outcome.New(outcome.ProductNotFound, "product %d not found", lines[i].ProductID)
			}
			if !product.DecrementStock(lines[i].Amount) {
				util.StockGateFailuresTotal.WithLabelValues("order_send").Inc()
				return outcome.New(outcome.StockUnavailable,
					"product %d has %d in stock, order needs %d",
					product.ID, product.StockQuantity, lines[i].Amount)
			}
			rows, err := tx.UpdateProductStock(ctx, product)
			if err != nil {
				return err
			}
			if rows == 0 {
				return outcome.New(outcome.NoRowsAffected, "product %d stock update affected no rows", product.ID)
			}
		}

		rows, err := tx.UpdateOrder(ctx, order)
		if err != nil {
			return err
		}
		if rows == 0 {
			return outcome.New(outcome.NoRowsAffected, "order %d update affected no rows", orderID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	util.OrdersSentTotal.Inc()
	s.logger.Info("Order sent", zap.Int64("order_id", orderID), zap.Int64("total_value", order.TotalValue))

	for i := range lines {
		if err := s.cache.InvalidateProduct(ctx, lines[i].ProductID); err != nil {
			s.logger.Warn("Failed to invalidate product cache",
				zap.Int64("product_id", lines[i].ProductID), zap.Error(err))
		}
	}

	event := newOrderSentEvent(order, lines)
	if err := s.events.PublishOrderSent(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderSent event", zap.Error(err))
	}
	return order, nil
}

// FinishOrder transitions SENT -> FINISHED.
func (s *OrderService) FinishOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.FinishOrder")
	defer span.End()

	var order *models.Order
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		order, err = tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return outcome.New(outcome.NotFound, "order %d not found", orderID)
		}
		if err := order.Finish(); err != nil {
			util.OrdersRejectedTotal.WithLabelValues("illegal_transition").Inc()
			return err
		}

		rows, err := tx.UpdateOrder(ctx, order)
		if err != nil {
			return err
		}
		if rows == 0 {
			return outcome.New(outcome.NoRowsAffected, "order %d update affected no rows", orderID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	util.OrdersFinishedTotal.Inc()
	s.logger.Info("Order finished", zap.Int64("order_id", orderID))

	if err := s.events.PublishOrderFinished(ctx, newOrderFinishedEvent(order)); err != nil {
		s.logger.Error("Failed to publish OrderFinished event", zap.Error(err))
	}
	return order, nil
}

// DeleteOrder removes an order that is still PREPARING. Sent orders must go
// through FINISHED and are never deleted.
func (s *OrderService) DeleteOrder(ctx context.Context, orderID int64) error {
	ctx, span := util.StartSpan(ctx, "OrderService.DeleteOrder")
	defer span.End()

	return s.store.WithTx(ctx, func(tx store.Tx) error {
		order, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return outcome.New(outcome.NotFound, "order %d not found", orderID)
		}
		if !order.Editable() {
			return outcome.New(outcome.OrderFinishedOrSent, "order %d is %s", orderID, order.Status)
		}

		rows, err := tx.DeleteOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return outcome.New(outcome.NoRowsAffected, "order %d delete affected no rows", orderID)
		}
		return nil
	})
}

// GetOrderReport aggregates orders in [start, end].
func (s *OrderService) GetOrderReport(ctx context.Context, start, end time.Time) (*models.OrderReport, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetOrderReport")
	defer span.End()

	if end.Before(start) {
		return nil, outcome.Invalid(map[string]string{"end": "must not precede start"})
	}

	util.ReportRequestsTotal.Inc()
	return s.store.OrderReport(ctx, start, end)
}
