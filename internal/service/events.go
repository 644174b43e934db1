package service

import (
	"time"

	"sales-service/internal/models"

	"github.com/google/uuid"
)

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}

func newOrderSentEvent(order *models.Order, lines []models.LineItem) *models.OrderSentEvent {
	items := make([]models.OrderItemData, 0, len(lines))
	for i := range lines {
		items = append(items, models.OrderItemData{
			ProductID: lines[i].ProductID,
			Amount:    lines[i].Amount,
			Price:     lines[i].Price,
		})
	}
	return &models.OrderSentEvent{
		BaseEvent:  newBaseEvent(models.EventTypeOrderSent),
		OrderID:    order.ID,
		UserID:     order.UserID.Int64,
		TotalValue: order.TotalValue,
		Items:      items,
	}
}

func newOrderFinishedEvent(order *models.Order) *models.OrderFinishedEvent {
	return &models.OrderFinishedEvent{
		BaseEvent:   newBaseEvent(models.EventTypeOrderFinished),
		OrderID:     order.ID,
		UserID:      order.UserID.Int64,
		AffiliateID: order.AffiliateID.Int64,
		TotalValue:  order.TotalValue,
	}
}

func newCartClearedEvent(cart *models.ShoppingCart, linesRemoved int) *models.CartClearedEvent {
	return &models.CartClearedEvent{
		BaseEvent:    newBaseEvent(models.EventTypeCartCleared),
		CartID:       cart.ID,
		UserID:       cart.UserID,
		LinesRemoved: linesRemoved,
	}
}
