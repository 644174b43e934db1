package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"sales-service/internal/models"
	"sales-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishOrderSent publishes OrderSent event
func (ep *EventPublisher) PublishOrderSent(ctx context.Context, event *models.OrderSentEvent) error {
	key := fmt.Sprintf("order-%d", event.OrderID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishOrderFinished publishes OrderFinished event
func (ep *EventPublisher) PublishOrderFinished(ctx context.Context, event *models.OrderFinishedEvent) error {
	key := fmt.Sprintf("order-%d", event.OrderID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishCartCleared publishes CartCleared event
func (ep *EventPublisher) PublishCartCleared(ctx context.Context, event *models.CartClearedEvent) error {
	key := fmt.Sprintf("cart-%d", event.CartID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// EventHandler routes incoming events to registered callbacks
type EventHandler struct {
	onOrderSent     func(context.Context, *models.OrderSentEvent) error
	onOrderFinished func(context.Context, *models.OrderFinishedEvent) error
	onCartCleared   func(context.Context, *models.CartClearedEvent) error
	logger          *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.NamedLogger("broker")}
}

// OnOrderSent registers a handler for OrderSent events
func (eh *EventHandler) OnOrderSent(handler func(context.Context, *models.OrderSentEvent) error) {
	eh.onOrderSent = handler
}

// OnOrderFinished registers a handler for OrderFinished events
func (eh *EventHandler) OnOrderFinished(handler func(context.Context, *models.OrderFinishedEvent) error) {
	eh.onOrderFinished = handler
}

// OnCartCleared registers a handler for CartCleared events
func (eh *EventHandler) OnCartCleared(handler func(context.Context, *models.CartClearedEvent) error) {
	eh.onCartCleared = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeOrderSent:
		if eh.onOrderSent != nil {
			var event models.OrderSentEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OrderSent event: %w", err)
			}
			return eh.onOrderSent(ctx, &event)
		}

	case models.EventTypeOrderFinished:
		if eh.onOrderFinished != nil {
			var event models.OrderFinishedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OrderFinished event: %w", err)
			}
			return eh.onOrderFinished(ctx, &event)
		}

	case models.EventTypeCartCleared:
		if eh.onCartCleared != nil {
			var event models.CartClearedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal CartCleared event: %w", err)
			}
			return eh.onCartCleared(ctx, &event)
		}

	default:
		eh.logger.Warn("Unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}
