package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"promoter-dashboard/internal/models"
	"promoter-dashboard/internal/util"

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

// PublishSaleRecorded publishes a SaleRecorded event
func (ep *EventPublisher) PublishSaleRecorded(ctx context.Context, event *models.SaleRecordedEvent) error {
	key := fmt.Sprintf("order-%s", event.OrderNumber)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishOrderFlagged publishes an OrderFlagged event
func (ep *EventPublisher) PublishOrderFlagged(ctx context.Context, event *models.OrderFlaggedEvent) error {
	key := fmt.Sprintf("order-%s", event.OrderNumber)
	return ep.producer.PublishEvent(ctx, key, event)
}

// EventHandler routes incoming events to registered handlers
type EventHandler struct {
	onSaleRecorded func(context.Context, *models.SaleRecordedEvent) error
	onOrderFlagged func(context.Context, *models.OrderFlaggedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnSaleRecorded registers a handler for SaleRecorded events
func (eh *EventHandler) OnSaleRecorded(handler func(context.Context, *models.SaleRecordedEvent) error) {
	eh.onSaleRecorded = handler
}

// OnOrderFlagged registers a handler for OrderFlagged events
func (eh *EventHandler) OnOrderFlagged(handler func(context.Context, *models.OrderFlaggedEvent) error) {
	eh.onOrderFlagged = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	util.GetLogger().Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeSaleRecorded:
		if eh.onSaleRecorded != nil {
			var event models.SaleRecordedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal SaleRecorded event: %w", err)
			}
			return eh.onSaleRecorded(ctx, &event)
		}

	case models.EventTypeOrderFlagged:
		if eh.onOrderFlagged != nil {
			var event models.OrderFlaggedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OrderFlagged event: %w", err)
			}
			return eh.onOrderFlagged(ctx, &event)
		}

	default:
		util.GetLogger().Warn("Unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}
