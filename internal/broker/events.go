package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"restock-service/internal/models"
	"restock-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Publisher writes an already-keyed event to a topic
type Publisher interface {
	PublishEvent(ctx context.Context, key string, event interface{}) error
}

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer Publisher
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer Publisher) *EventPublisher {
	return &EventPublisher{producer: producer}
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf("session-%s", sessionID)
}

// PublishSessionStarted publishes SessionStarted event
func (ep *EventPublisher) PublishSessionStarted(ctx context.Context, event *models.SessionStartedEvent) error {
	return ep.producer.PublishEvent(ctx, sessionKey(event.SessionID), event)
}

// PublishSessionFinalized publishes SessionFinalized event
func (ep *EventPublisher) PublishSessionFinalized(ctx context.Context, event *models.SessionFinalizedEvent) error {
	return ep.producer.PublishEvent(ctx, sessionKey(event.Payload.SessionID), event)
}

// PublishSessionDiscarded publishes SessionDiscarded event
func (ep *EventPublisher) PublishSessionDiscarded(ctx context.Context, event *models.SessionDiscardedEvent) error {
	return ep.producer.PublishEvent(ctx, sessionKey(event.SessionID), event)
}

// PublishCatalogEntryDeleted publishes CatalogEntryDeleted event
func (ep *EventPublisher) PublishCatalogEntryDeleted(ctx context.Context, event *models.CatalogEntryDeletedEvent) error {
	key := fmt.Sprintf("%s-%s", event.Entity, event.EntityID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onSessionFinalized    func(context.Context, *models.SessionFinalizedEvent) error
	onCatalogEntryDeleted func(context.Context, *models.CatalogEntryDeletedEvent) error
	logger                *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnSessionFinalized registers a handler for SessionFinalized events
func (eh *EventHandler) OnSessionFinalized(handler func(context.Context, *models.SessionFinalizedEvent) error) {
	eh.onSessionFinalized = handler
}

// OnCatalogEntryDeleted registers a handler for CatalogEntryDeleted events
func (eh *EventHandler) OnCatalogEntryDeleted(handler func(context.Context, *models.CatalogEntryDeletedEvent) error) {
	eh.onCatalogEntryDeleted = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("%w: failed to unmarshal base event: %w", ErrMalformedMessage, err)
	}

	eh.logger.Debug("Handling event",
		zap.String("event_type", baseEvent.EventType),
		zap.String("event_id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeSessionFinalized:
		if eh.onSessionFinalized != nil {
			var event models.SessionFinalizedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("%w: failed to unmarshal SessionFinalized event: %w", ErrMalformedMessage, err)
			}
			return eh.onSessionFinalized(ctx, &event)
		}

	case models.EventTypeCatalogEntryDeleted:
		if eh.onCatalogEntryDeleted != nil {
			var event models.CatalogEntryDeletedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("%w: failed to unmarshal CatalogEntryDeleted event: %w", ErrMalformedMessage, err)
			}
			return eh.onCatalogEntryDeleted(ctx, &event)
		}

	case models.EventTypeSessionStarted, models.EventTypeSessionDiscarded:
		// informational only

	default:
		eh.logger.Warn("Unhandled event type", zap.String("event_type", baseEvent.EventType))
	}

	return nil
}
