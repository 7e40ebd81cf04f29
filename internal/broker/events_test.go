package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"restock-service/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingProducer struct {
	keys   []string
	events []interface{}
}

func (r *recordingProducer) PublishEvent(ctx context.Context, key string, event interface{}) error {
	r.keys = append(r.keys, key)
	r.events = append(r.events, event)
	return nil
}

func TestEventPublisherKeys(t *testing.T) {
	producer := &recordingProducer{}
	publisher := NewEventPublisher(producer)
	ctx := context.Background()

	require.NoError(t, publisher.PublishSessionStarted(ctx, &models.SessionStartedEvent{SessionID: "s-1"}))
	require.NoError(t, publisher.PublishSessionFinalized(ctx, &models.SessionFinalizedEvent{
		Payload: models.FinalizedSessionPayload{SessionID: "s-1"},
	}))
	require.NoError(t, publisher.PublishSessionDiscarded(ctx, &models.SessionDiscardedEvent{SessionID: "s-1"}))
	require.NoError(t, publisher.PublishCatalogEntryDeleted(ctx, &models.CatalogEntryDeletedEvent{
		Entity: models.EntitySupplier, EntityID: "sup-9",
	}))

	assert.Equal(t, []string{"session-s-1", "session-s-1", "session-s-1", "supplier-sup-9"}, producer.keys)
}

func encode(t *testing.T, event interface{}) kafka.Message {
	t.Helper()
	value, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Value: value}
}

func TestHandleMessageRoutesSessionFinalized(t *testing.T) {
	handler := NewEventHandler()

	var got *models.SessionFinalizedEvent
	handler.OnSessionFinalized(func(ctx context.Context, e *models.SessionFinalizedEvent) error {
		got = e
		return nil
	})

	event := models.SessionFinalizedEvent{
		BaseEvent: models.BaseEvent{EventID: "evt-1", EventType: models.EventTypeSessionFinalized, Timestamp: time.Now()},
		Payload: models.FinalizedSessionPayload{
			SessionID:     "s-1",
			SupplierOrder: []string{"sup-1"},
			Groups: map[string]*models.SupplierGroup{
				"sup-1": {
					Supplier: models.SupplierRef{ID: "sup-1", Name: "Acme", Email: "a@acme.test"},
					Items:    []models.SessionItem{{ID: "i-1", ProductName: "Flour", Quantity: 2}},
				},
			},
		},
	}

	require.NoError(t, handler.HandleMessage(context.Background(), encode(t, event)))
	require.NotNil(t, got)
	assert.Equal(t, "evt-1", got.EventID)
	assert.Equal(t, "Acme", got.Payload.Groups["sup-1"].Supplier.Name)
	assert.Equal(t, 1, got.Payload.ItemCount())
}

func TestHandleMessageRoutesCatalogEntryDeleted(t *testing.T) {
	handler := NewEventHandler()

	wantErr := errors.New("boom")
	handler.OnCatalogEntryDeleted(func(ctx context.Context, e *models.CatalogEntryDeletedEvent) error {
		assert.Equal(t, models.EntityProduct, e.Entity)
		return wantErr
	})

	event := models.CatalogEntryDeletedEvent{
		BaseEvent: models.BaseEvent{EventID: "evt-2", EventType: models.EventTypeCatalogEntryDeleted},
		Entity:    models.EntityProduct,
		EntityID:  "p-1",
	}

	err := handler.HandleMessage(context.Background(), encode(t, event))
	assert.ErrorIs(t, err, wantErr)
}

func TestHandleMessageIgnoresUnknownAndRejectsGarbage(t *testing.T) {
	handler := NewEventHandler()

	unknown := models.BaseEvent{EventID: "evt-3", EventType: "SOMETHING_ELSE"}
	assert.NoError(t, handler.HandleMessage(context.Background(), encode(t, unknown)))

	err := handler.HandleMessage(context.Background(), kafka.Message{Value: []byte("not json")})
	assert.ErrorIs(t, err, ErrMalformedMessage)
}
