package worker

import (
	"context"

	"restock-service/internal/broker"
	"restock-service/internal/models"
	"restock-service/internal/service"
	"restock-service/internal/util"

	"go.uber.org/zap"
)

// CatalogEvictor drops catalog entries deleted by another instance
type CatalogEvictor interface {
	EvictCatalogEntry(entity, id string)
}

// EmailDraftWorker consumes session events, renders email drafts for
// finalized sessions and keeps the local catalog index in sync with
// deletions made elsewhere.
type EmailDraftWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	drafts       *service.EmailDraftService
	logger       *zap.Logger
}

// NewEmailDraftWorker creates a new email draft worker
func NewEmailDraftWorker(
	consumer *broker.Consumer,
	drafts *service.EmailDraftService,
	evictor CatalogEvictor,
) *EmailDraftWorker {
	w := &EmailDraftWorker{
		consumer: consumer,
		drafts:   drafts,
		logger:   util.GetLogger(),
	}
	w.eventHandler = newEventHandler(drafts, evictor)
	return w
}

func newEventHandler(drafts *service.EmailDraftService, evictor CatalogEvictor) *broker.EventHandler {
	eventHandler := broker.NewEventHandler()

	eventHandler.OnSessionFinalized(drafts.HandleSessionFinalized)
	if evictor != nil {
		eventHandler.OnCatalogEntryDeleted(func(ctx context.Context, event *models.CatalogEntryDeletedEvent) error {
			evictor.EvictCatalogEntry(event.Entity, event.EntityID)
			return nil
		})
	}
	return eventHandler
}

// Start starts the worker. If a message keeps failing the consumer leaves
// its group, handing the partition and the uncommitted message to another
// instance.
func (w *EmailDraftWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting email draft worker")
	err := w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
	if err != nil && ctx.Err() == nil {
		w.logger.Error("Email draft worker stopped", zap.Error(err))
		if cerr := w.consumer.Close(); cerr != nil {
			w.logger.Error("Error closing consumer", zap.Error(cerr))
		}
	}
	return err
}

// Stop stops the worker
func (w *EmailDraftWorker) Stop() error {
	w.logger.Info("Stopping email draft worker")
	return w.consumer.Close()
}
