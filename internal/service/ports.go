package service

import (
	"context"

	"restock-service/internal/models"
)

// CatalogStore is durable storage for products and suppliers, keyed by
// normalized name. Find methods return (nil, nil) when nothing matches.
type CatalogStore interface {
	FindProductByName(ctx context.Context, normalizedName string) (*models.Product, error)
	// UpsertProduct creates the product if no product has the same normalized
	// name, otherwise refreshes its default quantity and default supplier.
	UpsertProduct(ctx context.Context, input models.ProductInput) (*models.Product, error)
	FindSupplierByName(ctx context.Context, normalizedName string) (*models.Supplier, error)
	UpsertSupplier(ctx context.Context, input models.SupplierInput) (*models.Supplier, error)
	// IsProductReferenced reports whether any session item in any session uses the product.
	IsProductReferenced(ctx context.Context, productID string) (bool, error)
	// IsSupplierReferenced reports whether any session item uses the supplier
	// or any product names it as its default supplier.
	IsSupplierReferenced(ctx context.Context, supplierID string) (bool, error)
	DeleteProduct(ctx context.Context, productID string) error
	DeleteSupplier(ctx context.Context, supplierID string) error
	ListProducts(ctx context.Context) ([]models.Product, error)
	ListSuppliers(ctx context.Context) ([]models.Supplier, error)
}

// SessionStore is durable storage for restock sessions and their items
type SessionStore interface {
	CreateSession(ctx context.Context, ownerID string) (*models.RestockSession, error)
	// GetSession returns the session with its items in insertion order,
	// or (nil, nil) if it does not exist.
	GetSession(ctx context.Context, sessionID string) (*models.RestockSession, error)
	UpdateSessionStatus(ctx context.Context, sessionID string, status models.SessionStatus) error
	AddItem(ctx context.Context, sessionID string, item models.SessionItem) (*models.SessionItem, error)
	UpdateItem(ctx context.Context, itemID string, patch models.ItemPatch) (*models.SessionItem, error)
	DeleteItem(ctx context.Context, itemID string) error
	DeleteSession(ctx context.Context, sessionID string) error
	ListUnfinishedSessions(ctx context.Context, ownerID string) ([]models.RestockSession, error)
}

// EventPublisher receives session lifecycle events. Publishing is best-effort.
type EventPublisher interface {
	PublishSessionStarted(ctx context.Context, event *models.SessionStartedEvent) error
	PublishSessionFinalized(ctx context.Context, event *models.SessionFinalizedEvent) error
	PublishSessionDiscarded(ctx context.Context, event *models.SessionDiscardedEvent) error
	PublishCatalogEntryDeleted(ctx context.Context, event *models.CatalogEntryDeletedEvent) error
}

// DraftStore persists generated email drafts
type DraftStore interface {
	// SaveEmailDrafts replaces any drafts already stored for the same sessions.
	SaveEmailDrafts(ctx context.Context, drafts []models.EmailDraft) error
	ListEmailDrafts(ctx context.Context, sessionID string) ([]models.EmailDraft, error)
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}
