package service

import (
	"context"
	"strings"
	"sync"

	"restock-service/internal/models"
	"restock-service/internal/util"

	"go.uber.org/zap"
)

type ownerManager struct {
	mu      sync.Mutex
	manager *SessionManager
}

// Registry hands out one SessionManager per owner and serialises the calls
// made against it, since a SessionManager does not guard its own state. All
// managers share one catalog index because the catalog itself is shared.
type Registry struct {
	managers  sync.Map // ownerID -> *ownerManager
	catalog   CatalogStore
	sessions  SessionStore
	publisher EventPublisher
	limit     int
	index     *catalogIndex
	warmMu    sync.Mutex
	warmed    bool
	logger    *zap.Logger
}

// NewRegistry creates a registry. publisher may be nil.
func NewRegistry(catalog CatalogStore, sessions SessionStore, publisher EventPublisher, autocompleteLimit int) *Registry {
	return &Registry{
		catalog:   catalog,
		sessions:  sessions,
		publisher: publisher,
		limit:     autocompleteLimit,
		index:     newCatalogIndex(),
		logger:    util.GetLogger(),
	}
}

// WithManager runs fn with exclusive access to the owner's manager
func (r *Registry) WithManager(ctx context.Context, ownerID string, fn func(*SessionManager) error) error {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return ErrAuthenticationRequired
	}

	r.warm(ctx)

	v, _ := r.managers.LoadOrStore(ownerID, &ownerManager{})
	om := v.(*ownerManager)

	om.mu.Lock()
	defer om.mu.Unlock()

	if om.manager == nil {
		om.manager = NewSessionManager(r.catalog, r.sessions, r.publisher, r.limit)
		om.manager.index = r.index
	}

	return fn(om.manager)
}

// EvictCatalogEntry drops a product or supplier deleted elsewhere from the shared index
func (r *Registry) EvictCatalogEntry(entity, id string) {
	switch entity {
	case models.EntityProduct:
		r.index.removeProduct(id)
	case models.EntitySupplier:
		r.index.removeSupplier(id)
	}
}

// Forget drops the owner's manager, e.g. after sign-out
func (r *Registry) Forget(ownerID string) {
	r.managers.Delete(ownerID)
}

// warm loads the catalog into the shared index once. A failure is logged and
// retried on the next call.
func (r *Registry) warm(ctx context.Context) {
	r.warmMu.Lock()
	defer r.warmMu.Unlock()

	if r.warmed {
		return
	}

	m := NewSessionManager(r.catalog, r.sessions, nil, r.limit)
	m.index = r.index
	if err := m.WarmCatalog(ctx); err != nil {
		r.logger.Warn("Failed to warm catalog index", zap.Error(err))
		return
	}
	r.warmed = true
}
