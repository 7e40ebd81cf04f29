package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"restock-service/internal/models"
	"restock-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionManager owns the current restock session of one user and applies
// item mutations to it. It is not safe for concurrent use: callers must wait
// for one operation to return before issuing the next.
type SessionManager struct {
	catalog   CatalogStore
	sessions  SessionStore
	publisher EventPublisher
	index     *catalogIndex
	current   *models.RestockSession
	limit     int
	now       func() time.Time
	newID     func() string
	logger    *zap.Logger
}

// NewSessionManager creates a session manager. publisher may be nil.
func NewSessionManager(
	catalog CatalogStore,
	sessions SessionStore,
	publisher EventPublisher,
	autocompleteLimit int,
) *SessionManager {
	if autocompleteLimit < 1 {
		autocompleteLimit = DefaultAutocompleteLimit
	}
	return &SessionManager{
		catalog:   catalog,
		sessions:  sessions,
		publisher: publisher,
		index:     newCatalogIndex(),
		limit:     autocompleteLimit,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
		logger:    util.GetLogger(),
	}
}

// FieldChange describes one field modified by EditItem
type FieldChange struct {
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

// EditResult is the outcome of EditItem
type EditResult struct {
	Item    models.SessionItem `json:"item"`
	Changes []FieldChange      `json:"changes"`
}

// CleanupWarning reports an orphan cleanup step that failed after an item was removed
type CleanupWarning struct {
	Entity   string `json:"entity"`
	EntityID string `json:"entity_id"`
	Message  string `json:"message"`
}

// RemoveResult is the outcome of RemoveItem. Removed is false when the item
// was already gone.
type RemoveResult struct {
	Removed           bool             `json:"removed"`
	DeletedProductID  string           `json:"deleted_product_id,omitempty"`
	DeletedSupplierID string           `json:"deleted_supplier_id,omitempty"`
	Warnings          []CleanupWarning `json:"warnings,omitempty"`
}

// StartSession creates a new draft session for ownerID and makes it current.
// The header is persisted before it is returned.
func (m *SessionManager) StartSession(ctx context.Context, ownerID string) (*models.RestockSession, error) {
	ownerID = strings.TrimSpace(ownerID)
	ctx, span := util.StartSpan(ctx, "SessionManager.StartSession", util.OwnerIDKey.String(ownerID))
	defer span.End()

	if ownerID == "" {
		return nil, m.fail("start_session", ErrAuthenticationRequired)
	}

	done := observe("create_session")
	session, err := m.sessions.CreateSession(ctx, ownerID)
	done()
	if err != nil {
		return nil, util.FailSpan(span, m.fail("start_session", persistenceErr("create_session", err)))
	}
	span.SetAttributes(util.SessionIDKey.String(session.ID))
	if session.Items == nil {
		session.Items = []models.SessionItem{}
	}

	m.current = session
	util.SessionsStartedTotal.Inc()
	m.logger.Info("Session started",
		zap.String("session_id", session.ID),
		zap.String("owner_id", ownerID))

	if m.publisher != nil {
		event := &models.SessionStartedEvent{
			BaseEvent: newBaseEvent(models.EventTypeSessionStarted, m.now()),
			SessionID: session.ID,
			OwnerID:   ownerID,
		}
		if err := m.publisher.PublishSessionStarted(ctx, event); err != nil {
			m.logger.Error("Failed to publish SessionStarted event", zap.Error(err))
		}
	}

	return cloneSession(session), nil
}

// LoadSession replaces the current session with a stored one owned by ownerID
func (m *SessionManager) LoadSession(ctx context.Context, ownerID, sessionID string) (*models.RestockSession, error) {
	ctx, span := util.StartSpan(ctx, "SessionManager.LoadSession")
	defer span.End()

	if strings.TrimSpace(ownerID) == "" {
		return nil, m.fail("load_session", ErrAuthenticationRequired)
	}

	done := observe("get_session")
	session, err := m.sessions.GetSession(ctx, sessionID)
	done()
	if err != nil {
		return nil, m.fail("load_session", persistenceErr("get_session", err))
	}
	if session == nil || session.OwnerID != ownerID {
		return nil, m.fail("load_session", &NotFoundError{Resource: "session", ID: sessionID})
	}
	if session.Items == nil {
		session.Items = []models.SessionItem{}
	}

	m.current = session
	m.logger.Info("Session loaded",
		zap.String("session_id", session.ID),
		zap.Int("items", len(session.Items)))
	return cloneSession(session), nil
}

// GetSession returns a stored session owned by ownerID without making it current
func (m *SessionManager) GetSession(ctx context.Context, ownerID, sessionID string) (*models.RestockSession, error) {
	ctx, span := util.StartSpan(ctx, "SessionManager.GetSession")
	defer span.End()

	if strings.TrimSpace(ownerID) == "" {
		return nil, ErrAuthenticationRequired
	}
	if m.current != nil && m.current.ID == sessionID && m.current.OwnerID == ownerID {
		return cloneSession(m.current), nil
	}

	done := observe("get_session")
	session, err := m.sessions.GetSession(ctx, sessionID)
	done()
	if err != nil {
		return nil, m.fail("get_session", persistenceErr("get_session", err))
	}
	if session == nil || session.OwnerID != ownerID {
		return nil, &NotFoundError{Resource: "session", ID: sessionID}
	}
	return session, nil
}

// Current returns a copy of the current session
func (m *SessionManager) Current() (*models.RestockSession, error) {
	if m.current == nil {
		return nil, ErrNoActiveSession
	}
	return cloneSession(m.current), nil
}

// UnfinishedSessions lists the owner's draft sessions
func (m *SessionManager) UnfinishedSessions(ctx context.Context, ownerID string) ([]models.RestockSession, error) {
	ctx, span := util.StartSpan(ctx, "SessionManager.UnfinishedSessions")
	defer span.End()

	if strings.TrimSpace(ownerID) == "" {
		return nil, ErrAuthenticationRequired
	}

	done := observe("list_unfinished_sessions")
	sessions, err := m.sessions.ListUnfinishedSessions(ctx, ownerID)
	done()
	if err != nil {
		return nil, m.fail("list_sessions", persistenceErr("list_unfinished_sessions", err))
	}
	return sessions, nil
}

// WarmCatalog loads every known product and supplier into the autocomplete index
func (m *SessionManager) WarmCatalog(ctx context.Context) error {
	ctx, span := util.StartSpan(ctx, "SessionManager.WarmCatalog")
	defer span.End()

	products, err := m.catalog.ListProducts(ctx)
	if err != nil {
		return persistenceErr("list_products", err)
	}
	suppliers, err := m.catalog.ListSuppliers(ctx)
	if err != nil {
		return persistenceErr("list_suppliers", err)
	}

	m.index.load(products, suppliers)
	m.logger.Debug("Catalog index warmed",
		zap.Int("products", len(products)),
		zap.Int("suppliers", len(suppliers)))
	return nil
}

// AddItem validates the input, resolves the supplier and product by
// normalized name (creating them when unknown) and appends a new item.
func (m *SessionManager) AddItem(ctx context.Context, req AddItemRequest) (*models.SessionItem, error) {
	ctx, span := util.StartSpan(ctx, "SessionManager.AddItem")
	defer span.End()

	session, err := m.draft()
	if err != nil {
		return nil, m.fail("add_item", err)
	}
	if err := req.Validate(); err != nil {
		return nil, m.fail("add_item", err)
	}

	supplierName := strings.TrimSpace(req.SupplierName)
	supplierEmail := strings.TrimSpace(req.SupplierEmail)
	productName := strings.TrimSpace(req.ProductName)

	supplier, err := m.resolveSupplier(ctx, supplierName, supplierEmail)
	if err != nil {
		return nil, m.fail("add_item", err)
	}
	product, err := m.resolveProduct(ctx, productName, req.Quantity, supplier.ID)
	if err != nil {
		return nil, m.fail("add_item", err)
	}

	item := models.SessionItem{
		ID:            m.newID(),
		SessionID:     session.ID,
		ProductID:     product.ID,
		SupplierID:    supplier.ID,
		ProductName:   productName,
		SupplierName:  supplierName,
		SupplierEmail: supplierEmail,
		Quantity:      req.Quantity,
		Notes:         strings.TrimSpace(req.Notes),
		CreatedAt:     m.now(),
	}

	done := observe("add_item")
	saved, err := m.sessions.AddItem(ctx, session.ID, item)
	done()
	if err != nil {
		return nil, m.fail("add_item", persistenceErr("add_item", err))
	}

	session.Items = append(session.Items, *saved)
	util.SessionItemsAddedTotal.Inc()
	m.logger.Info("Item added",
		zap.String("session_id", session.ID),
		zap.String("item_id", saved.ID),
		zap.String("product_id", saved.ProductID),
		zap.String("supplier_id", saved.SupplierID))

	out := *saved
	return &out, nil
}

// EditItem applies a partial update to an item. A changed product or supplier
// name is resolved again by name and may point the item at another catalog
// entry; the original entries are never renamed.
func (m *SessionManager) EditItem(ctx context.Context, itemID string, req EditItemRequest) (*EditResult, error) {
	ctx, span := util.StartSpan(ctx, "SessionManager.EditItem")
	defer span.End()

	session, err := m.draft()
	if err != nil {
		return nil, m.fail("edit_item", err)
	}
	i := findItem(session.Items, itemID)
	if i < 0 {
		return nil, m.fail("edit_item", &NotFoundError{Resource: "item", ID: itemID})
	}
	if err := req.Validate(); err != nil {
		return nil, m.fail("edit_item", err)
	}

	old := session.Items[i]
	var patch models.ItemPatch
	changes := make([]FieldChange, 0)

	email := old.SupplierEmail
	if req.SupplierEmail != nil {
		if v := strings.TrimSpace(*req.SupplierEmail); v != old.SupplierEmail {
			email = v
			patch.SupplierEmail = &email
		}
	}

	supplierID := old.SupplierID
	if req.SupplierName != nil {
		name := strings.TrimSpace(*req.SupplierName)
		if name != old.SupplierName {
			if models.NormalizeName(name) != models.NormalizeName(old.SupplierName) {
				supplier, err := m.resolveSupplier(ctx, name, email)
				if err != nil {
					return nil, m.fail("edit_item", err)
				}
				supplierID = supplier.ID
				patch.SupplierID = &supplierID
			}
			patch.SupplierName = &name
			changes = append(changes, FieldChange{Field: "supplier_name", Old: old.SupplierName, New: name})
		}
	}
	if patch.SupplierEmail != nil {
		changes = append(changes, FieldChange{Field: "supplier_email", Old: old.SupplierEmail, New: email})
	}

	quantity := old.Quantity
	if req.Quantity != nil && *req.Quantity != old.Quantity {
		quantity = *req.Quantity
		patch.Quantity = &quantity
		changes = append(changes, FieldChange{
			Field: "quantity",
			Old:   strconv.Itoa(old.Quantity),
			New:   strconv.Itoa(quantity),
		})
	}

	if req.ProductName != nil {
		name := strings.TrimSpace(*req.ProductName)
		if name != old.ProductName {
			if models.NormalizeName(name) != models.NormalizeName(old.ProductName) {
				product, err := m.resolveProduct(ctx, name, quantity, supplierID)
				if err != nil {
					return nil, m.fail("edit_item", err)
				}
				productID := product.ID
				patch.ProductID = &productID
			}
			patch.ProductName = &name
			changes = append(changes, FieldChange{Field: "product_name", Old: old.ProductName, New: name})
		}
	}

	if req.Notes != nil {
		if notes := strings.TrimSpace(*req.Notes); notes != old.Notes {
			patch.Notes = &notes
			changes = append(changes, FieldChange{Field: "notes", Old: old.Notes, New: notes})
		}
	}

	if patch.IsEmpty() {
		return &EditResult{Item: old, Changes: changes}, nil
	}

	updated, err := m.updateItem(ctx, "edit_item", session, i, patch)
	if err != nil {
		return nil, err
	}

	m.logger.Info("Item edited",
		zap.String("session_id", session.ID),
		zap.String("item_id", itemID),
		zap.Int("changes", len(changes)))
	return &EditResult{Item: *updated, Changes: changes}, nil
}

// IncrementQuantity adds one to an item's quantity
func (m *SessionManager) IncrementQuantity(ctx context.Context, itemID string) (*models.SessionItem, error) {
	ctx, span := util.StartSpan(ctx, "SessionManager.IncrementQuantity")
	defer span.End()

	session, err := m.draft()
	if err != nil {
		return nil, m.fail("increment_quantity", err)
	}
	i := findItem(session.Items, itemID)
	if i < 0 {
		return nil, m.fail("increment_quantity", &NotFoundError{Resource: "item", ID: itemID})
	}

	q := session.Items[i].Quantity + 1
	return m.updateItem(ctx, "increment_quantity", session, i, models.ItemPatch{Quantity: &q})
}

// DecrementQuantity subtracts one from an item's quantity. At quantity 1 it
// does nothing and returns the item unchanged.
func (m *SessionManager) DecrementQuantity(ctx context.Context, itemID string) (*models.SessionItem, error) {
	ctx, span := util.StartSpan(ctx, "SessionManager.DecrementQuantity")
	defer span.End()

	session, err := m.draft()
	if err != nil {
		return nil, m.fail("decrement_quantity", err)
	}
	i := findItem(session.Items, itemID)
	if i < 0 {
		return nil, m.fail("decrement_quantity", &NotFoundError{Resource: "item", ID: itemID})
	}

	if session.Items[i].Quantity <= 1 {
		out := session.Items[i]
		return &out, nil
	}

	q := session.Items[i].Quantity - 1
	return m.updateItem(ctx, "decrement_quantity", session, i, models.ItemPatch{Quantity: &q})
}

// RemoveItem deletes an item from the current session. Removing an unknown
// item succeeds without doing anything. After removal, a product or supplier
// no longer referenced anywhere is deleted from the catalog; failures of that
// cleanup are reported as warnings and never fail the removal.
func (m *SessionManager) RemoveItem(ctx context.Context, itemID string) (*RemoveResult, error) {
	ctx, span := util.StartSpan(ctx, "SessionManager.RemoveItem")
	defer span.End()

	session, err := m.draft()
	if err != nil {
		return nil, m.fail("remove_item", err)
	}
	i := findItem(session.Items, itemID)
	if i < 0 {
		return &RemoveResult{Removed: false}, nil
	}
	removed := session.Items[i]

	done := observe("delete_item")
	err = m.sessions.DeleteItem(ctx, itemID)
	done()
	if err != nil {
		return nil, m.fail("remove_item", persistenceErr("delete_item", err))
	}

	items := make([]models.SessionItem, 0, len(session.Items)-1)
	items = append(items, session.Items[:i]...)
	items = append(items, session.Items[i+1:]...)
	session.Items = items

	util.SessionItemsRemovedTotal.Inc()
	m.logger.Info("Item removed",
		zap.String("session_id", session.ID),
		zap.String("item_id", itemID))

	result := &RemoveResult{Removed: true}

	// Products go first: a product naming the supplier as its default keeps
	// the supplier referenced until the product itself is gone.
	if removed.ProductID != "" && !referencesProduct(session.Items, removed.ProductID) {
		deleted, warn := m.cleanupEntity(ctx, models.EntityProduct, removed.ProductID,
			m.catalog.IsProductReferenced, m.catalog.DeleteProduct)
		if deleted {
			result.DeletedProductID = removed.ProductID
			m.index.removeProduct(removed.ProductID)
		}
		if warn != nil {
			result.Warnings = append(result.Warnings, *warn)
		}
	}

	if removed.SupplierID != "" && !referencesSupplier(session.Items, removed.SupplierID) {
		deleted, warn := m.cleanupEntity(ctx, models.EntitySupplier, removed.SupplierID,
			m.catalog.IsSupplierReferenced, m.catalog.DeleteSupplier)
		if deleted {
			result.DeletedSupplierID = removed.SupplierID
			m.index.removeSupplier(removed.SupplierID)
		}
		if warn != nil {
			result.Warnings = append(result.Warnings, *warn)
		}
	}

	return result, nil
}

// FinishSession summarizes the current draft. It does not change the status;
// CommitFinalization does.
func (m *SessionManager) FinishSession(ctx context.Context) (*SessionSummary, error) {
	_, span := util.StartSpan(ctx, "SessionManager.FinishSession")
	defer span.End()

	session, err := m.draft()
	if err != nil {
		return nil, m.fail("finish_session", err)
	}
	if len(session.Items) == 0 {
		return nil, m.fail("finish_session", ErrEmptySession)
	}

	return summarize(session), nil
}

// CommitFinalization moves the current session to finalized and returns its
// items grouped by supplier. The session is immutable afterwards.
func (m *SessionManager) CommitFinalization(ctx context.Context) (*models.FinalizedSessionPayload, error) {
	ctx, span := util.StartSpan(ctx, "SessionManager.CommitFinalization")
	defer span.End()

	session, err := m.draft()
	if err != nil {
		return nil, m.fail("commit_finalization", err)
	}
	if len(session.Items) == 0 {
		return nil, m.fail("commit_finalization", ErrEmptySession)
	}
	span.SetAttributes(util.OwnerIDKey.String(session.OwnerID), util.SessionIDKey.String(session.ID))

	done := observe("update_session_status")
	err = m.sessions.UpdateSessionStatus(ctx, session.ID, models.SessionStatusFinalized)
	done()
	if err != nil {
		return nil, util.FailSpan(span, m.fail("commit_finalization", persistenceErr("update_session_status", err)))
	}

	finalizedAt := m.now()
	session.Status = models.SessionStatusFinalized
	session.UpdatedAt = finalizedAt

	payload := groupBySupplier(session, finalizedAt)

	util.SessionsFinalizedTotal.Inc()
	m.logger.With(util.TraceFields(ctx)...).Info("Session finalized",
		zap.String("session_id", session.ID),
		zap.Int("items", len(session.Items)),
		zap.Int("suppliers", len(payload.Groups)))

	if m.publisher != nil {
		event := &models.SessionFinalizedEvent{
			BaseEvent: newBaseEvent(models.EventTypeSessionFinalized, finalizedAt),
			Payload:   *payload,
		}
		if err := m.publisher.PublishSessionFinalized(ctx, event); err != nil {
			m.logger.Error("Failed to publish SessionFinalized event",
				zap.String("session_id", session.ID),
				zap.Error(err))
		}
	}

	return payload, nil
}

// DiscardSession deletes the current session, draft or finalized
func (m *SessionManager) DiscardSession(ctx context.Context) error {
	ctx, span := util.StartSpan(ctx, "SessionManager.DiscardSession")
	defer span.End()

	if m.current == nil {
		return m.fail("discard_session", ErrNoActiveSession)
	}
	return m.deleteSession(ctx, m.current)
}

// DeleteSession deletes a stored session owned by ownerID. Catalog entries
// used only by that session are left in place.
func (m *SessionManager) DeleteSession(ctx context.Context, ownerID, sessionID string) error {
	ctx, span := util.StartSpan(ctx, "SessionManager.DeleteSession")
	defer span.End()

	if strings.TrimSpace(ownerID) == "" {
		return m.fail("delete_session", ErrAuthenticationRequired)
	}
	if m.current != nil && m.current.ID == sessionID && m.current.OwnerID == ownerID {
		return m.deleteSession(ctx, m.current)
	}

	done := observe("get_session")
	session, err := m.sessions.GetSession(ctx, sessionID)
	done()
	if err != nil {
		return m.fail("delete_session", persistenceErr("get_session", err))
	}
	if session == nil || session.OwnerID != ownerID {
		return m.fail("delete_session", &NotFoundError{Resource: "session", ID: sessionID})
	}
	return m.deleteSession(ctx, session)
}

func (m *SessionManager) deleteSession(ctx context.Context, session *models.RestockSession) error {
	done := observe("delete_session")
	err := m.sessions.DeleteSession(ctx, session.ID)
	done()
	if err != nil {
		return m.fail("delete_session", persistenceErr("delete_session", err))
	}

	if m.current != nil && m.current.ID == session.ID {
		m.current = nil
	}

	util.SessionsDiscardedTotal.WithLabelValues(session.Status.String()).Inc()
	m.logger.Info("Session deleted",
		zap.String("session_id", session.ID),
		zap.String("status", session.Status.String()))

	if m.publisher != nil {
		event := &models.SessionDiscardedEvent{
			BaseEvent: newBaseEvent(models.EventTypeSessionDiscarded, m.now()),
			SessionID: session.ID,
			OwnerID:   session.OwnerID,
			Status:    session.Status,
		}
		if err := m.publisher.PublishSessionDiscarded(ctx, event); err != nil {
			m.logger.Error("Failed to publish SessionDiscarded event", zap.Error(err))
		}
	}
	return nil
}

// FilterProducts returns cached products whose normalized name contains query,
// most recently used first.
func (m *SessionManager) FilterProducts(query string) []models.Product {
	return m.index.filterProducts(query, m.limit)
}

// FilterSuppliers returns cached suppliers whose normalized name contains query,
// most recently used first.
func (m *SessionManager) FilterSuppliers(query string) []models.Supplier {
	return m.index.filterSuppliers(query, m.limit)
}

func (m *SessionManager) draft() (*models.RestockSession, error) {
	if m.current == nil {
		return nil, ErrNoActiveSession
	}
	if m.current.Status != models.SessionStatusDraft {
		return nil, ErrSessionFinalized
	}
	return m.current, nil
}

func (m *SessionManager) updateItem(
	ctx context.Context,
	op string,
	session *models.RestockSession,
	i int,
	patch models.ItemPatch,
) (*models.SessionItem, error) {
	itemID := session.Items[i].ID

	done := observe("update_item")
	updated, err := m.sessions.UpdateItem(ctx, itemID, patch)
	done()
	if err != nil {
		return nil, m.fail(op, persistenceErr("update_item", err))
	}

	session.Items[i] = *updated
	out := *updated
	return &out, nil
}

// resolveSupplier asks the catalog on every call. The index only serves
// autocomplete and may still hold a supplier another manager has deleted.
func (m *SessionManager) resolveSupplier(ctx context.Context, name, email string) (*models.Supplier, error) {
	key := models.NormalizeName(name)

	done := observe("find_supplier")
	found, err := m.catalog.FindSupplierByName(ctx, key)
	done()
	if err != nil {
		return nil, persistenceErr("find_supplier", err)
	}
	if found != nil {
		m.index.putSupplier(*found)
		return found, nil
	}

	done = observe("upsert_supplier")
	created, err := m.catalog.UpsertSupplier(ctx, models.SupplierInput{Name: name, Email: email})
	done()
	if err != nil {
		return nil, persistenceErr("upsert_supplier", err)
	}

	util.CatalogEntriesCreatedTotal.WithLabelValues(models.EntitySupplier).Inc()
	m.logger.Info("Supplier created",
		zap.String("supplier_id", created.ID),
		zap.String("name", created.Name))
	m.index.putSupplier(*created)
	return created, nil
}

// resolveProduct finds or creates the product and refreshes its default
// quantity and supplier to the values just used.
func (m *SessionManager) resolveProduct(ctx context.Context, name string, quantity int, supplierID string) (*models.Product, error) {
	key := models.NormalizeName(name)

	done := observe("find_product")
	found, err := m.catalog.FindProductByName(ctx, key)
	done()
	if err != nil {
		return nil, persistenceErr("find_product", err)
	}
	known := found != nil

	done = observe("upsert_product")
	product, err := m.catalog.UpsertProduct(ctx, models.ProductInput{
		Name:              name,
		DefaultQuantity:   quantity,
		DefaultSupplierID: &supplierID,
	})
	done()
	if err != nil {
		return nil, persistenceErr("upsert_product", err)
	}

	if !known {
		util.CatalogEntriesCreatedTotal.WithLabelValues(models.EntityProduct).Inc()
		m.logger.Info("Product created",
			zap.String("product_id", product.ID),
			zap.String("name", product.Name))
	}
	m.index.putProduct(*product)
	return product, nil
}

// cleanupEntity deletes a catalog entry the store reports as unreferenced.
// The check and the delete are separate calls, so a concurrent session may
// start using the entry in between.
func (m *SessionManager) cleanupEntity(
	ctx context.Context,
	entity, id string,
	isReferenced func(context.Context, string) (bool, error),
	del func(context.Context, string) error,
) (bool, *CleanupWarning) {
	done := observe("is_" + entity + "_referenced")
	referenced, err := isReferenced(ctx, id)
	done()
	if err != nil {
		util.CatalogCleanupTotal.WithLabelValues(entity, "check_failed").Inc()
		m.logger.Warn("Orphan check failed",
			zap.String("entity", entity),
			zap.String("entity_id", id),
			zap.Error(err))
		return false, &CleanupWarning{Entity: entity, EntityID: id, Message: err.Error()}
	}
	if referenced {
		util.CatalogCleanupTotal.WithLabelValues(entity, "kept").Inc()
		return false, nil
	}

	done = observe("delete_" + entity)
	err = del(ctx, id)
	done()
	if err != nil {
		util.CatalogCleanupTotal.WithLabelValues(entity, "delete_failed").Inc()
		m.logger.Warn("Orphan delete failed",
			zap.String("entity", entity),
			zap.String("entity_id", id),
			zap.Error(err))
		return false, &CleanupWarning{Entity: entity, EntityID: id, Message: err.Error()}
	}

	util.CatalogCleanupTotal.WithLabelValues(entity, "deleted").Inc()
	m.logger.Info("Orphaned catalog entry deleted",
		zap.String("entity", entity),
		zap.String("entity_id", id))

	if m.publisher != nil {
		event := &models.CatalogEntryDeletedEvent{
			BaseEvent: newBaseEvent(models.EventTypeCatalogEntryDeleted, m.now()),
			Entity:    entity,
			EntityID:  id,
		}
		if err := m.publisher.PublishCatalogEntryDeleted(ctx, event); err != nil {
			m.logger.Error("Failed to publish CatalogEntryDeleted event", zap.Error(err))
		}
	}
	return true, nil
}

func (m *SessionManager) fail(op string, err error) error {
	util.SessionOperationFailedTotal.WithLabelValues(op, failureReason(err)).Inc()
	return err
}

func failureReason(err error) string {
	switch {
	case IsValidationError(err):
		return "validation"
	case IsPersistenceError(err):
		return "persistence"
	case IsNotFound(err):
		return "not_found"
	case errors.Is(err, ErrSessionFinalized):
		return "finalized"
	case errors.Is(err, ErrEmptySession):
		return "empty"
	case errors.Is(err, ErrAuthenticationRequired):
		return "unauthenticated"
	case errors.Is(err, ErrNoActiveSession):
		return "no_session"
	default:
		return "other"
	}
}

func observe(op string) func() {
	start := time.Now()
	return func() {
		util.StoreOperationLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}

func newBaseEvent(eventType string, ts time.Time) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: ts,
	}
}

func findItem(items []models.SessionItem, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

func referencesProduct(items []models.SessionItem, productID string) bool {
	for _, item := range items {
		if item.ProductID == productID {
			return true
		}
	}
	return false
}

func referencesSupplier(items []models.SessionItem, supplierID string) bool {
	for _, item := range items {
		if item.SupplierID == supplierID {
			return true
		}
	}
	return false
}

func cloneSession(s *models.RestockSession) *models.RestockSession {
	out := *s
	out.Items = make([]models.SessionItem, len(s.Items))
	copy(out.Items, s.Items)
	return &out
}
