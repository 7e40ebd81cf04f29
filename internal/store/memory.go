package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"restock-service/internal/models"

	"github.com/google/uuid"
)

// MemoryStore keeps the catalog, sessions and drafts in process memory. It
// implements the same contracts as Store and is meant for local runs and tests.
type MemoryStore struct {
	mu        sync.RWMutex
	products  map[string]*models.Product  // id -> product
	suppliers map[string]*models.Supplier // id -> supplier
	sessions  map[string]*models.RestockSession
	drafts    map[string][]models.EmailDraft // session id -> drafts
	processed map[string]string              // event id -> event type
	now       func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products:  make(map[string]*models.Product),
		suppliers: make(map[string]*models.Supplier),
		sessions:  make(map[string]*models.RestockSession),
		drafts:    make(map[string][]models.EmailDraft),
		processed: make(map[string]string),
		now:       time.Now,
	}
}

// Ping always succeeds
func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (m *MemoryStore) FindProductByName(ctx context.Context, normalizedName string) (*models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if p := m.productByKey(normalizedName); p != nil {
		out := *p
		return &out, nil
	}
	return nil, nil
}

func (m *MemoryStore) UpsertProduct(ctx context.Context, input models.ProductInput) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := models.NormalizeName(input.Name)
	now := m.now()
	p := m.productByKey(key)
	if p == nil {
		p = &models.Product{
			ID:        uuid.New().String(),
			Name:      input.Name,
			NameKey:   key,
			CreatedAt: now,
		}
		m.products[p.ID] = p
	}
	p.DefaultQuantity = input.DefaultQuantity
	if input.DefaultSupplierID != nil {
		id := *input.DefaultSupplierID
		p.DefaultSupplierID = &id
	}
	p.UpdatedAt = now

	out := *p
	return &out, nil
}

func (m *MemoryStore) FindSupplierByName(ctx context.Context, normalizedName string) (*models.Supplier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if s := m.supplierByKey(normalizedName); s != nil {
		out := *s
		return &out, nil
	}
	return nil, nil
}

func (m *MemoryStore) UpsertSupplier(ctx context.Context, input models.SupplierInput) (*models.Supplier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := models.NormalizeName(input.Name)
	now := m.now()
	s := m.supplierByKey(key)
	if s == nil {
		s = &models.Supplier{
			ID:        uuid.New().String(),
			Name:      input.Name,
			NameKey:   key,
			Email:     input.Email,
			Phone:     input.Phone,
			Notes:     input.Notes,
			CreatedAt: now,
		}
		m.suppliers[s.ID] = s
	}
	s.UpdatedAt = now

	out := *s
	return &out, nil
}

func (m *MemoryStore) IsProductReferenced(ctx context.Context, productID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.sessions {
		for _, item := range s.Items {
			if item.ProductID == productID {
				return true, nil
			}
		}
	}
	return false, nil
}

func (m *MemoryStore) IsSupplierReferenced(ctx context.Context, supplierID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.sessions {
		for _, item := range s.Items {
			if item.SupplierID == supplierID {
				return true, nil
			}
		}
	}
	for _, p := range m.products {
		if p.DefaultSupplierID != nil && *p.DefaultSupplierID == supplierID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) DeleteProduct(ctx context.Context, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.products, productID)
	return nil
}

// DeleteSupplier deletes a supplier and clears it as a product default
func (m *MemoryStore) DeleteSupplier(ctx context.Context, supplierID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.suppliers, supplierID)
	for _, p := range m.products {
		if p.DefaultSupplierID != nil && *p.DefaultSupplierID == supplierID {
			p.DefaultSupplierID = nil
		}
	}
	return nil
}

func (m *MemoryStore) ListProducts(ctx context.Context) ([]models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *MemoryStore) ListSuppliers(ctx context.Context) ([]models.Supplier, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Supplier, 0, len(m.suppliers))
	for _, s := range m.suppliers {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *MemoryStore) CreateSession(ctx context.Context, ownerID string) (*models.RestockSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	s := &models.RestockSession{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Status:    models.SessionStatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
		Items:     []models.SessionItem{},
	}
	m.sessions[s.ID] = s
	return copySession(s), nil
}

func (m *MemoryStore) GetSession(ctx context.Context, sessionID string) (*models.RestockSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	return copySession(s), nil
}

func (m *MemoryStore) UpdateSessionStatus(ctx context.Context, sessionID string, status models.SessionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session not found: %s", sessionID)
	}
	s.Status = status
	s.UpdatedAt = m.now()
	return nil
}

func (m *MemoryStore) AddItem(ctx context.Context, sessionID string, item models.SessionItem) (*models.SessionItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session not found: %s", sessionID)
	}
	if _, _, found := m.itemByID(item.ID); found {
		return nil, fmt.Errorf("duplicate session item: %s", item.ID)
	}

	item.SessionID = sessionID
	if item.CreatedAt.IsZero() {
		item.CreatedAt = m.now()
	}
	s.Items = append(s.Items, item)
	return &item, nil
}

func (m *MemoryStore) UpdateItem(ctx context.Context, itemID string, patch models.ItemPatch) (*models.SessionItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, i, found := m.itemByID(itemID)
	if !found {
		return nil, fmt.Errorf("session item not found: %s", itemID)
	}
	patch.Apply(&s.Items[i])

	out := s.Items[i]
	return &out, nil
}

func (m *MemoryStore) DeleteItem(ctx context.Context, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, i, found := m.itemByID(itemID)
	if !found {
		return nil
	}
	items := make([]models.SessionItem, 0, len(s.Items)-1)
	items = append(items, s.Items[:i]...)
	s.Items = append(items, s.Items[i+1:]...)
	return nil
}

func (m *MemoryStore) DeleteSession(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, sessionID)
	delete(m.drafts, sessionID)
	return nil
}

func (m *MemoryStore) ListUnfinishedSessions(ctx context.Context, ownerID string) ([]models.RestockSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.RestockSession, 0)
	for _, s := range m.sessions {
		if s.OwnerID == ownerID && s.Status == models.SessionStatusDraft {
			out = append(out, *copySession(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) SaveEmailDrafts(ctx context.Context, drafts []models.EmailDraft) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	bySession := make(map[string][]models.EmailDraft)
	for _, d := range drafts {
		bySession[d.SessionID] = append(bySession[d.SessionID], d)
	}
	for id, ds := range bySession {
		m.drafts[id] = ds
	}
	return nil
}

func (m *MemoryStore) ListEmailDrafts(ctx context.Context, sessionID string) ([]models.EmailDraft, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.EmailDraft, len(m.drafts[sessionID]))
	copy(out, m.drafts[sessionID])
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (m *MemoryStore) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.processed[eventID]
	return ok, nil
}

func (m *MemoryStore) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.processed[eventID] = eventType
	return nil
}

// SupplierCount returns the number of stored suppliers
func (m *MemoryStore) SupplierCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.suppliers)
}

// ProductCount returns the number of stored products
func (m *MemoryStore) ProductCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.products)
}

func (m *MemoryStore) productByKey(key string) *models.Product {
	for _, p := range m.products {
		if p.NameKey == key {
			return p
		}
	}
	return nil
}

func (m *MemoryStore) supplierByKey(key string) *models.Supplier {
	for _, s := range m.suppliers {
		if s.NameKey == key {
			return s
		}
	}
	return nil
}

func (m *MemoryStore) itemByID(itemID string) (*models.RestockSession, int, bool) {
	for _, s := range m.sessions {
		for i := range s.Items {
			if s.Items[i].ID == itemID {
				return s, i, true
			}
		}
	}
	return nil, -1, false
}

func copySession(s *models.RestockSession) *models.RestockSession {
	out := *s
	out.Items = make([]models.SessionItem, len(s.Items))
	copy(out.Items, s.Items)
	return &out
}
