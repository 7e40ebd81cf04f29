package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"restock-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCache struct {
	mu        sync.Mutex
	err       error
	products  map[string]models.Product
	suppliers map[string]models.Supplier
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		products:  make(map[string]models.Product),
		suppliers: make(map[string]models.Supplier),
	}
}

func (f *fakeCache) GetProduct(ctx context.Context, nameKey string) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if p, ok := f.products[nameKey]; ok {
		return &p, nil
	}
	return nil, nil
}

func (f *fakeCache) SetProduct(ctx context.Context, p *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.products[p.NameKey] = *p
	return nil
}

func (f *fakeCache) EvictProduct(ctx context.Context, productID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, p := range f.products {
		if p.ID == productID {
			delete(f.products, k)
		}
	}
	return f.err
}

func (f *fakeCache) GetSupplier(ctx context.Context, nameKey string) (*models.Supplier, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if s, ok := f.suppliers[nameKey]; ok {
		return &s, nil
	}
	return nil, nil
}

func (f *fakeCache) SetSupplier(ctx context.Context, s *models.Supplier) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.suppliers[s.NameKey] = *s
	return nil
}

func (f *fakeCache) EvictSupplier(ctx context.Context, supplierID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, s := range f.suppliers {
		if s.ID == supplierID {
			delete(f.suppliers, k)
		}
	}
	return f.err
}

func TestCachedCatalogReadsThrough(t *testing.T) {
	s := newFlakyStore()
	cache := newFakeCache()
	catalog := NewCachedCatalog(s, cache)
	ctx := context.Background()

	created, err := s.UpsertSupplier(ctx, models.SupplierInput{Name: "Acme", Email: "a@acme.test"})
	require.NoError(t, err)

	found, err := catalog.FindSupplierByName(ctx, "acme")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, 1, s.count("find_supplier"))

	found, err = catalog.FindSupplierByName(ctx, "acme")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, 1, s.count("find_supplier"), "second lookup is served from cache")

	missing, err := catalog.FindSupplierByName(ctx, "globex")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCachedCatalogWritesThroughAndEvicts(t *testing.T) {
	s := newFlakyStore()
	cache := newFakeCache()
	catalog := NewCachedCatalog(s, cache)
	ctx := context.Background()

	product, err := catalog.UpsertProduct(ctx, models.ProductInput{Name: "Oat Milk", DefaultQuantity: 3})
	require.NoError(t, err)
	assert.Contains(t, cache.products, "oat milk")

	require.NoError(t, catalog.DeleteProduct(ctx, product.ID))
	assert.NotContains(t, cache.products, "oat milk")
	assert.Equal(t, 0, s.ProductCount())

	supplier, err := catalog.UpsertSupplier(ctx, models.SupplierInput{Name: "Acme", Email: "a@acme.test"})
	require.NoError(t, err)
	assert.Contains(t, cache.suppliers, "acme")

	s.fail("delete_supplier", errStoreDown)
	assert.Error(t, catalog.DeleteSupplier(ctx, supplier.ID))
	assert.Contains(t, cache.suppliers, "acme", "failed delete keeps the cache entry")
}

func TestCachedCatalogFallsBackWhenCacheFails(t *testing.T) {
	s := newFlakyStore()
	cache := newFakeCache()
	cache.err = errors.New("redis down")
	catalog := NewCachedCatalog(s, cache)
	ctx := context.Background()

	supplier, err := catalog.UpsertSupplier(ctx, models.SupplierInput{Name: "Acme", Email: "a@acme.test"})
	require.NoError(t, err)

	found, err := catalog.FindSupplierByName(ctx, "acme")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, supplier.ID, found.ID)

	assert.NoError(t, catalog.DeleteSupplier(ctx, supplier.ID))
}

func TestSessionManagerOverCachedCatalog(t *testing.T) {
	s := newFlakyStore()
	catalog := NewCachedCatalog(s, newFakeCache())
	m := NewSessionManager(catalog, s, nil, DefaultAutocompleteLimit)
	ctx := context.Background()

	_, err := m.StartSession(ctx, "owner-1")
	require.NoError(t, err)
	first, err := m.AddItem(ctx, item("Soap", 1, "Acme", "a@acme.test"))
	require.NoError(t, err)
	second, err := m.AddItem(ctx, item("Bleach", 1, "acme", "a@acme.test"))
	require.NoError(t, err)

	assert.Equal(t, first.SupplierID, second.SupplierID)
	assert.Equal(t, 1, s.SupplierCount())
}
