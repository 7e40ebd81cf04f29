package service

import (
	"sort"
	"strings"
	"sync"

	"restock-service/internal/models"
)

// DefaultAutocompleteLimit is the number of suggestions returned by the filters
const DefaultAutocompleteLimit = 5

type indexedProduct struct {
	product models.Product
	used    int64
}

type indexedSupplier struct {
	supplier models.Supplier
	used     int64
}

// catalogIndex caches products and suppliers by normalized name. Every touch
// bumps a monotonic counter so suggestions can be ranked most-recently-used first.
// It may be shared by several managers.
type catalogIndex struct {
	mu        sync.RWMutex
	products  map[string]*indexedProduct
	suppliers map[string]*indexedSupplier
	clock     int64
}

func newCatalogIndex() *catalogIndex {
	return &catalogIndex{
		products:  make(map[string]*indexedProduct),
		suppliers: make(map[string]*indexedSupplier),
	}
}

// tick must be called with mu held for writing
func (c *catalogIndex) tick() int64 {
	c.clock++
	return c.clock
}

func (c *catalogIndex) putProduct(p models.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.products[models.NormalizeName(p.Name)] = &indexedProduct{product: p, used: c.tick()}
}

func (c *catalogIndex) putSupplier(s models.Supplier) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.suppliers[models.NormalizeName(s.Name)] = &indexedSupplier{supplier: s, used: c.tick()}
}

func (c *catalogIndex) removeProduct(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, e := range c.products {
		if e.product.ID == id {
			delete(c.products, k)
		}
	}
}

func (c *catalogIndex) removeSupplier(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, e := range c.suppliers {
		if e.supplier.ID == id {
			delete(c.suppliers, k)
		}
	}
}

// load seeds the index from the store, oldest first so that the most recently
// updated rows end up with the highest recency.
func (c *catalogIndex) load(products []models.Product, suppliers []models.Supplier) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sort.SliceStable(products, func(i, j int) bool {
		return products[i].UpdatedAt.Before(products[j].UpdatedAt)
	})
	for _, p := range products {
		c.products[models.NormalizeName(p.Name)] = &indexedProduct{product: p, used: c.tick()}
	}

	sort.SliceStable(suppliers, func(i, j int) bool {
		return suppliers[i].UpdatedAt.Before(suppliers[j].UpdatedAt)
	})
	for _, s := range suppliers {
		c.suppliers[models.NormalizeName(s.Name)] = &indexedSupplier{supplier: s, used: c.tick()}
	}
}

func (c *catalogIndex) filterProducts(query string, limit int) []models.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	q := models.NormalizeName(query)
	if q == "" {
		return []models.Product{}
	}

	matches := make([]*indexedProduct, 0)
	for k, e := range c.products {
		if strings.Contains(k, q) {
			matches = append(matches, e)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].used > matches[j].used })

	out := make([]models.Product, 0, limit)
	for _, e := range matches {
		if len(out) == limit {
			break
		}
		out = append(out, e.product)
	}
	return out
}

func (c *catalogIndex) filterSuppliers(query string, limit int) []models.Supplier {
	c.mu.RLock()
	defer c.mu.RUnlock()

	q := models.NormalizeName(query)
	if q == "" {
		return []models.Supplier{}
	}

	matches := make([]*indexedSupplier, 0)
	for k, e := range c.suppliers {
		if strings.Contains(k, q) {
			matches = append(matches, e)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].used > matches[j].used })

	out := make([]models.Supplier, 0, limit)
	for _, e := range matches {
		if len(out) == limit {
			break
		}
		out = append(out, e.supplier)
	}
	return out
}
