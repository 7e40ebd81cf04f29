package service

import (
	"context"

	"restock-service/internal/models"
	"restock-service/internal/util"

	"go.uber.org/zap"
)

// CatalogCache is a name-keyed cache of catalog entries. Get methods return
// (nil, nil) on a miss.
type CatalogCache interface {
	GetProduct(ctx context.Context, nameKey string) (*models.Product, error)
	SetProduct(ctx context.Context, p *models.Product) error
	EvictProduct(ctx context.Context, productID string) error
	GetSupplier(ctx context.Context, nameKey string) (*models.Supplier, error)
	SetSupplier(ctx context.Context, s *models.Supplier) error
	EvictSupplier(ctx context.Context, supplierID string) error
}

// CachedCatalog is a read-through, write-through cache in front of a
// CatalogStore. Cache errors are logged and the wrapped store is used.
type CachedCatalog struct {
	CatalogStore
	cache  CatalogCache
	logger *zap.Logger
}

// NewCachedCatalog wraps store with cache
func NewCachedCatalog(store CatalogStore, cache CatalogCache) *CachedCatalog {
	return &CachedCatalog{
		CatalogStore: store,
		cache:        cache,
		logger:       util.GetLogger(),
	}
}

func (c *CachedCatalog) FindProductByName(ctx context.Context, normalizedName string) (*models.Product, error) {
	p, err := c.cache.GetProduct(ctx, normalizedName)
	if err != nil {
		c.logger.Warn("Catalog cache read failed", zap.String("entity", models.EntityProduct), zap.Error(err))
	} else if p != nil {
		util.CatalogCacheLookupsTotal.WithLabelValues(models.EntityProduct, "hit").Inc()
		return p, nil
	}
	util.CatalogCacheLookupsTotal.WithLabelValues(models.EntityProduct, "miss").Inc()

	p, err = c.CatalogStore.FindProductByName(ctx, normalizedName)
	if err != nil || p == nil {
		return p, err
	}
	c.storeProduct(ctx, p)
	return p, nil
}

func (c *CachedCatalog) UpsertProduct(ctx context.Context, input models.ProductInput) (*models.Product, error) {
	p, err := c.CatalogStore.UpsertProduct(ctx, input)
	if err != nil {
		return nil, err
	}
	c.storeProduct(ctx, p)
	return p, nil
}

func (c *CachedCatalog) DeleteProduct(ctx context.Context, productID string) error {
	if err := c.CatalogStore.DeleteProduct(ctx, productID); err != nil {
		return err
	}
	if err := c.cache.EvictProduct(ctx, productID); err != nil {
		c.logger.Warn("Catalog cache eviction failed",
			zap.String("product_id", productID),
			zap.Error(err))
	}
	return nil
}

func (c *CachedCatalog) FindSupplierByName(ctx context.Context, normalizedName string) (*models.Supplier, error) {
	s, err := c.cache.GetSupplier(ctx, normalizedName)
	if err != nil {
		c.logger.Warn("Catalog cache read failed", zap.String("entity", models.EntitySupplier), zap.Error(err))
	} else if s != nil {
		util.CatalogCacheLookupsTotal.WithLabelValues(models.EntitySupplier, "hit").Inc()
		return s, nil
	}
	util.CatalogCacheLookupsTotal.WithLabelValues(models.EntitySupplier, "miss").Inc()

	s, err = c.CatalogStore.FindSupplierByName(ctx, normalizedName)
	if err != nil || s == nil {
		return s, err
	}
	c.storeSupplier(ctx, s)
	return s, nil
}

func (c *CachedCatalog) UpsertSupplier(ctx context.Context, input models.SupplierInput) (*models.Supplier, error) {
	s, err := c.CatalogStore.UpsertSupplier(ctx, input)
	if err != nil {
		return nil, err
	}
	c.storeSupplier(ctx, s)
	return s, nil
}

func (c *CachedCatalog) DeleteSupplier(ctx context.Context, supplierID string) error {
	if err := c.CatalogStore.DeleteSupplier(ctx, supplierID); err != nil {
		return err
	}
	if err := c.cache.EvictSupplier(ctx, supplierID); err != nil {
		c.logger.Warn("Catalog cache eviction failed",
			zap.String("supplier_id", supplierID),
			zap.Error(err))
	}
	return nil
}

func (c *CachedCatalog) storeProduct(ctx context.Context, p *models.Product) {
	if err := c.cache.SetProduct(ctx, p); err != nil {
		c.logger.Warn("Catalog cache write failed",
			zap.String("product_id", p.ID),
			zap.Error(err))
	}
}

func (c *CachedCatalog) storeSupplier(ctx context.Context, s *models.Supplier) {
	if err := c.cache.SetSupplier(ctx, s); err != nil {
		c.logger.Warn("Catalog cache write failed",
			zap.String("supplier_id", s.ID),
			zap.Error(err))
	}
}
