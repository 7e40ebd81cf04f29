package redisclient

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"restock-service/internal/models"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/set_entity.lua
var setEntityScript string

//go:embed scripts/evict_entity.lua
var evictEntityScript string

// Catalog keys share the {catalog} hash tag so the scripts touch a single
// cluster slot.
const (
	productPrefix    = "{catalog}:product:"
	supplierPrefix   = "{catalog}:supplier:"
	productIndexKey  = "{catalog}:product-ids"
	supplierIndexKey = "{catalog}:supplier-ids"

	defaultCatalogTTL = 10 * time.Minute
)

type Client struct {
	rdb         *redis.Client
	catalogTTL  time.Duration
	setScript   *redis.Script
	evictScript *redis.Script
}

// NewClient creates a new Redis client with Lua scripts loaded
func NewClient(addr, password string, db int, catalogTTL time.Duration) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return newClient(rdb, catalogTTL), nil
}

func newClient(rdb *redis.Client, catalogTTL time.Duration) *Client {
	if catalogTTL < time.Second {
		catalogTTL = defaultCatalogTTL
	}
	return &Client{
		rdb:         rdb,
		catalogTTL:  catalogTTL,
		setScript:   redis.NewScript(setEntityScript),
		evictScript: redis.NewScript(evictEntityScript),
	}
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Ping checks the Redis connection
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// GetProduct returns the cached product for a normalized name, or nil on a miss
func (c *Client) GetProduct(ctx context.Context, nameKey string) (*models.Product, error) {
	var p models.Product
	found, err := c.getEntity(ctx, productPrefix+nameKey, &p)
	if err != nil || !found {
		return nil, err
	}
	p.NameKey = nameKey
	return &p, nil
}

// SetProduct caches a product under its normalized name
func (c *Client) SetProduct(ctx context.Context, p *models.Product) error {
	return c.setEntity(ctx, productPrefix, productIndexKey, p.ID, p.NameKey, p)
}

// EvictProduct drops a cached product by id
func (c *Client) EvictProduct(ctx context.Context, productID string) error {
	return c.evictEntity(ctx, productPrefix, productIndexKey, productID)
}

// GetSupplier returns the cached supplier for a normalized name, or nil on a miss
func (c *Client) GetSupplier(ctx context.Context, nameKey string) (*models.Supplier, error) {
	var s models.Supplier
	found, err := c.getEntity(ctx, supplierPrefix+nameKey, &s)
	if err != nil || !found {
		return nil, err
	}
	s.NameKey = nameKey
	return &s, nil
}

// SetSupplier caches a supplier under its normalized name
func (c *Client) SetSupplier(ctx context.Context, s *models.Supplier) error {
	return c.setEntity(ctx, supplierPrefix, supplierIndexKey, s.ID, s.NameKey, s)
}

// EvictSupplier drops a cached supplier by id
func (c *Client) EvictSupplier(ctx context.Context, supplierID string) error {
	return c.evictEntity(ctx, supplierPrefix, supplierIndexKey, supplierID)
}

func (c *Client) getEntity(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func (c *Client) setEntity(ctx context.Context, prefix, indexKey, id, nameKey string, entity interface{}) error {
	if nameKey == "" {
		return fmt.Errorf("cannot cache %s without a name key", id)
	}

	encoded, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", id, err)
	}

	ttl := int64(c.catalogTTL / time.Second)
	_, err = c.setScript.Run(ctx, c.rdb, []string{prefix + nameKey, indexKey}, encoded, ttl, id, nameKey).Result()
	if err != nil {
		return fmt.Errorf("set entity script failed: %w", err)
	}
	return nil
}

// evictEntity resolves the entry key outside the script and lets the script
// delete it only if the index still points the id at that name.
func (c *Client) evictEntity(ctx context.Context, prefix, indexKey, id string) error {
	nameKey, err := c.rdb.HGet(ctx, indexKey, id).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", indexKey, err)
	}

	_, err = c.evictScript.Run(ctx, c.rdb, []string{indexKey, prefix + nameKey}, id, nameKey).Result()
	if err != nil {
		return fmt.Errorf("evict entity script failed: %w", err)
	}
	return nil
}

// SetIdempotencyKey stores an idempotency key with TTL
func (c *Client) SetIdempotencyKey(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("idempotency:%s", key), value, ttl).Err()
}

// GetIdempotencyKey returns the value stored for an idempotency key, or nil if absent
func (c *Client) GetIdempotencyKey(ctx context.Context, key string) ([]byte, error) {
	value, err := c.rdb.Get(ctx, fmt.Sprintf("idempotency:%s", key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}
