package modules

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"veritas/core"
	"veritas/metrics"
)

const inventoryCachePrefix = "veritas:inventory:"

// CachedInventoryReader decorates an InventoryReader with a Redis
// read-through cache. Redis failures fall through to the underlying reader:
// the cache trades latency, never correctness. Negative lookups are not
// cached so a just-created product is visible immediately.
type CachedInventoryReader struct {
	inner  core.InventoryReader
	client *redis.Client
	ttl    time.Duration
	logger *zap.SugaredLogger
}

// NewCachedInventoryReader wraps inner with a Redis cache.
func NewCachedInventoryReader(inner core.InventoryReader, client *redis.Client, ttl time.Duration, logger *zap.SugaredLogger) *CachedInventoryReader {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachedInventoryReader{inner: inner, client: client, ttl: ttl, logger: logger}
}

// GetProductWithInventory implements core.InventoryReader.
func (c *CachedInventoryReader) GetProductWithInventory(ctx context.Context, productID string) (*core.ProductInventory, error) {
	key := inventoryCachePrefix + productID

	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var product core.ProductInventory
		if err := json.Unmarshal(data, &product); err == nil {
			return &product, nil
		}
		metrics.CacheErrors.WithLabelValues("redis", "unmarshal").Inc()
	} else if !errors.Is(err, redis.Nil) {
		metrics.CacheErrors.WithLabelValues("redis", "get").Inc()
		if c.logger != nil {
			c.logger.Warnw("Inventory cache read failed, falling through", "key", key, "error", err)
		}
	}

	product, err := c.inner.GetProductWithInventory(ctx, productID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(product); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			metrics.CacheErrors.WithLabelValues("redis", "set").Inc()
			if c.logger != nil {
				c.logger.Warnw("Inventory cache write failed", "key", key, "error", err)
			}
		}
	}
	return product, nil
}

// Invalidate drops the cached record for one product. Module owners call
// this after committing a stock mutation.
func (c *CachedInventoryReader) Invalidate(ctx context.Context, productID string) error {
	if err := c.client.Del(ctx, inventoryCachePrefix+productID).Err(); err != nil {
		return fmt.Errorf("failed to invalidate inventory cache for %s: %w", productID, err)
	}
	return nil
}
