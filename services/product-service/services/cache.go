package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/mss-commerce/backend/services/product-service/models"
)

const (
	productCachePrefix = "product:detail:"
	defaultCacheTTL    = 10 * time.Minute
)

// ProductCache is a read-through cache for single-product lookups. Every
// method degrades to a miss or a no-op when Redis is unreachable; the store
// stays the source of truth.
type ProductCache struct {
	redis *redis.Client
	ttl   time.Duration
	log   *zap.Logger
}

func NewProductCache(client *redis.Client, log *zap.Logger) *ProductCache {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProductCache{redis: client, ttl: defaultCacheTTL, log: log}
}

func (c *ProductCache) Get(ctx context.Context, id string) (*models.Product, bool) {
	if c == nil || c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, productCachePrefix+id).Result()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("product cache read failed", zap.String("id", id), zap.Error(err))
		}
		return nil, false
	}
	var product models.Product
	if err := json.Unmarshal([]byte(data), &product); err != nil {
		c.log.Warn("stale product cache entry", zap.String("id", id), zap.Error(err))
		return nil, false
	}
	return &product, true
}

// SetAsync caches the product off the request path.
func (c *ProductCache) SetAsync(id string, product *models.Product) {
	if c == nil || c.redis == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		data, err := json.Marshal(product)
		if err != nil {
			c.log.Warn("failed to marshal product for cache", zap.String("id", id), zap.Error(err))
			return
		}
		if err := c.redis.Set(ctx, productCachePrefix+id, data, c.ttl).Err(); err != nil {
			c.log.Warn("failed to cache product", zap.String("id", id), zap.Error(err))
		}
	}()
}

// Invalidate drops the cached product after a write.
func (c *ProductCache) Invalidate(ctx context.Context, id string) {
	if c == nil || c.redis == nil {
		return
	}
	if err := c.redis.Del(ctx, productCachePrefix+id).Err(); err != nil {
		c.log.Warn("failed to invalidate product cache", zap.String("id", id), zap.Error(err))
	}
}
