package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Pesokrava/product_catalog/internal/domain"
)

// RedisCache implements domain.ProductCache
type RedisCache struct {
	client     *redis.Client
	productTTL time.Duration
}

// NewRedisCache creates a new Redis cache instance
func NewRedisCache(client *redis.Client, productTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:     client,
		productTTL: productTTL,
	}
}

func productKey(id string) string {
	return fmt.Sprintf("product:%s", id)
}

// GetProduct retrieves a cached product, returning domain.ErrNotFound on a miss
func (c *RedisCache) GetProduct(ctx context.Context, id string) (*domain.AvailableProduct, error) {
	val, err := c.client.Get(ctx, productKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	var product domain.AvailableProduct
	if err := json.Unmarshal(val, &product); err != nil {
		return nil, err
	}

	return &product, nil
}

// SetProduct stores a product in the cache
func (c *RedisCache) SetProduct(ctx context.Context, product *domain.AvailableProduct) error {
	data, err := json.Marshal(product)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, productKey(product.ID), data, c.productTTL).Err()
}

// InvalidateProduct removes a product from the cache
func (c *RedisCache) InvalidateProduct(ctx context.Context, id string) error {
	return c.client.Del(ctx, productKey(id)).Err()
}
