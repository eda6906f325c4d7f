package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const cacheVersionKey = "catalog:version"

// CachedProvider serves catalog lists from Redis, falling back to the wrapped provider.
type CachedProvider struct {
	source Provider
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewCachedProvider wraps source with a Redis cache. A nil client disables caching.
func NewCachedProvider(source Provider, client *redis.Client, ttl time.Duration) *CachedProvider {
	return &CachedProvider{source: source, client: client, ttl: ttl}
}

func (c *CachedProvider) Products(ctx context.Context) ([]Product, error) {
	var out []Product
	err := c.fetch(ctx, "products", &out, func(ctx context.Context) (any, error) {
		return c.source.Products(ctx)
	})
	return out, err
}

func (c *CachedProvider) Suppliers(ctx context.Context) ([]Supplier, error) {
	var out []Supplier
	err := c.fetch(ctx, "suppliers", &out, func(ctx context.Context) (any, error) {
		return c.source.Suppliers(ctx)
	})
	return out, err
}

func (c *CachedProvider) Branches(ctx context.Context) ([]Branch, error) {
	var out []Branch
	err := c.fetch(ctx, "branches", &out, func(ctx context.Context) (any, error) {
		return c.source.Branches(ctx)
	})
	return out, err
}

// Invalidate bumps the cache version so subsequent reads go to the source.
func (c *CachedProvider) Invalidate(ctx context.Context) error {
	return InvalidateCache(ctx, c.client)
}

// InvalidateCache bumps the shared cache version. Writers that change catalog tables
// outside the API call it so every CachedProvider reloads.
func InvalidateCache(ctx context.Context, client *redis.Client) error {
	if client == nil {
		return nil
	}
	return client.Incr(ctx, cacheVersionKey).Err()
}

func (c *CachedProvider) version(ctx context.Context) (int64, error) {
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return ver, err
}

func (c *CachedProvider) fetch(ctx context.Context, name string, dest any, loader func(context.Context) (any, error)) error {
	if c.client == nil {
		value, err := loader(ctx)
		if err != nil {
			return err
		}
		return roundTrip(value, dest)
	}
	ver, err := c.version(ctx)
	if err != nil {
		return fmt.Errorf("catalog: cache version: %w", err)
	}
	key := fmt.Sprintf("catalog:%s:%d", name, ver)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return json.Unmarshal(payload, dest)
	}
	if !errors.Is(err, redis.Nil) {
		return err
	}

	raw, err, _ := c.group.Do(key, func() (any, error) {
		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			return nil, err
		}
		return raw, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(raw.([]byte), dest)
}

func roundTrip(value any, dest any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}
