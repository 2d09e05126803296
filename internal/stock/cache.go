package stock

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const cacheVersionKey = "stock:version"

// StatusCache serves read-side stock status out of Redis with versioned keys.
// Every successful write bumps the version, so stale entries age out without
// explicit invalidation. Concurrent loads for the same product are collapsed
// through singleflight.
type StatusCache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewStatusCache instantiates the cache helper.
func NewStatusCache(client *redis.Client, ttl time.Duration) *StatusCache {
	return &StatusCache{client: client, ttl: ttl}
}

// Version returns the current cache version, initialising when missing.
func (c *StatusCache) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if err == redis.Nil {
		if err := c.client.Set(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	if ver <= 0 {
		ver = 1
		if err := c.client.Set(ctx, cacheVersionKey, ver, 0).Err(); err != nil {
			return 0, err
		}
	}
	return ver, nil
}

// Bump invalidates all cached entries by advancing the version.
func (c *StatusCache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, cacheVersionKey).Err()
}

// Status loads a cached status or populates it using the loader.
func (c *StatusCache) Status(ctx context.Context, productID int64, loader func(context.Context) (StatusInfo, error)) (StatusInfo, error) {
	if c == nil || c.client == nil {
		return loader(ctx)
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return loader(ctx)
	}
	key := fmt.Sprintf("stock:status:%d:%d", productID, ver)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var info StatusInfo
		if jsonErr := json.Unmarshal(payload, &info); jsonErr == nil {
			return info, nil
		}
	} else if err != redis.Nil {
		return loader(ctx)
	}

	value, err, _ := c.group.Do(key, func() (any, error) {
		info, err := loader(ctx)
		if err != nil {
			return StatusInfo{}, err
		}
		raw, err := json.Marshal(info)
		if err != nil {
			return StatusInfo{}, err
		}
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			return info, nil
		}
		return info, nil
	})
	if err != nil {
		return StatusInfo{}, err
	}
	return value.(StatusInfo), nil
}
