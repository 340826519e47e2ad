// Package cache keeps the redirect hot path off the database for links that
// have already been visited. Only visited links are cached: their target and
// expiry are immutable and the visited flag has nothing left to flip, so a
// cache hit is indistinguishable from the store path. Entries carry a TTL no
// longer than the link's remaining life, which keeps an expired link from
// ever being served out of the cache.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

type TargetCacheInterface interface {
	GetTarget(ctx context.Context, address string) (string, error)
	SetTarget(ctx context.Context, address, target string, ttl time.Duration) error
}

type TargetCache struct {
	client *redis.Client
}

func NewTargetCache(client *redis.Client) *TargetCache {
	return &TargetCache{client: client}
}

// GetTarget returns the cached target for an address, or "" on a miss.
func (c *TargetCache) GetTarget(ctx context.Context, address string) (string, error) {
	target, err := c.client.Get(ctx, "target:"+address).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return target, nil
}

func (c *TargetCache) SetTarget(ctx context.Context, address, target string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.client.Set(ctx, "target:"+address, target, ttl).Err()
}
