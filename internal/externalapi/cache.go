package externalapi

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// cache is a small JSON-marshaling wrapper over go-redis, giving
// weather and routing clients a typed get/set with a fixed TTL per
// cache instance (§5 "mandatory weather ~30 min / routing ~1 h caches
// bounding outbound load").
type cache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func newCache(client *redis.Client, prefix string, ttl time.Duration) *cache {
	return &cache{client: client, ttl: ttl, prefix: prefix}
}

// get unmarshals a cached value into dest, reporting whether it was found.
func (c *cache) get(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *cache) set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.prefix+key, raw, c.ttl).Err()
}
