package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"forgedb/internal/middleware"
	"forgedb/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	modDetailKeyPrefix = "mod:%s:detail"
	modListKey         = "mods:list"
)

// ModDetailKey is the cache key of a mod's detail payload.
func ModDetailKey(modID string) string {
	return fmt.Sprintf(modDetailKeyPrefix, modID)
}

// ModListKey is the cache key of the mod list.
func ModListKey() string {
	return modListKey
}

// Cache is a JSON cache-aside layer over Redis. A nil client disables it:
// every lookup misses and every write is dropped.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New returns a cache over rdb with the given default TTL.
func New(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

// Enabled reports whether a Redis client is configured.
func (c *Cache) Enabled() bool {
	return c != nil && c.rdb != nil
}

// GetJSON loads key into dest. Returns (true, nil) on a hit and (false, nil) on a miss.
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}
	s, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(s, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON stores v under key with the cache TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	if !c.Enabled() {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, b, c.ttl).Err()
}

// Aside tries Redis first; on a miss (or a Redis error) it calls fetch,
// which must populate dest, and stores dest best-effort.
func (c *Cache) Aside(ctx context.Context, name, key string, dest any, fetch func() error) error {
	found, err := c.GetJSON(ctx, key, dest)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "cache read failed", "key", key, "error", err)
	}
	if found {
		observability.CacheLookups.WithLabelValues(name, "hit").Inc()
		return nil
	}
	observability.CacheLookups.WithLabelValues(name, "miss").Inc()

	if err := fetch(); err != nil {
		return err
	}
	if err := c.SetJSON(ctx, key, dest); err != nil {
		middleware.Logger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}
	return nil
}

// Invalidate deletes keys, logging instead of failing.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if !c.Enabled() || len(keys) == 0 {
		return
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache invalidation failed", "keys", keys, "error", err)
	}
}

// InvalidateMod drops the cached detail of modID and the mod list.
func (c *Cache) InvalidateMod(ctx context.Context, modID string) {
	c.Invalidate(ctx, ModDetailKey(modID), ModListKey())
}
