package redisad

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"property_insights/internal/adapters/observability"
)

// Cache stores JSON values in redis. It reports found/not-found only;
// whether a found summary is still current is decided by the caller.
type Cache struct{ c *redis.Client }

func New(addr, pass string, db int) *Cache {
	return &Cache{c: redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})}
}

// Ping reports whether the server is reachable.
func (r *Cache) Ping(ctx context.Context) error { return r.c.Ping(ctx).Err() }

func (r *Cache) Close() error { return r.c.Close() }

func (r *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	v, err := r.c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		observability.ObserveCache("redis", "error")
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(v, dst); err != nil {
		return false, fmt.Errorf("redis get %s: decode: %w", key, err)
	}
	return true, nil
}

func (r *Cache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("redis set %s: encode: %w", key, err)
	}
	if err := r.c.Set(ctx, key, b, time.Duration(ttlSec)*time.Second).Err(); err != nil {
		observability.ObserveCache("redis", "error")
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	observability.ObserveCache("redis", "set")
	return nil
}

func (r *Cache) Del(ctx context.Context, key string) error {
	if err := r.c.Del(ctx, key).Err(); err != nil {
		observability.ObserveCache("redis", "error")
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	observability.ObserveCache("redis", "del")
	return nil
}
