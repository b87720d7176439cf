// Package cache provides the read-model cache for paginated message history.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// PageCache stores serialized message pages. Entries are only ever written
// for completed (non-last) pages, which are immutable, so no explicit
// invalidation is needed for them; mutable values (like the today-system
// window) are stored under their own keys and deleted on write.
type PageCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
	Delete(ctx context.Context, key string)
}

const defaultTTL = time.Hour

type RedisPageCache struct {
	log    *log.Logger
	client *redis.Client
	ttl    time.Duration
}

func NewRedisPageCache(logger *log.Logger, addr string) (*RedisPageCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisPageCache{log: logger, client: client, ttl: defaultTTL}, nil
}

func (c *RedisPageCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Printf("cache: get %q: %v", key, err)
		}
		return nil, false
	}
	return val, true
}

func (c *RedisPageCache) Set(ctx context.Context, key string, value []byte) {
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		c.log.Printf("cache: set %q: %v", key, err)
	}
}

func (c *RedisPageCache) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.log.Printf("cache: delete %q: %v", key, err)
	}
}

func (c *RedisPageCache) Close() error {
	return c.client.Close()
}
