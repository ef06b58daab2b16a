package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/petrijr/echo/pkg/api"
)

// RedisCache is an api.Cache backed by Redis. Each entry is a plain string
// key:
//
//	<prefix>result:<key>  => JSON-encoded value
type RedisCache struct {
	client *redis.Client
	prefix string
}

var _ api.Cache = (*RedisCache)(nil)

// NewRedisCache creates a RedisCache. prefix is optional (default "echo:").
func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	if prefix == "" {
		prefix = "echo:"
	}
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) keyResult(key string) string {
	return c.prefix + "result:" + key
}

func (c *RedisCache) Get(ctx context.Context, key string) (any, bool, error) {
	if err := checkKey(key); err != nil {
		return nil, false, err
	}
	data, err := c.client.Get(ctx, c.keyResult(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %q: %w", key, err)
	}
	v, err := DecodeValue(data)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value any) error {
	if err := checkKey(key); err != nil {
		return err
	}
	data, err := EncodeValue(value)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, c.keyResult(key), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := c.client.Del(ctx, c.keyResult(key)).Err(); err != nil {
		return fmt.Errorf("redis del %q: %w", key, err)
	}
	return nil
}

// Keys lists the cache keys currently stored under the prefix.
func (c *RedisCache) Keys(ctx context.Context) ([]string, error) {
	pattern := c.keyResult("*")
	strip := len(c.keyResult(""))

	var keys []string
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val()[strip:])
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	return keys, nil
}
