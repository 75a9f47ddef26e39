// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package localcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces cache keys in a shared Redis.
const DefaultRedisPrefix = "casewatch:"

// RedisCache stores entries in Redis without expiry. Persistence across
// restarts depends on the server's own durability settings.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// OpenRedis connects to redisURL and checks the connection.
func OpenRedis(ctx context.Context, redisURL, prefix string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisCache(client, prefix), nil
}

// NewRedisCache wraps an existing client.
func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) key(k string) string {
	return c.prefix + k
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.client.Get(ctx, c.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, true, nil
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, key, value string) error {
	if err := c.client.Set(ctx, c.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Remove implements Cache.
func (c *RedisCache) Remove(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("redis remove %s: %w", key, err)
	}
	return nil
}

// Close implements Cache.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
