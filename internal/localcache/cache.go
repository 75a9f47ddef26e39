// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package localcache provides the durable key/value cache that lets the
// daemon serve and accept writes while the remote store is unreachable.
// Values are JSON documents stored as strings.
package localcache

import (
	"context"
	"fmt"
	"sync"
)

// Cache is a string key/value store that survives restarts.
type Cache interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend  string // file, sqlite, redis or memory
	Path     string // file and sqlite
	RedisURL string
	Prefix   string // redis key prefix
}

// Open creates the cache named by opts.Backend.
func Open(ctx context.Context, opts Options) (Cache, error) {
	var (
		c   Cache
		err error
	)
	switch opts.Backend {
	case "", "file":
		c, err = NewFileCache(opts.Path)
	case "sqlite":
		c, err = OpenSQLite(ctx, opts.Path)
	case "redis":
		c, err = OpenRedis(ctx, opts.RedisURL, opts.Prefix)
	case "memory":
		c = NewMemoryCache()
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// MemoryCache is a volatile Cache for tests.
type MemoryCache struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{data: make(map[string]string)}
}

func (m *MemoryCache) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryCache) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryCache) Remove(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryCache) Close() error { return nil }
