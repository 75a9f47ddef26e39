// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package localcache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FileCache keeps every entry in one JSON object on disk. The file is
// rewritten atomically (write tmp + rename) on every change.
type FileCache struct {
	mu       sync.Mutex
	filePath string
	data     map[string]string
}

// NewFileCache loads path, creating its directory if needed. A missing file
// is an empty cache; so is a corrupt one, which is logged and replaced on the
// next write.
func NewFileCache(path string) (*FileCache, error) {
	if path == "" {
		return nil, fmt.Errorf("file cache: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	c := &FileCache{filePath: path, data: make(map[string]string)}
	if err := c.load(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *FileCache) load() error {
	data, err := os.ReadFile(c.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read cache file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		slog.Warn("local cache file is corrupt, starting empty", "path", c.filePath, "error", err)
		return nil
	}
	if m != nil {
		c.data = m
	}
	return nil
}

func (c *FileCache) save() error {
	data, err := json.MarshalIndent(c.data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}
	tmpPath := c.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write temp cache file: %w", err)
	}
	if err := os.Rename(tmpPath, c.filePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename cache file: %w", err)
	}
	return nil
}

// Get implements Cache.
func (c *FileCache) Get(ctx context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

// Set implements Cache.
func (c *FileCache) Set(ctx context.Context, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev, had := c.data[key]
	c.data[key] = value
	if err := c.save(); err != nil {
		if had {
			c.data[key] = prev
		} else {
			delete(c.data, key)
		}
		return err
	}
	return nil
}

// Remove implements Cache.
func (c *FileCache) Remove(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev, had := c.data[key]
	if !had {
		return nil
	}
	delete(c.data, key)
	if err := c.save(); err != nil {
		c.data[key] = prev
		return err
	}
	return nil
}

// Close implements Cache.
func (c *FileCache) Close() error { return nil }
