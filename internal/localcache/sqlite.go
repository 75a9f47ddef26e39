// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package localcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pressly/goose/v3"
	"github.com/wingedpig/casewatch/internal/localcache/migrations"
	_ "modernc.org/sqlite"
)

// SQLiteCache stores entries in a kv table of a local SQLite database.
type SQLiteCache struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and migrates it.
func OpenSQLite(ctx context.Context, path string) (*SQLiteCache, error) {
	if path == "" {
		return nil, errors.New("sqlite cache: path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		db.Close()
		return nil, err
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite cache: %w", err)
	}
	return &SQLiteCache{db: db}, nil
}

// Get implements Cache.
func (c *SQLiteCache) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := c.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("sqlite get %s: %w", key, err)
	}
	return v, true, nil
}

// Set implements Cache.
func (c *SQLiteCache) Set(ctx context.Context, key, value string) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	if err != nil {
		return fmt.Errorf("sqlite set %s: %w", key, err)
	}
	return nil
}

// Remove implements Cache.
func (c *SQLiteCache) Remove(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("sqlite remove %s: %w", key, err)
	}
	return nil
}

// Close implements Cache.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
