// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package remote

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/wingedpig/casewatch/internal/cases"
)

// Hook runs before every MemoryStore operation, outside the store lock.
// A non-nil return aborts the operation with that error. op is one of
// "select", "upsert", "update", "delete", "count", "load_config",
// "save_config"; rows is set for upserts.
type Hook func(ctx context.Context, op string, rows []cases.Case) error

// MemoryStore is an in-process Store. It backs the demo mode and the tests
// of the layers above it.
type MemoryStore struct {
	mu      sync.Mutex
	rows    map[string]cases.Case
	config  cases.GlobalConfig
	offline bool
	legacy  bool
	hook    Hook
	subs    map[int]func()
	nextSub int
	closed  bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows: make(map[string]cases.Case),
		subs: make(map[int]func()),
	}
}

// SetOffline makes every operation fail with ErrUnavailable.
func (m *MemoryStore) SetOffline(offline bool) {
	m.mu.Lock()
	m.offline = offline
	m.mu.Unlock()
}

// SetLegacySchema makes the store behave like a deployment without the
// soft-delete column.
func (m *MemoryStore) SetLegacySchema(legacy bool) {
	m.mu.Lock()
	m.legacy = legacy
	m.mu.Unlock()
}

// SetHook installs h, replacing any previous hook.
func (m *MemoryStore) SetHook(h Hook) {
	m.mu.Lock()
	m.hook = h
	m.mu.Unlock()
}

// Seed stores rows without running hooks or notifying subscribers.
func (m *MemoryStore) Seed(rows ...cases.Case) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		m.rows[r.ID] = r.Clone()
	}
}

// Row returns the stored row for id.
func (m *MemoryStore) Row(id string) (cases.Case, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	return c.Clone(), ok
}

// Len returns the number of stored rows.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// begin runs the hook and checks availability and schema. It returns with
// the lock held on success.
func (m *MemoryStore) begin(ctx context.Context, op string, rows []cases.Case, cols []Column) error {
	m.mu.Lock()
	hook := m.hook
	m.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, op, rows); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return errors.New("memory store closed")
	}
	if m.offline {
		m.mu.Unlock()
		return fmt.Errorf("memory store %s: %w", op, ErrUnavailable)
	}
	for _, c := range cols {
		if !knownColumn(c) || (m.legacy && c == ColSoftDeletedAt) {
			m.mu.Unlock()
			return &SchemaError{Column: string(c)}
		}
	}
	return nil
}

// commit releases the lock and notifies subscribers of a change.
func (m *MemoryStore) commit() {
	subs := make([]func(), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

// Select implements Store.
func (m *MemoryStore) Select(ctx context.Context, q Query) ([]cases.Case, error) {
	if err := m.begin(ctx, "select", nil, q.columns()); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	out := make([]cases.Case, 0, len(m.rows))
	for _, c := range m.rows {
		if match(c, q.Where) {
			out = append(out, project(c, q.Columns))
		}
	}
	sortRows(out)

	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return []cases.Case{}, nil
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// sortRows orders newest submissions first, matching the Postgres query.
func sortRows(rows []cases.Case) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Timeline.Submitted != rows[j].Timeline.Submitted {
			return rows[i].Timeline.Submitted > rows[j].Timeline.Submitted
		}
		return rows[i].ID < rows[j].ID
	})
}

// Upsert implements Store. Columns not listed keep their stored values.
func (m *MemoryStore) Upsert(ctx context.Context, rows []cases.Case, columns []Column, conflict Column) error {
	if conflict != ColID {
		return fmt.Errorf("memory store: unsupported conflict column %q", conflict)
	}
	if err := m.begin(ctx, "upsert", rows, columns); err != nil {
		return err
	}
	for _, r := range rows {
		if r.ID == "" {
			m.mu.Unlock()
			return &RejectedError{Code: "23502", Message: "id is required"}
		}
	}
	for _, r := range rows {
		existing := m.rows[r.ID]
		for _, col := range columns {
			setValue(&existing, col, value(r, col))
		}
		m.rows[r.ID] = existing
	}
	m.commit()
	return nil
}

// Update implements Store.
func (m *MemoryStore) Update(ctx context.Context, where []Predicate, patch Patch) error {
	if len(where) == 0 {
		return errors.New("memory store: update without filter")
	}
	cols := make([]Column, 0, len(patch)+len(where))
	for col := range patch {
		cols = append(cols, col)
	}
	for _, p := range where {
		cols = append(cols, p.Column)
	}
	if err := m.begin(ctx, "update", nil, cols); err != nil {
		return err
	}
	for id, c := range m.rows {
		if !match(c, where) {
			continue
		}
		for col, v := range patch {
			setValue(&c, col, v)
		}
		m.rows[id] = c
	}
	m.commit()
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(ctx context.Context, where []Predicate) error {
	if len(where) == 0 {
		return errors.New("memory store: delete without filter")
	}
	cols := make([]Column, 0, len(where))
	for _, p := range where {
		cols = append(cols, p.Column)
	}
	if err := m.begin(ctx, "delete", nil, cols); err != nil {
		return err
	}
	for id, c := range m.rows {
		if match(c, where) {
			delete(m.rows, id)
		}
	}
	m.commit()
	return nil
}

type memorySubscription struct {
	once sync.Once
	fn   func()
}

func (s *memorySubscription) Unsubscribe() { s.once.Do(s.fn) }

// Subscribe implements Store. Notifications are delivered synchronously
// after each write.
func (m *MemoryStore) Subscribe(ctx context.Context, fn func()) (Subscription, error) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	stop := make(chan struct{})
	sub := &memorySubscription{fn: func() {
		close(stop)
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}}
	go func() {
		select {
		case <-ctx.Done():
			sub.Unsubscribe()
		case <-stop:
		}
	}()
	return sub, nil
}

// Count implements Store.
func (m *MemoryStore) Count(ctx context.Context) (int, error) {
	if err := m.begin(ctx, "count", nil, nil); err != nil {
		return 0, err
	}
	defer m.mu.Unlock()
	return len(m.rows), nil
}

// LoadConfig implements Store.
func (m *MemoryStore) LoadConfig(ctx context.Context) (cases.GlobalConfig, error) {
	if err := m.begin(ctx, "load_config", nil, nil); err != nil {
		return cases.GlobalConfig{}, err
	}
	defer m.mu.Unlock()
	return m.config, nil
}

// SaveConfig implements Store.
func (m *MemoryStore) SaveConfig(ctx context.Context, cfg cases.GlobalConfig) error {
	if err := m.begin(ctx, "save_config", nil, nil); err != nil {
		return err
	}
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.subs = make(map[int]func())
	return nil
}
