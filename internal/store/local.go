// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/wingedpig/casewatch/internal/cases"
)

// Local cache keys.
const (
	keyList          = "cases:list"
	keyMineByContact = "cases:mine:contact:"
	keyMineByID      = "cases:mine:id:"
	keyConfig        = "cases:config"
	keyAudit         = "cases:audit"
	keyPending       = "cases:pending"

	maxAuditEntries = 500
)

// AuditEntry records one write attempt.
type AuditEntry struct {
	At      time.Time `json:"at"`
	Op      string    `json:"op"`
	ID      string    `json:"id,omitempty"`
	Success bool      `json:"success"`
	Offline bool      `json:"offline,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// pendingOp is a local write that has not reached the remote store.
type pendingOp struct {
	ID string `json:"id"`
	Op string `json:"op"` // "upsert" or "delete"
}

// readJSON decodes key into v. Missing keys leave v untouched; unreadable
// or malformed values are logged and treated as missing.
func (s *Store) readJSON(ctx context.Context, key string, v any) bool {
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("local cache read failed", "key", key, "error", err)
		return false
	}
	if !ok || raw == "" {
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		slog.Warn("local cache entry is malformed, ignoring it", "key", key, "error", err)
		return false
	}
	return true
}

func (s *Store) writeJSON(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("encode local cache entry", "key", key, "error", err)
		return
	}
	if err := s.cache.Set(ctx, key, string(data)); err != nil {
		slog.Warn("local cache write failed", "key", key, "error", err)
	}
}

func (s *Store) remove(ctx context.Context, key string) {
	if err := s.cache.Remove(ctx, key); err != nil {
		slog.Warn("local cache remove failed", "key", key, "error", err)
	}
}

func (s *Store) readList(ctx context.Context) []cases.Case {
	var list []cases.Case
	if !s.readJSON(ctx, keyList, &list) {
		return []cases.Case{}
	}
	return list
}

func (s *Store) writeList(ctx context.Context, list []cases.Case) {
	s.writeJSON(ctx, keyList, list)
}

func (s *Store) readMine(ctx context.Context, key string) (cases.Case, bool) {
	var c cases.Case
	if !s.readJSON(ctx, key, &c) || c.ID == "" {
		return cases.Case{}, false
	}
	return c, true
}

// writeMine indexes a case that has an owner by id and by contact.
func (s *Store) writeMine(ctx context.Context, c cases.Case) {
	if c.OwnerContact == "" {
		return
	}
	s.writeJSON(ctx, keyMineByID+c.ID, c)
	s.writeJSON(ctx, keyMineByContact+cases.NormalizeContact(c.OwnerContact), c)
}

func (s *Store) forgetMine(ctx context.Context, id, contact string) {
	s.remove(ctx, keyMineByID+id)
	if contact != "" {
		s.remove(ctx, keyMineByContact+cases.NormalizeContact(contact))
	}
}

// putLocal writes c into the list and the my-case index. A blank contact
// keeps the contact already known locally for the same id, mirroring the
// remote upsert that leaves the column alone.
func (s *Store) putLocal(ctx context.Context, c cases.Case) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.readList(ctx)
	var prev cases.Case
	found := false
	for i := range list {
		if list[i].ID == c.ID {
			prev = list[i]
			found = true
			if c.OwnerContact == "" {
				c.OwnerContact = prev.OwnerContact
			}
			list[i] = c
			break
		}
	}
	if !found {
		if mine, ok := s.readMine(ctx, keyMineByID+c.ID); ok && c.OwnerContact == "" {
			c.OwnerContact = mine.OwnerContact
		}
		list = append(list, c)
	}
	s.writeList(ctx, list)

	if prev.OwnerContact != "" && cases.NormalizeContact(prev.OwnerContact) != cases.NormalizeContact(c.OwnerContact) {
		s.remove(ctx, keyMineByContact+cases.NormalizeContact(prev.OwnerContact))
	}
	s.writeMine(ctx, c)
}

// patchLocal applies fn to the local copy of id, in the list and the
// my-case index. It reports whether the list held the case.
func (s *Store) patchLocal(ctx context.Context, id string, fn func(*cases.Case)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.readList(ctx)
	found := false
	for i := range list {
		if list[i].ID == id {
			fn(&list[i])
			found = true
			break
		}
	}
	if found {
		s.writeList(ctx, list)
	}
	if mine, ok := s.readMine(ctx, keyMineByID+id); ok {
		fn(&mine)
		s.writeMine(ctx, mine)
	}
	return found
}

// dropLocal removes id from the list and the my-case index.
func (s *Store) dropLocal(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.readList(ctx)
	out := list[:0]
	contact := ""
	for _, c := range list {
		if c.ID == id {
			contact = c.OwnerContact
			continue
		}
		out = append(out, c)
	}
	s.writeList(ctx, out)
	if mine, ok := s.readMine(ctx, keyMineByID+id); ok && contact == "" {
		contact = mine.OwnerContact
	}
	s.forgetMine(ctx, id, contact)
}

func (s *Store) readPending(ctx context.Context) []pendingOp {
	var ops []pendingOp
	s.readJSON(ctx, keyPending, &ops)
	return ops
}

// markPending queues id for replay, replacing any earlier op for it.
func (s *Store) markPending(ctx context.Context, id, op string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ops := s.readPending(ctx)
	out := ops[:0]
	for _, p := range ops {
		if p.ID != id {
			out = append(out, p)
		}
	}
	s.writeJSON(ctx, keyPending, append(out, pendingOp{ID: id, Op: op}))
}

func (s *Store) clearPending(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ops := s.readPending(ctx)
	out := ops[:0]
	for _, p := range ops {
		if p.ID != id {
			out = append(out, p)
		}
	}
	if len(out) == len(ops) {
		return
	}
	if len(out) == 0 {
		s.remove(ctx, keyPending)
		return
	}
	s.writeJSON(ctx, keyPending, out)
}

func (s *Store) audit(ctx context.Context, op, id string, res Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []AuditEntry
	s.readJSON(ctx, keyAudit, &entries)
	entries = append(entries, AuditEntry{
		At:      s.now(),
		Op:      op,
		ID:      id,
		Success: res.Success,
		Offline: res.IsOffline,
		Error:   res.Error(),
	})
	if len(entries) > maxAuditEntries {
		entries = entries[len(entries)-maxAuditEntries:]
	}
	s.writeJSON(ctx, keyAudit, entries)
}

// AuditLog returns the recorded write attempts, oldest first.
func (s *Store) AuditLog(ctx context.Context) []AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var entries []AuditEntry
	if !s.readJSON(ctx, keyAudit, &entries) {
		return []AuditEntry{}
	}
	return entries
}
