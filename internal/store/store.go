// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package store reconciles the remote case collection with the local
// durable cache.
//
// Reads go to the remote store first and fall back to the cache; every
// write is committed locally whatever the remote outcome. Public reads never
// request owner contacts; contacts already known locally are stitched back
// in by id. Column sets are retried in their legacy form, per call, when
// the remote deployment lacks the soft-delete column.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/wingedpig/casewatch/internal/cases"
	"github.com/wingedpig/casewatch/internal/localcache"
	"github.com/wingedpig/casewatch/internal/remote"
)

// PurgePhrase must be typed back to confirm PurgeAll.
const PurgePhrase = "DELETE ALL CASES"

// ErrPurgeNotConfirmed is returned when PurgeAll's confirmation is missing
// or stale.
var ErrPurgeNotConfirmed = errors.New("purge not confirmed")

// Result is the outcome of a write. The local leg of a write always
// completes; Result describes the remote leg.
type Result struct {
	Success   bool
	Err       error
	IsOffline bool
}

// Error returns the error message, or "" on success.
func (r Result) Error() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// resultOf classifies err. A cancelled or expired context says nothing about
// the payload, so it counts as offline and never as a rejection.
func resultOf(err error) Result {
	if err == nil {
		return Result{Success: true}
	}
	offline := remote.IsUnavailable(err) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
	return Result{Err: err, IsOffline: offline}
}

// PurgeConfirmation is the second factor for PurgeAll: the caller must type
// PurgePhrase and state how many records it expects to destroy.
type PurgeConfirmation struct {
	Phrase        string `json:"phrase"`
	ExpectedCount int    `json:"expected_count"`
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store is the record store.
type Store struct {
	remote remote.Store
	cache  localcache.Cache
	now    func() time.Time

	// mu serialises read-modify-write cycles on local cache keys.
	mu sync.Mutex
}

// New creates a Store.
func New(r remote.Store, c localcache.Cache, opts ...Option) *Store {
	s := &Store{remote: r, cache: c, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// selectCases runs q, retrying with legacy columns on a schema mismatch.
func (s *Store) selectCases(ctx context.Context, q remote.Query, legacy []remote.Column) ([]cases.Case, error) {
	rows, err := s.remote.Select(ctx, q)
	if !errors.Is(err, remote.ErrSchemaMismatch) {
		return rows, err
	}
	slog.Debug("remote schema lacks soft delete, retrying with legacy columns", "error", err)
	q.Columns = legacy
	where := make([]remote.Predicate, 0, len(q.Where))
	for _, p := range q.Where {
		if p.Column != remote.ColSoftDeletedAt {
			where = append(where, p)
		}
	}
	q.Where = where
	return s.remote.Select(ctx, q)
}

func (s *Store) upsertRemote(ctx context.Context, c cases.Case) error {
	cols, legacy := remote.FullColumns, remote.LegacyColumns
	if c.OwnerContact == "" {
		cols, legacy = remote.PublicColumns, remote.LegacyPublicColumns
	}
	err := s.remote.Upsert(ctx, []cases.Case{c}, cols, remote.ColID)
	if errors.Is(err, remote.ErrSchemaMismatch) {
		err = s.remote.Upsert(ctx, []cases.Case{c}, legacy, remote.ColID)
	}
	return err
}

// mergeContacts fills blank contacts from the my-case index, then from the
// general cache. Only values recorded under the same id are used, and a
// contact supplied by the remote store is never replaced.
func (s *Store) mergeContacts(ctx context.Context, rows []cases.Case, local []cases.Case) {
	known := make(map[string]string, len(local))
	for _, c := range local {
		if c.OwnerContact != "" {
			known[c.ID] = c.OwnerContact
		}
	}
	for i := range rows {
		if rows[i].OwnerContact != "" {
			continue
		}
		if mine, ok := s.readMine(ctx, keyMineByID+rows[i].ID); ok && mine.OwnerContact != "" {
			rows[i].OwnerContact = mine.OwnerContact
			continue
		}
		if contact, ok := known[rows[i].ID]; ok {
			rows[i].OwnerContact = contact
		}
	}
}

func withoutDeleted(list []cases.Case) []cases.Case {
	out := make([]cases.Case, 0, len(list))
	for _, c := range list {
		if !c.IsDeleted() {
			out = append(out, c)
		}
	}
	return out
}

// FetchAll returns the collection, excluding the bin unless includeDeleted
// is set. A successful remote read is persisted to the local cache.
func (s *Store) FetchAll(ctx context.Context, includeDeleted bool) []cases.Case {
	list, _ := s.FetchAllSource(ctx, includeDeleted)
	return list
}

// FetchAllSource is FetchAll that also reports whether the result came from
// the remote store.
func (s *Store) FetchAllSource(ctx context.Context, includeDeleted bool) ([]cases.Case, bool) {
	q := remote.Query{Columns: remote.PublicColumns}
	if !includeDeleted {
		q.Where = []remote.Predicate{remote.IsNull(remote.ColSoftDeletedAt)}
	}
	rows, err := s.selectCases(ctx, q, remote.LegacyPublicColumns)

	s.mu.Lock()
	defer s.mu.Unlock()
	local := s.readList(ctx)

	if err != nil {
		slog.Warn("remote read failed, serving local cache", "error", err)
		if includeDeleted {
			return local, false
		}
		return withoutDeleted(local), false
	}

	s.mergeContacts(ctx, rows, local)
	rows = s.overlayPending(ctx, rows, local)

	persisted := append([]cases.Case{}, rows...)
	if !includeDeleted {
		seen := make(map[string]bool, len(rows))
		for _, c := range rows {
			seen[c.ID] = true
		}
		for _, c := range local {
			if c.IsDeleted() && !seen[c.ID] {
				persisted = append(persisted, c)
			}
		}
	}
	s.writeList(ctx, persisted)

	if includeDeleted {
		return rows, true
	}
	return withoutDeleted(rows), true
}

// overlayPending lets local writes that have not reached the remote store
// win over what the remote store returned.
func (s *Store) overlayPending(ctx context.Context, rows, local []cases.Case) []cases.Case {
	ops := s.readPending(ctx)
	if len(ops) == 0 {
		return rows
	}
	byID := make(map[string]cases.Case, len(local))
	for _, c := range local {
		byID[c.ID] = c
	}
	pending := make(map[string]string, len(ops))
	for _, p := range ops {
		pending[p.ID] = p.Op
	}

	out := make([]cases.Case, 0, len(rows)+len(ops))
	seen := make(map[string]bool, len(rows))
	for _, c := range rows {
		seen[c.ID] = true
		switch pending[c.ID] {
		case "delete":
			continue
		case "upsert":
			if lc, ok := byID[c.ID]; ok {
				c = lc
			}
		}
		out = append(out, c)
	}
	for _, p := range ops {
		if p.Op != "upsert" || seen[p.ID] {
			continue
		}
		if lc, ok := byID[p.ID]; ok {
			out = append(out, lc)
		}
	}
	return out
}

// FetchByContact finds the case owned by contact: the my-case index first,
// then the remote store by exact and case-insensitive match, then the whole
// collection. A remote hit is written to the my-case index.
func (s *Store) FetchByContact(ctx context.Context, contact string) (cases.Case, bool) {
	contact = cases.NormalizeContact(contact)
	if contact == "" {
		return cases.Case{}, false
	}
	if c, ok := s.readMine(ctx, keyMineByContact+contact); ok && !c.IsDeleted() {
		return c, true
	}

	live := []remote.Predicate{remote.IsNull(remote.ColSoftDeletedAt)}
	for _, p := range []remote.Predicate{remote.Eq(remote.ColOwnerContact, contact), remote.EqFold(remote.ColOwnerContact, contact)} {
		rows, err := s.selectCases(ctx, remote.Query{
			Columns: remote.FullColumns,
			Where:   append([]remote.Predicate{p}, live...),
			Limit:   1,
		}, remote.LegacyColumns)
		if err != nil {
			slog.Warn("remote contact lookup failed", "error", err)
			break
		}
		if len(rows) > 0 {
			s.putLocal(ctx, rows[0])
			return rows[0], true
		}
	}

	for _, c := range s.FetchAll(ctx, false) {
		if cases.NormalizeContact(c.OwnerContact) == contact {
			return c, true
		}
	}
	return cases.Case{}, false
}

// FetchByDisplayName finds a live case by display name, ignoring case. The
// result never carries an owner contact.
func (s *Store) FetchByDisplayName(ctx context.Context, name string) (cases.Case, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return cases.Case{}, false
	}
	rows, err := s.selectCases(ctx, remote.Query{
		Columns: remote.PublicColumns,
		Where:   []remote.Predicate{remote.EqFold(remote.ColDisplayName, name), remote.IsNull(remote.ColSoftDeletedAt)},
		Limit:   1,
	}, remote.LegacyPublicColumns)
	if err == nil {
		if len(rows) == 0 {
			return cases.Case{}, false
		}
		return rows[0].Public(), true
	}

	slog.Warn("remote name lookup failed, scanning local cache", "error", err)
	for _, c := range withoutDeleted(s.readList(ctx)) {
		if strings.EqualFold(c.DisplayName, name) {
			return c.Public(), true
		}
	}
	return cases.Case{}, false
}

// Upsert writes c remotely and locally. The contact is normalised and
// LastMutatedAt stamped before either write.
//
// Writes run to completion even if ctx is cancelled.
func (s *Store) Upsert(ctx context.Context, c cases.Case) Result {
	ctx = context.WithoutCancel(ctx)
	c = c.Clone()
	c.OwnerContact = cases.NormalizeContact(c.OwnerContact)
	c.LastMutatedAt = s.now()

	res := resultOf(s.upsertRemote(ctx, c))
	s.putLocal(ctx, c)
	if res.IsOffline {
		s.markPending(ctx, c.ID, "upsert")
	} else if res.Success {
		s.clearPending(ctx, c.ID)
	}
	s.audit(ctx, "upsert", c.ID, res)
	return res
}

func (s *Store) setDeleted(ctx context.Context, op, id string, at *time.Time) Result {
	ctx = context.WithoutCancel(ctx)
	if id == "" {
		return Result{Err: errors.New("id is required")}
	}
	now := s.now()
	var patch remote.Patch
	if at == nil {
		patch = remote.Patch{remote.ColSoftDeletedAt: nil, remote.ColLastMutatedAt: now}
	} else {
		patch = remote.Patch{remote.ColSoftDeletedAt: *at, remote.ColLastMutatedAt: now}
	}
	res := resultOf(s.remote.Update(ctx, []remote.Predicate{remote.Eq(remote.ColID, id)}, patch))

	s.patchLocal(ctx, id, func(c *cases.Case) {
		if at == nil {
			c.SoftDeletedAt = nil
		} else {
			t := *at
			c.SoftDeletedAt = &t
		}
		c.LastMutatedAt = now
	})
	if res.IsOffline {
		s.markPending(ctx, id, "upsert")
	}
	s.audit(ctx, op, id, res)
	return res
}

// SoftDelete moves a case to the bin.
func (s *Store) SoftDelete(ctx context.Context, id string) Result {
	at := s.now()
	return s.setDeleted(ctx, "soft_delete", id, &at)
}

// Restore takes a case out of the bin. Only the id is needed.
func (s *Store) Restore(ctx context.Context, id string) Result {
	return s.setDeleted(ctx, "restore", id, nil)
}

// HardDelete removes a case permanently, remotely and locally.
func (s *Store) HardDelete(ctx context.Context, id string) Result {
	ctx = context.WithoutCancel(ctx)
	if id == "" {
		return Result{Err: errors.New("id is required")}
	}
	res := resultOf(s.remote.Delete(ctx, []remote.Predicate{remote.Eq(remote.ColID, id)}))
	s.dropLocal(ctx, id)
	if res.IsOffline {
		s.markPending(ctx, id, "delete")
	} else if res.Success {
		s.clearPending(ctx, id)
	}
	s.audit(ctx, "hard_delete", id, res)
	return res
}

// PurgeAll deletes every case. It needs the remote store: the count in the
// confirmation must match the remote count at the time of the call. On
// success the local cache and audit log are cleared; the config shadow is
// kept.
func (s *Store) PurgeAll(ctx context.Context, confirm PurgeConfirmation) Result {
	if confirm.Phrase != PurgePhrase {
		return Result{Err: fmt.Errorf("%w: confirmation phrase does not match", ErrPurgeNotConfirmed)}
	}
	n, err := s.remote.Count(ctx)
	if err != nil {
		return resultOf(err)
	}
	if n != confirm.ExpectedCount {
		return Result{Err: fmt.Errorf("%w: expected %d records, remote store has %d", ErrPurgeNotConfirmed, confirm.ExpectedCount, n)}
	}
	if err := s.remote.Delete(ctx, []remote.Predicate{remote.NotNull(remote.ColID)}); err != nil {
		return resultOf(err)
	}

	s.mu.Lock()
	for _, c := range s.readList(ctx) {
		s.forgetMine(ctx, c.ID, c.OwnerContact)
	}
	s.remove(ctx, keyList)
	s.remove(ctx, keyPending)
	s.remove(ctx, keyAudit)
	s.mu.Unlock()

	slog.Warn("purged every case", "count", n)
	return Result{Success: true}
}

// GetConfig reads the global config, falling back to the local shadow copy.
func (s *Store) GetConfig(ctx context.Context) cases.GlobalConfig {
	cfg, err := s.remote.LoadConfig(ctx)
	if err == nil {
		s.writeJSON(ctx, keyConfig, cfg)
		return cfg
	}
	slog.Warn("remote config read failed, using local copy", "error", err)
	var shadow cases.GlobalConfig
	s.readJSON(ctx, keyConfig, &shadow)
	return shadow
}

// SetConfig writes the global config remotely and to the local shadow copy.
func (s *Store) SetConfig(ctx context.Context, cfg cases.GlobalConfig) Result {
	ctx = context.WithoutCancel(ctx)
	res := resultOf(s.remote.SaveConfig(ctx, cfg))
	s.writeJSON(ctx, keyConfig, cfg)
	s.audit(ctx, "set_config", "", res)
	return res
}

// SyncPending replays local writes made while the remote store was
// unreachable. It returns how many were delivered. Writes the remote store
// rejects are dropped from the queue and logged.
func (s *Store) SyncPending(ctx context.Context) (int, error) {
	s.mu.Lock()
	ops := s.readPending(ctx)
	local := s.readList(ctx)
	s.mu.Unlock()
	if len(ops) == 0 {
		return 0, nil
	}

	byID := make(map[string]cases.Case, len(local))
	for _, c := range local {
		byID[c.ID] = c
	}

	delivered := 0
	for _, p := range ops {
		var err error
		switch p.Op {
		case "delete":
			err = s.remote.Delete(ctx, []remote.Predicate{remote.Eq(remote.ColID, p.ID)})
		default:
			c, ok := byID[p.ID]
			if !ok {
				s.clearPending(ctx, p.ID)
				continue
			}
			err = s.upsertRemote(ctx, c)
		}
		if remote.IsUnavailable(err) {
			return delivered, err
		}
		res := resultOf(err)
		if err != nil {
			slog.Warn("remote store rejected queued write", "id", p.ID, "op", p.Op, "error", err)
		} else {
			delivered++
		}
		s.clearPending(ctx, p.ID)
		s.audit(ctx, "replay_"+p.Op, p.ID, res)
	}
	return delivered, nil
}

// Pending returns the ids of local writes waiting for the remote store.
func (s *Store) Pending(ctx context.Context) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ops := s.readPending(ctx)
	ids := make([]string, len(ops))
	for i, p := range ops {
		ids[i] = p.ID
	}
	return ids
}

// CacheLocal writes c to the local cache only. Rollbacks use it to put the
// last confirmed version back; a queued replay for the id, if any, now
// carries that version.
func (s *Store) CacheLocal(ctx context.Context, c cases.Case) {
	s.putLocal(context.WithoutCancel(ctx), c)
}

// DropLocal removes id from the local cache only, undoing a rejected create.
func (s *Store) DropLocal(ctx context.Context, id string) {
	ctx = context.WithoutCancel(ctx)
	s.dropLocal(ctx, id)
	s.clearPending(ctx, id)
}

// VerifyConnection probes the remote store and returns its record count.
func (s *Store) VerifyConnection(ctx context.Context) (int, error) {
	return s.remote.Count(ctx)
}

// Subscribe registers fn for remote change notifications.
func (s *Store) Subscribe(ctx context.Context, fn func()) (remote.Subscription, error) {
	return s.remote.Subscribe(ctx, fn)
}
