// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wingedpig/casewatch/internal/cases"
	"github.com/wingedpig/casewatch/internal/localcache"
	"github.com/wingedpig/casewatch/internal/remote"
)

var clock = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*Store, *remote.MemoryStore, *localcache.MemoryCache) {
	t.Helper()
	r := remote.NewMemoryStore()
	c := localcache.NewMemoryCache()
	return New(r, c, WithClock(func() time.Time { return clock })), r, c
}

func mkCase(id, contact, name string) cases.Case {
	return cases.Case{
		ID:           id,
		OwnerContact: contact,
		DisplayName:  name,
		Category:     cases.CategoryResidence,
		Jurisdiction: "Portugal",
		Status:       cases.StatusSubmitted,
		Timeline:     cases.Timeline{Submitted: "2025-02-01"},
	}
}

func ids(list []cases.Case) []string {
	out := make([]string, len(list))
	for i, c := range list {
		out[i] = c.ID
	}
	return out
}

func TestUpsert_Offline(t *testing.T) {
	ctx := context.Background()
	s, r, _ := newTestStore(t)
	r.SetOffline(true)

	res := s.Upsert(ctx, mkCase("1", "a@x.io", "Ana"))
	assert.False(t, res.Success)
	assert.True(t, res.IsOffline)
	assert.NotEmpty(t, res.Error())

	list := s.FetchAll(ctx, false)
	require.Len(t, list, 1)
	assert.Equal(t, "Ana", list[0].DisplayName)
	assert.Equal(t, []string{"1"}, s.Pending(ctx))
}

func TestUpsert_OfflineThenReplay(t *testing.T) {
	ctx := context.Background()
	s, r, _ := newTestStore(t)
	r.SetOffline(true)
	s.Upsert(ctx, mkCase("1", "a@x.io", "Ana"))

	r.SetOffline(false)
	list := s.FetchAll(ctx, false)
	require.Len(t, list, 1, "pending local write wins before replay")

	n, err := s.SyncPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, s.Pending(ctx))

	row, ok := r.Row("1")
	require.True(t, ok)
	assert.Equal(t, "a@x.io", row.OwnerContact)
}

func TestUpsert_NormalizesContact(t *testing.T) {
	ctx := context.Background()
	s, r, _ := newTestStore(t)

	res := s.Upsert(ctx, mkCase("1", "  Ana@X.io ", "Ana"))
	require.True(t, res.Success)

	row, _ := r.Row("1")
	assert.Equal(t, "ana@x.io", row.OwnerContact)
	assert.Equal(t, clock, row.LastMutatedAt)
}

func TestUpsert_Rejected(t *testing.T) {
	ctx := context.Background()
	s, r, _ := newTestStore(t)
	r.SetHook(func(ctx context.Context, op string, rows []cases.Case) error {
		if op == "upsert" {
			return &remote.RejectedError{Code: "23514", Message: "check violation"}
		}
		return nil
	})

	res := s.Upsert(ctx, mkCase("1", "", "Ana"))
	assert.False(t, res.Success)
	assert.False(t, res.IsOffline)
	assert.Empty(t, s.Pending(ctx))

	r.SetHook(nil)
	r.SetOffline(true)
	assert.Len(t, s.FetchAll(ctx, false), 1, "local leg still committed")
}

func TestUpsert_CancelledCallerStillWrites(t *testing.T) {
	s, r, _ := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := s.Upsert(ctx, mkCase("1", "a@x.io", "Ana"))
	require.True(t, res.Success, res.Error())
	_, ok := r.Row("1")
	assert.True(t, ok)

	res = s.SoftDelete(ctx, "1")
	require.True(t, res.Success, res.Error())
	row, _ := r.Row("1")
	assert.NotNil(t, row.SoftDeletedAt)
}

func TestUpsert_ContextErrorIsOffline(t *testing.T) {
	ctx := context.Background()
	s, r, _ := newTestStore(t)
	r.SetHook(func(ctx context.Context, op string, rows []cases.Case) error {
		return context.DeadlineExceeded
	})

	res := s.Upsert(ctx, mkCase("1", "", "Ana"))
	assert.False(t, res.Success)
	assert.True(t, res.IsOffline)
	assert.Equal(t, []string{"1"}, s.Pending(ctx), "queued for replay")
}

func TestUpsertThenFetchByContact_ColdCache(t *testing.T) {
	ctx := context.Background()
	s, r, _ := newTestStore(t)

	written := mkCase("1", "ana@x.io", "Ana")
	require.True(t, s.Upsert(ctx, written).Success)

	got, ok := s.FetchByContact(ctx, "ana@x.io")
	require.True(t, ok)
	written.LastMutatedAt = clock
	assert.Equal(t, written, got)

	cold := New(r, localcache.NewMemoryCache(), WithClock(func() time.Time { return clock }))
	got, ok = cold.FetchByContact(ctx, "ANA@x.io")
	require.True(t, ok)
	assert.Equal(t, written, got)

	r.SetOffline(true)
	got, ok = cold.FetchByContact(ctx, "ana@x.io")
	require.True(t, ok, "remote hit rehydrated the my-case index")
	assert.Equal(t, written, got)
}

func TestFetchByContact_CaseInsensitiveFallback(t *testing.T) {
	ctx := context.Background()
	s, r, _ := newTestStore(t)
	legacy := mkCase("1", "Mixed@Case.io", "Old")
	r.Seed(legacy)

	got, ok := s.FetchByContact(ctx, "mixed@case.io")
	require.True(t, ok)
	assert.Equal(t, "1", got.ID)

	_, ok = s.FetchByContact(ctx, "nobody@x.io")
	assert.False(t, ok)
	_, ok = s.FetchByContact(ctx, "  ")
	assert.False(t, ok)
}

func TestFetchAll_PrivacyMerge(t *testing.T) {
	ctx := context.Background()
	s, r, _ := newTestStore(t)

	require.True(t, s.Upsert(ctx, mkCase("mine", "me@x.io", "Me")).Success)
	r.Seed(mkCase("theirs", "them@x.io", "Them"))

	list := s.FetchAll(ctx, false)
	require.Len(t, list, 2)
	for _, c := range list {
		switch c.ID {
		case "mine":
			assert.Equal(t, "me@x.io", c.OwnerContact, "own contact stitched back")
		case "theirs":
			assert.Empty(t, c.OwnerContact, "unknown contact never appears")
		}
	}
}

func TestFetchAll_MergeOnlySameID(t *testing.T) {
	ctx := context.Background()
	s, r, c := newTestStore(t)

	require.NoError(t, c.Set(ctx, keyList, `[{"id":"old","owner_contact":"me@x.io","display_name":"Me"}]`))
	r.Seed(mkCase("new", "", "Me"))

	list := s.FetchAll(ctx, false)
	require.Len(t, list, 1)
	assert.Equal(t, "new", list[0].ID)
	assert.Empty(t, list[0].OwnerContact)
}

func TestFetchAll_SchemaFallback(t *testing.T) {
	ctx := context.Background()
	s, r, _ := newTestStore(t)
	r.SetLegacySchema(true)

	res := s.Upsert(ctx, mkCase("1", "a@x.io", "Ana"))
	require.True(t, res.Success, res.Error())

	list := s.FetchAll(ctx, false)
	require.Len(t, list, 1)
	assert.Equal(t, "a@x.io", list[0].OwnerContact)

	r.SetLegacySchema(false)
	assert.Len(t, s.FetchAll(ctx, false), 1, "fallback is decided per call")
}

func TestFetchAll_MalformedCache(t *testing.T) {
	ctx := context.Background()
	s, r, c := newTestStore(t)
	r.SetOffline(true)
	require.NoError(t, c.Set(ctx, keyList, "{broken"))

	assert.Empty(t, s.FetchAll(ctx, true))

	res := s.Upsert(ctx, mkCase("1", "", "Ana"))
	assert.True(t, res.IsOffline)
	assert.Len(t, s.FetchAll(ctx, false), 1)
}

func TestSoftDeleteRestore(t *testing.T) {
	ctx := context.Background()
	s, r, _ := newTestStore(t)
	require.True(t, s.Upsert(ctx, mkCase("1", "", "Ana")).Success)
	require.True(t, s.Upsert(ctx, mkCase("2", "", "Bea")).Success)

	require.True(t, s.SoftDelete(ctx, "1").Success)
	assert.Equal(t, []string{"2"}, ids(s.FetchAll(ctx, false)))
	assert.ElementsMatch(t, []string{"1", "2"}, ids(s.FetchAll(ctx, true)))

	r.SetOffline(true)
	assert.Equal(t, []string{"2"}, ids(s.FetchAll(ctx, false)))
	assert.ElementsMatch(t, []string{"1", "2"}, ids(s.FetchAll(ctx, true)), "bin survives a default read")

	r.SetOffline(false)
	require.True(t, s.Restore(ctx, "1").Success)
	assert.ElementsMatch(t, []string{"1", "2"}, ids(s.FetchAll(ctx, false)))
	row, _ := r.Row("1")
	assert.Nil(t, row.SoftDeletedAt)
}

func TestHardDelete(t *testing.T) {
	ctx := context.Background()
	s, r, _ := newTestStore(t)
	require.True(t, s.Upsert(ctx, mkCase("1", "a@x.io", "Ana")).Success)

	require.True(t, s.HardDelete(ctx, "1").Success)
	assert.Equal(t, 0, r.Len())

	r.SetOffline(true)
	assert.Empty(t, s.FetchAll(ctx, true))
	_, ok := s.FetchByContact(ctx, "a@x.io")
	assert.False(t, ok)
}

func TestFetchByDisplayName(t *testing.T) {
	ctx := context.Background()
	s, r, _ := newTestStore(t)
	require.True(t, s.Upsert(ctx, mkCase("1", "a@x.io", "Ana Maria")).Success)

	got, ok := s.FetchByDisplayName(ctx, "ana MARIA")
	require.True(t, ok)
	assert.Equal(t, "1", got.ID)
	assert.Empty(t, got.OwnerContact)

	r.SetOffline(true)
	got, ok = s.FetchByDisplayName(ctx, "Ana Maria")
	require.True(t, ok)
	assert.Empty(t, got.OwnerContact)
}

func TestPurgeAll(t *testing.T) {
	ctx := context.Background()
	s, r, c := newTestStore(t)
	require.True(t, s.Upsert(ctx, mkCase("1", "a@x.io", "Ana")).Success)
	require.True(t, s.Upsert(ctx, mkCase("2", "", "Bea")).Success)
	require.True(t, s.SetConfig(ctx, cases.GlobalConfig{MaintenanceMode: true}).Success)

	res := s.PurgeAll(ctx, PurgeConfirmation{Phrase: "yes", ExpectedCount: 2})
	assert.ErrorIs(t, res.Err, ErrPurgeNotConfirmed)

	res = s.PurgeAll(ctx, PurgeConfirmation{Phrase: PurgePhrase, ExpectedCount: 5})
	assert.ErrorIs(t, res.Err, ErrPurgeNotConfirmed)
	assert.Equal(t, 2, r.Len())

	res = s.PurgeAll(ctx, PurgeConfirmation{Phrase: PurgePhrase, ExpectedCount: 2})
	require.True(t, res.Success, res.Error())
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, s.AuditLog(ctx))

	_, ok, _ := c.Get(ctx, keyMineByContact+"a@x.io")
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, keyConfig)
	assert.True(t, ok, "config shadow is kept")
}

func TestConfigShadow(t *testing.T) {
	ctx := context.Background()
	s, r, _ := newTestStore(t)

	require.True(t, s.SetConfig(ctx, cases.GlobalConfig{MaintenanceMode: true}).Success)
	r.SetOffline(true)
	assert.True(t, s.GetConfig(ctx).MaintenanceMode)

	res := s.SetConfig(ctx, cases.GlobalConfig{MaintenanceMode: false})
	assert.True(t, res.IsOffline)
	assert.False(t, s.GetConfig(ctx).MaintenanceMode)
}

func TestAuditLog(t *testing.T) {
	ctx := context.Background()
	s, r, _ := newTestStore(t)

	s.Upsert(ctx, mkCase("1", "", "Ana"))
	r.SetOffline(true)
	s.SoftDelete(ctx, "1")

	log := s.AuditLog(ctx)
	require.Len(t, log, 2)
	assert.Equal(t, "upsert", log[0].Op)
	assert.True(t, log[0].Success)
	assert.Equal(t, "soft_delete", log[1].Op)
	assert.True(t, log[1].Offline)
}

func TestAuditLog_Bounded(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)
	for i := 0; i < maxAuditEntries+20; i++ {
		s.SetConfig(ctx, cases.GlobalConfig{})
	}
	assert.Len(t, s.AuditLog(ctx), maxAuditEntries)
}

func TestCacheLocalAndDropLocal(t *testing.T) {
	ctx := context.Background()
	s, r, _ := newTestStore(t)
	r.SetOffline(true)

	s.CacheLocal(ctx, mkCase("1", "a@x.io", "Ana"))
	assert.Len(t, s.FetchAll(ctx, false), 1)

	s.DropLocal(ctx, "1")
	assert.Empty(t, s.FetchAll(ctx, false))
	_, ok := s.FetchByContact(ctx, "a@x.io")
	assert.False(t, ok)
}

func TestVerifyConnection(t *testing.T) {
	ctx := context.Background()
	s, r, _ := newTestStore(t)
	r.Seed(mkCase("1", "", "x"))

	n, err := s.VerifyConnection(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	r.SetOffline(true)
	_, err = s.VerifyConnection(ctx)
	assert.True(t, remote.IsUnavailable(err))
}
