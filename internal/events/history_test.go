// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seqs(evs []Event) []uint64 {
	out := make([]uint64, len(evs))
	for i, ev := range evs {
		out[i] = ev.Seq
	}
	return out
}

func TestHistory_AppendAssignsSeq(t *testing.T) {
	h := NewHistory(10, time.Hour)

	a := h.Append(Event{Type: "sync.confirmed"})
	b := h.Append(Event{Type: "sync.confirmed"})

	assert.Equal(t, uint64(1), a.Seq)
	assert.Equal(t, uint64(2), b.Seq)
	assert.Equal(t, uint64(2), h.LastSeq())
	assert.Equal(t, 2, h.Len())
}

func TestHistory_EvictsOldestWhenFull(t *testing.T) {
	h := NewHistory(3, time.Hour)
	for i := 0; i < 5; i++ {
		h.Append(Event{Type: "sync.confirmed", Timestamp: time.Now()})
	}

	got, err := h.Query(EventFilter{})
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 4, 5}, seqs(got))
}

func TestHistory_QueryFilters(t *testing.T) {
	h := NewHistory(100, time.Hour)
	base := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	h.Append(Event{Type: "sync.confirmed", CaseID: "a", Timestamp: base})
	h.Append(Event{Type: "sync.rolled_back", CaseID: "b", Timestamp: base.Add(time.Minute)})
	h.Append(Event{Type: "case.deleted", CaseID: "a", Timestamp: base.Add(2 * time.Minute)})
	h.Append(Event{Type: "notice.error", Timestamp: base.Add(3 * time.Minute)})

	tests := []struct {
		name   string
		filter EventFilter
		want   []uint64
	}{
		{"all", EventFilter{}, []uint64{1, 2, 3, 4}},
		{"type pattern", EventFilter{Types: []string{"sync.*"}}, []uint64{1, 2}},
		{"several types", EventFilter{Types: []string{"case.*", "notice.*"}}, []uint64{3, 4}},
		{"case", EventFilter{CaseID: "a"}, []uint64{1, 3}},
		{"since", EventFilter{Since: base.Add(2 * time.Minute)}, []uint64{3, 4}},
		{"until", EventFilter{Until: base.Add(time.Minute)}, []uint64{1, 2}},
		{"after seq", EventFilter{AfterSeq: 2}, []uint64{3, 4}},
		{"through seq", EventFilter{ThroughSeq: 2}, []uint64{1, 2}},
		{"limit keeps newest", EventFilter{Limit: 2}, []uint64{3, 4}},
		{"combined", EventFilter{Types: []string{"sync.*", "case.*"}, CaseID: "a", Limit: 1}, []uint64{3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := h.Query(tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, seqs(got))
		})
	}
}

func TestHistory_QueryEmptyResultIsNotNil(t *testing.T) {
	h := NewHistory(10, time.Hour)
	got, err := h.Query(EventFilter{})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestHistory_QueryBadPattern(t *testing.T) {
	h := NewHistory(10, time.Hour)
	_, err := h.Query(EventFilter{Types: []string{"sync."}})
	assert.Error(t, err)
}

func TestHistory_Prune(t *testing.T) {
	h := NewHistory(10, time.Minute)
	now := time.Now()
	h.Append(Event{Type: "a.old", Timestamp: now.Add(-2 * time.Minute)})
	h.Append(Event{Type: "a.old", Timestamp: now.Add(-90 * time.Second)})
	h.Append(Event{Type: "a.new", Timestamp: now})

	assert.Equal(t, 2, h.Prune(now))
	assert.Equal(t, 1, h.Len())
	assert.Equal(t, 0, h.Prune(now))

	h.Append(Event{Type: "a.new", Timestamp: now})
	got, _ := h.Query(EventFilter{})
	assert.Equal(t, []uint64{3, 4}, seqs(got))
}

func TestHistory_ResetKeepsSequence(t *testing.T) {
	h := NewHistory(10, time.Hour)
	h.Append(Event{Type: "a.b"})
	h.Reset()
	assert.Equal(t, 0, h.Len())
	assert.Equal(t, uint64(2), h.Append(Event{Type: "a.b"}).Seq)
}

func TestHistory_Defaults(t *testing.T) {
	h := NewHistory(0, 0)
	assert.Len(t, h.ring, defaultHistoryEvents)
	assert.Equal(t, defaultHistoryAge, h.maxAge)
}

func TestHistory_ConcurrentAppend(t *testing.T) {
	h := NewHistory(1000, time.Hour)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				h.Append(Event{Type: fmt.Sprintf("w.%d", i), Timestamp: time.Now()})
				h.Query(EventFilter{Limit: 5})
			}
		}(i)
	}
	wg.Wait()

	got, _ := h.Query(EventFilter{})
	require.Len(t, got, 500)
	for i, ev := range got {
		assert.Equal(t, uint64(i+1), ev.Seq)
	}
}
