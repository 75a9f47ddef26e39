// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T) *MemoryEventBus {
	t.Helper()
	bus := NewMemoryEventBus(MemoryBusConfig{HistoryMaxEvents: 100, HistoryMaxAge: time.Hour})
	t.Cleanup(func() { bus.Close() })
	return bus
}

func TestMemoryEventBus_PublishStampsEvent(t *testing.T) {
	bus := newTestBus(t)
	var got Event
	_, err := bus.Subscribe("*", func(_ context.Context, ev Event) error {
		got = ev
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), Event{Type: EventSyncConfirmed, CaseID: "c1"}))

	assert.NotEmpty(t, got.ID)
	assert.Equal(t, eventVersion, got.Version)
	assert.False(t, got.Timestamp.IsZero())
	assert.Equal(t, uint64(1), got.Seq)
	assert.Equal(t, uint64(1), bus.LastSeq())
}

func TestMemoryEventBus_KeepsCallerFields(t *testing.T) {
	bus := newTestBus(t)
	ts := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, bus.Publish(context.Background(), Event{ID: "fixed", Version: "2.0", Type: "a.b", Timestamp: ts}))

	hist, err := bus.History(EventFilter{})
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, "fixed", hist[0].ID)
	assert.Equal(t, "2.0", hist[0].Version)
	assert.Equal(t, ts, hist[0].Timestamp)
}

func TestMemoryEventBus_SubscribeByPattern(t *testing.T) {
	bus := newTestBus(t)
	var syncs, all atomic.Int32
	_, err := bus.Subscribe("sync.*", func(context.Context, Event) error { syncs.Add(1); return nil })
	require.NoError(t, err)
	_, err = bus.Subscribe("*", func(context.Context, Event) error { all.Add(1); return nil })
	require.NoError(t, err)

	ctx := context.Background()
	bus.Publish(ctx, Event{Type: EventSyncConfirmed})
	bus.Publish(ctx, Event{Type: EventSyncRolledBack})
	bus.Publish(ctx, Event{Type: EventCaseDeleted})

	assert.Equal(t, int32(2), syncs.Load())
	assert.Equal(t, int32(3), all.Load())
}

func TestMemoryEventBus_SubscribeBadPattern(t *testing.T) {
	bus := newTestBus(t)
	_, err := bus.Subscribe("sync..x", func(context.Context, Event) error { return nil })
	assert.Error(t, err)
	_, err = bus.SubscribeAsync("", func(context.Context, Event) error { return nil }, 1)
	assert.Error(t, err)
}

func TestMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := newTestBus(t)
	var calls atomic.Int32
	id, err := bus.Subscribe("*", func(context.Context, Event) error { calls.Add(1); return nil })
	require.NoError(t, err)

	bus.Publish(context.Background(), Event{Type: "a.b"})
	require.NoError(t, bus.Unsubscribe(id))
	bus.Publish(context.Background(), Event{Type: "a.b"})

	assert.Equal(t, int32(1), calls.Load())
	assert.ErrorIs(t, bus.Unsubscribe(id), ErrSubscriptionNotFound)
}

func TestMemoryEventBus_SubscribeAsync(t *testing.T) {
	bus := newTestBus(t)
	var calls atomic.Int32
	_, err := bus.SubscribeAsync("notice.*", func(context.Context, Event) error { calls.Add(1); return nil }, 10)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		bus.Publish(context.Background(), Notice(EventNoticeInfo, "", "hi"))
	}
	assert.Eventually(t, func() bool { return calls.Load() == 5 }, time.Second, 5*time.Millisecond)
}

func TestMemoryEventBus_SubscribeAsyncDropsWhenFull(t *testing.T) {
	bus := newTestBus(t)
	release := make(chan struct{})
	var calls atomic.Int32
	_, err := bus.SubscribeAsync("*", func(context.Context, Event) error {
		<-release
		calls.Add(1)
		return nil
	}, 1)
	require.NoError(t, err)

	// One event is being handled, one waits in the queue, the rest are dropped.
	for i := 0; i < 10; i++ {
		require.NoError(t, bus.Publish(context.Background(), Event{Type: "a.b"}))
		time.Sleep(time.Millisecond)
	}
	close(release)

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Less(t, calls.Load(), int32(10))

	hist, _ := bus.History(EventFilter{})
	assert.Len(t, hist, 10, "history keeps dropped events")
}

func TestMemoryEventBus_HandlerFailuresAreContained(t *testing.T) {
	bus := newTestBus(t)
	var after atomic.Int32
	bus.Subscribe("*", func(context.Context, Event) error { return errors.New("boom") })
	bus.Subscribe("*", func(context.Context, Event) error { panic("worse") })
	bus.Subscribe("*", func(context.Context, Event) error { after.Add(1); return nil })

	assert.NoError(t, bus.Publish(context.Background(), Event{Type: "a.b"}))
	assert.Equal(t, int32(1), after.Load())
}

func TestMemoryEventBus_PassesContext(t *testing.T) {
	bus := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var seen error
	bus.Subscribe("*", func(ctx context.Context, _ Event) error {
		seen = ctx.Err()
		return nil
	})
	require.NoError(t, bus.Publish(ctx, Event{Type: "a.b"}))
	assert.ErrorIs(t, seen, context.Canceled)
}

func TestMemoryEventBus_History(t *testing.T) {
	bus := newTestBus(t)
	ctx := context.Background()
	bus.Publish(ctx, Event{Type: EventSyncConfirmed, CaseID: "a"})
	bus.Publish(ctx, Event{Type: EventCaseDeleted, CaseID: "a"})
	bus.Publish(ctx, Event{Type: EventSyncConfirmed, CaseID: "b"})

	hist, err := bus.History(EventFilter{Types: []string{"sync.*"}})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 3}, seqs(hist))

	hist, err = bus.History(EventFilter{CaseID: "a", AfterSeq: 1})
	require.NoError(t, err)
	assert.Equal(t, []uint64{2}, seqs(hist))
}

func TestMemoryEventBus_Close(t *testing.T) {
	bus := NewMemoryEventBus(MemoryBusConfig{})
	_, err := bus.SubscribeAsync("*", func(context.Context, Event) error { return nil }, 1)
	require.NoError(t, err)

	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	assert.ErrorIs(t, bus.Publish(context.Background(), Event{Type: "a.b"}), ErrBusClosed)
	_, err = bus.Subscribe("*", func(context.Context, Event) error { return nil })
	assert.ErrorIs(t, err, ErrBusClosed)
}

func TestMemoryEventBus_ConcurrentPublish(t *testing.T) {
	bus := newTestBus(t)
	var calls atomic.Int32
	bus.Subscribe("*", func(context.Context, Event) error { calls.Add(1); return nil })

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				bus.Publish(context.Background(), Event{Type: "a.b"})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(100), calls.Load())
	assert.Equal(t, uint64(100), bus.LastSeq())
}

func TestNotice(t *testing.T) {
	ev := Notice(EventNoticeWarning, "c1", "careful")
	assert.Equal(t, EventNoticeWarning, ev.Type)
	assert.Equal(t, "c1", ev.CaseID)
	assert.Equal(t, "careful", ev.Payload["message"])
}
