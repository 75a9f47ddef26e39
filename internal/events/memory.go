// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ErrBusClosed is returned when operating on a closed bus.
var ErrBusClosed = errors.New("event bus is closed")

// ErrSubscriptionNotFound is returned when unsubscribing with invalid ID.
var ErrSubscriptionNotFound = errors.New("subscription not found")

const (
	eventVersion       = "1.0"
	defaultAsyncBuffer = 100
)

// MemoryBusConfig configures the memory event bus.
type MemoryBusConfig struct {
	HistoryMaxEvents int
	HistoryMaxAge    time.Duration
}

// MemoryEventBus is the in-process EventBus. Synchronous handlers run on the
// publishing goroutine; asynchronous ones get a buffered queue and their own
// goroutine, and lose events when the queue is full.
type MemoryEventBus struct {
	history *History

	mu     sync.RWMutex
	subs   map[SubscriptionID]*subscriber
	closed atomic.Bool
	quit   chan struct{}
	wg     sync.WaitGroup
}

type subscriber struct {
	id      SubscriptionID
	pattern Pattern
	handler EventHandler
	queue   chan Event    // nil for synchronous subscribers
	stop    chan struct{} // closed on unsubscribe
	dropped atomic.Uint64
}

// NewMemoryEventBus creates a bus and starts its history pruner.
func NewMemoryEventBus(cfg MemoryBusConfig) *MemoryEventBus {
	bus := &MemoryEventBus{
		history: NewHistory(cfg.HistoryMaxEvents, cfg.HistoryMaxAge),
		subs:    make(map[SubscriptionID]*subscriber),
		quit:    make(chan struct{}),
	}

	// Prune ten times per retention window, within a minute and an hour.
	every := min(max(bus.history.maxAge/10, time.Minute), time.Hour)
	bus.wg.Add(1)
	go bus.pruneLoop(every)

	return bus
}

func (bus *MemoryEventBus) pruneLoop(every time.Duration) {
	defer bus.wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-bus.quit:
			return
		case now := <-ticker.C:
			if n := bus.history.Prune(now); n > 0 {
				slog.Debug("pruned event history", "dropped", n)
			}
		}
	}
}

// Publish records event in history and hands it to every matching
// subscriber. ID, Version and Timestamp are filled in when empty.
func (bus *MemoryEventBus) Publish(ctx context.Context, event Event) error {
	if bus.closed.Load() {
		return ErrBusClosed
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Version == "" {
		event.Version = eventVersion
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event = bus.history.Append(event)

	bus.mu.RLock()
	var targets []*subscriber
	for _, sub := range bus.subs {
		if sub.pattern.Match(event.Type) {
			targets = append(targets, sub)
		}
	}
	bus.mu.RUnlock()

	for _, sub := range targets {
		if sub.queue == nil {
			sub.deliver(ctx, event)
			continue
		}
		select {
		case sub.queue <- event:
		default:
			n := sub.dropped.Add(1)
			slog.Warn("event dropped, subscriber queue full",
				"type", event.Type, "subscription", sub.id, "dropped", n)
		}
	}
	return nil
}

// deliver runs the handler, containing any panic to this subscriber.
func (sub *subscriber) deliver(ctx context.Context, event Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event handler panic", "type", event.Type, "subscription", sub.id, "panic", r)
		}
	}()
	if err := sub.handler(ctx, event); err != nil {
		slog.Debug("event handler failed", "type", event.Type, "subscription", sub.id, "error", err)
	}
}

func (bus *MemoryEventBus) add(pattern string, handler EventHandler, buffer int) (*subscriber, error) {
	if bus.closed.Load() {
		return nil, ErrBusClosed
	}
	p, err := ParsePattern(pattern)
	if err != nil {
		return nil, err
	}

	sub := &subscriber{
		id:      SubscriptionID(uuid.NewString()),
		pattern: p,
		handler: handler,
		stop:    make(chan struct{}),
	}
	if buffer > 0 {
		sub.queue = make(chan Event, buffer)
	}

	bus.mu.Lock()
	bus.subs[sub.id] = sub
	bus.mu.Unlock()
	return sub, nil
}

// Subscribe registers a synchronous handler for events matching pattern.
func (bus *MemoryEventBus) Subscribe(pattern string, handler EventHandler) (SubscriptionID, error) {
	sub, err := bus.add(pattern, handler, 0)
	if err != nil {
		return "", err
	}
	return sub.id, nil
}

// SubscribeAsync registers a handler fed through a queue of bufferSize
// events.
func (bus *MemoryEventBus) SubscribeAsync(pattern string, handler EventHandler, bufferSize int) (SubscriptionID, error) {
	if bufferSize <= 0 {
		bufferSize = defaultAsyncBuffer
	}
	sub, err := bus.add(pattern, handler, bufferSize)
	if err != nil {
		return "", err
	}

	bus.wg.Add(1)
	go func() {
		defer bus.wg.Done()
		for {
			select {
			case <-sub.stop:
				return
			case event := <-sub.queue:
				sub.deliver(context.Background(), event)
			}
		}
	}()
	return sub.id, nil
}

// Unsubscribe removes a subscription. Queued events of an async
// subscription are discarded.
func (bus *MemoryEventBus) Unsubscribe(id SubscriptionID) error {
	bus.mu.Lock()
	sub, ok := bus.subs[id]
	delete(bus.subs, id)
	bus.mu.Unlock()

	if !ok {
		return ErrSubscriptionNotFound
	}
	close(sub.stop)
	return nil
}

// History retrieves past events matching filter, oldest first.
func (bus *MemoryEventBus) History(filter EventFilter) ([]Event, error) {
	return bus.history.Query(filter)
}

// LastSeq returns the sequence number of the newest published event.
func (bus *MemoryEventBus) LastSeq() uint64 {
	return bus.history.LastSeq()
}

// Close stops the pruner and every async subscriber and waits for them.
func (bus *MemoryEventBus) Close() error {
	if bus.closed.Swap(true) {
		return nil
	}
	close(bus.quit)

	bus.mu.Lock()
	for id, sub := range bus.subs {
		close(sub.stop)
		delete(bus.subs, id)
	}
	bus.mu.Unlock()

	bus.wg.Wait()
	bus.history.Reset()
	return nil
}
