// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package events

import (
	"sync"
	"time"
)

const (
	defaultHistoryEvents = 10000
	defaultHistoryAge    = time.Hour
)

// History is a bounded ring of published events in publish order. Each
// appended event is stamped with the next sequence number.
type History struct {
	mu     sync.RWMutex
	ring   []Event
	head   int // index of the oldest event
	size   int
	maxAge time.Duration
	seq    uint64
}

// NewHistory returns a History keeping at most maxEvents events no older
// than maxAge. Non-positive values select the defaults.
func NewHistory(maxEvents int, maxAge time.Duration) *History {
	if maxEvents <= 0 {
		maxEvents = defaultHistoryEvents
	}
	if maxAge <= 0 {
		maxAge = defaultHistoryAge
	}
	return &History{
		ring:   make([]Event, maxEvents),
		maxAge: maxAge,
	}
}

// Append stores event, evicting the oldest when full, and returns it with
// its sequence number set.
func (h *History) Append(event Event) Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	event.Seq = h.seq
	if h.size < len(h.ring) {
		h.ring[(h.head+h.size)%len(h.ring)] = event
		h.size++
	} else {
		h.ring[h.head] = event
		h.head = (h.head + 1) % len(h.ring)
	}
	return event
}

func (h *History) at(i int) Event {
	return h.ring[(h.head+i)%len(h.ring)]
}

// Query returns the events selected by filter, oldest first.
func (h *History) Query(filter EventFilter) ([]Event, error) {
	var patterns []Pattern
	for _, t := range filter.Types {
		p, err := ParsePattern(t)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, p)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	// Walk newest first so Limit can stop early.
	var picked []Event
	for i := h.size - 1; i >= 0; i-- {
		ev := h.at(i)
		if filter.AfterSeq > 0 && ev.Seq <= filter.AfterSeq {
			break
		}
		if !selected(ev, filter, patterns) {
			continue
		}
		picked = append(picked, ev)
		if filter.Limit > 0 && len(picked) == filter.Limit {
			break
		}
	}

	out := make([]Event, len(picked))
	for i, ev := range picked {
		out[len(picked)-1-i] = ev
	}
	return out, nil
}

func selected(ev Event, filter EventFilter, patterns []Pattern) bool {
	if filter.ThroughSeq > 0 && ev.Seq > filter.ThroughSeq {
		return false
	}
	if filter.CaseID != "" && ev.CaseID != filter.CaseID {
		return false
	}
	if !filter.Since.IsZero() && ev.Timestamp.Before(filter.Since) {
		return false
	}
	if !filter.Until.IsZero() && ev.Timestamp.After(filter.Until) {
		return false
	}
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if p.Match(ev.Type) {
			return true
		}
	}
	return false
}

// Prune drops events older than the maximum age at now and returns how many
// were dropped.
func (h *History) Prune(now time.Time) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	cutoff := now.Add(-h.maxAge)
	dropped := 0
	for h.size > 0 && h.ring[h.head].Timestamp.Before(cutoff) {
		h.ring[h.head] = Event{}
		h.head = (h.head + 1) % len(h.ring)
		h.size--
		dropped++
	}
	return dropped
}

// Len returns the number of retained events.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.size
}

// LastSeq returns the sequence number of the newest appended event.
func (h *History) LastSeq() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.seq
}

// Reset drops every retained event. Sequence numbers keep increasing.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	clear(h.ring)
	h.head, h.size = 0, 0
}
