// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package watcher

import (
	"sync"
	"time"
)

const defaultQuiet = 100 * time.Millisecond

// Debouncer coalesces bursts of triggers per key. A burst fires once the key
// has been quiet for the quiet period, or once maxWait has passed since the
// first trigger of the burst, whichever comes first. A zero maxWait means
// only the quiet period applies.
type Debouncer struct {
	mu      sync.Mutex
	quiet   time.Duration
	maxWait time.Duration
	bursts  map[string]*burst
	stopped bool
}

type burst struct {
	timer *time.Timer
	first time.Time
	count int
	fn    func(n int)
}

// NewDebouncer returns a Debouncer. A non-positive quiet period selects the
// default.
func NewDebouncer(quiet, maxWait time.Duration) *Debouncer {
	if quiet <= 0 {
		quiet = defaultQuiet
	}
	if maxWait < 0 {
		maxWait = 0
	}
	return &Debouncer{
		quiet:   quiet,
		maxWait: maxWait,
		bursts:  make(map[string]*burst),
	}
}

// Trigger records one trigger for key. fn replaces any callback already
// pending for the key and receives the number of triggers in the burst.
func (d *Debouncer) Trigger(key string, fn func(n int)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	now := time.Now()
	b, ok := d.bursts[key]
	if !ok {
		b = &burst{first: now}
		d.bursts[key] = b
	} else {
		b.timer.Stop()
	}
	b.count++
	b.fn = fn

	wait := d.quiet
	if d.maxWait > 0 {
		if left := d.maxWait - now.Sub(b.first); left < wait {
			wait = max(left, 0)
		}
	}
	b.timer = time.AfterFunc(wait, func() { d.fire(key, b) })
}

func (d *Debouncer) fire(key string, b *burst) {
	d.mu.Lock()
	if d.bursts[key] != b {
		d.mu.Unlock()
		return
	}
	delete(d.bursts, key)
	fn, n := b.fn, b.count
	d.mu.Unlock()
	fn(n)
}

// Flush runs the pending callback for key immediately. It reports whether
// one was pending.
func (d *Debouncer) Flush(key string) bool {
	d.mu.Lock()
	b, ok := d.bursts[key]
	if ok {
		b.timer.Stop()
		delete(d.bursts, key)
	}
	d.mu.Unlock()
	if ok {
		b.fn(b.count)
	}
	return ok
}

// Cancel drops the pending callback for key.
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if b, ok := d.bursts[key]; ok {
		b.timer.Stop()
		delete(d.bursts, key)
	}
}

// Pending returns the number of keys with a callback waiting to fire.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.bursts)
}

// SetQuiet changes the quiet period for triggers after the call.
func (d *Debouncer) SetQuiet(quiet time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if quiet <= 0 {
		quiet = defaultQuiet
	}
	d.quiet = quiet
}

// Stop drops every pending callback and ignores later triggers.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	for key, b := range d.bursts {
		b.timer.Stop()
		delete(d.bursts, key)
	}
}
