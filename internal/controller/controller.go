// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package controller owns the in-memory case collection of a session and
// applies mutations optimistically on top of the record store.
//
// Every mutation is visible immediately. Remote calls for the same case id
// run one at a time in the order they were issued; a rejected call is
// rolled back only if no later mutation of that id has been issued, and
// then to the last version the remote store accepted (or that was committed
// locally while offline).
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/wingedpig/casewatch/internal/cases"
	"github.com/wingedpig/casewatch/internal/classify"
	"github.com/wingedpig/casewatch/internal/events"
	"github.com/wingedpig/casewatch/internal/narrative"
	"github.com/wingedpig/casewatch/internal/remote"
	"github.com/wingedpig/casewatch/internal/store"
	"github.com/wingedpig/casewatch/internal/watcher"
)

// ErrNotFound is returned for ids not in the live collection.
var ErrNotFound = errors.New("case not found")

const (
	defaultRefreshInterval = 5 * time.Minute
	defaultDebounce        = 500 * time.Millisecond
)

// Options configures a Controller.
type Options struct {
	// Viewer is the normalised contact of the session owner, if any.
	Viewer string

	// RefreshInterval is the period of the background refresh. Negative
	// disables it.
	RefreshInterval time.Duration

	// Debounce coalesces bursts of remote change notifications. A steady
	// stream still refreshes at least every ten Debounce periods.
	Debounce time.Duration

	Generator narrative.Generator
	Now       func() time.Time
}

// Outcome is the result of an optimistic mutation.
type Outcome struct {
	Case       cases.Case   `json:"case"`
	Result     store.Result `json:"-"`
	RolledBack bool         `json:"rolled_back"`
}

// entry tracks the mutations of one id.
type entry struct {
	confirmed    *cases.Case // nil when the case is not in the live set
	confirmedGen uint64
	latest       uint64 // last generation issued
	done         uint64 // last generation whose remote call finished
}

// Controller is the session's view of the collection.
type Controller struct {
	store *store.Store
	bus   events.EventBus
	opts  Options

	mu             sync.Mutex
	turn           *sync.Cond // signalled when a generation finishes
	cases          map[string]cases.Case
	entries        map[string]*entry
	pendingDeletes map[string]uint64
	offline        bool

	debouncer *watcher.Debouncer
	wake      chan struct{}
	sub       remote.Subscription
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// New creates a Controller. bus may be nil.
func New(s *store.Store, bus events.EventBus, opts Options) *Controller {
	if opts.RefreshInterval == 0 {
		opts.RefreshInterval = defaultRefreshInterval
	}
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	opts.Viewer = cases.NormalizeContact(opts.Viewer)

	c := &Controller{
		store:          s,
		bus:            bus,
		opts:           opts,
		cases:          make(map[string]cases.Case),
		entries:        make(map[string]*entry),
		pendingDeletes: make(map[string]uint64),
		debouncer:      watcher.NewDebouncer(opts.Debounce, 10*opts.Debounce),
		wake:           make(chan struct{}, 1),
	}
	c.turn = sync.NewCond(&c.mu)
	return c
}

// Start loads the collection, subscribes to remote changes and starts the
// periodic refresh. It returns once the initial load is done.
func (c *Controller) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.Refresh(ctx)

	sub, err := c.store.Subscribe(ctx, func() {
		c.debouncer.Trigger("remote", func(n int) {
			slog.Debug("remote changed", "notifications", n)
			c.publish(ctx, events.Event{Type: events.EventSyncRemoteChanged, Payload: map[string]interface{}{"notifications": n}})
			c.Refresh(ctx)
		})
	})
	if err != nil {
		slog.Warn("remote change subscription failed, relying on periodic refresh", "error", err)
	} else {
		c.sub = sub
	}

	c.wg.Add(1)
	go c.refreshLoop(ctx)
	return nil
}

// Close tears the session down and forgets the in-memory collection.
func (c *Controller) Close() {
	if c.cancel != nil {
		c.cancel()
	}
	if c.sub != nil {
		c.sub.Unsubscribe()
	}
	c.debouncer.Stop()
	c.wg.Wait()

	c.mu.Lock()
	c.cases = make(map[string]cases.Case)
	c.mu.Unlock()
}

// refreshLoop refreshes every RefreshInterval until ctx ends.
func (c *Controller) refreshLoop(ctx context.Context) {
	defer c.wg.Done()
	for {
		c.mu.Lock()
		interval := c.opts.RefreshInterval
		c.mu.Unlock()

		var tick <-chan time.Time
		var timer *time.Timer
		if interval > 0 {
			timer = time.NewTimer(interval)
			tick = timer.C
		}
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-c.wake:
			if timer != nil {
				timer.Stop()
			}
		case <-tick:
			c.Refresh(ctx)
		}
	}
}

// SetRefreshInterval changes the period of the background refresh.
// Negative disables it.
func (c *Controller) SetRefreshInterval(d time.Duration) {
	c.mu.Lock()
	c.opts.RefreshInterval = d
	c.mu.Unlock()
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Controller) now() time.Time {
	return c.opts.Now()
}

func (c *Controller) publish(ctx context.Context, e events.Event) {
	if c.bus == nil {
		return
	}
	if err := c.bus.Publish(ctx, e); err != nil && !errors.Is(err, events.ErrBusClosed) {
		slog.Warn("publish event", "type", e.Type, "error", err)
	}
}

func (c *Controller) notice(ctx context.Context, eventType, id, msg string) {
	c.publish(ctx, events.Notice(eventType, id, msg))
}

// begin issues the next generation for id. Callers hold c.mu. The entry is
// created from the current live state when id has nothing in flight.
func (c *Controller) begin(id string) (*entry, uint64) {
	e, ok := c.entries[id]
	if !ok {
		e = &entry{}
		if cur, ok := c.cases[id]; ok {
			cp := cur.Clone()
			e.confirmed = &cp
		}
		c.entries[id] = e
	}
	e.latest++
	return e, e.latest
}

// waitTurn blocks until every earlier generation of e has finished.
// Callers hold c.mu.
func (c *Controller) waitTurn(e *entry, gen uint64) {
	for e.done != gen-1 {
		c.turn.Wait()
	}
}

// finish records the outcome of generation gen and reports whether the
// live state was rolled back. Callers hold c.mu.
func (c *Controller) finish(id string, e *entry, gen uint64, res store.Result, applied *cases.Case) (rolledBack bool) {
	if res.Success || res.IsOffline {
		if gen > e.confirmedGen {
			e.confirmed = applied
			e.confirmedGen = gen
		}
	} else if gen == e.latest {
		c.show(id, e.confirmed)
		rolledBack = true
	}

	e.done = gen
	if e.done == e.latest {
		c.show(id, e.confirmed)
		delete(c.entries, id)
	}
	c.turn.Broadcast()
	return rolledBack
}

// show sets the live version of id; nil removes it.
func (c *Controller) show(id string, v *cases.Case) {
	if v == nil {
		delete(c.cases, id)
		return
	}
	c.cases[id] = v.Clone()
}

// Mutate applies v optimistically and writes it through the store.
func (c *Controller) Mutate(ctx context.Context, v cases.Case) Outcome {
	if v.ID == "" {
		return Outcome{Result: store.Result{Err: errors.New("id is required")}}
	}
	v = v.Clone()
	v.OwnerContact = cases.NormalizeContact(v.OwnerContact)
	v.LastMutatedAt = c.now()

	c.mu.Lock()
	e, gen := c.begin(v.ID)
	c.cases[v.ID] = v
	c.waitTurn(e, gen)
	c.mu.Unlock()

	res := c.store.Upsert(ctx, v)

	c.mu.Lock()
	applied := v.Clone()
	rolledBack := c.finish(v.ID, e, gen, res, &applied)
	confirmed := e.confirmed
	c.mu.Unlock()

	out := Outcome{Case: v, Result: res, RolledBack: rolledBack}
	switch {
	case res.Success:
		c.publish(ctx, events.Event{Type: events.EventSyncConfirmed, CaseID: v.ID})
	case res.IsOffline:
		c.publish(ctx, events.Event{Type: events.EventSyncSavedOffline, CaseID: v.ID})
		c.notice(ctx, events.EventNoticeWarning, v.ID, "Saved offline. Changes will sync when the connection returns.")
	case rolledBack:
		c.restoreLocal(ctx, v.ID, confirmed)
		c.publish(ctx, events.Event{Type: events.EventSyncRolledBack, CaseID: v.ID})
		c.notice(ctx, events.EventNoticeError, v.ID, "Save failed: "+res.Error())
	default:
		c.notice(ctx, events.EventNoticeError, v.ID, "Save failed, a newer edit is still pending: "+res.Error())
	}
	return out
}

// restoreLocal puts the confirmed version back into the local cache after a
// rollback so a rejected payload is not served offline.
func (c *Controller) restoreLocal(ctx context.Context, id string, confirmed *cases.Case) {
	if confirmed == nil {
		c.store.DropLocal(ctx, id)
		return
	}
	c.store.CacheLocal(ctx, *confirmed)
}

// Create onboards a new case.
func (c *Controller) Create(ctx context.Context, contact, displayName string, category cases.Category, jurisdiction string) Outcome {
	return c.Mutate(ctx, cases.New(contact, displayName, category, jurisdiction, c.now()))
}

// CheckIn records that the owner confirmed the case is still current.
func (c *Controller) CheckIn(ctx context.Context, id string) (Outcome, error) {
	cur, ok := c.Get(id)
	if !ok {
		return Outcome{}, ErrNotFound
	}
	return c.Mutate(ctx, cur), nil
}

// Claim assigns contact as the owner of an unowned case.
func (c *Controller) Claim(ctx context.Context, id, contact string) (Outcome, error) {
	cur, ok := c.Get(id)
	if !ok {
		return Outcome{}, ErrNotFound
	}
	claimed, err := cases.Claim(cur, contact, c.now())
	if err != nil {
		return Outcome{}, err
	}
	return c.Mutate(ctx, claimed), nil
}

// SoftDelete removes id from the live set optimistically and moves it to
// the bin. A refresh running meanwhile does not bring it back.
func (c *Controller) SoftDelete(ctx context.Context, id string) (store.Result, error) {
	c.mu.Lock()
	if _, ok := c.cases[id]; !ok {
		c.mu.Unlock()
		return store.Result{}, ErrNotFound
	}
	e, gen := c.begin(id)
	delete(c.cases, id)
	c.pendingDeletes[id] = gen
	c.waitTurn(e, gen)
	c.mu.Unlock()

	res := c.store.SoftDelete(ctx, id)

	c.mu.Lock()
	if c.pendingDeletes[id] == gen {
		delete(c.pendingDeletes, id)
	}
	rolledBack := c.finish(id, e, gen, res, nil)
	confirmed := e.confirmed
	c.mu.Unlock()

	switch {
	case res.Success:
		c.publish(ctx, events.Event{Type: events.EventCaseDeleted, CaseID: id})
		c.notice(ctx, events.EventNoticeInfo, id, "Case moved to the bin.")
	case res.IsOffline:
		c.publish(ctx, events.Event{Type: events.EventSyncSavedOffline, CaseID: id})
		c.notice(ctx, events.EventNoticeWarning, id, "Deleted offline. The change will sync when the connection returns.")
	case rolledBack:
		c.restoreLocal(ctx, id, confirmed)
		c.publish(ctx, events.Event{Type: events.EventSyncRolledBack, CaseID: id})
		c.notice(ctx, events.EventNoticeError, id, "Delete failed: "+res.Error())
	default:
		c.notice(ctx, events.EventNoticeError, id, "Delete failed, a newer edit is still pending: "+res.Error())
	}
	return res, nil
}

// Restore takes id out of the bin and reloads the collection.
func (c *Controller) Restore(ctx context.Context, id string) store.Result {
	res := c.store.Restore(ctx, id)
	c.Refresh(ctx)
	if res.Success {
		c.publish(ctx, events.Event{Type: events.EventCaseRestored, CaseID: id})
	}
	c.resultNotice(ctx, id, "Restore", res)
	return res
}

// HardDelete removes id permanently and reloads the collection.
func (c *Controller) HardDelete(ctx context.Context, id string) store.Result {
	res := c.store.HardDelete(ctx, id)
	c.Refresh(ctx)
	if res.Success {
		c.publish(ctx, events.Event{Type: events.EventCasePurged, CaseID: id})
	}
	c.resultNotice(ctx, id, "Permanent delete", res)
	return res
}

func (c *Controller) resultNotice(ctx context.Context, id, what string, res store.Result) {
	switch {
	case res.Success:
	case res.IsOffline:
		c.notice(ctx, events.EventNoticeWarning, id, what+" saved offline.")
	default:
		c.notice(ctx, events.EventNoticeError, id, what+" failed: "+res.Error())
	}
}

// Refresh replays queued offline writes and reloads the collection. Cases
// with mutations in flight keep their optimistic state, a live version with
// a newer LastMutatedAt wins over the fetched one, and pending deletes stay
// deleted.
func (c *Controller) Refresh(ctx context.Context) {
	if n, err := c.store.SyncPending(ctx); err != nil {
		slog.Debug("offline writes not replayed yet", "error", err)
	} else if n > 0 {
		slog.Info("replayed offline writes", "count", n)
	}

	list, fromRemote := c.store.FetchAllSource(ctx, false)

	c.mu.Lock()
	next := make(map[string]cases.Case, len(list))
	for _, f := range list {
		if _, deleting := c.pendingDeletes[f.ID]; deleting {
			continue
		}
		if _, busy := c.entries[f.ID]; busy {
			continue
		}
		if cur, ok := c.cases[f.ID]; ok && cur.LastMutatedAt.After(f.LastMutatedAt) {
			next[f.ID] = cur
			continue
		}
		next[f.ID] = f
	}
	for id := range c.entries {
		if cur, ok := c.cases[id]; ok {
			next[id] = cur
		}
	}
	c.cases = next
	wasOffline := c.offline
	c.offline = !fromRemote
	total := len(next)
	c.mu.Unlock()

	if fromRemote {
		c.publish(ctx, events.Event{Type: events.EventSyncRefreshed, Payload: map[string]interface{}{"count": total}})
		if wasOffline {
			c.notice(ctx, events.EventNoticeInfo, "", "Back online.")
		}
		return
	}
	c.publish(ctx, events.Event{Type: events.EventSyncServedOffline, Payload: map[string]interface{}{"count": total}})
	if !wasOffline {
		c.notice(ctx, events.EventNoticeWarning, "", "Offline. Showing the last saved copy.")
	}
}

// Offline reports whether the last refresh was served from the local cache.
func (c *Controller) Offline() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offline
}

// Get returns the live version of id.
func (c *Controller) Get(id string) (cases.Case, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.cases[id]
	return v.Clone(), ok
}

// All returns the live collection, newest submission first.
func (c *Controller) All() []cases.Case {
	c.mu.Lock()
	list := make([]cases.Case, 0, len(c.cases))
	for _, v := range c.cases {
		list = append(list, v.Clone())
	}
	c.mu.Unlock()
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Timeline.Submitted != list[j].Timeline.Submitted {
			return list[i].Timeline.Submitted > list[j].Timeline.Submitted
		}
		return list[i].ID < list[j].ID
	})
	return list
}

// Pending reports whether id has a write that has not reached the remote
// store: a mutation in flight or an offline write waiting for replay.
func (c *Controller) Pending(ctx context.Context, id string) bool {
	c.mu.Lock()
	_, busy := c.entries[id]
	c.mu.Unlock()
	if busy {
		return true
	}
	for _, p := range c.store.Pending(ctx) {
		if p == id {
			return true
		}
	}
	return false
}

// GetGhostCount counts the live cases that are ghosts right now.
func (c *Controller) GetGhostCount() int {
	return classify.GhostCount(c.All(), c.now())
}

// Stats computes statistics over the live collection.
func (c *Controller) Stats() classify.Stats {
	return classify.Compute(c.All(), c.now())
}

// Mine returns the session owner's case.
func (c *Controller) Mine(ctx context.Context) (cases.Case, bool) {
	if c.opts.Viewer == "" {
		return cases.Case{}, false
	}
	return c.store.FetchByContact(ctx, c.opts.Viewer)
}

// Viewer returns the session owner's normalised contact.
func (c *Controller) Viewer() string {
	return c.opts.Viewer
}

// Predict estimates the decision date of id.
func (c *Controller) Predict(ctx context.Context, id, locale string) (narrative.Prediction, error) {
	v, ok := c.Get(id)
	if !ok {
		return narrative.Prediction{}, ErrNotFound
	}
	return narrative.Predict(ctx, c.opts.Generator, v, c.Stats(), locale), nil
}

// Summary describes the live collection.
func (c *Controller) Summary(ctx context.Context, locale string) narrative.Summary {
	all := c.All()
	now := c.now()
	return narrative.Summarize(ctx, c.opts.Generator, classify.Compute(all, now), classify.Active(all, now), locale)
}

// Bin returns the soft-deleted cases.
func (c *Controller) Bin(ctx context.Context) []cases.Case {
	all := c.store.FetchAll(ctx, true)
	out := make([]cases.Case, 0)
	for _, v := range all {
		if v.IsDeleted() {
			out = append(out, v)
		}
	}
	return out
}

// Config returns the global configuration.
func (c *Controller) Config(ctx context.Context) cases.GlobalConfig {
	return c.store.GetConfig(ctx)
}

// SetMaintenance switches maintenance mode.
func (c *Controller) SetMaintenance(ctx context.Context, on bool) store.Result {
	res := c.store.SetConfig(ctx, cases.GlobalConfig{MaintenanceMode: on})
	c.publish(ctx, events.Event{Type: events.EventConfigMaintenance, Payload: map[string]interface{}{"maintenance_mode": on}})
	c.resultNotice(ctx, "", "Config change", res)
	return res
}

// VerifyConnection probes the remote store.
func (c *Controller) VerifyConnection(ctx context.Context) (int, error) {
	n, err := c.store.VerifyConnection(ctx)
	if err != nil {
		c.notice(ctx, events.EventNoticeError, "", "Remote store unreachable: "+err.Error())
		return 0, err
	}
	c.notice(ctx, events.EventNoticeInfo, "", fmt.Sprintf("Connected. %d records.", n))
	return n, nil
}

// PurgeAll deletes every case. See store.PurgeConfirmation.
func (c *Controller) PurgeAll(ctx context.Context, confirm store.PurgeConfirmation) store.Result {
	res := c.store.PurgeAll(ctx, confirm)
	if !res.Success {
		c.notice(ctx, events.EventNoticeError, "", "Purge refused: "+res.Error())
		return res
	}
	c.mu.Lock()
	c.cases = make(map[string]cases.Case)
	c.mu.Unlock()
	c.publish(ctx, events.Event{Type: events.EventCasesPurged})
	return res
}

// Audit returns the store's write log.
func (c *Controller) Audit(ctx context.Context) []store.AuditEntry {
	return c.store.AuditLog(ctx)
}
