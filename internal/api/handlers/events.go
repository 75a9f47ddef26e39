// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wingedpig/casewatch/internal/events"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	wsBuffer     = 100
	wsPingPeriod = 54 * time.Second
	wsPongWait   = 60 * time.Second
)

// EventHandler handles event-related API requests.
type EventHandler struct {
	bus events.EventBus
}

// NewEventHandler creates a new event handler.
func NewEventHandler(bus events.EventBus) *EventHandler {
	return &EventHandler{bus: bus}
}

// History returns the event history, oldest first.
//
// Query parameters: type (repeatable pattern), case, limit, since and until
// (RFC 3339), after (sequence number).
func (h *EventHandler) History(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := events.EventFilter{
		Types:  query["type"],
		CaseID: query.Get("case"),
	}

	if v := query.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			WriteError(w, http.StatusBadRequest, ErrBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = n
	}
	if v := query.Get("after"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			WriteError(w, http.StatusBadRequest, ErrBadRequest, "after must be a sequence number")
			return
		}
		filter.AfterSeq = n
	}
	for name, dst := range map[string]*time.Time{"since": &filter.Since, "until": &filter.Until} {
		v := query.Get(name)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			WriteError(w, http.StatusBadRequest, ErrBadRequest, name+" must be an RFC 3339 time")
			return
		}
		*dst = t
	}

	eventList, err := h.bus.History(filter)
	if err != nil {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, eventList)
}

// WebSocket streams events matching the pattern query parameter ("*" when
// absent). With replay=N the newest N matching events already in history
// are sent first; each event is sent once.
func (h *EventHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("pattern")
	if pattern == "" {
		pattern = "*"
	}
	if _, err := events.ParsePattern(pattern); err != nil {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	eventCh := make(chan events.Event, wsBuffer)
	done := make(chan struct{})

	subID, err := h.bus.SubscribeAsync(pattern, func(_ context.Context, event events.Event) error {
		select {
		case eventCh <- event:
		case <-done:
		default:
		}
		return nil
	}, wsBuffer)
	if err != nil {
		conn.WriteJSON(map[string]string{"error": err.Error()})
		return
	}
	defer h.bus.Unsubscribe(subID)

	// Everything after cutoff reaches the subscription; everything up to it
	// is already in history.
	cutoff := h.bus.LastSeq()
	if n, err := strconv.Atoi(r.URL.Query().Get("replay")); err == nil && n > 0 {
		past, _ := h.bus.History(events.EventFilter{Types: []string{pattern}, ThroughSeq: cutoff, Limit: n})
		for _, event := range past {
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		}
	}

	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})
	pingTicker := time.NewTicker(wsPingPeriod)
	defer pingTicker.Stop()

	// Reads only detect the close.
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event := <-eventCh:
			if event.Seq <= cutoff {
				continue
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-pingTicker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
