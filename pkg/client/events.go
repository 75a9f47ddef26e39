// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
)

// EventClient provides access to the casewatch event log.
//
// Events track sync activity, case mutations, rollbacks, and notices.
//
// Access this client through [Client.Events]:
//
//	events, err := client.Events.List(ctx, &client.ListOptions{Limit: 50})
type EventClient struct {
	c *Client
}

// ListOptions configures event listing.
type ListOptions struct {
	// Limit is the maximum number of events to return.
	Limit int

	// Types filters to these event types or patterns (e.g., "case.*").
	Types []string

	// CaseID filters to events about one case.
	CaseID string

	// Since filters to events after this time.
	Since time.Time

	// Until filters to events before this time.
	Until time.Time

	// After filters to events newer than this sequence number, so a poller
	// can pass the Seq of the last event it saw.
	After uint64
}

// List returns recent events from the event log.
func (e *EventClient) List(ctx context.Context, opts *ListOptions) ([]Event, error) {
	path := "/api/v1/events"

	if opts != nil {
		params := url.Values{}
		if opts.Limit > 0 {
			params.Set("limit", strconv.Itoa(opts.Limit))
		}
		for _, t := range opts.Types {
			params.Add("type", t)
		}
		if opts.CaseID != "" {
			params.Set("case", opts.CaseID)
		}
		if !opts.Since.IsZero() {
			params.Set("since", opts.Since.Format(time.RFC3339))
		}
		if !opts.Until.IsZero() {
			params.Set("until", opts.Until.Format(time.RFC3339))
		}
		if opts.After > 0 {
			params.Set("after", strconv.FormatUint(opts.After, 10))
		}
		if len(params) > 0 {
			path += "?" + params.Encode()
		}
	}

	data, err := e.c.get(ctx, path)
	if err != nil {
		return nil, err
	}

	var events []Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("failed to parse events: %w", err)
	}

	return events, nil
}

// Watch streams events matching pattern ("*" for all) to fn until ctx ends,
// fn returns an error, or the connection drops. replay asks the server to
// send up to that many past events first; no event is delivered twice.
func (e *EventClient) Watch(ctx context.Context, pattern string, replay int, fn func(Event) error) error {
	u, err := url.Parse(e.c.baseURL + "/api/v1/events/ws")
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	q := url.Values{}
	if pattern != "" {
		q.Set("pattern", pattern)
	}
	if replay > 0 {
		q.Set("replay", strconv.Itoa(replay))
	}
	u.RawQuery = q.Encode()

	header := http.Header{}
	header.Set(VersionHeader, e.c.version)
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("websocket dial failed with status %d: %w", resp.StatusCode, err)
		}
		return fmt.Errorf("websocket dial failed: %w", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("websocket read: %w", err)
		}
		var ev Event
		if err := json.Unmarshal(msg, &ev); err != nil {
			return fmt.Errorf("failed to parse event: %w", err)
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
}
