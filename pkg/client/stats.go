// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// StatsClient provides access to aggregate statistics.
type StatsClient struct {
	c *Client
}

// Get returns the dashboard statistics.
func (s *StatsClient) Get(ctx context.Context) (*Stats, error) {
	data, err := s.c.get(ctx, "/api/v1/stats")
	if err != nil {
		return nil, err
	}
	var st Stats
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to parse stats: %w", err)
	}
	return &st, nil
}

// Ghosts returns the number of ghost cases.
func (s *StatsClient) Ghosts(ctx context.Context) (int, error) {
	data, err := s.c.get(ctx, "/api/v1/stats/ghosts")
	if err != nil {
		return 0, err
	}
	var out struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return 0, fmt.Errorf("failed to parse ghost count: %w", err)
	}
	return out.Count, nil
}

// Summary returns a prose description of the collection in locale.
func (s *StatsClient) Summary(ctx context.Context, locale string) (*Narrative, error) {
	path := "/api/v1/summary"
	if locale != "" {
		path += "?locale=" + url.QueryEscape(locale)
	}
	data, err := s.c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	var n Narrative
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("failed to parse summary: %w", err)
	}
	return &n, nil
}
