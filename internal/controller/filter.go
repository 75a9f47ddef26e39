// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package controller

import (
	"strings"
	"time"

	"github.com/wingedpig/casewatch/internal/cases"
	"github.com/wingedpig/casewatch/internal/classify"
	"github.com/wingedpig/casewatch/internal/duration"
)

// Filter selects cases for a dashboard view. All set fields must match.
type Filter struct {
	// Ghosts selects ghost cases instead of the active set.
	Ghosts bool `json:"ghosts"`

	Jurisdiction string `json:"jurisdiction,omitempty"`
	Category     string `json:"category,omitempty"`
	Status       string `json:"status,omitempty"`
	Month        int    `json:"month,omitempty"` // submission month, 1-12
	Year         int    `json:"year,omitempty"`  // submission year

	// Query is a case-insensitive substring of the display name or
	// jurisdiction.
	Query string `json:"q,omitempty"`
}

// Match reports whether c passes f at time now.
func (f Filter) Match(c cases.Case, now time.Time) bool {
	if f.Ghosts {
		if !classify.IsGhost(c, now) {
			return false
		}
	} else if !classify.IsActive(c, now) {
		return false
	}

	if f.Jurisdiction != "" && !strings.EqualFold(c.Jurisdiction, f.Jurisdiction) {
		return false
	}
	if f.Category != "" && string(c.Category) != f.Category {
		return false
	}
	if f.Status != "" && string(c.Status) != f.Status {
		return false
	}
	if f.Month != 0 || f.Year != 0 {
		sub, ok := duration.ParseDate(c.Timeline.Submitted)
		if !ok {
			return false
		}
		if f.Month != 0 && int(sub.Month()) != f.Month {
			return false
		}
		if f.Year != 0 && sub.Year() != f.Year {
			return false
		}
	}

	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(c.DisplayName), q) &&
			!strings.Contains(strings.ToLower(c.Jurisdiction), q) {
			return false
		}
	}
	return true
}

// GetFiltered returns the live cases passing f, newest submission first.
func (c *Controller) GetFiltered(f Filter) []cases.Case {
	now := c.now()
	all := c.All()
	out := make([]cases.Case, 0, len(all))
	for _, v := range all {
		if f.Match(v, now) {
			out = append(out, v)
		}
	}
	return out
}
