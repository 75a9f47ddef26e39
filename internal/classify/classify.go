// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package classify derives labels and statistics from case records. Nothing
// here is persisted; every result is recomputed from the records and the
// supplied wall-clock time.
package classify

import (
	"time"

	"github.com/wingedpig/casewatch/internal/cases"
	"github.com/wingedpig/casewatch/internal/duration"
)

const (
	// GhostDaysWithoutProtocol is how long a case may wait for a protocol
	// number before it is considered abandoned.
	GhostDaysWithoutProtocol = 365
	// GhostDaysAfterProtocol is how long a case may stay open after the
	// protocol was received.
	GhostDaysAfterProtocol = 4 * 365
	// StaleDays is the inactivity window after which an open case drops out
	// of the active set.
	StaleDays = 365
)

// IsGhost reports whether c is effectively abandoned at now.
func IsGhost(c cases.Case, now time.Time) bool {
	if c.Status.Terminal() {
		return false
	}
	if c.Timeline.ProtocolReceived != "" {
		d := duration.DaysSince(c.Timeline.ProtocolReceived, now)
		return d.Valid && d.N > GhostDaysAfterProtocol
	}
	d := duration.DaysSince(c.Timeline.Submitted, now)
	return d.Valid && d.N > GhostDaysWithoutProtocol
}

// IsStale reports whether an open case has not been touched for a year.
func IsStale(c cases.Case, now time.Time) bool {
	if c.Status.Terminal() {
		return false
	}
	d := duration.DaysSinceTime(c.LastMutatedAt, now)
	return d.Valid && d.N > StaleDays
}

// IsActive reports whether c belongs on the main dashboard. Terminal cases
// are always kept for historical completeness.
func IsActive(c cases.Case, now time.Time) bool {
	if c.Status.Terminal() {
		return true
	}
	return !IsGhost(c, now) && !IsStale(c, now)
}

// Active returns the cases for which IsActive holds.
func Active(list []cases.Case, now time.Time) []cases.Case {
	out := make([]cases.Case, 0, len(list))
	for _, c := range list {
		if IsActive(c, now) {
			out = append(out, c)
		}
	}
	return out
}

// Ghosts returns the cases for which IsGhost holds.
func Ghosts(list []cases.Case, now time.Time) []cases.Case {
	out := make([]cases.Case, 0)
	for _, c := range list {
		if IsGhost(c, now) {
			out = append(out, c)
		}
	}
	return out
}

// GhostCount counts ghost cases at now.
func GhostCount(list []cases.Case, now time.Time) int {
	n := 0
	for _, c := range list {
		if IsGhost(c, now) {
			n++
		}
	}
	return n
}
