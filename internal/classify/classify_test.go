// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package classify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/wingedpig/casewatch/internal/cases"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func daysAgo(n int) string {
	return now.AddDate(0, 0, -n).Format("2006-01-02")
}

func openCase(submittedDaysAgo int) cases.Case {
	return cases.Case{
		ID:            "c",
		Status:        cases.StatusSubmitted,
		Timeline:      cases.Timeline{Submitted: daysAgo(submittedDaysAgo)},
		LastMutatedAt: now,
	}
}

func TestIsGhost(t *testing.T) {
	t.Run("no protocol after 400 days", func(t *testing.T) {
		assert.True(t, IsGhost(openCase(400), now))
	})

	t.Run("approved is never a ghost", func(t *testing.T) {
		c := openCase(400)
		c.Status = cases.StatusApproved
		assert.False(t, IsGhost(c, now))
		assert.False(t, IsGhost(c, now.AddDate(20, 0, 0)))
	})

	t.Run("closed is never a ghost", func(t *testing.T) {
		c := openCase(4000)
		c.Status = cases.StatusClosed
		assert.False(t, IsGhost(c, now))
	})

	t.Run("exactly 365 days is not yet a ghost", func(t *testing.T) {
		assert.False(t, IsGhost(openCase(365), now))
		assert.True(t, IsGhost(openCase(366), now))
	})

	t.Run("protocol five years ago", func(t *testing.T) {
		c := openCase(6 * 365)
		c.Status = cases.StatusProtocolReceived
		c.Timeline.ProtocolReceived = daysAgo(5 * 365)
		assert.True(t, IsGhost(c, now))
	})

	t.Run("protocol three years ago", func(t *testing.T) {
		c := openCase(4 * 365)
		c.Status = cases.StatusProtocolReceived
		c.Timeline.ProtocolReceived = daysAgo(3 * 365)
		assert.False(t, IsGhost(c, now))
	})

	t.Run("unparseable dates never ghost", func(t *testing.T) {
		c := openCase(0)
		c.Timeline.Submitted = "sometime in 2019"
		assert.False(t, IsGhost(c, now))
	})
}

func TestIsGhost_Pure(t *testing.T) {
	c := openCase(200)
	assert.Equal(t, IsGhost(c, now), IsGhost(c, now))
}

func TestIsGhost_MonotonicDecay(t *testing.T) {
	samples := []cases.Case{openCase(10), openCase(300)}
	withProto := openCase(900)
	withProto.Timeline.ProtocolReceived = daysAgo(800)
	samples = append(samples, withProto)

	for _, c := range samples {
		was := false
		for d := 0; d < 3000; d += 30 {
			is := IsGhost(c, now.AddDate(0, 0, d))
			if was {
				assert.True(t, is, "case un-ghosted after %d days", d)
			}
			was = is
		}
		assert.True(t, was)
	}
}

func TestIsActive(t *testing.T) {
	fresh := openCase(30)
	assert.True(t, IsActive(fresh, now))

	paused := openCase(100)
	paused.Timeline.ProtocolReceived = daysAgo(90)
	paused.LastMutatedAt = now.AddDate(-2, 0, 0)
	assert.False(t, IsGhost(paused, now))
	assert.True(t, IsStale(paused, now))
	assert.False(t, IsActive(paused, now))

	old := openCase(3000)
	old.Status = cases.StatusApproved
	old.LastMutatedAt = now.AddDate(-5, 0, 0)
	assert.True(t, IsActive(old, now))
	assert.False(t, IsStale(old, now))

	assert.False(t, IsActive(openCase(400), now))
}

func TestGhostHelpers(t *testing.T) {
	list := []cases.Case{openCase(10), openCase(400), openCase(500)}
	assert.Equal(t, 2, GhostCount(list, now))
	assert.Len(t, Ghosts(list, now), 2)
	assert.Len(t, Active(list, now), 1)
}
