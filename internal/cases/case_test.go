// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package cases

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	now := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	c := New("  Ana@Example.COM ", " ana ", CategoryCitizenship, " Spain ", now)

	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "ana@example.com", c.OwnerContact)
	assert.Equal(t, "ana", c.DisplayName)
	assert.Equal(t, "Spain", c.Jurisdiction)
	assert.Equal(t, StatusSubmitted, c.Status)
	assert.Equal(t, "2025-03-04", c.Timeline.Submitted)
	assert.Equal(t, now, c.LastMutatedAt)
	assert.NoError(t, c.Validate())

	other := New("b@example.com", "b", CategoryOther, "Italy", now)
	assert.NotEqual(t, c.ID, other.ID)
}

func TestClaim(t *testing.T) {
	now := time.Now()
	placeholder := Case{ID: "p1", DisplayName: "imported", Status: StatusSubmitted}

	claimed, err := Claim(placeholder, "Me@Example.com", now)
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", claimed.OwnerContact)
	assert.Equal(t, "", placeholder.OwnerContact, "placeholder must not be modified")

	_, err = Claim(claimed, "other@example.com", now)
	assert.ErrorIs(t, err, ErrAlreadyOwned)

	_, err = Claim(placeholder, "   ", now)
	assert.Error(t, err)
}

func TestViewFor(t *testing.T) {
	c := Case{ID: "1", OwnerContact: "me@example.com", DisplayName: "me"}

	assert.Equal(t, "me@example.com", c.ViewFor(" ME@example.com").OwnerContact)
	assert.Equal(t, "", c.ViewFor("you@example.com").OwnerContact)
	assert.Equal(t, "", c.ViewFor("").OwnerContact)
	assert.Equal(t, "", c.Public().OwnerContact)
	assert.Equal(t, "me@example.com", c.OwnerContact)
}

func TestClone_CopiesSoftDelete(t *testing.T) {
	at := time.Now()
	c := Case{ID: "1", SoftDeletedAt: &at}
	cp := c.Clone()
	later := at.Add(time.Hour)
	*cp.SoftDeletedAt = later

	assert.True(t, c.IsDeleted())
	assert.Equal(t, at, *c.SoftDeletedAt)
}

func TestTimeline_Validate(t *testing.T) {
	tests := []struct {
		name    string
		tl      Timeline
		wantErr bool
	}{
		{"submission only", Timeline{Submitted: "2024-01-01"}, false},
		{"ordered", Timeline{Submitted: "2024-01-01", ProtocolReceived: "2024-02-01", Approved: "2024-09-01"}, false},
		{"same day", Timeline{Submitted: "2024-01-01", ProtocolReceived: "2024-01-01"}, false},
		{"gap then earlier", Timeline{Submitted: "2024-01-01", ProtocolReceived: "2024-05-01", Closed: "2024-04-01"}, true},
		{"protocol before submission", Timeline{Submitted: "2024-03-01", ProtocolReceived: "2024-02-01"}, true},
		{"malformed", Timeline{Submitted: "yesterday"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tl.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTimeline_Anchor(t *testing.T) {
	assert.Equal(t, "2024-01-01", Timeline{Submitted: "2024-01-01"}.Anchor())
	assert.Equal(t, "2024-02-01", Timeline{Submitted: "2024-01-01", ProtocolReceived: "2024-02-01"}.Anchor())
}

func TestStatusAndCategory(t *testing.T) {
	assert.True(t, StatusApproved.Terminal())
	assert.True(t, StatusClosed.Terminal())
	assert.False(t, StatusProtocolReceived.Terminal())
	assert.False(t, Status("lost").Valid())
	assert.True(t, CategoryAsylum.Valid())
	assert.False(t, Category("golden_visa").Valid())
}
