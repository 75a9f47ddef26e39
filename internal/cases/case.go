// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package cases

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wingedpig/casewatch/internal/duration"
)

// ErrAlreadyOwned is returned when claiming a case that has an owner.
var ErrAlreadyOwned = errors.New("case already has an owner")

// NormalizeContact trims and lowercases a contact address.
func NormalizeContact(contact string) string {
	return strings.ToLower(strings.TrimSpace(contact))
}

// New creates a freshly onboarded case with status submitted and the
// submission date set to today.
func New(contact, displayName string, category Category, jurisdiction string, now time.Time) Case {
	return Case{
		ID:            uuid.NewString(),
		OwnerContact:  NormalizeContact(contact),
		DisplayName:   strings.TrimSpace(displayName),
		Category:      category,
		Jurisdiction:  strings.TrimSpace(jurisdiction),
		Status:        StatusSubmitted,
		Timeline:      Timeline{Submitted: now.UTC().Format("2006-01-02")},
		LastMutatedAt: now,
	}
}

// Claim assigns an owner to an unowned placeholder case.
func Claim(placeholder Case, contact string, now time.Time) (Case, error) {
	if placeholder.OwnerContact != "" {
		return Case{}, ErrAlreadyOwned
	}
	contact = NormalizeContact(contact)
	if contact == "" {
		return Case{}, errors.New("contact is required")
	}
	c := placeholder.Clone()
	c.OwnerContact = contact
	c.LastMutatedAt = now
	return c, nil
}

// Clone returns a deep copy of c.
func (c Case) Clone() Case {
	out := c
	if c.SoftDeletedAt != nil {
		t := *c.SoftDeletedAt
		out.SoftDeletedAt = &t
	}
	return out
}

// IsDeleted reports whether the case is in the recoverable bin.
func (c Case) IsDeleted() bool {
	return c.SoftDeletedAt != nil
}

// Public returns a copy safe to show to any observer.
func (c Case) Public() Case {
	out := c.Clone()
	out.OwnerContact = ""
	return out
}

// ViewFor returns the case as seen by viewer: the contact is kept only when
// it belongs to the viewer.
func (c Case) ViewFor(viewer string) Case {
	viewer = NormalizeContact(viewer)
	if viewer != "" && NormalizeContact(c.OwnerContact) == viewer {
		return c.Clone()
	}
	return c.Public()
}

// Validate checks the fields a form must supply. It does not look at the
// timeline order; see Timeline.Validate.
func (c Case) Validate() error {
	if c.ID == "" {
		return errors.New("id is required")
	}
	if strings.TrimSpace(c.DisplayName) == "" {
		return errors.New("display name is required")
	}
	if !c.Status.Valid() {
		return fmt.Errorf("unknown status %q", c.Status)
	}
	if c.Timeline.Submitted == "" {
		return errors.New("submission date is required")
	}
	return nil
}

// milestones returns the timeline in lifecycle order.
func (t Timeline) milestones() []struct{ name, date string } {
	return []struct{ name, date string }{
		{"submitted", t.Submitted},
		{"protocol_received", t.ProtocolReceived},
		{"docs_requested", t.DocsRequested},
		{"approved", t.Approved},
		{"closed", t.Closed},
	}
}

// Validate checks that every present milestone parses and is not earlier
// than any earlier present milestone. Only the form-facing API calls this;
// stored history is never rejected.
func (t Timeline) Validate() error {
	var prevName string
	var prev time.Time
	for _, m := range t.milestones() {
		if m.date == "" {
			continue
		}
		d, ok := duration.ParseDate(m.date)
		if !ok {
			return fmt.Errorf("%s: invalid date %q", m.name, m.date)
		}
		if prevName != "" && d.Before(prev) {
			return fmt.Errorf("%s (%s) is before %s", m.name, m.date, prevName)
		}
		prevName, prev = m.name, d
	}
	return nil
}

// Anchor returns the date predictions are measured from: the protocol date
// if present, otherwise the submission date.
func (t Timeline) Anchor() string {
	if t.ProtocolReceived != "" {
		return t.ProtocolReceived
	}
	return t.Submitted
}
