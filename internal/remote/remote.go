// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package remote defines the shared case collection the daemon synchronises
// with, and provides Postgres and in-memory implementations of it.
package remote

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wingedpig/casewatch/internal/cases"
)

// Column names a field of the remote collection.
type Column string

const (
	ColID            Column = "id"
	ColOwnerContact  Column = "owner_contact"
	ColDisplayName   Column = "display_name"
	ColCategory      Column = "category"
	ColJurisdiction  Column = "jurisdiction"
	ColStatus        Column = "status"
	ColSubmitted     Column = "submitted_on"
	ColProtocol      Column = "protocol_on"
	ColDocsRequested Column = "docs_requested_on"
	ColApproved      Column = "approved_on"
	ColClosed        Column = "closed_on"
	ColNote          Column = "note"
	ColLastMutatedAt Column = "last_mutated_at"
	ColSoftDeletedAt Column = "soft_deleted_at"
)

// Column sets. Public sets never include the owner contact; legacy sets are
// for deployments that predate the soft-delete column.
var (
	FullColumns = []Column{
		ColID, ColOwnerContact, ColDisplayName, ColCategory, ColJurisdiction,
		ColStatus, ColSubmitted, ColProtocol, ColDocsRequested, ColApproved,
		ColClosed, ColNote, ColLastMutatedAt, ColSoftDeletedAt,
	}
	PublicColumns       = Without(FullColumns, ColOwnerContact)
	LegacyColumns       = Without(FullColumns, ColSoftDeletedAt)
	LegacyPublicColumns = Without(FullColumns, ColOwnerContact, ColSoftDeletedAt)
)

// Without returns cols minus drop, preserving order.
func Without(cols []Column, drop ...Column) []Column {
	out := make([]Column, 0, len(cols))
next:
	for _, c := range cols {
		for _, d := range drop {
			if c == d {
				continue next
			}
		}
		out = append(out, c)
	}
	return out
}

// Has reports whether cols contains col.
func Has(cols []Column, col Column) bool {
	for _, c := range cols {
		if c == col {
			return true
		}
	}
	return false
}

func knownColumn(col Column) bool {
	return Has(FullColumns, col)
}

// Op is a predicate operator.
type Op int

const (
	OpEq Op = iota
	OpEqFold
	OpIsNull
	OpNotNull
)

// Predicate filters rows on one column.
type Predicate struct {
	Column Column
	Op     Op
	Value  string
}

// Eq matches rows whose column equals v exactly.
func Eq(col Column, v string) Predicate { return Predicate{Column: col, Op: OpEq, Value: v} }

// EqFold matches rows whose column equals v ignoring case.
func EqFold(col Column, v string) Predicate { return Predicate{Column: col, Op: OpEqFold, Value: v} }

// IsNull matches rows where the column is unset.
func IsNull(col Column) Predicate { return Predicate{Column: col, Op: OpIsNull} }

// NotNull matches rows where the column is set.
func NotNull(col Column) Predicate { return Predicate{Column: col, Op: OpNotNull} }

func (p Predicate) String() string {
	switch p.Op {
	case OpEq:
		return fmt.Sprintf("%s = %q", p.Column, p.Value)
	case OpEqFold:
		return fmt.Sprintf("%s ~= %q", p.Column, p.Value)
	case OpIsNull:
		return string(p.Column) + " is null"
	default:
		return string(p.Column) + " is not null"
	}
}

// Query selects rows. Where predicates are combined with AND.
type Query struct {
	Columns []Column
	Where   []Predicate
	Limit   int
	Offset  int
}

// columns returns every column the query touches.
func (q Query) columns() []Column {
	out := append([]Column{}, q.Columns...)
	for _, p := range q.Where {
		out = append(out, p.Column)
	}
	return out
}

// Patch is a partial update. Values are strings, time.Time, or nil to clear.
type Patch map[Column]any

// Subscription is a live change feed registration.
type Subscription interface {
	Unsubscribe()
}

// Store is the remote case collection.
//
// Connectivity failures wrap ErrUnavailable, references to columns the
// deployment does not have return a *SchemaError, and anything the store
// refuses to accept is a *RejectedError.
type Store interface {
	Select(ctx context.Context, q Query) ([]cases.Case, error)
	Upsert(ctx context.Context, rows []cases.Case, columns []Column, conflict Column) error
	Update(ctx context.Context, where []Predicate, patch Patch) error
	Delete(ctx context.Context, where []Predicate) error

	// Subscribe calls fn, with no payload, after any change to the
	// collection until the subscription is cancelled or ctx ends.
	Subscribe(ctx context.Context, fn func()) (Subscription, error)

	// Count is a head-only reachability probe.
	Count(ctx context.Context) (int, error)

	LoadConfig(ctx context.Context) (cases.GlobalConfig, error)
	SaveConfig(ctx context.Context, cfg cases.GlobalConfig) error

	Close() error
}

// value returns the stored representation of col for c. Unset values are
// returned as nil.
func value(c cases.Case, col Column) any {
	str := func(s string) any {
		if s == "" {
			return nil
		}
		return s
	}
	switch col {
	case ColID:
		return c.ID
	case ColOwnerContact:
		return str(c.OwnerContact)
	case ColDisplayName:
		return c.DisplayName
	case ColCategory:
		return string(c.Category)
	case ColJurisdiction:
		return c.Jurisdiction
	case ColStatus:
		return string(c.Status)
	case ColSubmitted:
		return str(c.Timeline.Submitted)
	case ColProtocol:
		return str(c.Timeline.ProtocolReceived)
	case ColDocsRequested:
		return str(c.Timeline.DocsRequested)
	case ColApproved:
		return str(c.Timeline.Approved)
	case ColClosed:
		return str(c.Timeline.Closed)
	case ColNote:
		return str(c.Note)
	case ColLastMutatedAt:
		return c.LastMutatedAt
	case ColSoftDeletedAt:
		if c.SoftDeletedAt == nil {
			return nil
		}
		return *c.SoftDeletedAt
	}
	return nil
}

// setValue assigns a stored value to c. v is a string, time.Time, *time.Time
// or nil.
func setValue(c *cases.Case, col Column, v any) {
	var s string
	var t *time.Time
	switch x := v.(type) {
	case string:
		s = x
	case time.Time:
		t = &x
	case *time.Time:
		if x != nil {
			cp := *x
			t = &cp
		}
	}

	switch col {
	case ColID:
		c.ID = s
	case ColOwnerContact:
		c.OwnerContact = s
	case ColDisplayName:
		c.DisplayName = s
	case ColCategory:
		c.Category = cases.Category(s)
	case ColJurisdiction:
		c.Jurisdiction = s
	case ColStatus:
		c.Status = cases.Status(s)
	case ColSubmitted:
		c.Timeline.Submitted = s
	case ColProtocol:
		c.Timeline.ProtocolReceived = s
	case ColDocsRequested:
		c.Timeline.DocsRequested = s
	case ColApproved:
		c.Timeline.Approved = s
	case ColClosed:
		c.Timeline.Closed = s
	case ColNote:
		c.Note = s
	case ColLastMutatedAt:
		if t != nil {
			c.LastMutatedAt = *t
		} else {
			c.LastMutatedAt = time.Time{}
		}
	case ColSoftDeletedAt:
		c.SoftDeletedAt = t
	}
}

// project copies only cols from c.
func project(c cases.Case, cols []Column) cases.Case {
	var out cases.Case
	for _, col := range cols {
		setValue(&out, col, value(c, col))
	}
	return out
}

// match reports whether c satisfies every predicate.
func match(c cases.Case, where []Predicate) bool {
	for _, p := range where {
		v := value(c, p.Column)
		var s string
		switch x := v.(type) {
		case string:
			s = x
		case time.Time:
			s = x.UTC().Format(time.RFC3339Nano)
		}
		switch p.Op {
		case OpEq:
			if v == nil || s != p.Value {
				return false
			}
		case OpEqFold:
			if v == nil || !strings.EqualFold(s, p.Value) {
				return false
			}
		case OpIsNull:
			if v != nil {
				return false
			}
		case OpNotNull:
			if v == nil {
				return false
			}
		}
	}
	return true
}
