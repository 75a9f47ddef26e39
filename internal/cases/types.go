// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package cases defines the tracked applicant case record and its lifecycle.
package cases

import (
	"time"
)

// Status is the lifecycle status of a case.
type Status string

const (
	StatusSubmitted               Status = "submitted"
	StatusProtocolReceived        Status = "protocol_received"
	StatusAdditionalDocsRequested Status = "additional_docs_requested"
	StatusApproved                Status = "approved"
	StatusClosed                  Status = "closed"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{
	StatusSubmitted,
	StatusProtocolReceived,
	StatusAdditionalDocsRequested,
	StatusApproved,
	StatusClosed,
}

// Terminal reports whether the status ends the wait for statistics purposes.
// The record itself stays mutable.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusClosed
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// Category is the type of application.
type Category string

const (
	CategoryResidence   Category = "residence"
	CategoryCitizenship Category = "citizenship"
	CategoryFamily      Category = "family_reunion"
	CategoryWorkPermit  Category = "work_permit"
	CategoryStudent     Category = "student"
	CategoryAsylum      Category = "asylum"
	CategoryOther       Category = "other"
)

// Categories lists every known category.
var Categories = []Category{
	CategoryResidence,
	CategoryCitizenship,
	CategoryFamily,
	CategoryWorkPermit,
	CategoryStudent,
	CategoryAsylum,
	CategoryOther,
}

// Valid reports whether c is a known category. Stored values outside the
// enumeration are preserved, not rewritten.
func (c Category) Valid() bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// Timeline holds the milestone dates of a case as ISO dates (YYYY-MM-DD).
// Historical rows may carry empty, malformed or out-of-order values; they
// are kept verbatim.
type Timeline struct {
	Submitted        string `json:"submitted"`
	ProtocolReceived string `json:"protocol_received,omitempty"`
	DocsRequested    string `json:"docs_requested,omitempty"`
	Approved         string `json:"approved,omitempty"`
	Closed           string `json:"closed,omitempty"`
}

// Case is a single tracked application.
type Case struct {
	ID            string     `json:"id"`
	OwnerContact  string     `json:"owner_contact,omitempty"`
	DisplayName   string     `json:"display_name"`
	Category      Category   `json:"category"`
	Jurisdiction  string     `json:"jurisdiction"`
	Status        Status     `json:"status"`
	Timeline      Timeline   `json:"timeline"`
	LastMutatedAt time.Time  `json:"last_mutated_at"`
	SoftDeletedAt *time.Time `json:"soft_deleted_at,omitempty"`
	Note          string     `json:"note,omitempty"`
}

// GlobalConfig is the process-wide configuration shared by every client.
type GlobalConfig struct {
	MaintenanceMode bool `json:"maintenance_mode"`
}
