// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"time"
)

// Case status values.
const (
	StatusSubmitted               = "submitted"
	StatusProtocolReceived        = "protocol_received"
	StatusAdditionalDocsRequested = "additional_docs_requested"
	StatusApproved                = "approved"
	StatusClosed                  = "closed"
)

// Timeline holds the milestone dates of a case as YYYY-MM-DD strings.
type Timeline struct {
	Submitted        string `json:"submitted"`
	ProtocolReceived string `json:"protocol_received,omitempty"`
	DocsRequested    string `json:"docs_requested,omitempty"`
	Approved         string `json:"approved,omitempty"`
	Closed           string `json:"closed,omitempty"`
}

// Case is one tracked application.
type Case struct {
	// ID is the unique identifier of the case.
	ID string `json:"id"`

	// OwnerContact is only returned for the case registered to the server's
	// own identity. It is blank for everyone else's cases.
	OwnerContact string `json:"owner_contact,omitempty"`

	DisplayName  string   `json:"display_name"`
	Category     string   `json:"category"`
	Jurisdiction string   `json:"jurisdiction"`
	Status       string   `json:"status"`
	Timeline     Timeline `json:"timeline"`

	// LastMutatedAt is when the case was last written or checked in.
	LastMutatedAt time.Time `json:"last_mutated_at"`

	// SoftDeletedAt is set while the case sits in the bin.
	SoftDeletedAt *time.Time `json:"soft_deleted_at,omitempty"`

	Note string `json:"note,omitempty"`
}

// CaseView is a case plus whether a local write for it is waiting to reach
// the shared store.
type CaseView struct {
	Case
	PendingSync bool `json:"pending_sync"`
}

// Mutation is the result of a write to a case.
type Mutation struct {
	// Case is the case as it stands after the write.
	Case Case `json:"case"`

	// RolledBack is set when the write failed and the local copy was reverted.
	RolledBack bool `json:"rolled_back"`

	// Offline is set when the write was kept locally for later replay.
	Offline bool `json:"-"`
}

// CreateRequest is the body of a case creation.
type CreateRequest struct {
	Contact      string `json:"contact,omitempty"`
	DisplayName  string `json:"display_name"`
	Category     string `json:"category,omitempty"`
	Jurisdiction string `json:"jurisdiction,omitempty"`
}

// Filter narrows a case listing. Zero fields do not filter.
type Filter struct {
	Ghosts       bool
	Jurisdiction string
	Category     string
	Status       string
	Month        int
	Year         int
	Query        string
}

// WaitSummary describes a sample of wait times in days.
type WaitSummary struct {
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	MeanDays int     `json:"mean_days"`
	Mode     int     `json:"mode"`
	StdDev   float64 `json:"std_dev"`
}

// Bucket is one group of a breakdown.
type Bucket struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Stats is the dashboard aggregate.
type Stats struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Ghosts   int `json:"ghosts"`
	Stale    int `json:"stale"`
	Terminal int `json:"terminal"`

	SubmissionToApproval WaitSummary `json:"submission_to_approval"`
	ProtocolToApproval   WaitSummary `json:"protocol_to_approval"`
	SubmissionToProtocol WaitSummary `json:"submission_to_protocol"`

	ByCategory     []Bucket `json:"by_category"`
	ByJurisdiction []Bucket `json:"by_jurisdiction"`
	ByStatus       []Bucket `json:"by_status"`
	ByMonth        []Bucket `json:"by_month"`
}

// Prediction is the expected decision date for a case.
type Prediction struct {
	// Date is empty when there is not enough history to predict.
	Date       string `json:"date,omitempty"`
	Confidence string `json:"confidence"`
	Anchor     string `json:"anchor,omitempty"`
	MeanDays   int    `json:"mean_days"`
	SampleSize int    `json:"sample_size"`
	Reasoning  string `json:"reasoning"`
	Generated  bool   `json:"generated"`
}

// Narrative is a prose summary of the collection.
type Narrative struct {
	Text      string `json:"text"`
	Generated bool   `json:"generated"`
}

// GlobalConfig is the shared settings record.
type GlobalConfig struct {
	MaintenanceMode bool `json:"maintenance_mode"`
}

// Connection is the result of a connection check.
type Connection struct {
	Connected bool `json:"connected"`
	Records   int  `json:"records"`
}

// AuditEntry is one line of the server's local write log.
type AuditEntry struct {
	At      time.Time `json:"at"`
	Op      string    `json:"op"`
	ID      string    `json:"id,omitempty"`
	Success bool      `json:"success"`
	Offline bool      `json:"offline,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// Health is the server liveness report.
type Health struct {
	Version string `json:"version"`
	Offline bool   `json:"offline"`
}

// Event is an entry of the event log.
type Event struct {
	ID        string                 `json:"id"`
	Seq       uint64                 `json:"seq"`
	Version   string                 `json:"version"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	CaseID    string                 `json:"case_id,omitempty"`
	Payload   map[string]interface{} `json:"payload"`
}

// NotifyLevel is the severity of a notice.
type NotifyLevel string

const (
	NotifyInfo    NotifyLevel = "info"
	NotifyWarning NotifyLevel = "warning"
	NotifyError   NotifyLevel = "error"
)

// NotifyRequest is the body of a notice.
type NotifyRequest struct {
	Message string `json:"message"`
	Level   string `json:"level"`
	CaseID  string `json:"case_id,omitempty"`
}

// NotifyResponse describes the published notice event.
type NotifyResponse struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}
