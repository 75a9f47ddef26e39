// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package events provides the in-process event bus used for user-facing
// notices and sync state changes.
package events

import (
	"context"
	"time"
)

// Event represents an immutable event record.
type Event struct {
	ID        string                 `json:"id"`
	Seq       uint64                 `json:"seq"`
	Version   string                 `json:"version"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	CaseID    string                 `json:"case_id,omitempty"`
	Payload   map[string]interface{} `json:"payload"`
}

// EventHandler processes received events.
type EventHandler func(ctx context.Context, event Event) error

// SubscriptionID uniquely identifies a subscription.
type SubscriptionID string

// EventFilter selects events from history. Zero fields match everything.
type EventFilter struct {
	Types      []string // patterns, see ParsePattern
	CaseID     string
	Since      time.Time
	Until      time.Time
	AfterSeq   uint64 // only events with a larger Seq
	ThroughSeq uint64 // only events with Seq at most this
	Limit      int    // keep the newest Limit matches
}

// EventBus is the core event pub/sub system.
type EventBus interface {
	// Publish emits an event to all matching subscribers.
	Publish(ctx context.Context, event Event) error

	// Subscribe registers a synchronous handler for events matching pattern.
	Subscribe(pattern string, handler EventHandler) (SubscriptionID, error)

	// SubscribeAsync registers an async handler with buffered channel.
	SubscribeAsync(pattern string, handler EventHandler, bufferSize int) (SubscriptionID, error)

	// Unsubscribe removes a subscription.
	Unsubscribe(id SubscriptionID) error

	// History retrieves past events matching filter, oldest first.
	History(filter EventFilter) ([]Event, error)

	// LastSeq returns the sequence number of the newest published event.
	LastSeq() uint64

	// Close shuts down the event bus gracefully.
	Close() error
}

// Event types
const (
	// Sync state of a single mutation
	EventSyncConfirmed    = "sync.confirmed"
	EventSyncSavedOffline = "sync.saved_offline"
	EventSyncRolledBack   = "sync.rolled_back"

	// Collection refreshes
	EventSyncRefreshed     = "sync.refreshed"
	EventSyncServedOffline = "sync.served_offline"
	EventSyncRemoteChanged = "sync.remote_changed"

	// Case lifecycle
	EventCaseDeleted  = "case.deleted"
	EventCaseRestored = "case.restored"
	EventCasePurged   = "case.purged"
	EventCasesPurged  = "case.purged_all"

	// Configuration
	EventConfigMaintenance = "config.maintenance"
	EventConfigReloaded    = "config.reloaded"

	// User-facing notices
	EventNoticeInfo    = "notice.info"
	EventNoticeWarning = "notice.warning"
	EventNoticeError   = "notice.error"
)

// Notice builds a notice event carrying a human-readable message.
func Notice(eventType, caseID, message string) Event {
	return Event{
		Type:    eventType,
		CaseID:  caseID,
		Payload: map[string]interface{}{"message": message},
	}
}
