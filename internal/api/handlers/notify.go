// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/wingedpig/casewatch/internal/events"
)

// NotifyHandler lets external tools post user-facing notices.
type NotifyHandler struct {
	bus events.EventBus
}

// NewNotifyHandler creates a new notify handler.
func NewNotifyHandler(bus events.EventBus) *NotifyHandler {
	return &NotifyHandler{bus: bus}
}

// NotifyRequest is the request body for the notify endpoint.
type NotifyRequest struct {
	Message string `json:"message"`
	Level   string `json:"level"` // info, warning, error
	CaseID  string `json:"case_id,omitempty"`
}

// NotifyResponse is the response from the notify endpoint.
type NotifyResponse struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

// Notify publishes a notice event.
func (h *NotifyHandler) Notify(w http.ResponseWriter, r *http.Request) {
	var req NotifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "invalid JSON")
		return
	}

	if req.Message == "" {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "message is required")
		return
	}

	var eventType string
	switch req.Level {
	case "", "info":
		eventType = events.EventNoticeInfo
	case "warning":
		eventType = events.EventNoticeWarning
	case "error":
		eventType = events.EventNoticeError
	default:
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "level must be info, warning, or error")
		return
	}

	event := events.Notice(eventType, req.CaseID, req.Message)
	// Publish works on a copy, so stamp here to echo the values back.
	event.ID = uuid.NewString()
	event.Timestamp = time.Now()
	if err := h.bus.Publish(r.Context(), event); err != nil {
		WriteError(w, http.StatusInternalServerError, ErrInternalError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, NotifyResponse{
		ID:        event.ID,
		Type:      event.Type,
		Timestamp: event.Timestamp.Format(time.RFC3339),
	})
}
