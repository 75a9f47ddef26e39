// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/wingedpig/casewatch/internal/api/version"
	"github.com/wingedpig/casewatch/internal/remote"
	"github.com/wingedpig/casewatch/internal/store"
)

// Response is the standard API response wrapper.
type Response struct {
	Data  interface{} `json:"data,omitempty"`
	Error *ErrorInfo  `json:"error,omitempty"`
	Meta  *MetaInfo   `json:"meta,omitempty"`
}

// ErrorInfo contains error details.
type ErrorInfo struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// MetaInfo contains response metadata.
type MetaInfo struct {
	Timestamp time.Time `json:"timestamp"`
	Offline   bool      `json:"offline,omitempty"`
}

// Common error codes
const (
	ErrNotFound      = "NOT_FOUND"
	ErrBadRequest    = "BAD_REQUEST"
	ErrInternalError = "INTERNAL_ERROR"
	ErrConflict      = "CONFLICT"
	ErrRejected      = "REJECTED"
	ErrUnavailable   = "REMOTE_UNAVAILABLE"
	ErrSchema        = "SCHEMA_MISMATCH"
	ErrNotConfirmed  = "NOT_CONFIRMED"
	ErrMaintenance   = "MAINTENANCE"
)

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	writeResponse(w, status, Response{
		Data: data,
		Meta: &MetaInfo{Timestamp: time.Now()},
	})
}

// WriteVersioned writes data shaped for the API version pinned by r.
func WriteVersioned(w http.ResponseWriter, r *http.Request, endpoint string, status int, data interface{}) {
	WriteJSON(w, status, version.Transform(version.FromContext(r.Context()), endpoint, data))
}

// WriteOffline writes a response for a write that was kept locally and
// will be replayed later.
func WriteOffline(w http.ResponseWriter, data interface{}) {
	writeResponse(w, http.StatusAccepted, Response{
		Data: data,
		Meta: &MetaInfo{Timestamp: time.Now(), Offline: true},
	})
}

// WriteError writes an error response.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteErrorWithDetails(w, status, code, message, nil)
}

// WriteErrorWithDetails writes an error response with details.
func WriteErrorWithDetails(w http.ResponseWriter, status int, code, message string, details map[string]interface{}) {
	writeResponse(w, status, Response{
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
			Details: details,
		},
		Meta: &MetaInfo{Timestamp: time.Now()},
	})
}

func writeResponse(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// errorStatus maps a store or remote error to an HTTP status and code.
func errorStatus(err error) (int, string) {
	var rejected *remote.RejectedError
	switch {
	case errors.Is(err, store.ErrPurgeNotConfirmed):
		return http.StatusBadRequest, ErrNotConfirmed
	case errors.As(err, &rejected):
		return http.StatusUnprocessableEntity, ErrRejected
	case errors.Is(err, remote.ErrSchemaMismatch):
		return http.StatusBadGateway, ErrSchema
	case remote.IsUnavailable(err):
		return http.StatusServiceUnavailable, ErrUnavailable
	default:
		return http.StatusInternalServerError, ErrInternalError
	}
}

// WriteResult writes the outcome of a store write. data is sent on success
// and offline acceptance; failures carry details.
func WriteResult(w http.ResponseWriter, res store.Result, data interface{}, details map[string]interface{}) {
	switch {
	case res.Success:
		WriteJSON(w, http.StatusOK, data)
	case res.IsOffline:
		WriteOffline(w, data)
	default:
		status, code := errorStatus(res.Err)
		WriteErrorWithDetails(w, status, code, res.Error(), details)
	}
}
