// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wingedpig/casewatch/internal/controller"
	"github.com/wingedpig/casewatch/internal/remote"
	"github.com/wingedpig/casewatch/internal/store"
)

func TestParseFilter(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/cases?ghosts=true&jurisdiction=Spain&category=asylum&status=submitted&month=4&year=2025&q=lis", nil)
	f, err := parseFilter(req)
	require.NoError(t, err)
	assert.Equal(t, controller.Filter{
		Ghosts:       true,
		Jurisdiction: "Spain",
		Category:     "asylum",
		Status:       "submitted",
		Month:        4,
		Year:         2025,
		Query:        "lis",
	}, f)
}

func TestParseFilter_Errors(t *testing.T) {
	for _, q := range []string{"ghosts=maybe", "month=0", "month=x", "year=-3"} {
		_, err := parseFilter(httptest.NewRequest("GET", "/api/v1/cases?"+q, nil))
		assert.Error(t, err, q)
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: count", store.ErrPurgeNotConfirmed), http.StatusBadRequest, ErrNotConfirmed},
		{&remote.RejectedError{Code: "23505", Message: "duplicate"}, http.StatusUnprocessableEntity, ErrRejected},
		{&remote.SchemaError{}, http.StatusBadGateway, ErrSchema},
		{fmt.Errorf("select: %w", remote.ErrUnavailable), http.StatusServiceUnavailable, ErrUnavailable},
		{errors.New("boom"), http.StatusInternalServerError, ErrInternalError},
	}
	for _, tt := range tests {
		status, code := errorStatus(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.code, code, tt.err.Error())
	}
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestWriteResult(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteResult(rec, store.Result{Success: true}, "ok", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeResponse(t, rec).Data)

	rec = httptest.NewRecorder()
	WriteResult(rec, store.Result{IsOffline: true, Err: remote.ErrUnavailable}, "queued", nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "queued", resp.Data)
	assert.True(t, resp.Meta.Offline)

	rec = httptest.NewRecorder()
	WriteResult(rec, store.Result{Err: &remote.RejectedError{Message: "no"}}, nil, map[string]interface{}{"rolled_back": true})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp = decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrRejected, resp.Error.Code)
	assert.Equal(t, true, resp.Error.Details["rolled_back"])
}

func TestRequestLocale(t *testing.T) {
	h := &CaseHandler{locale: "pt"}

	assert.Equal(t, "pt", h.requestLocale(httptest.NewRequest("GET", "/", nil)))
	assert.Equal(t, "es", h.requestLocale(httptest.NewRequest("GET", "/?locale=es", nil)))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Accept-Language", "EN-GB,en;q=0.9")
	assert.Equal(t, "en", h.requestLocale(req))

	for header, want := range map[string]string{
		"*;q=0.5, pt":           "pt",
		"fr, es;q=0.8":          "es",
		"en;q=0.3, es-MX;q=0.9": "es",
		"fr":                    "pt",
		"eng":                   "pt",
		"es;q=0":                "pt",
		"es;q=bogus, en":        "en",
	} {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Accept-Language", header)
		assert.Equal(t, want, h.requestLocale(req), header)
	}
}
