// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMiddleware_DefaultsToLatest(t *testing.T) {
	var seen string
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, LatestVersion, seen)
	assert.Equal(t, LatestVersion, rec.Header().Get(Header))
}

func TestMiddleware_PinnedVersion(t *testing.T) {
	var seen string
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(Header, "2025-01-01")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "2025-01-01", seen)
	assert.Equal(t, "2025-01-01", rec.Header().Get(Header))
}

func TestMiddleware_RejectsMalformed(t *testing.T) {
	called := false
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(Header, "latest")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.False(t, called)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "BAD_REQUEST")
}

func TestResolve(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"", LatestVersion, true},
		{"2025-01-01", "2025-01-01", true},
		{LatestVersion, LatestVersion, true},
		{"2099-12-31", LatestVersion, true},
		{"2026-13-01", "", false},
		{"v2", "", false},
	}
	for _, tt := range tests {
		got, ok := Resolve(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestFromContext_Empty(t *testing.T) {
	assert.Equal(t, LatestVersion, FromContext(context.Background()))
}

func TestTransform(t *testing.T) {
	RegisterTransformer("2000-01-01", "test.endpoint", func(data interface{}) interface{} {
		return map[string]interface{}{"wrapped": data}
	})

	assert.Equal(t, "x", Transform(LatestVersion, "test.endpoint", "x"))
	assert.Equal(t, map[string]interface{}{"wrapped": "x"}, Transform("2000-01-01", "test.endpoint", "x"))
	assert.Equal(t, "x", Transform("2000-01-01", "other.endpoint", "x"))
	assert.Equal(t, "x", Transform("1999-01-01", "test.endpoint", "x"))
}
