// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"encoding/json"
	"net/http"
	"time"
)

// Middleware resolves the API version of each request and stores it in the
// request context. A missing header means LatestVersion, a date after
// LatestVersion is served as LatestVersion, and anything that is not a
// YYYY-MM-DD date is rejected with 400.
//
//	router.Use(version.Middleware)
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v, ok := Resolve(r.Header.Get(Header))
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error": map[string]string{
					"code":    "BAD_REQUEST",
					"message": Header + " must be a date like " + LatestVersion,
				},
			})
			return
		}

		w.Header().Set(Header, v)
		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), v)))
	})
}

// Resolve maps a requested version to the one that will be served.
func Resolve(requested string) (string, bool) {
	if requested == "" {
		return LatestVersion, true
	}
	if _, err := time.Parse(time.DateOnly, requested); err != nil {
		return "", false
	}
	// ISO dates order lexically.
	if requested > LatestVersion {
		return LatestVersion, true
	}
	return requested, true
}
