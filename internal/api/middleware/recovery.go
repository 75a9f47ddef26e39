// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"
)

// Recovery turns a handler panic into a 500 INTERNAL_ERROR envelope. The
// request ID is echoed in the error details so the log line can be found.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			p := recover()
			if p == nil {
				return
			}
			if p == http.ErrAbortHandler {
				panic(p)
			}
			id := RequestID(r.Context())
			slog.Error("panic recovered", "request_id", id, "path", r.URL.Path,
				"panic", p, "stack", string(debug.Stack()))

			errBody := map[string]interface{}{
				"code":    "INTERNAL_ERROR",
				"message": "Internal server error",
			}
			if id != "" {
				errBody["details"] = map[string]string{"request_id": id}
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error": errBody,
				"meta":  map[string]interface{}{"timestamp": time.Now().UTC()},
			})
		}()

		next.ServeHTTP(w, r)
	})
}
