// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package version implements date-based versioning for the casewatch API.
//
// Clients pin a version with the Casewatch-Version header; without it the
// latest version is used. A breaking change adds a new version constant,
// moves LatestVersion, and registers transformers that turn the new response
// shape back into the old one for pinned clients.
package version

import "context"

const (
	// Version20260601 is the initial API version.
	Version20260601 = "2026-06-01"
)

// LatestVersion is the current default API version.
var LatestVersion = Version20260601

// Header is the HTTP header used to specify the API version.
const Header = "Casewatch-Version"

type contextKey string

const versionKey contextKey = "api-version"

// FromContext returns the API version from the context, or LatestVersion.
func FromContext(ctx context.Context) string {
	v, ok := ctx.Value(versionKey).(string)
	if !ok || v == "" {
		return LatestVersion
	}
	return v
}

// WithContext returns a new context with the API version set.
func WithContext(ctx context.Context, version string) context.Context {
	return context.WithValue(ctx, versionKey, version)
}
