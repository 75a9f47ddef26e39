// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package migrations embeds the goose migrations for the remote schema.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
