// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"strconv"
	"strings"
)

// StarterOptions are the answers collected by "casewatch init".
type StarterOptions struct {
	Contact string
	Locale  string
	Port    int
	DSN     string // empty selects the in-memory demo remote
	Cache   string // "file", "sqlite" or "redis"
}

// escapeHJSONValue escapes a string for safe inclusion in an HJSON double-quoted value.
func escapeHJSONValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

// StarterConfig renders a commented casewatch.hjson.
func StarterConfig(opts StarterOptions) string {
	if opts.Port == 0 {
		opts.Port = 1040
	}
	if opts.Locale == "" {
		opts.Locale = "en"
	}
	if opts.Cache == "" {
		opts.Cache = "file"
	}

	var sb strings.Builder
	sb.WriteString(`{
  // =============================================================================
  // casewatch configuration
  // =============================================================================
  //
  // This is an HJSON file (JSON with comments and relaxed syntax).
  //
  // Template variables available in paths, URLs and secrets:
  //   {{.Project.Root}}   - directory holding this file
  //   {{.Home}}           - your home directory
  //   {{env "NAME"}}      - an environment variable

  version: "1"

  identity: {
    // Owner contacts are shown only for the case registered to this address.
`)
	sb.WriteString(`    contact: "` + escapeHJSONValue(opts.Contact) + "\"\n")
	sb.WriteString(`    locale: "` + escapeHJSONValue(opts.Locale) + "\"\n")
	sb.WriteString(`  }

  server: {
    host: "127.0.0.1"
`)
	sb.WriteString("    port: " + strconv.Itoa(opts.Port) + "\n")
	sb.WriteString(`  }

  // ---------------------------------------------------------------------------
  // Shared case collection
  // ---------------------------------------------------------------------------
  remote: {
`)
	if opts.DSN == "" {
		sb.WriteString(`    // "memory" keeps everything in this process. Switch to "postgres" and
    // set dsn to share cases with other applicants.
    driver: "memory"
`)
	} else {
		sb.WriteString(`    driver: "postgres"
`)
		sb.WriteString(`    dsn: "` + escapeHJSONValue(opts.DSN) + "\"\n")
		sb.WriteString(`    migrate: true
`)
	}
	sb.WriteString(`  }

  // ---------------------------------------------------------------------------
  // Local cache, used while the shared collection is unreachable
  // ---------------------------------------------------------------------------
  cache: {
`)
	sb.WriteString(`    backend: "` + escapeHJSONValue(opts.Cache) + "\"\n")
	switch opts.Cache {
	case "redis":
		sb.WriteString(`    redis_url: "redis://127.0.0.1:6379/0"
`)
	case "sqlite":
		sb.WriteString(`    path: "{{.Project.Root}}/.casewatch/cache.db"
`)
	default:
		sb.WriteString(`    path: "{{.Project.Root}}/.casewatch/cache.json"
`)
	}
	sb.WriteString(`  }

  sync: {
    refresh_interval: "5m"
    debounce: "500ms"
  }

  logging: {
    level: "info"
    format: "text"
  }

  // narrative: {
  //   endpoint: "https://example.com/narrative"
  //   api_key: "{{env \"CASEWATCH_NARRATIVE_KEY\"}}"
  // }
}
`)
	return sb.String()
}
