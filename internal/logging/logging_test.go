// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wingedpig/casewatch/internal/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("chatty"))
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(config.LoggingConfig{Level: "info", Format: "json"}, &buf)

	l.Debug("hidden")
	l.Info("case saved", "id", "abc")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "case saved", rec["msg"])
	assert.Equal(t, "abc", rec["id"])
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	l := New(config.LoggingConfig{Level: "debug", Format: "text"}, &buf)

	l.Debug("refresh", "offline", true)
	out := buf.String()
	assert.Contains(t, out, "level=DEBUG")
	assert.Contains(t, out, "msg=refresh")
	assert.Contains(t, out, "offline=true")
}

func TestApply_ChangesLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(config.LoggingConfig{Level: "warn", Format: "text"}, &buf)

	l.Info("before")
	assert.NotContains(t, buf.String(), "before")

	l.Apply(config.LoggingConfig{Level: "debug", Format: "text"})
	assert.Equal(t, slog.LevelDebug, l.Level())

	l.Debug("after")
	assert.Contains(t, buf.String(), "msg=after")
}

func TestApply_FormatChangeWarns(t *testing.T) {
	var buf bytes.Buffer
	l := New(config.LoggingConfig{Level: "info", Format: "text"}, &buf)

	l.Apply(config.LoggingConfig{Level: "info", Format: "json"})
	assert.Contains(t, buf.String(), "requires a restart")
}
