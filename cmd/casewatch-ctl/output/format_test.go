// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wingedpig/casewatch/pkg/client"
)

var sample = []client.Case{
	{
		ID: "1", DisplayName: "Lisbon family", Category: "family_reunion", Jurisdiction: "Portugal",
		Status: client.StatusSubmitted, Timeline: client.Timeline{Submitted: "2025-03-10"},
		LastMutatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	},
	{
		ID: "2", DisplayName: "A name that is far too long for the column", Jurisdiction: "Spain",
		Status: client.StatusApproved, Timeline: client.Timeline{Submitted: "2024-11-02", Approved: "2025-05-01"},
	},
}

func render(t *testing.T, opts Options) string {
	t.Helper()
	var buf bytes.Buffer
	f, err := NewFormatter(&buf, opts)
	require.NoError(t, err)
	require.NoError(t, f.WriteCases(sample))
	return buf.String()
}

func TestWriteCases_Table(t *testing.T) {
	out := render(t, Options{})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "JURISDICTION")
	assert.Contains(t, lines[2], "Lisbon family")
	assert.Contains(t, lines[3], "A name that is far to...")
}

func TestWriteCases_JSON(t *testing.T) {
	var decoded []client.Case
	require.NoError(t, json.Unmarshal([]byte(render(t, Options{Format: FormatJSON})), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "Portugal", decoded[0].Jurisdiction)
}

func TestWriteCases_JSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	f, err := NewFormatter(&buf, Options{Format: FormatJSON})
	require.NoError(t, err)
	require.NoError(t, f.WriteCases(nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestWriteCases_JSONL(t *testing.T) {
	lines := strings.Split(strings.TrimSpace(render(t, Options{Format: FormatJSONL})), "\n")
	assert.Len(t, lines, 2)
}

func TestWriteCases_CSV(t *testing.T) {
	out := render(t, Options{Format: FormatCSV})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(csvHeader, ","), lines[0])
	assert.Equal(t, "1,Lisbon family,family_reunion,Portugal,submitted,2025-03-10,,,2026-01-02T03:04:05Z", lines[1])
}

func TestWriteCases_Template(t *testing.T) {
	out := render(t, Options{Format: FormatTemplate, Template: "{{.ID}}:{{.Status}}"})
	assert.Equal(t, "1:submitted\n2:approved\n", out)
}

func TestNewFormatter_Errors(t *testing.T) {
	_, err := NewFormatter(&bytes.Buffer{}, Options{Format: "xml"})
	assert.Error(t, err)

	_, err = NewFormatter(&bytes.Buffer{}, Options{Format: FormatTemplate})
	assert.Error(t, err)

	_, err = NewFormatter(&bytes.Buffer{}, Options{Format: FormatTemplate, Template: "{{.ID"})
	assert.Error(t, err)
}
