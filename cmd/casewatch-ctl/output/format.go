// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package output renders case listings for casewatch-ctl.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/wingedpig/casewatch/pkg/client"
)

// Format selects how cases are written.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatJSONL    Format = "jsonl"
	FormatCSV      Format = "csv"
	FormatTemplate Format = "template"
)

// Options configures a Formatter.
type Options struct {
	Format   Format
	Template string // for FormatTemplate, e.g. "{{.ID}} {{.Status}}"
}

// Formatter writes cases in one output format.
type Formatter struct {
	opts     Options
	template *template.Template
	writer   io.Writer
}

// NewFormatter creates a Formatter. An empty format means FormatTable.
func NewFormatter(w io.Writer, opts Options) (*Formatter, error) {
	if opts.Format == "" {
		opts.Format = FormatTable
	}
	f := &Formatter{opts: opts, writer: w}

	switch opts.Format {
	case FormatTable, FormatJSON, FormatJSONL, FormatCSV:
	case FormatTemplate:
		if opts.Template == "" {
			return nil, fmt.Errorf("template format needs a template")
		}
		tmpl, err := template.New("case").Parse(opts.Template)
		if err != nil {
			return nil, fmt.Errorf("invalid template: %w", err)
		}
		f.template = tmpl
	default:
		return nil, fmt.Errorf("unknown format %q", opts.Format)
	}
	return f, nil
}

var csvHeader = []string{"id", "display_name", "category", "jurisdiction", "status", "submitted", "protocol_received", "approved", "last_mutated_at"}

// WriteCases writes list in the configured format.
func (f *Formatter) WriteCases(list []client.Case) error {
	switch f.opts.Format {
	case FormatJSON:
		if list == nil {
			list = []client.Case{}
		}
		enc := json.NewEncoder(f.writer)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	case FormatJSONL:
		enc := json.NewEncoder(f.writer)
		for _, c := range list {
			if err := enc.Encode(c); err != nil {
				return err
			}
		}
		return nil
	case FormatCSV:
		w := csv.NewWriter(f.writer)
		w.Write(csvHeader)
		for _, c := range list {
			w.Write([]string{
				c.ID, c.DisplayName, c.Category, c.Jurisdiction, c.Status,
				c.Timeline.Submitted, c.Timeline.ProtocolReceived, c.Timeline.Approved,
				c.LastMutatedAt.UTC().Format("2006-01-02T15:04:05Z"),
			})
		}
		w.Flush()
		return w.Error()
	case FormatTemplate:
		for _, c := range list {
			if err := f.template.Execute(f.writer, c); err != nil {
				return err
			}
			fmt.Fprintln(f.writer)
		}
		return nil
	default:
		return f.writeTable(list)
	}
}

func (f *Formatter) writeTable(list []client.Case) error {
	fmt.Fprintf(f.writer, "%-36s %-24s %-14s %-26s %s\n", "ID", "NAME", "JURISDICTION", "STATUS", "SUBMITTED")
	fmt.Fprintln(f.writer, strings.Repeat("-", 112))
	for _, c := range list {
		fmt.Fprintf(f.writer, "%-36s %-24s %-14s %-26s %s\n",
			c.ID,
			truncate(c.DisplayName, 24),
			truncate(c.Jurisdiction, 14),
			c.Status,
			c.Timeline.Submitted,
		)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
