// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"os"
	"regexp"
	"strings"
	"text/template"
)

// TemplateExpander handles Go text/template variable expansion in config values.
type TemplateExpander struct {
	funcMap template.FuncMap
}

// NewTemplateExpander creates a new template expander with built-in functions.
func NewTemplateExpander() *TemplateExpander {
	return &TemplateExpander{
		funcMap: template.FuncMap{
			"slugify": Slugify,
			"replace": Replace,
			"upper":   strings.ToUpper,
			"lower":   strings.ToLower,
			"default": Default,
			"env":     os.Getenv,
		},
	}
}

// Expand expands template variables in a string value.
func (e *TemplateExpander) Expand(value string, ctx *TemplateContext) (string, error) {
	if !strings.Contains(value, "{{") {
		return value, nil
	}

	tmpl, err := template.New("").Funcs(e.funcMap).Option("missingkey=error").Parse(value)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ExpandConfig expands template variables in every path, URL and secret of
// cfg. It returns a copy; cfg is not modified.
func (e *TemplateExpander) ExpandConfig(cfg *Config, ctx *TemplateContext) (*Config, error) {
	expanded := *cfg

	fields := []*string{
		&expanded.Identity.Contact,
		&expanded.Server.TLSCert,
		&expanded.Server.TLSKey,
		&expanded.Remote.DSN,
		&expanded.Cache.Path,
		&expanded.Cache.RedisURL,
		&expanded.Cache.Prefix,
		&expanded.Narrative.Endpoint,
		&expanded.Narrative.APIKey,
	}
	for _, f := range fields {
		v, err := e.Expand(*f, ctx)
		if err != nil {
			return nil, err
		}
		*f = v
	}
	return &expanded, nil
}

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9-]+`)
	slugDashes  = regexp.MustCompile(`-+`)
)

// Slugify converts a string to a URL-friendly slug.
func Slugify(s string) string {
	s = strings.ToLower(s)

	// Replace common separators with hyphens
	s = strings.NewReplacer("/", "-", "_", "-", ".", "-", " ", "-").Replace(s)

	s = slugInvalid.ReplaceAllString(s, "")
	s = slugDashes.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Replace replaces all occurrences of old with new in s.
func Replace(old, new, s string) string {
	return strings.ReplaceAll(s, old, new)
}

// Default returns the value if non-empty, otherwise the default.
func Default(defaultVal, value string) string {
	if value == "" {
		return defaultVal
	}
	return value
}
