// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateExpander_Expand(t *testing.T) {
	expander := NewTemplateExpander()
	ctx := &TemplateContext{
		Project: ProjectTemplateData{Root: "/home/user/cases", Name: "My Cases"},
		Home:    "/home/user",
	}
	t.Setenv("CASEWATCH_TEST_PW", "s3cret")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no template", "/var/lib/cache.json", "/var/lib/cache.json"},
		{"project root", "{{.Project.Root}}/.casewatch/cache.db", "/home/user/cases/.casewatch/cache.db"},
		{"home", "{{.Home}}/cache.json", "/home/user/cache.json"},
		{"slugify", "casewatch:{{slugify .Project.Name}}:", "casewatch:my-cases:"},
		{"env", "postgres://u:{{env \"CASEWATCH_TEST_PW\"}}@db/cases", "postgres://u:s3cret@db/cases"},
		{"default", `{{default "fallback" (env "CASEWATCH_UNSET_VAR")}}`, "fallback"},
		{"upper", "{{upper .Project.Name}}", "MY CASES"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expander.Expand(tt.input, ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestTemplateExpander_Expand_Errors(t *testing.T) {
	expander := NewTemplateExpander()
	_, err := expander.Expand("{{.Project.Root", &TemplateContext{})
	assert.Error(t, err)

	_, err = expander.Expand("{{.Nope}}", &TemplateContext{})
	assert.Error(t, err)
}

func TestTemplateExpander_ExpandConfig(t *testing.T) {
	cfg := &Config{
		Remote:    RemoteConfig{DSN: "postgres://{{.Project.Name}}"},
		Cache:     CacheConfig{Path: "{{.Project.Root}}/c.json"},
		Narrative: NarrativeConfig{Endpoint: "http://localhost:9000"},
	}
	ctx := &TemplateContext{Project: ProjectTemplateData{Root: "/srv", Name: "cases"}}

	out, err := NewTemplateExpander().ExpandConfig(cfg, ctx)
	require.NoError(t, err)
	assert.Equal(t, "postgres://cases", out.Remote.DSN)
	assert.Equal(t, "/srv/c.json", out.Cache.Path)
	assert.Equal(t, "http://localhost:9000", out.Narrative.Endpoint)
	assert.Equal(t, "{{.Project.Root}}/c.json", cfg.Cache.Path, "input is not modified")
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "feature-auth", Slugify("feature/auth"))
	assert.Equal(t, "my-project", Slugify("My_Project"))
	assert.Equal(t, "a-b", Slugify("--a...b--"))
	assert.Equal(t, "", Slugify("!!!"))
}
