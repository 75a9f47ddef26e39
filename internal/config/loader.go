// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hjson/hjson-go/v4"
	"gopkg.in/yaml.v3"
)

// Loader handles configuration file loading.
type Loader struct{}

// NewLoader creates a new config loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads and parses the configuration from the given path. Files ending
// in .yaml or .yml are parsed as YAML, everything else as HJSON.
func (l *Loader) Load(ctx context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var cfg Config
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
		return &cfg, nil
	}

	// Parse HJSON to intermediate map
	var raw map[string]interface{}
	if err := hjson.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse hjson: %w", err)
	}

	// Convert to JSON and unmarshal to struct (for type safety)
	jsonData, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("convert to json: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(jsonData, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads config, applies defaults and expands templates
// relative to the config file's directory.
func (l *Loader) LoadWithDefaults(ctx context.Context, path string) (*Config, error) {
	cfg, err := l.Load(ctx, path)
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	root, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		root = filepath.Dir(path)
	}
	home, _ := os.UserHomeDir()
	expanded, err := NewTemplateExpander().ExpandConfig(cfg, &TemplateContext{
		Project: ProjectTemplateData{Root: root, Name: filepath.Base(root)},
		Home:    home,
	})
	if err != nil {
		return nil, fmt.Errorf("expand config: %w", err)
	}
	return expanded, nil
}

// configNames lists the file names FindConfig looks for, in order.
var configNames = []string{
	"casewatch.hjson",
	"casewatch.json",
	"casewatch.yaml",
	"casewatch.yml",
}

// FindConfig searches for a config file in the current directory.
func (l *Loader) FindConfig() (string, error) {
	for _, name := range configNames {
		path := filepath.Join(".", name)
		if _, err := os.Stat(path); err == nil {
			abs, err := filepath.Abs(path)
			if err != nil {
				return path, nil
			}
			return abs, nil
		}
	}

	return "", fmt.Errorf("config file not found (looked for %s)", strings.Join(configNames, ", "))
}

// applyDefaults sets default values for missing config fields.
func applyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 1040
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}

	if cfg.Identity.Locale == "" {
		cfg.Identity.Locale = "en"
	}

	// Remote defaults
	if cfg.Remote.Driver == "" {
		cfg.Remote.Driver = "postgres"
	}
	if cfg.Remote.Channel == "" {
		cfg.Remote.Channel = "cases_changed"
	}

	// Cache defaults
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "file"
	}
	if cfg.Cache.Path == "" {
		switch cfg.Cache.Backend {
		case "file":
			cfg.Cache.Path = "{{.Project.Root}}/.casewatch/cache.json"
		case "sqlite":
			cfg.Cache.Path = "{{.Project.Root}}/.casewatch/cache.db"
		}
	}
	if cfg.Cache.Prefix == "" {
		cfg.Cache.Prefix = "casewatch:"
	}

	// Sync defaults
	if cfg.Sync.RefreshInterval == "" {
		cfg.Sync.RefreshInterval = "5m"
	}
	if cfg.Sync.Debounce == "" {
		cfg.Sync.Debounce = "500ms"
	}

	// Watch defaults
	if cfg.Watch.Debounce == "" {
		cfg.Watch.Debounce = "100ms"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	// Events defaults
	if cfg.Events.History.MaxEvents == 0 {
		cfg.Events.History.MaxEvents = 10000
	}
	if cfg.Events.History.MaxAge == "" {
		cfg.Events.History.MaxAge = "1h"
	}

	if cfg.Narrative.Timeout == "" {
		cfg.Narrative.Timeout = "30s"
	}
}
