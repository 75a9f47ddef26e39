// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config handles HJSON and YAML configuration loading and template
// expansion.
package config

import (
	"time"
)

// Config is the root configuration structure for casewatch.
type Config struct {
	Version   string          `json:"version" yaml:"version"`
	Identity  IdentityConfig  `json:"identity" yaml:"identity"`
	Server    ServerConfig    `json:"server" yaml:"server"`
	Remote    RemoteConfig    `json:"remote" yaml:"remote"`
	Cache     CacheConfig     `json:"cache" yaml:"cache"`
	Sync      SyncConfig      `json:"sync" yaml:"sync"`
	Events    EventsConfig    `json:"events" yaml:"events"`
	Watch     WatchConfig     `json:"watch" yaml:"watch"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging"`
	Narrative NarrativeConfig `json:"narrative" yaml:"narrative"`
}

// IdentityConfig names the session owner. The API shows owner contacts
// only when they match Contact.
type IdentityConfig struct {
	Contact string `json:"contact" yaml:"contact"`
	Locale  string `json:"locale" yaml:"locale"` // "en", "es", "pt"
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port    int    `json:"port" yaml:"port"`
	Host    string `json:"host" yaml:"host"`
	TLSCert string `json:"tls_cert" yaml:"tls_cert"` // Path to TLS certificate file (enables HTTPS if both cert and key set)
	TLSKey  string `json:"tls_key" yaml:"tls_key"`   // Path to TLS private key file
}

// RemoteConfig selects the shared case collection.
type RemoteConfig struct {
	Driver    string `json:"driver" yaml:"driver"` // "postgres" or "memory"
	DSN       string `json:"dsn" yaml:"dsn"`
	Channel   string `json:"channel" yaml:"channel"`       // LISTEN channel for change notifications
	Migrate   bool   `json:"migrate" yaml:"migrate"`       // run embedded migrations at startup
	MigrateTo int64  `json:"migrate_to" yaml:"migrate_to"` // 0 means latest
}

// CacheConfig selects the local durable cache.
type CacheConfig struct {
	Backend  string `json:"backend" yaml:"backend"` // "file", "sqlite", "redis", "memory"
	Path     string `json:"path" yaml:"path"`
	RedisURL string `json:"redis_url" yaml:"redis_url"`
	Prefix   string `json:"prefix" yaml:"prefix"`
}

// SyncConfig tunes the sync controller.
type SyncConfig struct {
	RefreshInterval string `json:"refresh_interval" yaml:"refresh_interval"` // "0" disables periodic refresh
	Debounce        string `json:"debounce" yaml:"debounce"`
}

// EventsConfig configures the event system.
type EventsConfig struct {
	History HistoryConfig `json:"history" yaml:"history"`
}

// HistoryConfig configures event history retention.
type HistoryConfig struct {
	MaxEvents int    `json:"max_events" yaml:"max_events"`
	MaxAge    string `json:"max_age" yaml:"max_age"`
}

// WatchConfig configures config file watching.
type WatchConfig struct {
	Config   *bool  `json:"config" yaml:"config"` // reload on change, default true
	Debounce string `json:"debounce" yaml:"debounce"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`   // "debug", "info", "warn", "error"
	Format string `json:"format" yaml:"format"` // "json", "text"
}

// NarrativeConfig configures the optional prose generator.
type NarrativeConfig struct {
	Endpoint string `json:"endpoint" yaml:"endpoint"` // empty uses canned text only
	APIKey   string `json:"api_key" yaml:"api_key"`
	Timeout  string `json:"timeout" yaml:"timeout"`
}

// TemplateContext provides data for template expansion.
type TemplateContext struct {
	Project ProjectTemplateData
	Home    string
}

// ProjectTemplateData provides project data for templates.
type ProjectTemplateData struct {
	Root string // directory holding the config file
	Name string // base name of Root
}

// ParseDuration parses a duration string, returning a default if empty.
func ParseDuration(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	if s == "0" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// WatchesConfig reports whether the config file should be reloaded on
// change.
func (w WatchConfig) WatchesConfig() bool {
	if w.Config == nil {
		return true
	}
	return *w.Config
}
