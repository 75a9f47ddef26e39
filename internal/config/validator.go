// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validator validates configuration against schema rules.
type Validator struct{}

// NewValidator creates a new config validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidationError contains multiple validation failures.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single field validation error.
type FieldError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	var msgs []string
	for _, fe := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return strings.Join(msgs, "; ")
}

// IsEmpty returns true if there are no validation errors.
func (e *ValidationError) IsEmpty() bool {
	return len(e.Errors) == 0
}

// Add adds a field error.
func (e *ValidationError) Add(field, message string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: message})
}

// Validate checks configuration validity. Every problem is reported, not
// just the first.
func (v *Validator) Validate(cfg *Config) error {
	errs := &ValidationError{}

	v.validateRequired(cfg, errs)
	v.validateIdentity(cfg, errs)
	v.validateServer(cfg, errs)
	v.validateRemote(cfg, errs)
	v.validateCache(cfg, errs)
	v.validateLogging(cfg, errs)
	v.validateNarrative(cfg, errs)
	v.validateDurations(cfg, errs)

	if errs.IsEmpty() {
		return nil
	}
	return errs
}

func oneOf(field, value string, allowed []string, errs *ValidationError) {
	if value == "" {
		return
	}
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	errs.Add(field, fmt.Sprintf("invalid value '%s', must be one of: %s", value, strings.Join(allowed, ", ")))
}

func (v *Validator) validateRequired(cfg *Config, errs *ValidationError) {
	if cfg.Version == "" {
		errs.Add("version", "is required")
	}
}

func (v *Validator) validateIdentity(cfg *Config, errs *ValidationError) {
	if c := cfg.Identity.Contact; c != "" && strings.ContainsAny(strings.TrimSpace(c), " \t\n") {
		errs.Add("identity.contact", "must not contain whitespace")
	}
	oneOf("identity.locale", cfg.Identity.Locale, []string{"en", "es", "pt"}, errs)
}

func (v *Validator) validateServer(cfg *Config, errs *ValidationError) {
	if cfg.Server.Port != 0 {
		if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
			errs.Add("server.port", "must be between 0 and 65535")
		}
	}
	if (cfg.Server.TLSCert == "") != (cfg.Server.TLSKey == "") {
		errs.Add("server.tls_cert", "tls_cert and tls_key must be set together")
	}
}

func (v *Validator) validateRemote(cfg *Config, errs *ValidationError) {
	oneOf("remote.driver", cfg.Remote.Driver, []string{"postgres", "memory"}, errs)
	if cfg.Remote.Driver == "postgres" && cfg.Remote.DSN == "" {
		errs.Add("remote.dsn", "is required for the postgres driver")
	}
	if cfg.Remote.MigrateTo < 0 {
		errs.Add("remote.migrate_to", "must not be negative")
	}
}

func (v *Validator) validateCache(cfg *Config, errs *ValidationError) {
	oneOf("cache.backend", cfg.Cache.Backend, []string{"file", "sqlite", "redis", "memory"}, errs)
	switch cfg.Cache.Backend {
	case "file", "sqlite":
		if cfg.Cache.Path == "" {
			errs.Add("cache.path", "is required for the "+cfg.Cache.Backend+" backend")
		}
	case "redis":
		if cfg.Cache.RedisURL == "" {
			errs.Add("cache.redis_url", "is required for the redis backend")
		} else if u, err := url.Parse(cfg.Cache.RedisURL); err != nil || (u.Scheme != "redis" && u.Scheme != "rediss") {
			errs.Add("cache.redis_url", "must be a redis:// or rediss:// URL")
		}
	}
}

func (v *Validator) validateLogging(cfg *Config, errs *ValidationError) {
	oneOf("logging.level", cfg.Logging.Level, []string{"debug", "info", "warn", "error"}, errs)
	oneOf("logging.format", cfg.Logging.Format, []string{"json", "text"}, errs)
}

func (v *Validator) validateNarrative(cfg *Config, errs *ValidationError) {
	if cfg.Narrative.Endpoint == "" {
		return
	}
	u, err := url.Parse(cfg.Narrative.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs.Add("narrative.endpoint", "must be an http or https URL")
	}
}

func (v *Validator) validateDurations(cfg *Config, errs *ValidationError) {
	durations := []struct {
		field string
		value string
	}{
		{"sync.refresh_interval", cfg.Sync.RefreshInterval},
		{"sync.debounce", cfg.Sync.Debounce},
		{"watch.debounce", cfg.Watch.Debounce},
		{"events.history.max_age", cfg.Events.History.MaxAge},
		{"narrative.timeout", cfg.Narrative.Timeout},
	}
	for _, d := range durations {
		if d.value == "" || d.value == "0" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			errs.Add(d.field, fmt.Sprintf("invalid duration format: %s", err))
		} else if parsed < 0 {
			errs.Add(d.field, "must be positive")
		}
	}
}
