// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/wingedpig/casewatch/internal/config"
)

// Logger owns the installed handler's level so it can change without
// rebuilding the handler.
type Logger struct {
	level  slog.LevelVar
	format string
	*slog.Logger
}

// ParseLevel maps a config level name to a slog level. Unknown names are info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a logger writing to w in the configured format.
func New(cfg config.LoggingConfig, w io.Writer) *Logger {
	l := &Logger{format: cfg.Format}
	l.level.Set(ParseLevel(cfg.Level))

	opts := &slog.HandlerOptions{Level: &l.level}
	var h slog.Handler
	if cfg.Format == "text" {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	l.Logger = slog.New(h)
	return l
}

// Setup installs a stderr logger as the slog default.
func Setup(cfg config.LoggingConfig) *Logger {
	l := New(cfg, os.Stderr)
	slog.SetDefault(l.Logger)
	return l
}

// Apply updates the level from a reloaded config. The output format is fixed
// for the life of the process; a change is reported and otherwise ignored.
func (l *Logger) Apply(cfg config.LoggingConfig) {
	next := ParseLevel(cfg.Level)
	if prev := l.level.Level(); prev != next {
		l.level.Set(next)
		l.Info("log level changed", "from", prev.String(), "to", next.String())
	}
	if cfg.Format != "" && cfg.Format != l.format {
		l.Warn("log format change requires a restart", "format", cfg.Format)
	}
}

// Level returns the current minimum level.
func (l *Logger) Level() slog.Level {
	return l.level.Level()
}
