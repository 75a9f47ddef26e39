// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/wingedpig/casewatch/internal/events"
)

const configKey = "config"

// ConfigWatcher watches a single configuration file and runs a callback
// after it settles. The parent directory is watched so editors that save
// by rename are still noticed.
type ConfigWatcher struct {
	mu        sync.Mutex
	path      string
	bus       events.EventBus
	onChange  func(path string) error
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	closed    bool
	closeCh   chan struct{}
	wg        sync.WaitGroup
}

// NewConfigWatcher starts watching path. onChange is called once per burst
// of writes; a nil error publishes config.reloaded on bus.
func NewConfigWatcher(path string, debounce time.Duration, bus events.EventBus, onChange func(path string) error) (*ConfigWatcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fsWatcher.Add(filepath.Dir(absPath)); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(absPath), err)
	}

	w := &ConfigWatcher{
		path:      absPath,
		bus:       bus,
		onChange:  onChange,
		watcher:   fsWatcher,
		debouncer: NewDebouncer(debounce, 0),
		closeCh:   make(chan struct{}),
	}

	w.wg.Add(1)
	go w.processEvents()

	return w, nil
}

// Path returns the absolute path being watched.
func (w *ConfigWatcher) Path() string {
	return w.path
}

// SetDebounce sets the debounce duration.
func (w *ConfigWatcher) SetDebounce(d time.Duration) {
	w.debouncer.SetQuiet(d)
}

// Close stops the watcher and releases resources.
func (w *ConfigWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	w.debouncer.Stop()
	err := w.watcher.Close()
	w.wg.Wait()

	return err
}

func (w *ConfigWatcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("config watcher error", "path", w.path, "error", err)
		}
	}
}

func (w *ConfigWatcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	// Chmod alone does not change content.
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}
	w.debouncer.Trigger(configKey, func(int) { w.reload() })
}

func (w *ConfigWatcher) reload() {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return
	}

	info, err := os.Stat(w.path)
	if err != nil {
		// Mid-rename; the Create that follows triggers another reload.
		return
	}

	if w.onChange != nil {
		if err := w.onChange(w.path); err != nil {
			slog.Error("config reload failed", "path", w.path, "error", err)
			if w.bus != nil {
				w.bus.Publish(context.Background(), events.Notice(events.EventNoticeError, "",
					fmt.Sprintf("Configuration not reloaded: %v", err)))
			}
			return
		}
	}

	slog.Info("config reloaded", "path", w.path)
	if w.bus != nil {
		w.bus.Publish(context.Background(), events.Event{
			Type: events.EventConfigReloaded,
			Payload: map[string]interface{}{
				"path":       w.path,
				"modTime":    info.ModTime(),
				"modTimeStr": info.ModTime().Format(time.RFC3339),
			},
		})
	}
}
