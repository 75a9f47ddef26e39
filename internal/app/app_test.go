// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, level string) string {
	t.Helper()
	path := filepath.Join(dir, "casewatch.hjson")
	content := fmt.Sprintf(`{
		version: "1"
		identity: { contact: "me@example.com" }
		remote: { driver: "memory" }
		cache: { backend: "memory" }
		sync: { refresh_interval: "0" }
		watch: { config: false }
		logging: { level: %q, format: "text" }
	}`, level)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestNew_AppliesOverrides(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "info")

	a, err := New(Options{ConfigPath: path, Host: "0.0.0.0", Port: 9123, Debug: true})
	require.NoError(t, err)
	defer a.Shutdown(context.Background())

	cfg := a.Config()
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 9123, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, slog.LevelDebug, a.logger.Level())
}

func TestNew_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "casewatch.hjson")
	require.NoError(t, os.WriteFile(path, []byte(`{ version: "1", remote: { driver: "mysql" } }`), 0644))

	_, err := New(Options{ConfigPath: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remote.driver")
}

func TestRefreshInterval(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "info")
	a, err := New(Options{ConfigPath: path})
	require.NoError(t, err)
	defer a.Shutdown(context.Background())

	cfg := a.Config()
	assert.Equal(t, time.Duration(-1), refreshInterval(cfg))
	cfg.Sync.RefreshInterval = "90s"
	assert.Equal(t, 90*time.Second, refreshInterval(cfg))
}

func TestReloadConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "info")

	a, err := New(Options{ConfigPath: path})
	require.NoError(t, err)
	require.NoError(t, a.Initialize(context.Background()))
	defer a.Shutdown(context.Background())
	assert.Equal(t, slog.LevelInfo, a.logger.Level())

	writeConfig(t, dir, "warn")
	require.NoError(t, a.reloadConfig(path))
	assert.Equal(t, slog.LevelWarn, a.logger.Level())
	assert.Equal(t, "warn", a.Config().Logging.Level)

	require.NoError(t, os.WriteFile(path, []byte(`{ version: "1", logging: { level: "loud" } }`), 0644))
	assert.Error(t, a.reloadConfig(path))
	assert.Equal(t, slog.LevelWarn, a.logger.Level(), "a bad file leaves the running config alone")
}

func TestRun_ServesUntilStopped(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "error")
	port := freePort(t)

	a, err := New(Options{ConfigPath: path, Port: port, Version: "test"})
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- a.Run(context.Background()) }()

	url := fmt.Sprintf("http://127.0.0.1:%d/healthz", port)
	assert.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	a.Stop()
	a.Stop()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
}

func TestRun_ContextCancel(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "error")

	a, err := New(Options{ConfigPath: path, Port: freePort(t)})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- a.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
