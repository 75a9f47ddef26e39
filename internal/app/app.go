// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package app wires the casewatch components together and runs them.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/wingedpig/casewatch/internal/api"
	"github.com/wingedpig/casewatch/internal/config"
	"github.com/wingedpig/casewatch/internal/controller"
	"github.com/wingedpig/casewatch/internal/events"
	"github.com/wingedpig/casewatch/internal/localcache"
	"github.com/wingedpig/casewatch/internal/logging"
	"github.com/wingedpig/casewatch/internal/narrative"
	"github.com/wingedpig/casewatch/internal/remote"
	"github.com/wingedpig/casewatch/internal/store"
	"github.com/wingedpig/casewatch/internal/watcher"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

// App is the main application container.
type App struct {
	mu sync.Mutex

	configPath string
	version    string
	debug      bool
	config     *config.Config

	logger        *logging.Logger
	eventBus      events.EventBus
	remote        remote.Store
	cache         localcache.Cache
	store         *store.Store
	controller    *controller.Controller
	configWatcher *watcher.ConfigWatcher
	apiServer     *api.Server

	done     chan struct{}
	stopOnce sync.Once
}

// Options holds configuration options for the app.
type Options struct {
	ConfigPath string
	Host       string
	Port       int
	Debug      bool
	Version    string // Application version string
}

// New loads and validates the configuration and sets up logging and the
// event bus. Nothing touches the network until Initialize.
func New(opts Options) (*App, error) {
	app := &App{
		configPath: opts.ConfigPath,
		version:    opts.Version,
		debug:      opts.Debug,
		done:       make(chan struct{}),
	}

	cfg, err := app.loadConfig(context.Background())
	if err != nil {
		return nil, err
	}
	if opts.Host != "" {
		cfg.Server.Host = opts.Host
	}
	if opts.Port > 0 {
		cfg.Server.Port = opts.Port
	}
	app.config = cfg

	app.logger = logging.Setup(cfg.Logging)
	app.eventBus = events.NewMemoryEventBus(events.MemoryBusConfig{
		HistoryMaxEvents: cfg.Events.History.MaxEvents,
		HistoryMaxAge:    config.ParseDuration(cfg.Events.History.MaxAge, time.Hour),
	})

	return app, nil
}

// loadConfig reads, defaults and validates the config file.
func (app *App) loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.NewLoader().LoadWithDefaults(ctx, app.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.NewValidator().Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if app.debug {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// refreshInterval converts the configured interval; "0" disables the
// periodic refresh.
func refreshInterval(cfg *config.Config) time.Duration {
	d := config.ParseDuration(cfg.Sync.RefreshInterval, 5*time.Minute)
	if d == 0 {
		return -1
	}
	return d
}

// openRemote connects the configured shared store.
func openRemote(ctx context.Context, cfg config.RemoteConfig) (remote.Store, error) {
	switch cfg.Driver {
	case "memory":
		slog.Warn("using the in-memory remote store; cases are not shared")
		return remote.NewMemoryStore(), nil
	case "", "postgres":
		return remote.OpenPostgres(ctx, remote.PostgresOptions{
			DSN:       cfg.DSN,
			Channel:   cfg.Channel,
			Migrate:   cfg.Migrate,
			MigrateTo: cfg.MigrateTo,
		})
	default:
		return nil, fmt.Errorf("unknown remote driver %q", cfg.Driver)
	}
}

// Initialize sets up all components.
func (app *App) Initialize(ctx context.Context) error {
	cfg := app.config

	r, err := openRemote(ctx, cfg.Remote)
	if err != nil {
		return fmt.Errorf("remote store: %w", err)
	}
	app.remote = r

	cache, err := localcache.Open(ctx, localcache.Options{
		Backend:  cfg.Cache.Backend,
		Path:     cfg.Cache.Path,
		RedisURL: cfg.Cache.RedisURL,
		Prefix:   cfg.Cache.Prefix,
	})
	if err != nil {
		return fmt.Errorf("local cache: %w", err)
	}
	app.cache = cache
	slog.Info("local cache ready", "backend", cfg.Cache.Backend, "path", cfg.Cache.Path)

	app.store = store.New(r, cache)

	var gen narrative.Generator
	if cfg.Narrative.Endpoint != "" {
		gen = narrative.NewHTTPGenerator(cfg.Narrative.Endpoint, cfg.Narrative.APIKey,
			config.ParseDuration(cfg.Narrative.Timeout, 30*time.Second))
		slog.Info("narrative generator enabled", "endpoint", cfg.Narrative.Endpoint)
	}

	app.controller = controller.New(app.store, app.eventBus, controller.Options{
		Viewer:          cfg.Identity.Contact,
		RefreshInterval: refreshInterval(cfg),
		Debounce:        config.ParseDuration(cfg.Sync.Debounce, 500*time.Millisecond),
		Generator:       gen,
	})

	app.apiServer = api.NewServer(api.ServerConfig{
		Host:    cfg.Server.Host,
		Port:    cfg.Server.Port,
		TLSCert: cfg.Server.TLSCert,
		TLSKey:  cfg.Server.TLSKey,
	}, api.Dependencies{
		Controller: app.controller,
		EventBus:   app.eventBus,
		Locale:     cfg.Identity.Locale,
		Version:    app.version,
	})

	if cfg.Watch.WatchesConfig() && app.configPath != "" {
		w, err := watcher.NewConfigWatcher(app.configPath,
			config.ParseDuration(cfg.Watch.Debounce, 100*time.Millisecond), app.eventBus, app.reloadConfig)
		if err != nil {
			slog.Warn("config hot reload disabled", "error", err)
		} else {
			app.configWatcher = w
		}
	}

	return nil
}

// reloadConfig applies the settings that can change at runtime: log level,
// refresh interval and watcher debounce. Everything else needs a restart.
func (app *App) reloadConfig(string) error {
	cfg, err := app.loadConfig(context.Background())
	if err != nil {
		return err
	}

	app.mu.Lock()
	prev := app.config
	app.config = cfg
	ctl, w := app.controller, app.configWatcher
	app.mu.Unlock()

	if ctl == nil {
		return nil
	}
	app.logger.Apply(cfg.Logging)
	ctl.SetRefreshInterval(refreshInterval(cfg))
	if w != nil {
		w.SetDebounce(config.ParseDuration(cfg.Watch.Debounce, 100*time.Millisecond))
	}

	if prev.Remote != cfg.Remote || prev.Cache != cfg.Cache || prev.Server.Port != cfg.Server.Port ||
		prev.Server.Host != cfg.Server.Host || prev.Identity != cfg.Identity {
		slog.Warn("some configuration changes take effect after a restart")
	}
	return nil
}

// Run starts the app and blocks until a signal, ctx ending, Stop, or a
// component failing.
func (app *App) Run(ctx context.Context) error {
	if err := app.Initialize(ctx); err != nil {
		app.Shutdown(context.Background())
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.controller.Start(ctx); err != nil {
		app.Shutdown(context.Background())
		return fmt.Errorf("start controller: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := app.apiServer.ListenAndServe(); err != nil {
			return fmt.Errorf("API server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-app.done:
			slog.Info("shutdown requested")
		}
		return app.Shutdown(context.Background())
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down all components. Safe to call more than once.
func (app *App) Shutdown(ctx context.Context) error {
	app.mu.Lock()
	defer app.mu.Unlock()

	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	var errs []error
	if app.apiServer != nil {
		if err := app.apiServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("API server: %w", err))
		}
		app.apiServer = nil
	}
	if app.configWatcher != nil {
		app.configWatcher.Close()
		app.configWatcher = nil
	}
	if app.controller != nil {
		app.controller.Close()
		app.controller = nil
	}
	if app.cache != nil {
		if err := app.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("local cache: %w", err))
		}
		app.cache = nil
	}
	if app.remote != nil {
		if err := app.remote.Close(); err != nil {
			errs = append(errs, fmt.Errorf("remote store: %w", err))
		}
		app.remote = nil
	}
	if app.eventBus != nil {
		app.eventBus.Close()
		app.eventBus = nil
	}

	slog.Info("shutdown complete")
	return errors.Join(errs...)
}

// Stop signals the app to shut down. Safe to call multiple times.
func (app *App) Stop() {
	app.stopOnce.Do(func() {
		close(app.done)
	})
}

// Config returns the active configuration.
func (app *App) Config() *config.Config {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.config
}
