// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/wingedpig/casewatch/internal/api/handlers"
	"github.com/wingedpig/casewatch/internal/api/middleware"
	"github.com/wingedpig/casewatch/internal/api/version"
	"github.com/wingedpig/casewatch/internal/controller"
	"github.com/wingedpig/casewatch/internal/events"
)

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	Host    string
	Port    int
	TLSCert string // Path to TLS certificate file
	TLSKey  string // Path to TLS private key file
}

// Dependencies holds all dependencies for API handlers.
type Dependencies struct {
	Controller *controller.Controller
	EventBus   events.EventBus
	Locale     string // default narrative locale
	Version    string // application version string
}

// Paths that stay writable in maintenance mode.
var maintenanceExempt = []string{
	"/api/v1/config",
	"/api/v1/admin",
	"/api/v1/connection",
	"/api/v1/notify",
}

// NewRouter creates a new API router.
func NewRouter(deps Dependencies) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.Logging)
	r.Use(middleware.Recovery)
	r.Use(middleware.CORS)
	r.Use(version.Middleware)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"version": deps.Version,
			"offline": deps.Controller.Offline(),
		})
	}).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Maintenance(func(req *http.Request) bool {
		return deps.Controller.Config(req.Context()).MaintenanceMode
	}, maintenanceExempt...))

	// Case handlers
	caseHandler := handlers.NewCaseHandler(deps.Controller, deps.Locale)
	api.HandleFunc("/cases", caseHandler.List).Methods("GET")
	api.HandleFunc("/cases", caseHandler.Create).Methods("POST")
	api.HandleFunc("/cases/{id}", caseHandler.Get).Methods("GET")
	api.HandleFunc("/cases/{id}", caseHandler.Update).Methods("PUT")
	api.HandleFunc("/cases/{id}", caseHandler.Delete).Methods("DELETE")
	api.HandleFunc("/cases/{id}/checkin", caseHandler.CheckIn).Methods("POST")
	api.HandleFunc("/cases/{id}/claim", caseHandler.Claim).Methods("POST")
	api.HandleFunc("/cases/{id}/restore", caseHandler.Restore).Methods("POST")
	api.HandleFunc("/cases/{id}/purge", caseHandler.Purge).Methods("DELETE")
	api.HandleFunc("/cases/{id}/prediction", caseHandler.Prediction).Methods("GET")
	api.HandleFunc("/me", caseHandler.Mine).Methods("GET")
	api.HandleFunc("/bin", caseHandler.Bin).Methods("GET")
	api.HandleFunc("/stats", caseHandler.Stats).Methods("GET")
	api.HandleFunc("/stats/ghosts", caseHandler.Ghosts).Methods("GET")
	api.HandleFunc("/summary", caseHandler.Summary).Methods("GET")

	// Config and admin handlers
	adminHandler := handlers.NewAdminHandler(deps.Controller)
	api.HandleFunc("/config", adminHandler.GetConfig).Methods("GET")
	api.HandleFunc("/config", adminHandler.PutConfig).Methods("PUT")
	api.HandleFunc("/connection/verify", adminHandler.Verify).Methods("POST")
	api.HandleFunc("/admin/purge", adminHandler.Purge).Methods("POST")
	api.HandleFunc("/admin/audit", adminHandler.Audit).Methods("GET")

	// Event handlers
	eventHandler := handlers.NewEventHandler(deps.EventBus)
	api.HandleFunc("/events", eventHandler.History).Methods("GET")
	api.HandleFunc("/events/ws", eventHandler.WebSocket).Methods("GET")

	notifyHandler := handlers.NewNotifyHandler(deps.EventBus)
	api.HandleFunc("/notify", notifyHandler.Notify).Methods("POST")

	// Middleware only runs on a matched route, so preflights need one.
	r.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return r
}

// Server represents the API server.
type Server struct {
	router *mux.Router
	cfg    ServerConfig
	server *http.Server
}

// NewServer creates a new API server.
func NewServer(cfg ServerConfig, deps Dependencies) *Server {
	s := &Server{
		router: NewRouter(deps),
		cfg:    cfg,
	}
	s.server = &http.Server{
		Addr:              s.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router returns the underlying router.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
}

// ListenAndServe starts the server. TLS is used when both tls_cert and
// tls_key are configured. It returns nil after Shutdown.
func (s *Server) ListenAndServe() error {
	addr := s.Addr()
	tlsEnabled, err := CheckTLSConfig(s.cfg.TLSCert, s.cfg.TLSKey)
	if err != nil {
		return fmt.Errorf("TLS configuration error: %w", err)
	}

	if tlsEnabled {
		slog.Info("API server listening", "url", "https://"+addr)
		err = s.server.ListenAndServeTLS(expandPath(s.cfg.TLSCert), expandPath(s.cfg.TLSKey))
	} else {
		slog.Info("API server listening", "url", "http://"+addr)
		err = s.server.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down API server")

	shutdownCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
	}

	return s.server.Shutdown(shutdownCtx)
}
