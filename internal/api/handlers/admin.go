// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/wingedpig/casewatch/internal/cases"
	"github.com/wingedpig/casewatch/internal/controller"
	"github.com/wingedpig/casewatch/internal/store"
)

// AdminHandler serves global configuration and destructive maintenance.
type AdminHandler struct {
	ctl *controller.Controller
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(ctl *controller.Controller) *AdminHandler {
	return &AdminHandler{ctl: ctl}
}

// GetConfig returns the global configuration.
func (h *AdminHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.ctl.Config(r.Context()))
}

// PutConfig replaces the global configuration.
func (h *AdminHandler) PutConfig(w http.ResponseWriter, r *http.Request) {
	var cfg cases.GlobalConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "invalid JSON")
		return
	}
	WriteResult(w, h.ctl.SetMaintenance(r.Context(), cfg.MaintenanceMode), cfg, nil)
}

// VerifyResponse is returned by POST /connection/verify.
type VerifyResponse struct {
	Connected bool `json:"connected"`
	Records   int  `json:"records"`
}

// Verify probes the remote store.
func (h *AdminHandler) Verify(w http.ResponseWriter, r *http.Request) {
	n, err := h.ctl.VerifyConnection(r.Context())
	if err != nil {
		status, code := errorStatus(err)
		WriteError(w, status, code, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, VerifyResponse{Connected: true, Records: n})
}

// Purge deletes every case. The body must carry the confirmation phrase and
// the number of records the caller expects to remove.
func (h *AdminHandler) Purge(w http.ResponseWriter, r *http.Request) {
	var confirm store.PurgeConfirmation
	if err := json.NewDecoder(r.Body).Decode(&confirm); err != nil {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "invalid JSON")
		return
	}
	res := h.ctl.PurgeAll(r.Context(), confirm)
	WriteResult(w, res, map[string]int{"purged": confirm.ExpectedCount}, nil)
}

// Audit returns the local write log.
func (h *AdminHandler) Audit(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.ctl.Audit(r.Context()))
}
