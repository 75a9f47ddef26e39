// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/wingedpig/casewatch/internal/cases"
	"github.com/wingedpig/casewatch/internal/controller"
	"github.com/wingedpig/casewatch/internal/duration"
)

// CaseHandler handles case API requests. Every case leaving the handler is
// passed through Case.ViewFor so only the session owner's contact is shown.
type CaseHandler struct {
	ctl    *controller.Controller
	locale string
}

// NewCaseHandler creates a new case handler. defaultLocale is used for
// narrative text when the request names none.
func NewCaseHandler(ctl *controller.Controller, defaultLocale string) *CaseHandler {
	return &CaseHandler{ctl: ctl, locale: defaultLocale}
}

// CaseView is a case as returned by the API.
type CaseView struct {
	cases.Case
	Pending bool `json:"pending_sync"`
}

// MutationResponse is returned by every optimistic write.
type MutationResponse struct {
	Case       cases.Case `json:"case"`
	RolledBack bool       `json:"rolled_back"`
}

func (h *CaseHandler) view(c cases.Case) cases.Case {
	return c.ViewFor(h.ctl.Viewer())
}

func (h *CaseHandler) views(list []cases.Case) []cases.Case {
	out := make([]cases.Case, len(list))
	for i, c := range list {
		out[i] = h.view(c)
	}
	return out
}

// parseFilter reads a controller.Filter from the query string.
func parseFilter(r *http.Request) (controller.Filter, error) {
	q := r.URL.Query()
	f := controller.Filter{
		Jurisdiction: q.Get("jurisdiction"),
		Category:     q.Get("category"),
		Status:       q.Get("status"),
		Query:        q.Get("q"),
	}
	if v := q.Get("ghosts"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, errors.New("ghosts must be true or false")
		}
		f.Ghosts = b
	}
	if v := q.Get("month"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 12 {
			return f, errors.New("month must be between 1 and 12")
		}
		f.Month = n
	}
	if v := q.Get("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return f, errors.New("year must be a positive number")
		}
		f.Year = n
	}
	return f, nil
}

// List returns the cases matching the query filters.
func (h *CaseHandler) List(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, err.Error())
		return
	}
	WriteVersioned(w, r, "cases.list", http.StatusOK, h.views(h.ctl.GetFiltered(f)))
}

// Get returns a single live case.
func (h *CaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	c, ok := h.ctl.Get(id)
	if !ok {
		WriteError(w, http.StatusNotFound, ErrNotFound, "case not found")
		return
	}
	WriteVersioned(w, r, "cases.get", http.StatusOK, CaseView{Case: h.view(c), Pending: h.ctl.Pending(r.Context(), id)})
}

// CreateRequest is the body of POST /cases.
type CreateRequest struct {
	Contact      string `json:"contact"`
	DisplayName  string `json:"display_name"`
	Category     string `json:"category"`
	Jurisdiction string `json:"jurisdiction"`
}

// Create onboards a new case.
func (h *CaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.DisplayName) == "" {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "display_name is required")
		return
	}
	if req.Category == "" {
		req.Category = string(cases.CategoryOther)
	}

	out := h.ctl.Create(r.Context(), req.Contact, req.DisplayName, cases.Category(req.Category), req.Jurisdiction)
	if out.Result.Success {
		WriteJSON(w, http.StatusCreated, h.mutation(out))
		return
	}
	h.writeOutcome(w, out)
}

// Update replaces a case. A blank owner contact keeps the stored one, since
// clients only ever see contacts they own.
func (h *CaseHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	cur, ok := h.ctl.Get(id)
	if !ok {
		WriteError(w, http.StatusNotFound, ErrNotFound, "case not found")
		return
	}

	var c cases.Case
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "invalid JSON")
		return
	}
	c.ID = id
	if c.OwnerContact == "" {
		c.OwnerContact = cur.OwnerContact
	}
	c.SoftDeletedAt = nil
	if err := c.Validate(); err != nil {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, err.Error())
		return
	}
	if err := c.Timeline.Validate(); err != nil {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, err.Error())
		return
	}

	h.writeOutcome(w, h.ctl.Mutate(r.Context(), c))
}

// CheckIn touches a case to show it is still current.
func (h *CaseHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	out, err := h.ctl.CheckIn(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		WriteError(w, http.StatusNotFound, ErrNotFound, err.Error())
		return
	}
	h.writeOutcome(w, out)
}

// ClaimRequest is the body of POST /cases/{id}/claim.
type ClaimRequest struct {
	Contact string `json:"contact"`
}

// Claim assigns an owner to an unowned case.
func (h *CaseHandler) Claim(w http.ResponseWriter, r *http.Request) {
	var req ClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrBadRequest, "invalid JSON")
		return
	}
	out, err := h.ctl.Claim(r.Context(), mux.Vars(r)["id"], req.Contact)
	switch {
	case errors.Is(err, controller.ErrNotFound):
		WriteError(w, http.StatusNotFound, ErrNotFound, err.Error())
		return
	case errors.Is(err, cases.ErrAlreadyOwned):
		WriteError(w, http.StatusConflict, ErrConflict, err.Error())
		return
	case err != nil:
		WriteError(w, http.StatusBadRequest, ErrBadRequest, err.Error())
		return
	}
	h.writeOutcome(w, out)
}

// Delete moves a case to the bin.
func (h *CaseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	res, err := h.ctl.SoftDelete(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusNotFound, ErrNotFound, err.Error())
		return
	}
	WriteResult(w, res, map[string]string{"id": id}, nil)
}

// Restore takes a case out of the bin.
func (h *CaseHandler) Restore(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	WriteResult(w, h.ctl.Restore(r.Context(), id), map[string]string{"id": id}, nil)
}

// Purge deletes a case permanently.
func (h *CaseHandler) Purge(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	WriteResult(w, h.ctl.HardDelete(r.Context(), id), map[string]string{"id": id}, nil)
}

// Prediction estimates the decision date of a case.
func (h *CaseHandler) Prediction(w http.ResponseWriter, r *http.Request) {
	p, err := h.ctl.Predict(r.Context(), mux.Vars(r)["id"], h.requestLocale(r))
	if err != nil {
		WriteError(w, http.StatusNotFound, ErrNotFound, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, p)
}

// Mine returns the session owner's case.
func (h *CaseHandler) Mine(w http.ResponseWriter, r *http.Request) {
	c, ok := h.ctl.Mine(r.Context())
	if !ok {
		WriteError(w, http.StatusNotFound, ErrNotFound, "no case registered to this contact")
		return
	}
	WriteJSON(w, http.StatusOK, CaseView{Case: h.view(c), Pending: h.ctl.Pending(r.Context(), c.ID)})
}

// Bin lists soft-deleted cases.
func (h *CaseHandler) Bin(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.views(h.ctl.Bin(r.Context())))
}

// Stats returns aggregate statistics.
func (h *CaseHandler) Stats(w http.ResponseWriter, r *http.Request) {
	WriteVersioned(w, r, "stats.get", http.StatusOK, h.ctl.Stats())
}

// Ghosts returns the ghost count.
func (h *CaseHandler) Ghosts(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]int{"count": h.ctl.GetGhostCount()})
}

// Summary returns a prose description of the collection.
func (h *CaseHandler) Summary(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.ctl.Summary(r.Context(), h.requestLocale(r)))
}

func (h *CaseHandler) mutation(out controller.Outcome) MutationResponse {
	return MutationResponse{Case: h.view(out.Case), RolledBack: out.RolledBack}
}

func (h *CaseHandler) writeOutcome(w http.ResponseWriter, out controller.Outcome) {
	resp := h.mutation(out)
	WriteResult(w, out.Result, resp, map[string]interface{}{
		"case":        resp.Case,
		"rolled_back": resp.RolledBack,
	})
}

// requestLocale picks the narrative language from ?locale=, then
// Accept-Language, then the configured default.
func (h *CaseHandler) requestLocale(r *http.Request) string {
	if l := r.URL.Query().Get("locale"); l != "" {
		return l
	}
	if l := preferredLocale(r.Header.Get("Accept-Language")); l != "" {
		return l
	}
	return h.locale
}

// preferredLocale returns the supported language with the highest q-weight
// in an Accept-Language header, earlier tags winning ties, or "".
func preferredLocale(header string) string {
	best, bestQ := "", 0.0
	for _, part := range strings.Split(header, ",") {
		tag, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		tag = strings.TrimSpace(tag)
		if tag == "" || tag == "*" {
			continue
		}
		q := 1.0
		if v, ok := strings.CutPrefix(strings.TrimSpace(params), "q="); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				continue
			}
			q = f
		}
		if q <= bestQ {
			continue
		}
		base, _, _ := strings.Cut(strings.ToLower(tag), "-")
		base, _, _ = strings.Cut(base, "_")
		if duration.NormalizeLocale(base) != base {
			continue
		}
		best, bestQ = base, q
	}
	return best
}
