// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// CaseClient provides access to case records.
//
// Access this client through [Client.Cases]:
//
//	list, err := client.Cases.List(ctx, nil)
type CaseClient struct {
	c *Client
}

func casePath(id string, suffix string) string {
	return "/api/v1/cases/" + url.PathEscape(id) + suffix
}

// List returns the cases matching f. A nil filter returns the active set.
func (cc *CaseClient) List(ctx context.Context, f *Filter) ([]Case, error) {
	path := "/api/v1/cases"
	if f != nil {
		params := url.Values{}
		if f.Ghosts {
			params.Set("ghosts", "true")
		}
		if f.Jurisdiction != "" {
			params.Set("jurisdiction", f.Jurisdiction)
		}
		if f.Category != "" {
			params.Set("category", f.Category)
		}
		if f.Status != "" {
			params.Set("status", f.Status)
		}
		if f.Month > 0 {
			params.Set("month", strconv.Itoa(f.Month))
		}
		if f.Year > 0 {
			params.Set("year", strconv.Itoa(f.Year))
		}
		if f.Query != "" {
			params.Set("q", f.Query)
		}
		if len(params) > 0 {
			path += "?" + params.Encode()
		}
	}
	return cc.list(ctx, path)
}

// Bin returns the soft-deleted cases.
func (cc *CaseClient) Bin(ctx context.Context) ([]Case, error) {
	return cc.list(ctx, "/api/v1/bin")
}

func (cc *CaseClient) list(ctx context.Context, path string) ([]Case, error) {
	data, err := cc.c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	var list []Case
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse cases: %w", err)
	}
	return list, nil
}

// Get returns a single live case.
func (cc *CaseClient) Get(ctx context.Context, id string) (*CaseView, error) {
	return cc.view(ctx, casePath(id, ""))
}

// Mine returns the case registered to the server's own identity.
func (cc *CaseClient) Mine(ctx context.Context) (*CaseView, error) {
	return cc.view(ctx, "/api/v1/me")
}

func (cc *CaseClient) view(ctx context.Context, path string) (*CaseView, error) {
	data, err := cc.c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	var v CaseView
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to parse case: %w", err)
	}
	return &v, nil
}

// Create onboards a new case.
func (cc *CaseClient) Create(ctx context.Context, req CreateRequest) (*Mutation, error) {
	return cc.mutate(ctx, http.MethodPost, "/api/v1/cases", req)
}

// Update replaces a case. A blank OwnerContact keeps the stored one.
func (cc *CaseClient) Update(ctx context.Context, c Case) (*Mutation, error) {
	return cc.mutate(ctx, http.MethodPut, casePath(c.ID, ""), c)
}

// CheckIn marks a case as still current.
func (cc *CaseClient) CheckIn(ctx context.Context, id string) (*Mutation, error) {
	return cc.mutate(ctx, http.MethodPost, casePath(id, "/checkin"), nil)
}

// Claim assigns contact as the owner of an unowned case.
func (cc *CaseClient) Claim(ctx context.Context, id, contact string) (*Mutation, error) {
	return cc.mutate(ctx, http.MethodPost, casePath(id, "/claim"), map[string]string{"contact": contact})
}

func (cc *CaseClient) mutate(ctx context.Context, method, path string, body interface{}) (*Mutation, error) {
	resp, err := cc.c.send(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	var m Mutation
	if err := json.Unmarshal(resp.Data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse mutation: %w", err)
	}
	m.Offline = resp.Meta.Offline
	return &m, nil
}

// Delete moves a case to the bin. It reports whether the write was kept
// locally for later replay.
func (cc *CaseClient) Delete(ctx context.Context, id string) (offline bool, err error) {
	return cc.simple(ctx, http.MethodDelete, casePath(id, ""))
}

// Restore takes a case out of the bin.
func (cc *CaseClient) Restore(ctx context.Context, id string) (offline bool, err error) {
	return cc.simple(ctx, http.MethodPost, casePath(id, "/restore"))
}

// Purge deletes a case permanently.
func (cc *CaseClient) Purge(ctx context.Context, id string) (offline bool, err error) {
	return cc.simple(ctx, http.MethodDelete, casePath(id, "/purge"))
}

func (cc *CaseClient) simple(ctx context.Context, method, path string) (bool, error) {
	resp, err := cc.c.send(ctx, method, path, nil)
	if err != nil {
		return false, err
	}
	return resp.Meta.Offline, nil
}

// Prediction estimates the decision date of a case. An empty locale uses
// the server default.
func (cc *CaseClient) Prediction(ctx context.Context, id, locale string) (*Prediction, error) {
	path := casePath(id, "/prediction")
	if locale != "" {
		path += "?locale=" + url.QueryEscape(locale)
	}
	data, err := cc.c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	var p Prediction
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse prediction: %w", err)
	}
	return &p, nil
}
