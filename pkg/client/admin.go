// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// PurgePhrase must be typed exactly to confirm [AdminClient.PurgeAll].
const PurgePhrase = "DELETE ALL CASES"

// AdminClient provides access to shared settings and bulk operations.
type AdminClient struct {
	c *Client
}

// Config returns the shared settings.
func (a *AdminClient) Config(ctx context.Context) (*GlobalConfig, error) {
	data, err := a.c.get(ctx, "/api/v1/config")
	if err != nil {
		return nil, err
	}
	var cfg GlobalConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// SetMaintenance turns maintenance mode on or off for every client.
func (a *AdminClient) SetMaintenance(ctx context.Context, on bool) error {
	_, err := a.c.send(ctx, http.MethodPut, "/api/v1/config", GlobalConfig{MaintenanceMode: on})
	return err
}

// Verify checks that the server can reach the shared store.
func (a *AdminClient) Verify(ctx context.Context) (*Connection, error) {
	resp, err := a.c.send(ctx, http.MethodPost, "/api/v1/connection/verify", nil)
	if err != nil {
		return nil, err
	}
	var conn Connection
	if err := json.Unmarshal(resp.Data, &conn); err != nil {
		return nil, fmt.Errorf("failed to parse connection: %w", err)
	}
	return &conn, nil
}

// PurgeAll deletes every case. phrase must equal [PurgePhrase] and
// expectedCount must match the number of stored cases.
func (a *AdminClient) PurgeAll(ctx context.Context, phrase string, expectedCount int) (int, error) {
	resp, err := a.c.send(ctx, http.MethodPost, "/api/v1/admin/purge", map[string]interface{}{
		"phrase":         phrase,
		"expected_count": expectedCount,
	})
	if err != nil {
		return 0, err
	}
	var out struct {
		Purged int `json:"purged"`
	}
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		return 0, fmt.Errorf("failed to parse purge response: %w", err)
	}
	return out.Purged, nil
}

// Audit returns the server's local write log.
func (a *AdminClient) Audit(ctx context.Context) ([]AuditEntry, error) {
	data, err := a.c.get(ctx, "/api/v1/admin/audit")
	if err != nil {
		return nil, err
	}
	var entries []AuditEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse audit log: %w", err)
	}
	return entries, nil
}
