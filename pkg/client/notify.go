// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// NotifyClient publishes notices to everyone watching the event stream.
//
// Access this client through [Client.Notify]:
//
//	_, err := client.Notify.Send(ctx, "Madrid office closed Friday", client.NotifyInfo, "")
type NotifyClient struct {
	c *Client
}

// Send publishes a notice. caseID may be empty.
func (n *NotifyClient) Send(ctx context.Context, message string, level NotifyLevel, caseID string) (*NotifyResponse, error) {
	req := NotifyRequest{
		Message: message,
		Level:   string(level),
		CaseID:  caseID,
	}

	resp, err := n.c.send(ctx, http.MethodPost, "/api/v1/notify", req)
	if err != nil {
		return nil, err
	}

	var out NotifyResponse
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse notify response: %w", err)
	}

	return &out, nil
}
