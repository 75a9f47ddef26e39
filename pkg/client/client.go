// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package client provides a Go client library for the casewatch API.
//
// casewatch tracks immigration cases shared by a community of applicants and
// predicts decision dates from the group's history. This client library
// provides typed access to the HTTP API served by the casewatch binary.
//
// # Getting Started
//
// Create a client pointing to your casewatch server:
//
//	c := client.New("http://localhost:1040")
//
// The client provides access to different API resources through sub-clients:
//
//	// List active cases in Spain
//	list, err := c.Cases.List(ctx, &client.Filter{Jurisdiction: "spain"})
//
//	// Touch your own case
//	m, err := c.Cases.CheckIn(ctx, "42")
//
//	// Dashboard statistics
//	st, err := c.Stats.Get(ctx)
//
// # Offline Writes
//
// When the shared store is unreachable the server keeps writes locally and
// replays them later. Such writes succeed with [Mutation.Offline] set.
//
// # API Versioning
//
// casewatch uses date-based API versioning. Pin a version with:
//
//	c := client.New("http://localhost:1040", client.WithVersion("2026-06-01"))
//
// The version is sent via the Casewatch-Version HTTP header on each request.
//
// # Error Handling
//
// API errors are returned as *APIError values:
//
//	_, err := c.Cases.Get(ctx, "unknown")
//	var apiErr *client.APIError
//	if errors.As(err, &apiErr) && apiErr.Code == client.CodeNotFound {
//	    ...
//	}
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is a casewatch API client.
//
// The Client is safe for concurrent use by multiple goroutines.
type Client struct {
	baseURL    string
	version    string
	httpClient *http.Client

	// Cases provides access to case records and their mutations.
	Cases *CaseClient

	// Stats provides access to aggregate statistics and summaries.
	Stats *StatsClient

	// Admin provides access to shared settings and bulk operations.
	Admin *AdminClient

	// Events provides access to the event log and live stream.
	Events *EventClient

	// Notify publishes user notices.
	Notify *NotifyClient
}

// Option configures a [Client].
type Option func(*Client)

// New creates a new casewatch API client with the given base URL and options.
//
// By default, the client uses the latest API version ([LatestVersion]) and a
// 30-second HTTP timeout.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		version: LatestVersion,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	c.Cases = &CaseClient{c: c}
	c.Stats = &StatsClient{c: c}
	c.Admin = &AdminClient{c: c}
	c.Events = &EventClient{c: c}
	c.Notify = &NotifyClient{c: c}

	return c
}

// WithVersion sets the API version to use for all requests.
func WithVersion(v string) Option {
	return func(c *Client) {
		c.version = v
	}
}

// WithHTTPClient sets a custom HTTP client for making requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the HTTP client timeout for all requests.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// Version returns the API version being used.
func (c *Client) Version() string {
	return c.version
}

// BaseURL returns the base URL of the API.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health reports whether the server is up and whether it is serving from
// its local cache.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	resp, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return nil, err
	}
	var h Health
	if err := json.Unmarshal(resp.Data, &h); err != nil {
		return nil, fmt.Errorf("failed to parse health: %w", err)
	}
	return &h, nil
}

// apiResponse is the standard API response envelope.
type apiResponse struct {
	Data  json.RawMessage `json:"data"`
	Error *APIError       `json:"error"`
	Meta  struct {
		Offline bool `json:"offline"`
	} `json:"meta"`
}

// Error codes returned by the server.
const (
	CodeNotFound          = "NOT_FOUND"
	CodeBadRequest        = "BAD_REQUEST"
	CodeConflict          = "CONFLICT"
	CodeRejected          = "REJECTED"
	CodeRemoteUnavailable = "REMOTE_UNAVAILABLE"
	CodeSchemaMismatch    = "SCHEMA_MISMATCH"
	CodeNotConfirmed      = "NOT_CONFIRMED"
	CodeMaintenance       = "MAINTENANCE"
	CodeInternal          = "INTERNAL_ERROR"
)

// APIError represents an error response from the casewatch API.
//
// A rejected mutation carries the case as it stands after any rollback in
// Details["case"].
type APIError struct {
	// StatusCode is the HTTP status of the response.
	StatusCode int `json:"-"`

	// Code is a machine-readable error code such as [CodeNotFound].
	Code string `json:"code"`

	// Message is a human-readable description of the error.
	Message string `json:"message"`

	// Details contains additional error information, if available.
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// get performs a GET request to the given path.
func (c *Client) get(ctx context.Context, path string) (json.RawMessage, error) {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// send performs a write with an optional JSON body.
func (c *Client) send(ctx context.Context, method, path string, body interface{}) (*apiResponse, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		r = bytes.NewReader(data)
	}
	return c.do(ctx, method, path, r)
}

// do performs an HTTP request and parses the response.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*apiResponse, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set(VersionHeader, c.version)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	return c.parseResponse(resp)
}

// parseResponse reads and parses an API response.
func (c *Client) parseResponse(resp *http.Response) (*apiResponse, error) {
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(respBody))
		}
		apiResp.Data = respBody
		return &apiResp, nil
	}

	if apiResp.Error != nil {
		apiResp.Error.StatusCode = resp.StatusCode
		return nil, apiResp.Error
	}
	if resp.StatusCode >= 400 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	if len(apiResp.Data) == 0 {
		apiResp.Data = json.RawMessage("null")
	}

	return &apiResp, nil
}
