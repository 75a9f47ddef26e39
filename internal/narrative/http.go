// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package narrative

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

// HTTPGenerator asks a remote text service for prose. It posts the request
// as JSON to <endpoint>/summarize or <endpoint>/predict and expects
// {"text": "..."} back.
type HTTPGenerator struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPGenerator creates an HTTPGenerator. A zero timeout means 30s.
func NewHTTPGenerator(endpoint, apiKey string, timeout time.Duration) *HTTPGenerator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPGenerator{
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type generated struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// Summarize implements Generator.
func (g *HTTPGenerator) Summarize(ctx context.Context, req SummaryRequest) (string, error) {
	return g.post(ctx, "/summarize", req)
}

// Predict implements Generator.
func (g *HTTPGenerator) Predict(ctx context.Context, req PredictionRequest) (string, error) {
	return g.post(ctx, "/predict", req)
}

func (g *HTTPGenerator) post(ctx context.Context, path string, body any) (string, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint+path, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	var out generated
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("parse response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= 400 {
		if out.Error == "" {
			out.Error = http.StatusText(resp.StatusCode)
		}
		return "", fmt.Errorf("generator returned %d: %s", resp.StatusCode, out.Error)
	}
	return strings.TrimSpace(out.Text), nil
}
