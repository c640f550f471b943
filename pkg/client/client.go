// Package client is the Go SDK for the inferd completion API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"inferd/pkg/types"
)

const (
	connectTimeout = 2 * time.Second
	readTimeout    = 30 * time.Second
	// Transport-level failures are retried with a fixed delay, up to
	// maxAttempts total attempts. HTTP error statuses are never retried.
	maxAttempts = 3
	retryDelay  = 500 * time.Millisecond
)

// Client talks to an inferd server. Safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	delay   time.Duration
}

// New returns a client for the given base URL. apiKey may be empty when the
// server has no secret configured.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpc: &http.Client{
			Timeout: readTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
			},
		},
		delay: retryDelay,
	}
}

// APIError is an HTTP-level failure returned by the server.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Detail)
}

// ChatCompletions posts req to /v1/chat/completions.
func (c *Client) ChatCompletions(ctx context.Context, req types.CompletionRequest) (types.CompletionResponse, error) {
	return c.post(ctx, "/v1/chat/completions", req)
}

// Completions posts req to /v1/completions.
func (c *Client) Completions(ctx context.Context, req types.CompletionRequest) (types.CompletionResponse, error) {
	return c.post(ctx, "/v1/completions", req)
}

func (c *Client) post(ctx context.Context, path string, req types.CompletionRequest) (types.CompletionResponse, error) {
	var out types.CompletionResponse
	body, err := json.Marshal(req)
	if err != nil {
		return out, fmt.Errorf("encode request: %w", err)
	}

	var resp *http.Response
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return out, err
		}
		hreq.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			hreq.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
		resp, lastErr = c.httpc.Do(hreq)
		if lastErr == nil {
			break
		}
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		if attempt < maxAttempts-1 {
			select {
			case <-time.After(c.delay):
			case <-ctx.Done():
				return out, ctx.Err()
			}
		}
	}
	if resp == nil {
		return out, fmt.Errorf("request failed after %d attempts: %w", maxAttempts, lastErr)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var er types.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&er)
		return out, &APIError{StatusCode: resp.StatusCode, Detail: er.Detail}
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}
