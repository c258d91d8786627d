// Package rest is the single outbound HTTP facade of the client.
// It owns the bearer credentials; every other component issues requests through it.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/zeitnachricht/internal/logger"
	"github.com/dtroode/zeitnachricht/internal/model"
)

const maxErrorBody = 1 << 20

// credentials is the mutable request configuration.
// generation increases on every attach or detach.
type credentials struct {
	token      string
	generation uint64
}

// Client issues JSON requests against a fixed base URL.
// It performs no retries and no caching.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logger.Logger

	mu    sync.RWMutex
	creds credentials
}

// NewClient creates a facade for baseURL. A nil httpClient uses a client without timeout.
func NewClient(baseURL string, httpClient *http.Client, logger *logger.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// AttachToken sets the bearer token sent with every following request
// and returns the new credentials generation.
func (c *Client) AttachToken(token string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creds = credentials{token: token, generation: c.creds.generation + 1}
	return c.creds.generation
}

// DetachToken removes the bearer token and returns the new credentials generation.
func (c *Client) DetachToken() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creds = credentials{generation: c.creds.generation + 1}
	return c.creds.generation
}

// Generation returns the current credentials generation.
func (c *Client) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.creds.generation
}

// HasToken reports whether a bearer token is attached.
func (c *Client) HasToken() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.creds.token != ""
}

// Get issues a GET request and decodes the response body into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

// Put issues a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, body, out)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	c.mu.RLock()
	creds := c.creds
	c.mu.RUnlock()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if creds.token != "" {
		req.Header.Set("Authorization", "Bearer "+creds.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("API client: request failed",
			"method", method,
			"path", path,
			"request_id", requestID,
			"error", err.Error())
		return &model.NetworkError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("API client: request completed",
		"method", method,
		"path", path,
		"request_id", requestID,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &model.APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Detail:     parseDetail(raw),
			Generation: creds.generation,
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if ctx.Err() != nil {
			return &model.NetworkError{Method: method, Path: path, Err: err}
		}
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}

	return nil
}

// parseDetail extracts {"detail": "..."}; non-string details are ignored.
func parseDetail(raw []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}
	var detail string
	if err := json.Unmarshal(payload.Detail, &detail); err != nil {
		return ""
	}
	return detail
}
