// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package agent talks to the chat agent endpoint and normalizes its replies.
package agent

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/jeranaias/agentchat/internal/util"
)

// Configuration constants for the agent client.
const (
	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit

	// DefaultUserAgent identifies the client to the endpoint.
	DefaultUserAgent = "agentchat"

	// maxErrorBody bounds how much of an error body is kept in StatusError.
	maxErrorBody = 512
)

// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
// No client timeout: every call is bounded by its context, which the caller
// derives from the configured response timeout.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	},
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotFound indicates the endpoint returned 404 (wrong URL or inactive workflow).
	ErrNotFound = errors.New("endpoint not found")

	// ErrUnauthorized indicates the endpoint rejected the request (401/403).
	ErrUnauthorized = errors.New("endpoint rejected the request")

	// ErrServerError indicates a 5xx response.
	ErrServerError = errors.New("endpoint server error")

	// ErrResponseTooLarge indicates the body exceeded MaxResponseSize.
	ErrResponseTooLarge = errors.New("response too large")
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("agent endpoint returned HTTP %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("agent endpoint returned HTTP %d", e.StatusCode)
}

// Unwrap maps well-known status codes to sentinel errors.
func (e *StatusError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case e.StatusCode == http.StatusUnauthorized, e.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case e.StatusCode >= 500:
		return ErrServerError
	}
	return nil
}

// =============================================================================
// CLIENT
// =============================================================================

// Client sends chat requests to an agent endpoint. It makes exactly one
// attempt per call; callers decide what a failure means.
type Client struct {
	httpClient *http.Client
	userAgent  string
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the shared pooled client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) { c.userAgent = ua }
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: sharedHTTPClient,
		userAgent:  DefaultUserAgent,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send POSTs req as JSON to endpoint and returns the raw response body.
// Non-2xx responses return *StatusError. Cancellation and deadline errors
// from ctx are returned wrapped, so errors.Is(err, context.DeadlineExceeded)
// works.
func (c *Client) Send(ctx context.Context, endpoint string, req Request) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(req); err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.setHeaders(httpReq)

	return c.do(httpReq)
}

// FetchActions asks the endpoint for the suggested actions to show before
// the first message: GET <endpoint>?sessionId=<id>. The body is returned raw
// for the normalizer.
func (c *Client) FetchActions(ctx context.Context, endpoint, sessionID string) ([]byte, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	q := u.Query()
	q.Set("sessionId", sessionID)
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(httpReq)

	return c.do(httpReq)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	// Never log bodies; they carry user messages and file content
	c.logger.Debug("agent request", "method", req.Method, "host", req.URL.Host, "path", req.URL.Path)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("agent request failed", "error", err, "duration", time.Since(start))
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("agent response", "status", resp.StatusCode, "duration", time.Since(start))

	body, err := readResponse(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, handleErrorResponse(resp, body)
	}
	return body, nil
}

// readResponse reads the response body with a size limit.
// SECURITY: Response size limit prevents memory exhaustion.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("%w: exceeded %d bytes", ErrResponseTooLarge, MaxResponseSize)
	}
	return body, nil
}

func handleErrorResponse(resp *http.Response, body []byte) error {
	return &StatusError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       util.TruncateRunes(string(bytes.TrimSpace(body)), maxErrorBody),
	}
}
