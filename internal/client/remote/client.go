// Package remote talks to the Packsync API: it implements the document
// store, live query, blob and authentication contracts the client
// components depend on, over HTTP and websockets.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/packsync/packsync/internal/domain"
)

// APIError is a non-2xx response that does not map to a domain sentinel.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("HTTP %d %s: %s", e.Status, e.Code, e.Message)
}

// Client is an HTTP client for the Packsync API.
type Client struct {
	baseURL string
	http    *http.Client
	dialer  *websocket.Dialer
	token   func() string
	log     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client (30s timeout).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTokenSource sets where the bearer token for authenticated calls comes
// from. It is consulted on every request, so it can follow sign-in and
// sign-out.
func WithTokenSource(fn func() string) Option {
	return func(c *Client) { c.token = fn }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a client for the server at baseURL (e.g. http://localhost:8080).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		token:   func() string { return "" },
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HealthCheck hits /healthz to verify the server is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
	}
	return c.doNoAuth(ctx, http.MethodGet, "/healthz", nil, &resp)
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	return c.doRequest(ctx, method, path, body, result, c.token())
}

func (c *Client) doNoAuth(ctx context.Context, method, path string, body, result any) error {
	return c.doRequest(ctx, method, path, body, result, "")
}

func (c *Client) doRequest(ctx context.Context, method, path string, body, result any, token string) error {
	var (
		bodyReader  io.Reader
		contentType string
	)
	switch b := body.(type) {
	case nil:
	case rawBody:
		bodyReader = bytes.NewReader(b.data)
		contentType = b.contentType
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return responseError(resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// rawBody is sent as-is instead of being JSON-encoded.
type rawBody struct {
	data        []byte
	contentType string
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// responseError maps an error response onto the domain sentinels so callers
// can use errors.Is regardless of transport.
func responseError(status int, body []byte) error {
	var env errorEnvelope
	if json.Unmarshal(body, &env) != nil || env.Error.Code == "" {
		env.Error.Message = strings.TrimSpace(string(body))
	}
	msg := env.Error.Message

	var sentinel error
	switch {
	case env.Error.Code == "invalid_credentials":
		sentinel = domain.ErrInvalidCredentials
	case status == http.StatusUnauthorized:
		sentinel = domain.ErrAuthRequired
	case status == http.StatusForbidden:
		sentinel = domain.ErrForbidden
	case status == http.StatusNotFound:
		sentinel = domain.ErrNotFound
	case status == http.StatusConflict:
		sentinel = domain.ErrConflict
	case status == http.StatusUnprocessableEntity || status == http.StatusBadRequest:
		sentinel = domain.ErrValidation
	}
	if sentinel == nil {
		return &APIError{Status: status, Code: env.Error.Code, Message: msg}
	}
	if msg == "" || msg == sentinel.Error() {
		return sentinel
	}
	return fmt.Errorf("%w: %s", sentinel, msg)
}
