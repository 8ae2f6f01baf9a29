// Package api implements the HTTP client for the competition admin
// endpoints. Every call attaches the admin API key; responses are classified
// into the panel's error taxonomy (invalid credential, expired session,
// rejected action, transient failure). No call is ever retried here — a
// failure is surfaced and the operator re-triggers the action.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atinyakov/ArenaPanel/internal/models"
)

const (
	pathStatus = "/api/admin/status"
	pathStart  = "/api/admin/start"
	pathReset  = "/api/admin/reset"

	headerAPIKey    = "X-API-Key"
	headerRequestID = "X-Request-ID"

	defaultTimeout = 30 * time.Second
)

var (
	// ErrInvalidCredential is returned by CheckAuth when the server
	// rejects the API key outright.
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrSessionExpired is returned when an authenticated call receives
	// 401/403 after a successful login. The caller must treat the stored
	// credential as dead.
	ErrSessionExpired = errors.New("session expired")
)

// ActionError carries the server-provided message of a start or reset call
// that came back with success=false.
type ActionError struct {
	Message string
}

func (e *ActionError) Error() string {
	if e.Message == "" {
		return "action rejected by server"
	}
	return e.Message
}

// Client talks to the competition admin API.
type Client struct {
	baseURL string
	client  *http.Client
	log     *zap.Logger

	mu     sync.Mutex
	apiKey string
}

// New returns a Client for the given base URL. The API key is empty until
// SetAPIKey is called.
func New(baseURL string, log *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultTimeout},
		log:     log,
	}
}

// SetAPIKey replaces the credential attached to every request. Safe to call
// while the poller is running.
func (c *Client) SetAPIKey(key string) {
	c.mu.Lock()
	c.apiKey = key
	c.mu.Unlock()
}

// SetHTTPClient replaces the underlying HTTP client. Intended for tests.
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.client = hc
}

// SetTimeout changes the per-request timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.client.Timeout = timeout
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.mu.Lock()
	key := c.apiKey
	c.mu.Unlock()

	requestID := uuid.NewString()
	req.Header.Set(headerAPIKey, key)
	req.Header.Set(headerRequestID, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.log.Debug("api request",
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", requestID),
	)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

func unauthorized(code int) bool {
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}

// CheckAuth verifies the current API key against the status endpoint.
// 2xx means the credential is valid, 401/403 means it is not; anything
// else (including transport errors) is indeterminate and returned as a
// transient failure, not as an invalid credential.
func (c *Client) CheckAuth(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, pathStatus, nil)
	if err != nil {
		return fmt.Errorf("auth check: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case unauthorized(resp.StatusCode):
		return ErrInvalidCredential
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	default:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("auth check: unexpected status %d: %s", resp.StatusCode, body)
	}
}

// FetchStatus returns the current competition state. A 401/403 response is
// reported as ErrSessionExpired so the caller can force a logout; any other
// failure leaves the caller's previous state authoritative.
func (c *Client) FetchStatus(ctx context.Context) (*models.Competition, error) {
	resp, err := c.do(ctx, http.MethodGet, pathStatus, nil)
	if err != nil {
		return nil, fmt.Errorf("status fetch: %w", err)
	}
	defer resp.Body.Close()

	if unauthorized(resp.StatusCode) {
		return nil, ErrSessionExpired
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("status fetch: unexpected status %d: %s", resp.StatusCode, body)
	}

	var sr models.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("invalid status response: %w", err)
	}
	if !sr.Success {
		return nil, fmt.Errorf("status fetch: server reported failure")
	}
	return &sr.Competition, nil
}

// Start asks the server to start a competition of the given length. The
// duration is validated by the caller, not here. On a success=false body the
// returned error is an *ActionError carrying the server message.
func (c *Client) Start(ctx context.Context, durationDays int) (string, error) {
	body, err := json.Marshal(models.StartRequest{DurationDays: durationDays})
	if err != nil {
		return "", fmt.Errorf("encode start request: %w", err)
	}
	return c.action(ctx, pathStart, body)
}

// Reset asks the server to clear the current/finished competition.
func (c *Client) Reset(ctx context.Context) (string, error) {
	return c.action(ctx, pathReset, nil)
}

func (c *Client) action(ctx context.Context, path string, body []byte) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	if unauthorized(resp.StatusCode) {
		return "", ErrSessionExpired
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%s: unexpected status %d: %s", path, resp.StatusCode, respBody)
	}

	// Success must be read from the body, not assumed from the status code.
	var ar models.ActionResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return "", fmt.Errorf("invalid action response: %w", err)
	}
	if !ar.Success {
		return "", &ActionError{Message: ar.Message}
	}
	return ar.Message, nil
}
