// Package apiclient talks to a running BuyerCheck server over HTTP. The CLI
// uses it to administer the entity directory and to run one-off checks.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/buyercheck/backend/internal/domain"
)

const maxAttempts = 3

// APIError is a non-2xx response from the server. It matches
// domain.ErrAPIFailure and the sentinel for its status code with errors.Is.
type APIError struct {
	StatusCode int
	Message    string
	sentinel   error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %d", domain.ErrAPIFailure, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", domain.ErrAPIFailure, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() []error {
	if e.sentinel == nil {
		return []error{domain.ErrAPIFailure}
	}
	return []error{domain.ErrAPIFailure, e.sentinel}
}

// Client handles communication with the BuyerCheck HTTP API
type Client struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *rate.Limiter
	logger      *zap.Logger
	debug       bool
}

// NewClient creates a new API client for the server at baseURL
func NewClient(baseURL string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Bulk imports must not trip the server's per-IP limiter
	limiter := rate.NewLimiter(rate.Limit(20), 10)

	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:     strings.TrimRight(baseURL, "/"),
		rateLimiter: limiter,
		logger:      logger.Named("apiclient"),
	}
}

// SetDebug toggles request logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// exponentialBackoff returns the wait before retrying after the given attempt
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

// ListEntities returns the directory in store order, filtered by name when
// query is non-empty
func (c *Client) ListEntities(ctx context.Context, query string) ([]domain.EntityRecord, error) {
	path := "/api/v1/entities"
	if query != "" {
		path += "?" + url.Values{"q": {query}}.Encode()
	}

	var resp struct {
		Entities []domain.EntityRecord `json:"entities"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp, domain.ErrEntityNotFound); err != nil {
		return nil, err
	}
	return resp.Entities, nil
}

// GetEntity returns one record by identity hash
func (c *Client) GetEntity(ctx context.Context, hash string) (*domain.EntityRecord, error) {
	var rec domain.EntityRecord
	if err := c.do(ctx, http.MethodGet, "/api/v1/entities/"+url.PathEscape(hash), nil, &rec, domain.ErrEntityNotFound); err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateEntity stores a new entity
func (c *Client) CreateEntity(ctx context.Context, input domain.EntityInput) (*domain.EntityRecord, error) {
	var rec domain.EntityRecord
	if err := c.do(ctx, http.MethodPost, "/api/v1/entities", input, &rec, domain.ErrEntityNotFound); err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpdateEntity replaces the entity identified by hash
func (c *Client) UpdateEntity(ctx context.Context, hash string, input domain.EntityInput) (*domain.EntityRecord, error) {
	var rec domain.EntityRecord
	if err := c.do(ctx, http.MethodPut, "/api/v1/entities/"+url.PathEscape(hash), input, &rec, domain.ErrEntityNotFound); err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteEntity removes the entity identified by hash
func (c *Client) DeleteEntity(ctx context.Context, hash string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/entities/"+url.PathEscape(hash), nil, nil, domain.ErrEntityNotFound)
}

// StartSession opens a page session
func (c *Client) StartSession(ctx context.Context) (*domain.SessionView, error) {
	var view domain.SessionView
	if err := c.do(ctx, http.MethodPost, "/api/v1/sessions", nil, &view, domain.ErrSessionNotFound); err != nil {
		return nil, err
	}
	return &view, nil
}

// Observe posts buyer information to a session and returns the new state
func (c *Client) Observe(ctx context.Context, sessionID string, fields domain.Fields) (*domain.SessionView, error) {
	body := struct {
		Fields domain.Fields `json:"fields"`
	}{Fields: fields}

	var view domain.SessionView
	path := "/api/v1/sessions/" + url.PathEscape(sessionID) + "/observations"
	if err := c.do(ctx, http.MethodPost, path, body, &view, domain.ErrSessionNotFound); err != nil {
		return nil, err
	}
	return &view, nil
}

// EndSession closes a page session
func (c *Client) EndSession(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/sessions/"+url.PathEscape(sessionID), nil, nil, domain.ErrSessionNotFound)
}

// do sends one API call. 429 and 5xx responses are retried with exponential
// backoff, transport errors only for idempotent methods. Other failures
// return immediately.
func (c *Client) do(ctx context.Context, method, path string, in, out any, notFound error) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(exponentialBackoff(attempt - 1)):
			}
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter error: %w", err)
		}

		status, body, err := c.send(ctx, method, path, payload)
		if err != nil {
			c.logf("request error", method, path, attempt, zap.Error(err))
			if !idempotent(method) {
				return err
			}
			lastErr = err
			continue
		}

		if status >= 200 && status < 300 {
			if out == nil || len(body) == 0 {
				return nil
			}
			if err := json.Unmarshal(body, out); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
			return nil
		}

		apiErr := newAPIError(status, body, notFound)
		c.logf("api error", method, path, attempt, zap.Int("status", status), zap.String("message", apiErr.Message))
		if status != http.StatusTooManyRequests && status < 500 {
			return apiErr
		}
		lastErr = apiErr
	}

	c.logger.Warn("all retries failed", zap.String("method", method), zap.String("path", path), zap.Error(lastErr))
	return lastErr
}

func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodOptions:
		return true
	}
	return false
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "BuyerCheck-CLI/1.0")
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", domain.ErrAPIFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: read body: %v", domain.ErrAPIFailure, err)
	}
	return resp.StatusCode, body, nil
}

func (c *Client) logf(msg, method, path string, attempt int, fields ...zap.Field) {
	if !c.debug {
		return
	}
	c.logger.Debug(msg, append([]zap.Field{
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("attempt", attempt),
	}, fields...)...)
}

func newAPIError(status int, body []byte, notFound error) *APIError {
	var payload struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		msg = payload.Error
	}

	e := &APIError{StatusCode: status, Message: msg}
	switch status {
	case http.StatusBadRequest:
		e.sentinel = domain.ErrInvalidRequest
	case http.StatusNotFound:
		e.sentinel = notFound
	case http.StatusConflict:
		e.sentinel = conflictSentinel(msg)
	case http.StatusTooManyRequests:
		e.sentinel = domain.ErrRateLimited
	}
	return e
}

// conflictSentinel recovers the domain error behind a 409 from its message
func conflictSentinel(msg string) error {
	for _, err := range []error{
		domain.ErrDuplicateName,
		domain.ErrDuplicateContent,
		domain.ErrInvalidTransition,
	} {
		if strings.Contains(msg, err.Error()) {
			return err
		}
	}
	return nil
}
