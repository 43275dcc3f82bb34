// Package client talks to the entitlement API and keeps a polled, process-local
// copy of the caller's entitlement decision.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/careercoach/coach/internal/entitlements"
	"github.com/careercoach/coach/internal/usage"
)

const (
	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 3
)

// TokenSource returns the bearer token for the current session.
type TokenSource func(ctx context.Context) (string, error)

// StaticToken always returns token.
func StaticToken(token string) TokenSource {
	return func(context.Context) (string, error) { return token, nil }
}

// IncrementResponse is the body of POST /usage/increment. Exactly one of Plan,
// ResumesUsed and InterviewsUsed is set.
type IncrementResponse struct {
	Success        bool   `json:"success"`
	Plan           string `json:"plan,omitempty"`
	ResumesUsed    *int   `json:"resumes_used,omitempty"`
	InterviewsUsed *int   `json:"interviews_used,omitempty"`
}

type Client struct {
	baseURL     string
	httpClient  *http.Client
	token       TokenSource
	maxRetries  uint64
	initialWait time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetry sets the retry budget and the first backoff interval.
func WithRetry(maxRetries uint64, initialWait time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.initialWait = initialWait
	}
}

func New(baseURL string, token TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: defaultTimeout},
		token:       token,
		maxRetries:  defaultMaxRetries,
		initialWait: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) FetchEntitlements(ctx context.Context) (*entitlements.Decision, error) {
	var d entitlements.Decision
	if err := c.do(ctx, http.MethodGet, "/api/v1/entitlements", nil, &d, true); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) FetchLiveOverlay(ctx context.Context) (*entitlements.OverlayDecision, error) {
	var d entitlements.OverlayDecision
	if err := c.do(ctx, http.MethodGet, "/api/v1/entitlements/live-overlay", nil, &d, true); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) CurrentUsage(ctx context.Context) (*usage.CurrentUsage, error) {
	var u usage.CurrentUsage
	if err := c.do(ctx, http.MethodGet, "/api/v1/usage", nil, &u, true); err != nil {
		return nil, err
	}
	return &u, nil
}

// IncrementUsage records one billable action. It is not idempotent, so it is
// only retried when the connection could not be established at all.
func (c *Client) IncrementUsage(ctx context.Context, kind usage.Kind) (*IncrementResponse, error) {
	body := map[string]string{"type": string(kind)}
	var resp IncrementResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/usage/increment", body, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, idempotent bool) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindInvalid, Message: "encoding request body", Err: err}
		}
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.initialWait
	eb.MaxInterval = 5 * time.Second
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, c.maxRetries), ctx)

	op := func() (struct{}, error) {
		err := c.once(ctx, method, path, payload, out)
		if err == nil {
			return struct{}{}, nil
		}
		if shouldRetry(err, idempotent) {
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	}
	notify := func(err error, wait time.Duration) {
		slog.Debug("entitlement client: retrying", "method", method, "path", path, "error", err, "wait", wait)
	}

	_, err := backoff.RetryNotifyWithData(op, policy, notify)
	if err != nil && ctx.Err() != nil && !errors.As(err, new(*Error)) {
		return &Error{Kind: KindTransport, Message: "request cancelled", Err: err}
	}
	return err
}

func shouldRetry(err error, idempotent bool) bool {
	var e *Error
	if !errors.As(err, &e) || !e.Retryable() {
		return false
	}
	if idempotent {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

func (c *Client) once(ctx context.Context, method, path string, payload []byte, out any) error {
	token, err := c.token(ctx)
	if err != nil {
		return &Error{Kind: KindUnauthenticated, Message: "obtaining token", Err: err}
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Kind: KindInvalid, Message: "building request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Kind: KindTransport, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &Error{Kind: KindTransport, Status: resp.StatusCode, Message: "reading response", Err: err}
	}

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		msg := http.StatusText(resp.StatusCode)
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return &Error{Kind: kindForStatus(resp.StatusCode), Status: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Kind: KindInternal, Status: resp.StatusCode, Message: fmt.Sprintf("decoding %s response", path), Err: err}
	}
	return nil
}
