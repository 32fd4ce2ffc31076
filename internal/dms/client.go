// SPDX-License-Identifier: MIT

package dms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// maxErrorBody bounds how much of an error response is captured into the
// returned error.
const maxErrorBody = 2048

// Client is a typed HTTP client for the DMS task API. All requests carry the
// node-level bearer token; the per-domain storage token is a separate
// credential and never flows through here.
type Client struct {
	base    string
	http    *http.Client
	bearer  func() string
	limiter *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying http.Client (for tests).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRateLimit caps the outgoing request rate. A misconfigured fleet polling
// with near-zero backoff must not hammer DMS.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// New creates a client for the given DMS base URL. bearer is read before every
// request so the node token can rotate without rebuilding the client; a nil
// bearer sends no Authorization header.
func New(base string, timeout time.Duration, bearer func() string, opts ...Option) *Client {
	c := &Client{
		base:    strings.TrimRight(base, "/"),
		http:    &http.Client{Timeout: timeout},
		bearer:  bearer,
		limiter: rate.NewLimiter(rate.Limit(50), 100),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LeaseByCapability asks DMS for one task matching the capability. It returns
// (nil, nil) when no work is available (HTTP 204 or an empty body).
func (c *Client) LeaseByCapability(ctx context.Context, capability string) (*LeaseEnvelope, error) {
	q := url.Values{}
	q.Set("capability", capability)
	u := c.base + "/tasks?" + q.Encode()

	body, status, err := c.do(ctx, http.MethodGet, u, nil, "lease")
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent || len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	var env LeaseEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &ClientError{Sentinel: ErrHTTP, Operation: "lease", Status: status, Err: err}
	}
	return &env, nil
}

// Heartbeat posts the coalesced progress for a task and returns the refreshed
// lease envelope.
func (c *Client) Heartbeat(ctx context.Context, taskID uuid.UUID, data HeartbeatData) (*LeaseEnvelope, error) {
	u := fmt.Sprintf("%s/tasks/%s/heartbeat", c.base, taskID)
	body, status, err := c.do(ctx, http.MethodPost, u, data, "heartbeat")
	if err != nil {
		return nil, err
	}
	var env LeaseEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &ClientError{Sentinel: ErrHTTP, Operation: "heartbeat", Status: status, Err: err}
	}
	return &env, nil
}

// Complete reports terminal success for a task.
func (c *Client) Complete(ctx context.Context, taskID uuid.UUID, req CompleteRequest) error {
	u := fmt.Sprintf("%s/tasks/%s/complete", c.base, taskID)
	_, _, err := c.do(ctx, http.MethodPost, u, req, "complete")
	return err
}

// Fail reports terminal failure for a task.
func (c *Client) Fail(ctx context.Context, taskID uuid.UUID, req FailRequest) error {
	u := fmt.Sprintf("%s/tasks/%s/fail", c.base, taskID)
	_, _, err := c.do(ctx, http.MethodPost, u, req, "fail")
	return err
}

func (c *Client) do(ctx context.Context, method, u string, payload any, op string) ([]byte, int, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, 0, &ClientError{Sentinel: ErrTransport, Operation: op, Err: err}
		}
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, &ClientError{Sentinel: ErrTransport, Operation: op, Err: err}
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, 0, &ClientError{Sentinel: ErrTransport, Operation: op, Err: err}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.bearer != nil {
		if tok := c.bearer(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	res, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, 0, &ClientError{Sentinel: ErrTimeout, Operation: op, Err: err}
		}
		return nil, 0, &ClientError{Sentinel: ErrTransport, Operation: op, Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, res.StatusCode, &ClientError{Sentinel: ErrTransport, Operation: op, Status: res.StatusCode, Err: err}
	}

	switch {
	case res.StatusCode == http.StatusUnauthorized:
		return nil, res.StatusCode, &ClientError{Sentinel: ErrUnauthorized, Operation: op, Status: res.StatusCode}
	case res.StatusCode >= 200 && res.StatusCode < 300:
		return raw, res.StatusCode, nil
	default:
		return nil, res.StatusCode, &ClientError{
			Sentinel:  ErrHTTP,
			Operation: op,
			Status:    res.StatusCode,
			Body:      truncate(raw, maxErrorBody),
		}
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne interface{ Timeout() bool }
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
