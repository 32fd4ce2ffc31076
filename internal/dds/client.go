// SPDX-License-Identifier: MIT

// Package dds talks to the discovery service: the node announce that feeds
// the registration loop and the login that feeds the token manager. The
// signed-attestation handshake is carried by the registration secret; key
// material never leaves the process.
package dds

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ManuGH/fleetnode/internal/tokens"
)

const maxErrorBody = 2048

// Config binds the client to one discovery service.
type Config struct {
	BaseURL   string
	NodeURL   string // public URL of this node, announced on register
	RegSecret string
	Timeout   time.Duration
}

// Client is the discovery-service HTTP client. It implements
// registration.Registrar and tokens.Authenticator.
type Client struct {
	cfg  Config
	http *http.Client
}

// New builds a client.
func New(cfg Config) *Client {
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

// WithHTTPClient swaps the underlying client, for tests.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

// Register announces this node to the discovery service.
func (c *Client) Register(ctx context.Context) error {
	payload, err := json.Marshal(map[string]string{
		"node_url": c.cfg.NodeURL,
		"secret":   c.cfg.RegSecret,
	})
	if err != nil {
		return fmt.Errorf("dds: encode register payload: %w", err)
	}

	resp, err := c.post(ctx, "/api/v1/nodes/register", payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("dds: register returned %d: %s", resp.StatusCode, readBody(resp.Body))
	}
	return nil
}

// loginResponse is the credential bundle the discovery service issues.
type loginResponse struct {
	AccessToken string    `json:"access_token"`
	IssuedAt    time.Time `json:"issued_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Authenticate logs in and returns a fresh node credential.
func (c *Client) Authenticate(ctx context.Context) (tokens.Bundle, error) {
	payload, err := json.Marshal(map[string]string{
		"node_url": c.cfg.NodeURL,
		"secret":   c.cfg.RegSecret,
	})
	if err != nil {
		return tokens.Bundle{}, fmt.Errorf("dds: encode login payload: %w", err)
	}

	resp, err := c.post(ctx, "/api/v1/nodes/login", payload)
	if err != nil {
		return tokens.Bundle{}, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return tokens.Bundle{}, fmt.Errorf("dds: login returned %d: %s", resp.StatusCode, readBody(resp.Body))
	}

	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return tokens.Bundle{}, fmt.Errorf("dds: decode login response: %w", err)
	}
	if lr.AccessToken == "" {
		return tokens.Bundle{}, fmt.Errorf("dds: login response carries no access token")
	}
	if lr.IssuedAt.IsZero() {
		lr.IssuedAt = time.Now()
	}
	return tokens.Bundle{AccessToken: lr.AccessToken, IssuedAt: lr.IssuedAt, ExpiresAt: lr.ExpiresAt}, nil
}

func (c *Client) post(ctx context.Context, path string, payload []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("dds: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dds: %s: %w", path, err)
	}
	return resp, nil
}

func readBody(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	return string(b)
}
