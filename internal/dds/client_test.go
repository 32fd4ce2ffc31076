// SPDX-License-Identifier: MIT

package dds

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(base string) *Client {
	return New(Config{
		BaseURL:   base,
		NodeURL:   "https://node.example:8080",
		RegSecret: "reg-secret",
		Timeout:   time.Second,
	})
}

func TestRegister_SendsAnnounce(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/nodes/register", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, newClient(srv.URL).Register(context.Background()))
	assert.Equal(t, "https://node.example:8080", got["node_url"])
	assert.Equal(t, "reg-secret", got["secret"])
}

func TestRegister_NonSuccessIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	err := newClient(srv.URL).Register(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestAuthenticate_ReturnsBundle(t *testing.T) {
	issued := time.Now().Truncate(time.Second)
	expires := issued.Add(time.Hour)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/nodes/login", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "node-token",
			"issued_at":    issued,
			"expires_at":   expires,
		})
	}))
	defer srv.Close()

	bundle, err := newClient(srv.URL).Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "node-token", bundle.AccessToken)
	assert.True(t, bundle.IssuedAt.Equal(issued))
	assert.True(t, bundle.ExpiresAt.Equal(expires))
}

func TestAuthenticate_EmptyTokenIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":""}`))
	}))
	defer srv.Close()

	_, err := newClient(srv.URL).Authenticate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no access token")
}

func TestAuthenticate_TransportError(t *testing.T) {
	c := newClient("http://127.0.0.1:1")
	_, err := c.Authenticate(context.Background())
	require.Error(t, err)
}
