// SPDX-License-Identifier: MIT

// Package domainstore talks to the per-domain storage service: it
// materialises input artifacts by content ID and uploads task outputs under a
// task-scoped prefix. All requests authenticate with a hot-swappable bearer
// token shared with the heartbeat path.
package domainstore

import "sync"

// TokenRef is a one-slot cell holding the current domain access token.
// The heartbeat loop is the single writer; every storage request reads it
// immediately before sending. Reads copy the string so a swap can never be
// observed half-applied.
type TokenRef struct {
	mu    sync.RWMutex
	token string
}

// NewTokenRef seeds the cell with the initial lease token.
func NewTokenRef(token string) *TokenRef {
	return &TokenRef{token: token}
}

// Get returns the current token.
func (r *TokenRef) Get() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.token
}

// Swap replaces the token and reports whether the value changed.
func (r *TokenRef) Swap(token string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.token == token {
		return false
	}
	r.token = token
	return true
}
