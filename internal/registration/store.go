// SPDX-License-Identifier: MIT

package registration

import "sync"

// SecretStore holds the single node secret delivered by the discovery service
// through the internal registration endpoint. One slot; a new registration
// replaces the previous secret.
type SecretStore struct {
	mu     sync.RWMutex
	id     string
	secret string
	set    bool
}

// NewSecretStore returns an empty store.
func NewSecretStore() *SecretStore {
	return &SecretStore{}
}

// Put stores the secret for a registration id, replacing any previous one.
func (s *SecretStore) Put(id, secret string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
	s.secret = secret
	s.set = true
}

// Get returns the stored secret, if any.
func (s *SecretStore) Get() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.secret, s.set
}

// ID returns the registration id the secret was stored under.
func (s *SecretStore) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}
