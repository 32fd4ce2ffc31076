// SPDX-License-Identifier: MIT

// Package tokens manages the node-level access token used against DMS:
// proactive rotation before expiry and bounded, jittered re-auth retries.
// The domain-scoped tokens inside lease envelopes are separate and live in
// domainstore.TokenRef.
package tokens

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ManuGH/fleetnode/internal/log"
	"github.com/ManuGH/fleetnode/internal/metrics"
)

// Bundle is one issued node credential.
type Bundle struct {
	AccessToken string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// Lifetime returns the issued validity window.
func (b Bundle) Lifetime() time.Duration {
	return b.ExpiresAt.Sub(b.IssuedAt)
}

// Authenticator performs one login against the control plane and returns a
// fresh credential. The signed handshake itself lives outside this package.
type Authenticator interface {
	Authenticate(ctx context.Context) (Bundle, error)
}

// RotationError wraps a re-auth failure after the retry budget is spent.
type RotationError struct {
	Attempts int
	Err      error
}

func (e *RotationError) Error() string {
	return fmt.Sprintf("tokens: rotation failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RotationError) Unwrap() error { return e.Err }

// Config carries the rotation knobs.
type Config struct {
	// SafetyRatio is the fraction of the token lifetime after which the
	// manager rotates proactively.
	SafetyRatio float64
	// MaxRetries caps consecutive re-auth attempts per rotation.
	MaxRetries int
	// RetryJitter spreads the delay between re-auth attempts.
	RetryJitter time.Duration
}

// Manager owns the node credential. Bearer is safe for concurrent reads while
// Run rotates in the background; Healthy gates the poller.
type Manager struct {
	auth Authenticator
	cfg  Config

	mu      sync.RWMutex
	bundle  Bundle
	healthy atomic.Bool
}

// NewManager builds a manager. It is unhealthy until the first successful
// authentication.
func NewManager(auth Authenticator, cfg Config) *Manager {
	if cfg.SafetyRatio <= 0 || cfg.SafetyRatio > 1 {
		cfg.SafetyRatio = 0.75
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 3
	}
	return &Manager{auth: auth, cfg: cfg}
}

// Bearer returns the current node access token, empty before the first login.
func (m *Manager) Bearer() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bundle.AccessToken
}

// Healthy reports whether the node may lease new work. It turns false once a
// rotation exhausts its retry budget and true again on the next success.
func (m *Manager) Healthy() bool {
	return m.healthy.Load()
}

// rotateAt computes the proactive rotation deadline for the current bundle.
func (m *Manager) rotateAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lifetime := m.bundle.Lifetime()
	return m.bundle.IssuedAt.Add(time.Duration(float64(lifetime) * m.cfg.SafetyRatio))
}

// Run authenticates once, then rotates proactively until ctx is cancelled.
// An exhausted retry budget marks the manager unhealthy and keeps retrying;
// in-flight sessions are unaffected.
func (m *Manager) Run(ctx context.Context) error {
	logger := log.WithComponent("tokens")

	if err := m.rotate(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		logger.Error().Err(err).Msg("initial authentication failed, node stays gated")
	}

	for {
		wait := time.Until(m.rotateAt())
		if !m.Healthy() {
			// Gated: retry on the jitter cadence rather than the token
			// schedule.
			wait = m.retryDelay()
		}
		if wait < 0 {
			wait = 0
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		if err := m.rotate(ctx); err != nil && ctx.Err() == nil {
			logger.Warn().Err(err).Msg("token rotation failed, refusing new leases")
		}
	}
}

// rotate performs one rotation with up to MaxRetries attempts.
func (m *Manager) rotate(ctx context.Context) error {
	logger := log.WithComponent("tokens")

	var lastErr error
	for attempt := 1; attempt <= m.cfg.MaxRetries; attempt++ {
		bundle, err := m.auth.Authenticate(ctx)
		if err == nil {
			m.mu.Lock()
			m.bundle = bundle
			m.mu.Unlock()
			m.healthy.Store(true)
			metrics.RecordNodeTokenRotation("success")
			logger.Info().Time("expires_at", bundle.ExpiresAt).Msg("node token rotated")
			return nil
		}
		lastErr = err
		logger.Warn().Err(err).Int("attempt", attempt).Msg("re-auth attempt failed")

		if attempt == m.cfg.MaxRetries {
			break
		}
		timer := time.NewTimer(m.retryDelay())
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	m.healthy.Store(false)
	metrics.RecordNodeTokenRotation("failure")
	return &RotationError{Attempts: m.cfg.MaxRetries, Err: lastErr}
}

func (m *Manager) retryDelay() time.Duration {
	if m.cfg.RetryJitter <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(m.cfg.RetryJitter) + 1))
}
