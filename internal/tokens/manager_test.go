// SPDX-License-Identifier: MIT

package tokens

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// scriptedAuth returns canned results in order; the last entry repeats.
type scriptedAuth struct {
	mu      sync.Mutex
	results []func() (Bundle, error)
	calls   int
}

func (s *scriptedAuth) Authenticate(context.Context) (Bundle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	idx := s.calls - 1
	if idx >= len(s.results) {
		idx = len(s.results) - 1
	}
	return s.results[idx]()
}

func (s *scriptedAuth) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func bundleOf(token string, lifetime time.Duration) func() (Bundle, error) {
	return func() (Bundle, error) {
		now := time.Now()
		return Bundle{AccessToken: token, IssuedAt: now, ExpiresAt: now.Add(lifetime)}, nil
	}
}

func authFailure(msg string) func() (Bundle, error) {
	return func() (Bundle, error) { return Bundle{}, errors.New(msg) }
}

func TestManager_UnhealthyUntilFirstLogin(t *testing.T) {
	m := NewManager(&scriptedAuth{results: []func() (Bundle, error){bundleOf("t1", time.Hour)}},
		Config{SafetyRatio: 0.75, MaxRetries: 3})
	assert.False(t, m.Healthy())
	assert.Empty(t, m.Bearer())

	require.NoError(t, m.rotate(context.Background()))
	assert.True(t, m.Healthy())
	assert.Equal(t, "t1", m.Bearer())
}

func TestManager_RotateRetriesThenSucceeds(t *testing.T) {
	auth := &scriptedAuth{results: []func() (Bundle, error){
		authFailure("boom one"),
		authFailure("boom two"),
		bundleOf("t2", time.Hour),
	}}
	m := NewManager(auth, Config{SafetyRatio: 0.75, MaxRetries: 3, RetryJitter: time.Millisecond})

	require.NoError(t, m.rotate(context.Background()))
	assert.Equal(t, 3, auth.callCount())
	assert.Equal(t, "t2", m.Bearer())
	assert.True(t, m.Healthy())
}

func TestManager_ExhaustedRetriesClosesGate(t *testing.T) {
	auth := &scriptedAuth{results: []func() (Bundle, error){authFailure("dds down")}}
	m := NewManager(auth, Config{SafetyRatio: 0.75, MaxRetries: 3, RetryJitter: time.Millisecond})

	// Seed a valid credential first; exhaustion must not clear it.
	m.mu.Lock()
	m.bundle = Bundle{AccessToken: "old", IssuedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour)}
	m.mu.Unlock()
	m.healthy.Store(true)

	err := m.rotate(context.Background())
	require.Error(t, err)
	var rotErr *RotationError
	require.ErrorAs(t, err, &rotErr)
	assert.Equal(t, 3, rotErr.Attempts)
	assert.Equal(t, 3, auth.callCount())

	assert.False(t, m.Healthy(), "exhausted retries must gate new leases")
	assert.Equal(t, "old", m.Bearer(), "in-flight work keeps the last good token")
}

func TestManager_RunRotatesProactively(t *testing.T) {
	defer goleak.VerifyNone(t)

	// 40ms lifetime at ratio 0.5 → rotation roughly every 20ms.
	auth := &scriptedAuth{results: []func() (Bundle, error){bundleOf("t", 40 * time.Millisecond)}}
	m := NewManager(auth, Config{SafetyRatio: 0.5, MaxRetries: 3, RetryJitter: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for auth.callCount() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	require.NoError(t, <-done)
	assert.GreaterOrEqual(t, auth.callCount(), 3, "manager must rotate before expiry, repeatedly")
	assert.True(t, m.Healthy())
}

func TestManager_RunRecoversAfterOutage(t *testing.T) {
	defer goleak.VerifyNone(t)

	auth := &scriptedAuth{results: []func() (Bundle, error){
		bundleOf("t1", 20*time.Millisecond),
		authFailure("outage"),
		authFailure("outage"),
		authFailure("outage"),
		bundleOf("t2", time.Hour),
	}}
	m := NewManager(auth, Config{SafetyRatio: 0.5, MaxRetries: 3, RetryJitter: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.Healthy() && m.Bearer() == "t2" {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, "t2", m.Bearer(), "gate must reopen once rotation succeeds again")
	assert.True(t, m.Healthy())
}

func TestManager_ConfigDefaults(t *testing.T) {
	m := NewManager(&scriptedAuth{results: []func() (Bundle, error){bundleOf("t", time.Hour)}}, Config{})
	assert.InDelta(t, 0.75, m.cfg.SafetyRatio, 1e-9)
	assert.Equal(t, 3, m.cfg.MaxRetries)
}
