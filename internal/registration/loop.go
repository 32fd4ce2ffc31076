// SPDX-License-Identifier: MIT

package registration

import (
	"context"
	"fmt"
	"time"

	"github.com/ManuGH/fleetnode/internal/log"
	"github.com/ManuGH/fleetnode/internal/metrics"
)

// Registrar performs one signed announce against the discovery service. The
// secp256k1 attestation lives in the implementation, outside this package.
type Registrar interface {
	Register(ctx context.Context) error
}

// LoopConfig carries the announce cadence. Interval zero means register once
// and return.
type LoopConfig struct {
	Interval   time.Duration
	MaxRetries int
}

// Loop drives periodic registration and keeps the state machine current.
type Loop struct {
	registrar Registrar
	machine   *Machine
	cfg       LoopConfig
}

// NewLoop builds a loop.
func NewLoop(registrar Registrar, machine *Machine, cfg LoopConfig) *Loop {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	return &Loop{registrar: registrar, machine: machine, cfg: cfg}
}

// Run registers, then re-announces every interval until ctx is cancelled.
// Exhausting the retry budget is fatal: the process should exit non-zero.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.registerOnce(ctx); err != nil {
		return err
	}
	if l.cfg.Interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(l.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := l.registerOnce(ctx); err != nil {
				return err
			}
		}
	}
}

// registerOnce runs one announce with up to MaxRetries attempts.
func (l *Loop) registerOnce(ctx context.Context) error {
	logger := log.WithComponent("registration")
	l.machine.Registering()

	var lastErr error
	for attempt := 1; attempt <= l.cfg.MaxRetries; attempt++ {
		err := l.registrar.Register(ctx)
		if err == nil {
			l.machine.Registered(time.Now())
			metrics.SetRegistered(true)
			logger.Info().Msg("node registered")
			return nil
		}
		if ctx.Err() != nil {
			l.machine.Disconnected()
			metrics.SetRegistered(false)
			return nil
		}
		lastErr = err
		logger.Warn().Err(err).Int("attempt", attempt).Msg("registration attempt failed")
	}

	l.machine.Disconnected()
	metrics.SetRegistered(false)
	return fmt.Errorf("registration: giving up after %d attempts: %w", l.cfg.MaxRetries, lastErr)
}
