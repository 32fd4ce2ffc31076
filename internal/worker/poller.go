// SPDX-License-Identifier: MIT

package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/fleetnode/internal/log"
	"github.com/ManuGH/fleetnode/internal/metrics"
)

// PollerConfig carries the polling knobs.
type PollerConfig struct {
	BackoffMin     time.Duration
	BackoffMax     time.Duration
	MaxConcurrency int
	Session        SessionConfig
}

// Poller runs one lease loop per advertised capability. Any DMS error is
// logged and absorbed; the loop continues after its next jittered backoff.
type Poller struct {
	api      TaskAPI
	registry *Registry
	cfg      PollerConfig

	// gate refuses new leases while the node token cannot be rotated.
	// In-flight sessions are unaffected.
	gate func() bool

	inflight atomic.Int64
	sessions sync.WaitGroup
}

// NewPoller builds a poller. gate may be nil, meaning leases are always
// admitted.
func NewPoller(api TaskAPI, registry *Registry, cfg PollerConfig, gate func() bool) *Poller {
	if cfg.MaxConcurrency < 1 {
		cfg.MaxConcurrency = 1
	}
	return &Poller{api: api, registry: registry, cfg: cfg, gate: gate}
}

// Run polls until ctx is cancelled, then waits for in-flight sessions to
// finish. Cancellation is observed within one 50ms sleep slice.
func (p *Poller) Run(ctx context.Context) error {
	p.registry.Seal()
	caps := p.registry.Capabilities()
	logger := log.WithComponent("poller")
	logger.Info().
		Strs("capabilities", caps).
		Int("max_concurrency", p.cfg.MaxConcurrency).
		Msg("poller starting")

	g, ctx := errgroup.WithContext(ctx)
	for _, capability := range caps {
		capability := capability
		g.Go(func() error {
			p.pollCapability(ctx, capability)
			return nil
		})
	}
	err := g.Wait()
	p.sessions.Wait()
	return err
}

func (p *Poller) pollCapability(ctx context.Context, capability string) {
	logger := log.WithComponent("poller").With().Str(log.FieldCapability, capability).Logger()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if (p.gate != nil && !p.gate()) || p.inflight.Load() >= int64(p.cfg.MaxConcurrency) {
			if !p.backoff(ctx) {
				return
			}
			continue
		}

		env, err := p.api.LeaseByCapability(ctx, capability)
		if err != nil {
			metrics.RecordPollError()
			logger.Warn().Err(err).Msg("lease poll failed")
			if !p.backoff(ctx) {
				return
			}
			continue
		}
		if env == nil {
			if !p.backoff(ctx) {
				return
			}
			continue
		}

		metrics.RecordLeaseAcquired(capability)
		logger.Info().Str(log.FieldTaskID, env.Task.ID.String()).Msg("task leased")

		// Hand off to a session without awaiting it; the loop continues so
		// the next lease can be acquired.
		p.inflight.Add(1)
		metrics.SessionStarted()
		p.sessions.Add(1)
		lease := *env
		// Detach the session from poller cancellation: shutdown stops
		// polling but lets in-flight work drain to a terminal call.
		sessionCtx := context.WithoutCancel(ctx)
		go func() {
			defer p.sessions.Done()
			defer metrics.SessionEnded()
			defer p.inflight.Add(-1)
			session := NewSession(p.api, p.registry, p.cfg.Session)
			session.Run(sessionCtx, lease)
		}()
	}
}

func (p *Poller) backoff(ctx context.Context) bool {
	return sleepInterruptible(ctx, pollDelay(p.cfg.BackoffMin, p.cfg.BackoffMax))
}

// InFlight reports the number of running sessions.
func (p *Poller) InFlight() int64 {
	return p.inflight.Load()
}
