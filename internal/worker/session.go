// SPDX-License-Identifier: MIT

package worker

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"

	"github.com/ManuGH/fleetnode/internal/dms"
	"github.com/ManuGH/fleetnode/internal/domainstore"
	"github.com/ManuGH/fleetnode/internal/log"
	"github.com/ManuGH/fleetnode/internal/metrics"
	"github.com/ManuGH/fleetnode/internal/telemetry"
)

// Outcome is the terminal result of one session.
type Outcome string

const (
	OutcomeComplete  Outcome = "complete"
	OutcomeFail      Outcome = "fail"
	OutcomeAbandoned Outcome = "abandoned" // terminal call lost; DMS re-leases on expiry
)

// SessionConfig carries the per-session knobs.
type SessionConfig struct {
	HeartbeatJitter time.Duration
	RequestTimeout  time.Duration
	WorkRoot        string // base directory for materialized inputs; empty uses the OS temp dir
}

// portsFactory builds the storage ports for a bound lease. Tests substitute
// in-memory fakes.
type portsFactory func(serverURL string, domainID uuid.UUID, token *domainstore.TokenRef, workDir, prefix string, artifacts *domainstore.ArtifactTable, timeout time.Duration) (InputSource, ArtifactSink)

func defaultPorts(serverURL string, domainID uuid.UUID, token *domainstore.TokenRef, workDir, prefix string, artifacts *domainstore.ArtifactTable, timeout time.Duration) (InputSource, ArtifactSink) {
	client := domainstore.NewClient(serverURL, domainID, token, timeout)
	return domainstore.NewInput(client, workDir), domainstore.NewSink(client, prefix, artifacts)
}

// Session runs exactly one leased task from hand-off to terminal DMS call.
type Session struct {
	api      TaskAPI
	registry *Registry
	cfg      SessionConfig

	mu    sync.RWMutex
	lease dms.LeaseEnvelope // current envelope view; replaced whole on heartbeat

	token     *domainstore.TokenRef
	artifacts *domainstore.ArtifactTable
	cancelled atomic.Bool
	expired   atomic.Bool
	abort     context.CancelFunc

	ports portsFactory
}

// NewSession binds a session to its collaborators. Run may be called once.
func NewSession(api TaskAPI, registry *Registry, cfg SessionConfig) *Session {
	return &Session{api: api, registry: registry, cfg: cfg, ports: defaultPorts}
}

func (s *Session) currentLease() dms.LeaseEnvelope {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lease
}

// Run drives the full lifecycle: bind, resolve runner, wire resources, spawn
// heartbeat, invoke runner, finalise, clean up. Every path ends in exactly
// one of complete, fail, or (on a lost terminal call) lease expiry at DMS.
func (s *Session) Run(ctx context.Context, lease dms.LeaseEnvelope) Outcome {
	task := lease.Task
	jobID := ""
	if task.JobID != nil {
		jobID = task.JobID.String()
	}
	domainID := ""
	if lease.DomainID != nil {
		domainID = lease.DomainID.String()
	}
	ctx = log.ContextWithTask(ctx, task.ID.String(), jobID, task.Capability, domainID)
	logger := log.WithComponentFromContext(ctx, "session")

	ctx, span := telemetry.Tracer("fleetnode/worker").Start(ctx, "session.run",
		telemetry.TaskAttributes(task.ID.String(), jobID, task.Capability, domainID))
	defer span.End()

	// Bind.
	if lease.DomainID == nil {
		return s.failTask(ctx, lease, "lease missing domain_id", nil)
	}
	if lease.DomainServerURL == nil || *lease.DomainServerURL == "" {
		return s.failTask(ctx, lease, "lease missing domain_server_url", nil)
	}

	// Resolve runner. A miss is terminal for the task; no retry.
	runner, ok := s.registry.Resolve(task.Capability)
	if !ok {
		return s.failTask(ctx, lease, (&NoRunnerError{Capability: task.Capability}).Error(), nil)
	}

	prefix := ""
	if task.OutputsPrefix != nil {
		prefix = *task.OutputsPrefix
	} else {
		logger.Debug().Msg("outputs_prefix absent, uploads use empty prefix")
	}

	// Wire resources.
	s.mu.Lock()
	s.lease = lease
	s.mu.Unlock()
	initialToken := ""
	if lease.AccessToken != nil {
		initialToken = *lease.AccessToken
	}
	s.token = domainstore.NewTokenRef(initialToken)
	s.artifacts = domainstore.NewArtifactTable()

	workDir, err := os.MkdirTemp(s.cfg.WorkRoot, "task-"+task.ID.String()+"-")
	if err != nil {
		return s.failTask(ctx, lease, "cannot create work directory", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logger.Warn().Err(err).Str(log.FieldPath, workDir).Msg("work directory cleanup failed")
		}
	}()

	inputs, outputs := s.ports(*lease.DomainServerURL, *lease.DomainID, s.token, workDir, prefix, s.artifacts, s.cfg.RequestTimeout)

	slot := newProgressSlot()
	control := &controlPlane{slot: slot, cancelled: &s.cancelled}

	runnerCtx, abort := context.WithCancel(ctx)
	defer abort()
	s.abort = abort

	// Spawn heartbeat. It always starts before the runner and is always
	// joined before the terminal DMS call.
	shutdown := make(chan struct{})
	hbDone := make(chan struct{})
	hb := &heartbeatScheduler{
		slot:      slot,
		shutdown:  shutdown,
		jitterMax: s.cfg.HeartbeatJitter,
		onHeartbeat: func(data dms.HeartbeatData) {
			s.sendHeartbeat(ctx, data)
		},
	}
	go func() {
		defer close(hbDone)
		hb.run()
	}()

	// Invoke runner.
	logger.Info().Msg("runner starting")
	result, runErr := runner.Run(runnerCtx, &TaskCtx{
		Lease:   lease,
		Inputs:  inputs,
		Outputs: outputs,
		Control: control,
		Token:   &tokenReader{ref: s.token},
	})

	// Stop the heartbeat before finalising so none races complete/fail.
	close(shutdown)
	<-hbDone

	switch {
	case s.expired.Load():
		span.SetStatus(codes.Error, "lease expired")
		return s.failTask(ctx, lease, "lease expired", runErr)
	case runErr != nil:
		span.SetStatus(codes.Error, runErr.Error())
		return s.failTask(ctx, lease, runErr.Error(), nil)
	default:
		// A cancelled runner that returns Ok is still a success.
		span.SetStatus(codes.Ok, "")
		return s.completeTask(ctx, lease, result)
	}
}

// sendHeartbeat posts one coalesced progress report and applies the refreshed
// envelope DMS returns. Failures are logged and absorbed: the next update
// retries, and lease expiry is the backstop.
func (s *Session) sendHeartbeat(ctx context.Context, data dms.HeartbeatData) {
	logger := log.WithComponentFromContext(ctx, "heartbeat")
	env, err := s.api.Heartbeat(ctx, s.currentLease().Task.ID, data)
	if err != nil {
		metrics.RecordHeartbeatError()
		logger.Warn().Err(err).Msg("heartbeat failed")
		return
	}
	metrics.RecordHeartbeatSent()
	s.applyEnvelope(ctx, env)
}

// applyEnvelope installs a refreshed lease envelope: rotates the domain
// token, surfaces the cancel flag and checks the lease deadline. The
// domain_server_url and domain_id of a lease never change; only credentials
// and lifetimes do.
func (s *Session) applyEnvelope(ctx context.Context, env *dms.LeaseEnvelope) {
	logger := log.WithComponentFromContext(ctx, "heartbeat")

	if env.AccessToken != nil {
		if s.token.Swap(*env.AccessToken) {
			metrics.RecordDomainTokenRotation()
			logger.Debug().Msg("domain access token rotated")
		}
	}

	s.mu.Lock()
	s.lease = *env
	s.mu.Unlock()

	if env.Cancel && !s.cancelled.Swap(true) {
		logger.Info().Msg("cancellation requested by DMS")
	}

	if env.LeaseExpiresAt != nil && env.LeaseExpiresAt.Before(time.Now()) {
		if !s.expired.Swap(true) {
			logger.Warn().Time("lease_expires_at", *env.LeaseExpiresAt).Msg("lease expired, aborting runner")
		}
		s.cancelled.Store(true)
		if s.abort != nil {
			s.abort()
		}
	}
}

func (s *Session) completeTask(ctx context.Context, lease dms.LeaseEnvelope, result []byte) Outcome {
	logger := log.WithComponentFromContext(ctx, "session")
	req := dms.CompleteRequest{OutputsIndex: s.artifacts.Snapshot(), Result: result}
	if err := s.api.Complete(ctx, lease.Task.ID, req); err != nil {
		// DMS re-offers the task after lease expiry; nothing else to do.
		logger.Error().Err(err).Msg("complete call failed, abandoning task to lease expiry")
		metrics.RecordSessionFinished(string(OutcomeAbandoned))
		return OutcomeAbandoned
	}
	logger.Info().Int("artifacts", len(req.OutputsIndex)).Msg("task completed")
	metrics.RecordSessionFinished(string(OutcomeComplete))
	return OutcomeComplete
}

func (s *Session) failTask(ctx context.Context, lease dms.LeaseEnvelope, reason string, cause error) Outcome {
	logger := log.WithComponentFromContext(ctx, "session")
	details := map[string]string{}
	if cause != nil {
		details["cause"] = cause.Error()
	}
	if err := s.api.Fail(ctx, lease.Task.ID, dms.FailRequest{Reason: reason, Details: details}); err != nil {
		logger.Error().Err(err).Str(log.FieldReason, reason).Msg("fail call failed, abandoning task to lease expiry")
		metrics.RecordSessionFinished(string(OutcomeAbandoned))
		return OutcomeAbandoned
	}
	logger.Info().Str(log.FieldReason, reason).Msg("task failed")
	metrics.RecordSessionFinished(string(OutcomeFail))
	return OutcomeFail
}
