// SPDX-License-Identifier: MIT

// Package worker implements the task lifecycle engine: polling DMS for
// capability-matched leases, running each lease in a session with a debounced
// heartbeat loop, and reporting terminal outcomes.
package worker

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/ManuGH/fleetnode/internal/dms"
	"github.com/ManuGH/fleetnode/internal/domainstore"
)

// Runner executes one kind of work. Implementations advertise exactly one
// capability string and must check IsCancelled at their own cadence.
type Runner interface {
	// Capability returns the routing key this runner serves,
	// e.g. "/reconstruction/legacy/v1".
	Capability() string

	// Run executes one leased task. The returned payload is forwarded
	// verbatim as the result of the terminal complete call.
	Run(ctx context.Context, task *TaskCtx) (json.RawMessage, error)
}

// InputSource materialises input artifacts by content ID.
type InputSource interface {
	GetBytesByCID(ctx context.Context, cid string) ([]byte, error)
	MaterializeCIDToTemp(ctx context.Context, cid string) (string, error)
	MaterializeCIDWithMeta(ctx context.Context, cid string) (*domainstore.MaterializedInput, error)
}

// ArtifactSink uploads task outputs under the session's logical prefix.
type ArtifactSink interface {
	PutBytes(ctx context.Context, relPath string, data []byte) error
	PutFile(ctx context.Context, relPath, filePath string) error
	OpenMultipart(ctx context.Context, relPath string) (domainstore.MultipartUpload, error)
}

// ControlPlane is the runner's channel back into the session: progress and
// log events feed the heartbeat loop, IsCancelled surfaces cancel requests
// received on heartbeat responses.
type ControlPlane interface {
	Progress(value string)
	LogEvent(event string)
	IsCancelled() bool
}

// AccessTokenProvider exposes the current domain access token to runners that
// talk to domain services directly.
type AccessTokenProvider interface {
	AccessToken() string
}

// TaskCtx bundles everything a runner needs and nothing more.
type TaskCtx struct {
	Lease   dms.LeaseEnvelope
	Inputs  InputSource
	Outputs ArtifactSink
	Control ControlPlane
	Token   AccessTokenProvider
}

// TaskAPI is the slice of the DMS client the engine depends on.
// *dms.Client satisfies it; tests substitute fakes.
type TaskAPI interface {
	LeaseByCapability(ctx context.Context, capability string) (*dms.LeaseEnvelope, error)
	Heartbeat(ctx context.Context, taskID uuid.UUID, data dms.HeartbeatData) (*dms.LeaseEnvelope, error)
	Complete(ctx context.Context, taskID uuid.UUID, req dms.CompleteRequest) error
	Fail(ctx context.Context, taskID uuid.UUID, req dms.FailRequest) error
}
