// SPDX-License-Identifier: MIT

package worker

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/ManuGH/fleetnode/internal/dms"
)

func newBool() *atomic.Bool {
	return &atomic.Bool{}
}

// fakeAPI is an in-memory TaskAPI recording every call in order.
type fakeAPI struct {
	mu sync.Mutex

	// leases is consumed front-to-back by LeaseByCapability; nil entries
	// mean "no work".
	leases []*dms.LeaseEnvelope
	// leaseErr, when set, is returned by every LeaseByCapability call.
	leaseErr error

	// heartbeatFn builds the envelope returned for each heartbeat.
	heartbeatFn func(data dms.HeartbeatData) *dms.LeaseEnvelope

	// completeErr / failErr simulate transport failures of terminal calls.
	completeErr error
	failErr     error

	// failBlock, when set, parks Fail until the channel closes. Lets tests
	// hold a session open without real work.
	failBlock chan struct{}

	ops        []string
	heartbeats []dms.HeartbeatData
	completes  []dms.CompleteRequest
	fails      []dms.FailRequest
	leaseCalls int
}

var _ TaskAPI = (*fakeAPI)(nil)

func (f *fakeAPI) LeaseByCapability(_ context.Context, capability string) (*dms.LeaseEnvelope, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leaseCalls++
	f.ops = append(f.ops, "lease")
	if f.leaseErr != nil {
		return nil, f.leaseErr
	}
	if len(f.leases) == 0 {
		return nil, nil
	}
	env := f.leases[0]
	f.leases = f.leases[1:]
	return env, nil
}

func (f *fakeAPI) Heartbeat(_ context.Context, _ uuid.UUID, data dms.HeartbeatData) (*dms.LeaseEnvelope, error) {
	f.mu.Lock()
	fn := f.heartbeatFn
	f.ops = append(f.ops, "heartbeat")
	f.heartbeats = append(f.heartbeats, data)
	f.mu.Unlock()
	if fn != nil {
		return fn(data), nil
	}
	return &dms.LeaseEnvelope{}, nil
}

func (f *fakeAPI) Complete(_ context.Context, _ uuid.UUID, req dms.CompleteRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "complete")
	f.completes = append(f.completes, req)
	return f.completeErr
}

func (f *fakeAPI) Fail(_ context.Context, _ uuid.UUID, req dms.FailRequest) error {
	f.mu.Lock()
	block := f.failBlock
	f.ops = append(f.ops, "fail")
	f.fails = append(f.fails, req)
	err := f.failErr
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return err
}

func (f *fakeAPI) leaseCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.leaseCalls
}

func (f *fakeAPI) opLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ops...)
}

func (f *fakeAPI) completedRequests() []dms.CompleteRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]dms.CompleteRequest(nil), f.completes...)
}

func (f *fakeAPI) failedRequests() []dms.FailRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]dms.FailRequest(nil), f.fails...)
}

// testRunner is a scripted runner.
type testRunner struct {
	capability string
	run        func(ctx context.Context, task *TaskCtx) (json.RawMessage, error)
	calls      atomic.Int32
}

var _ Runner = (*testRunner)(nil)

func (r *testRunner) Capability() string { return r.capability }

func (r *testRunner) Run(ctx context.Context, task *TaskCtx) (json.RawMessage, error) {
	r.calls.Add(1)
	if r.run == nil {
		return nil, nil
	}
	return r.run(ctx, task)
}

// testLease builds a minimal valid lease envelope.
func testLease(capability, serverURL, prefix, token string) dms.LeaseEnvelope {
	domainID := uuid.New()
	env := dms.LeaseEnvelope{
		DomainID: &domainID,
		Task: dms.TaskSpec{
			ID:         uuid.New(),
			Capability: capability,
		},
	}
	if serverURL != "" {
		env.DomainServerURL = &serverURL
	}
	if prefix != "" {
		env.Task.OutputsPrefix = &prefix
	}
	if token != "" {
		env.AccessToken = &token
	}
	return env
}
