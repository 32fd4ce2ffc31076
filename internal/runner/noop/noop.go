// SPDX-License-Identifier: MIT

// Package noop provides a harness runner that exercises the whole engine
// without doing real work: it sleeps, reports progress, and drops a small ack
// artifact. Enabled with ENABLE_NOOP for fleet smoke tests.
package noop

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ManuGH/fleetnode/internal/log"
	"github.com/ManuGH/fleetnode/internal/worker"
)

// Capability is the routing key the harness runner advertises.
const Capability = "/noop/v1"

// Runner sleeps for a configured duration in cancellation-aware slices.
type Runner struct {
	sleep time.Duration
}

var _ worker.Runner = (*Runner)(nil)

// New builds the harness runner.
func New(sleep time.Duration) *Runner {
	return &Runner{sleep: sleep}
}

// Capability implements worker.Runner.
func (r *Runner) Capability() string { return Capability }

// Run sleeps in 100ms slices, reporting progress and honoring cancellation.
func (r *Runner) Run(ctx context.Context, task *worker.TaskCtx) (json.RawMessage, error) {
	logger := log.WithComponentFromContext(ctx, "noop-runner")
	logger.Info().Dur("sleep", r.sleep).Msg("noop task starting")
	task.Control.LogEvent("noop started")

	const slice = 100 * time.Millisecond
	deadline := time.Now().Add(r.sleep)
	lastPct := -1
	for remaining := r.sleep; remaining > 0; remaining = time.Until(deadline) {
		if task.Control.IsCancelled() {
			task.Control.LogEvent("noop cancelled")
			return json.RawMessage(`{"cancelled":true}`), nil
		}
		select {
		case <-ctx.Done():
			return json.RawMessage(`{"cancelled":true}`), nil
		case <-time.After(min(slice, remaining)):
		}
		if r.sleep > 0 {
			pct := int(100 * (r.sleep - time.Until(deadline)) / r.sleep)
			if pct > 100 {
				pct = 100
			}
			if pct != lastPct {
				task.Control.Progress(fmt.Sprintf("%d%%", pct))
				lastPct = pct
			}
		}
	}

	ack := []byte(fmt.Sprintf(`{"task_id":%q,"slept_ms":%d}`, task.Lease.Task.ID, r.sleep.Milliseconds()))
	if err := task.Outputs.PutBytes(ctx, "noop/ack.json", ack); err != nil {
		return nil, fmt.Errorf("noop: ack upload: %w", err)
	}
	task.Control.LogEvent("noop finished")
	return json.RawMessage(`{"ok":true}`), nil
}
