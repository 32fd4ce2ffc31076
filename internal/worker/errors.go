// SPDX-License-Identifier: MIT

package worker

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRunner marks a lease whose capability no registered runner serves.
	// It is terminal for the task: DMS is told to fail, not to retry here.
	ErrNoRunner = errors.New("worker: no runner")

	// ErrRunner wraps a failure returned by a runner invocation.
	ErrRunner = errors.New("worker: runner failed")

	// ErrLeaseExpired marks a session whose lease died while the runner was
	// still executing.
	ErrLeaseExpired = errors.New("worker: lease expired")
)

// NoRunnerError carries the unmatched capability.
type NoRunnerError struct {
	Capability string
}

func (e *NoRunnerError) Error() string {
	return fmt.Sprintf("no runner for %s", e.Capability)
}

func (e *NoRunnerError) Unwrap() error {
	return ErrNoRunner
}
