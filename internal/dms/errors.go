// SPDX-License-Identifier: MIT

package dms

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrUnauthorized = errors.New("dms: unauthorized")
	ErrTimeout      = errors.New("dms: request timed out")
	ErrHTTP         = errors.New("dms: unexpected status")
	ErrTransport    = errors.New("dms: transport failure")
)

// ClientError wraps the sentinel errors with request context.
type ClientError struct {
	Sentinel  error
	Operation string
	Status    int
	Body      string
	Err       error // nested lower-level error (e.g. net.Error)
}

func (e *ClientError) Error() string {
	msg := fmt.Sprintf("dms: %s: %v", e.Operation, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ClientError) Unwrap() error {
	return e.Sentinel
}
