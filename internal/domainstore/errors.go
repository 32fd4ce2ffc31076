// SPDX-License-Identifier: MIT

package domainstore

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrBadRequest   = errors.New("domainstore: bad request")
	ErrUnauthorized = errors.New("domainstore: unauthorized")
	ErrNotFound     = errors.New("domainstore: not found")
	ErrConflict     = errors.New("domainstore: conflict")
	ErrServer       = errors.New("domainstore: server error")
	ErrNetwork      = errors.New("domainstore: network failure")

	// ErrMultipartUnsupported is returned by the default chunked-upload path.
	ErrMultipartUnsupported = errors.New("domainstore: multipart not supported")
)

// StorageError wraps the sentinel errors with request context.
type StorageError struct {
	Sentinel  error
	Operation string
	Status    int
	Body      string
	Err       error
}

func (e *StorageError) Error() string {
	msg := fmt.Sprintf("domainstore: %s: %v", e.Operation, e.Sentinel)
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

func (e *StorageError) Unwrap() error {
	return e.Sentinel
}

// mapStatus converts an HTTP status to the matching sentinel. Statuses the
// table does not name come back as ErrServer for 5xx and ErrBadRequest for
// the remaining 4xx.
func mapStatus(status int) error {
	switch {
	case status == 400:
		return ErrBadRequest
	case status == 401:
		return ErrUnauthorized
	case status == 404:
		return ErrNotFound
	case status == 409:
		return ErrConflict
	case status >= 500:
		return ErrServer
	default:
		return ErrBadRequest
	}
}
