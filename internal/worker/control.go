// SPDX-License-Identifier: MIT

package worker

import (
	"sync/atomic"

	"github.com/ManuGH/fleetnode/internal/dms"
	"github.com/ManuGH/fleetnode/internal/domainstore"
)

// controlPlane adapts runner-side progress calls onto the session's watch
// slot and answers cancellation polls from the session flag the heartbeat
// loop maintains.
type controlPlane struct {
	slot      *progressSlot
	cancelled *atomic.Bool
}

var _ ControlPlane = (*controlPlane)(nil)

func (c *controlPlane) Progress(value string) {
	c.slot.update(func(d *dms.HeartbeatData) {
		d.Progress = value
	})
}

func (c *controlPlane) LogEvent(event string) {
	c.slot.update(func(d *dms.HeartbeatData) {
		d.Events = append(d.Events, event)
	})
}

func (c *controlPlane) IsCancelled() bool {
	return c.cancelled.Load()
}

// tokenReader exposes the session TokenRef to runners as a read-only port.
type tokenReader struct {
	ref *domainstore.TokenRef
}

var _ AccessTokenProvider = (*tokenReader)(nil)

func (t *tokenReader) AccessToken() string {
	return t.ref.Get()
}
