// SPDX-License-Identifier: MIT

package worker

import (
	"time"

	"github.com/ManuGH/fleetnode/internal/dms"
)

// heartbeatScheduler debounces bursty progress updates into single heartbeat
// dispatches. On each slot change it waits a jittered window in
// [jitterMax/2, jitterMax]; updates landing during the wait are coalesced and
// the dispatch carries the latest value. N rapid updates within one window
// produce exactly one heartbeat with the Nth payload.
type heartbeatScheduler struct {
	slot        *progressSlot
	shutdown    <-chan struct{}
	jitterMax   time.Duration
	onHeartbeat func(dms.HeartbeatData)
}

// run loops until the shutdown channel closes. At most one dispatch can be in
// flight when it returns; the session joins this goroutine before any
// terminal DMS call so no heartbeat races complete or fail.
func (h *heartbeatScheduler) run() {
	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C // drain initial fire

	for {
		select {
		case <-h.shutdown:
			return
		case <-h.slot.changed():
		}

		if delay := heartbeatDelay(h.jitterMax); delay > 0 {
			timer.Reset(delay)
			select {
			case <-h.shutdown:
				return
			case <-timer.C:
			}
		}

		if data, ok := h.slot.take(); ok {
			h.onHeartbeat(data)
		}
	}
}
