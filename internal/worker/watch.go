// SPDX-License-Identifier: MIT

package worker

import (
	"sync"

	"github.com/ManuGH/fleetnode/internal/dms"
)

// progressSlot is a watch channel: a one-value slot writers overwrite and a
// notification the scheduler blocks on. Fast producers never queue behind the
// heartbeat loop; they merely replace the pending value.
type progressSlot struct {
	mu       sync.Mutex
	pending  dms.HeartbeatData
	dirty    bool
	notifyCh chan struct{}
}

func newProgressSlot() *progressSlot {
	return &progressSlot{notifyCh: make(chan struct{}, 1)}
}

// update mutates the pending value under the lock and signals the scheduler.
func (s *progressSlot) update(mutate func(*dms.HeartbeatData)) {
	s.mu.Lock()
	mutate(&s.pending)
	s.dirty = true
	s.mu.Unlock()

	select {
	case s.notifyCh <- struct{}{}:
	default: // a notification is already pending; the value was coalesced
	}
}

// take reads and clears the pending value. The second return is false when
// nothing changed since the last take.
func (s *progressSlot) take() (dms.HeartbeatData, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return dms.HeartbeatData{}, false
	}
	data := s.pending
	s.pending.Events = nil
	s.dirty = false
	return data, true
}

// changed exposes the notification channel.
func (s *progressSlot) changed() <-chan struct{} {
	return s.notifyCh
}
