// SPDX-License-Identifier: MIT

package worker

import (
	"context"
	"math/rand/v2"
	"time"
)

// shutdownSlice bounds how long a sleeping loop goes without checking for
// cancellation.
const shutdownSlice = 50 * time.Millisecond

// pollDelay returns a backoff in [min, max], derived deterministically from
// the wall clock's sub-second component so a fleet of nodes naturally spreads
// its polls.
func pollDelay(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	frac := float64(time.Now().Nanosecond()) / float64(time.Second)
	d := min + time.Duration(frac*float64(max-min))
	if d < min {
		return min
	}
	if d > max {
		return max
	}
	return d
}

// heartbeatDelay returns a debounce wait in [max/2, max].
func heartbeatDelay(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	half := max / 2
	return half + time.Duration(rand.Int64N(int64(max-half)+1))
}

// sleepInterruptible sleeps for d, waking in slices of at most 50ms so ctx
// cancellation is observed promptly. It reports false when interrupted.
func sleepInterruptible(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C // drain initial fire

	deadline := time.Now().Add(d)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return true
		}
		slice := remaining
		if slice > shutdownSlice {
			slice = shutdownSlice
		}
		timer.Reset(slice)
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
		}
	}
}
