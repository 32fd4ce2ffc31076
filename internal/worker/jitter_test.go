// SPDX-License-Identifier: MIT

package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPollDelay_Bounds(t *testing.T) {
	cases := []struct {
		min, max time.Duration
	}{
		{0, 0},
		{time.Millisecond, time.Millisecond},
		{time.Millisecond, 30 * time.Millisecond},
		{time.Second, 30 * time.Second},
	}
	for _, tc := range cases {
		for i := 0; i < 100; i++ {
			d := pollDelay(tc.min, tc.max)
			assert.GreaterOrEqual(t, d, tc.min)
			assert.LessOrEqual(t, d, tc.max)
		}
	}
}

func TestHeartbeatDelay_Bounds(t *testing.T) {
	max := 250 * time.Millisecond
	for i := 0; i < 100; i++ {
		d := heartbeatDelay(max)
		assert.GreaterOrEqual(t, d, max/2)
		assert.LessOrEqual(t, d, max)
	}
	assert.Zero(t, heartbeatDelay(0))
}

func TestSleepInterruptible_FullSleep(t *testing.T) {
	start := time.Now()
	ok := sleepInterruptible(context.Background(), 30*time.Millisecond)
	assert.True(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestSleepInterruptible_CancelObservedPromptly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan bool, 1)
	go func() {
		done <- sleepInterruptible(ctx, 10*time.Second)
	}()

	time.Sleep(10 * time.Millisecond)
	start := time.Now()
	cancel()

	select {
	case ok := <-done:
		assert.False(t, ok)
		assert.Less(t, time.Since(start), 200*time.Millisecond)
	case <-time.After(time.Second):
		t.Fatal("sleep did not observe cancellation")
	}
}
