// SPDX-License-Identifier: MIT

package domainstore

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenRef_SwapReportsChange(t *testing.T) {
	ref := NewTokenRef("tA")
	assert.Equal(t, "tA", ref.Get())

	assert.True(t, ref.Swap("tB"))
	assert.Equal(t, "tB", ref.Get())

	assert.False(t, ref.Swap("tB"), "identical token must not count as rotation")
}

func TestTokenRef_ConcurrentReadsSeeWholeValues(t *testing.T) {
	ref := NewTokenRef("old-token-value")
	done := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-done:
				return
			default:
			}
			if i%2 == 0 {
				ref.Swap("old-token-value")
			} else {
				ref.Swap("new-token-value")
			}
		}
	}()

	for i := 0; i < 10000; i++ {
		got := ref.Get()
		if got != "old-token-value" && got != "new-token-value" {
			t.Fatalf("observed torn token value %q", got)
		}
	}
	close(done)
	wg.Wait()
}
