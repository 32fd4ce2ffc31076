// SPDX-License-Identifier: MIT

package worker

import (
	"fmt"
	"sort"
)

// Registry maps capability strings to runner implementations. Registration is
// append-only and happens before the engine starts, so lookups need no lock.
type Registry struct {
	runners map[string]Runner
	sealed  bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{runners: make(map[string]Runner)}
}

// Register adds a runner. Registering after the engine started or registering
// two runners for one capability is a programming error.
func (r *Registry) Register(runner Runner) error {
	if r.sealed {
		return fmt.Errorf("worker: registry sealed, cannot register %s", runner.Capability())
	}
	cap := runner.Capability()
	if cap == "" {
		return fmt.Errorf("worker: runner advertises empty capability")
	}
	if _, dup := r.runners[cap]; dup {
		return fmt.Errorf("worker: duplicate runner for %s", cap)
	}
	r.runners[cap] = runner
	return nil
}

// Seal freezes the registry; the poller calls it before starting.
func (r *Registry) Seal() {
	r.sealed = true
}

// Resolve returns the runner for a capability.
func (r *Registry) Resolve(capability string) (Runner, bool) {
	runner, ok := r.runners[capability]
	return runner, ok
}

// Capabilities returns the advertised capability set in stable order.
func (r *Registry) Capabilities() []string {
	caps := make([]string, 0, len(r.runners))
	for cap := range r.runners {
		caps = append(caps, cap)
	}
	sort.Strings(caps)
	return caps
}
