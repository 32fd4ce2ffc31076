// SPDX-License-Identifier: MIT

// Package registration tracks the node's membership in the discovery service:
// a small connection state machine, the in-memory node secret store fed by the
// internal registration endpoint, and the periodic announce loop. The signed
// handshake itself is behind the Registrar interface.
package registration

import (
	"sync"
	"time"
)

// State is the node's registration state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateRegistering  State = "registering"
	StateRegistered   State = "registered"
)

// Status is a point-in-time view of the machine.
type Status struct {
	State           State
	LastHealthcheck time.Time
}

// Machine is the {Disconnected → Registering → Registered → Disconnected}
// state machine with a last-healthcheck timestamp.
type Machine struct {
	mu              sync.RWMutex
	state           State
	lastHealthcheck time.Time
}

// NewMachine starts disconnected.
func NewMachine() *Machine {
	return &Machine{state: StateDisconnected}
}

// Status returns the current state snapshot.
func (m *Machine) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Status{State: m.state, LastHealthcheck: m.lastHealthcheck}
}

// Registering marks a handshake in progress.
func (m *Machine) Registering() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateRegistering
}

// Registered marks a successful handshake and records the healthcheck time.
func (m *Machine) Registered(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateRegistered
	m.lastHealthcheck = now
}

// Disconnected drops back to the initial state. The healthcheck timestamp is
// kept for diagnostics.
func (m *Machine) Disconnected() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateDisconnected
}

// Healthcheck refreshes the liveness timestamp without a state change.
func (m *Machine) Healthcheck(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastHealthcheck = now
}
