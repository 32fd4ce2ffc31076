// SPDX-License-Identifier: MIT

package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_ResolveDispatchesByCapability(t *testing.T) {
	legacy := &testRunner{capability: "/reconstruction/legacy/v1"}
	splat := &testRunner{capability: "/reconstruction/splat/v2"}
	reg := sealedRegistry(t, legacy, splat)

	got, ok := reg.Resolve("/reconstruction/splat/v2")
	require.True(t, ok)
	assert.Same(t, Runner(splat), got)

	got, ok = reg.Resolve("/reconstruction/legacy/v1")
	require.True(t, ok)
	assert.Same(t, Runner(legacy), got)

	_, ok = reg.Resolve("/reconstruction/legacy/v2")
	assert.False(t, ok)
}

func TestRegistry_RejectsDuplicatesAndEmpty(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&testRunner{capability: "cap"}))

	err := reg.Register(&testRunner{capability: "cap"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")

	err = reg.Register(&testRunner{capability: ""})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty capability")
}

func TestRegistry_SealedRefusesRegistration(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&testRunner{capability: "a"}))
	reg.Seal()

	err := reg.Register(&testRunner{capability: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sealed")
	assert.Equal(t, []string{"a"}, reg.Capabilities())
}

func TestRegistry_CapabilitiesSorted(t *testing.T) {
	reg := sealedRegistry(t,
		&testRunner{capability: "c"},
		&testRunner{capability: "a"},
		&testRunner{capability: "b"},
	)
	assert.Equal(t, []string{"a", "b", "c"}, reg.Capabilities())
}
