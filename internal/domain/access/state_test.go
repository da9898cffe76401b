package access

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestSuppressionWindow_Boundaries checks that a window blocks until exactly T+D.
func TestSuppressionWindow_Boundaries(t *testing.T) {
	t.Parallel()

	armed := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	w := SuppressionWindow{State: StateGranted, ExpiresAt: armed.Add(5 * time.Second)}

	require.True(t, w.Active(armed))
	require.True(t, w.Active(armed.Add(4999*time.Millisecond)))
	require.False(t, w.Active(armed.Add(5*time.Second)))
	require.Equal(t, 2*time.Second, w.Remaining(armed.Add(3*time.Second)))
	require.Zero(t, w.Remaining(armed.Add(6*time.Second)))

	require.False(t, SuppressionWindow{}.Active(armed))
}

// TestTerminalState_Parse round-trips every state label.
func TestTerminalState_Parse(t *testing.T) {
	t.Parallel()

	for state := StateIdle; state <= StateUnavailable; state++ {
		got, ok := ParseTerminalState(state.String())
		require.True(t, ok)
		require.Equal(t, state, got)
	}

	_, ok := ParseTerminalState("Open")
	require.False(t, ok)

	require.True(t, StateEmergency.Suppressing())
	require.False(t, StateIdle.Suppressing())
}

// TestIdentityClone verifies that Clone deep-copies the descriptor and handles nil.
func TestIdentityClone(t *testing.T) {
	t.Parallel()

	require.Nil(t, (*Identity)(nil).Clone())

	a := &Identity{ID: "S001", DisplayName: "Ayesha Khan", Descriptor: []float32{0.1, 0.2}}
	b := a.Clone()

	require.Equal(t, a, b)
	require.NotSame(t, a, b)

	b.Descriptor[0] = 9
	require.InDelta(t, 0.1, a.Descriptor[0], 1e-6)
	require.True(t, a.HasDescriptor())
}

// TestFindIdentity covers lookups against a static directory.
func TestFindIdentity(t *testing.T) {
	t.Parallel()

	dir := StaticDirectory{{ID: "S001"}}

	_, ok := FindIdentity(dir, "S001")
	require.True(t, ok)

	_, ok = FindIdentity(dir, "")
	require.False(t, ok)

	_, ok = FindIdentity(nil, "S001")
	require.False(t, ok)
}
