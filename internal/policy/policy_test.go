package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/access-terminal/internal/domain/access"
)

// TestCompile_EmptyAllowsEveryone verifies the blank rule.
func TestCompile_EmptyAllowsEveryone(t *testing.T) {
	t.Parallel()

	p, err := Compile("   ")
	require.NoError(t, err)

	allowed, err := p.Allow(access.Identity{ID: "S-1"})
	require.NoError(t, err)
	require.True(t, allowed)
}

// TestCompile_Rejects verifies syntax and type errors surface at compile time.
func TestCompile_Rejects(t *testing.T) {
	t.Parallel()

	for _, rule := range []string{"department ==", "hour + 1", "unknown_field == 1"} {
		_, err := Compile(rule)
		require.Error(t, err, rule)
	}
}

// TestPolicy_Allow evaluates identity and clock fields.
func TestPolicy_Allow(t *testing.T) {
	t.Parallel()

	p, err := Compile(`department in ["CSE", "ECE"] && hour >= 7 && hour < 22 && enrolled`)
	require.NoError(t, err)

	morning := time.Date(2026, 3, 2, 9, 0, 0, 0, time.Local)
	night := time.Date(2026, 3, 2, 23, 0, 0, 0, time.Local)

	enrolled := access.Identity{ID: "S-1", DepartmentID: "CSE", Descriptor: []float32{0.1}}

	tests := []struct {
		name     string
		identity access.Identity
		at       time.Time
		want     bool
	}{
		{name: "allowed", identity: enrolled, at: morning, want: true},
		{name: "too late", identity: enrolled, at: night, want: false},
		{name: "other department", identity: access.Identity{ID: "S-2", DepartmentID: "ME", Descriptor: []float32{1}}, at: morning},
		{name: "not enrolled", identity: access.Identity{ID: "S-3", DepartmentID: "ECE"}, at: morning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			allowed, err := p.WithClock(func() time.Time { return tt.at }).Allow(tt.identity)
			require.NoError(t, err)
			require.Equal(t, tt.want, allowed)
		})
	}

	require.Contains(t, p.String(), "department in")
}
