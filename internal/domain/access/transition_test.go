package access

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var errPolicyBroken = errors.New("policy broken")

// denyDepartment refuses one department.
type denyDepartment string

func (d denyDepartment) Allow(identity Identity) (bool, error) {
	return identity.DepartmentID != string(d), nil
}

// brokenPolicy always fails.
type brokenPolicy struct{}

func (brokenPolicy) Allow(Identity) (bool, error) {
	return false, errPolicyBroken
}

func testDirectory() StaticDirectory {
	return StaticDirectory{
		{ID: "S001", DisplayName: "Ayesha Khan", DepartmentID: "CS", SectionID: "CS-A"},
		{ID: "S002", DisplayName: "Bilal Ahmed", DepartmentID: "EE", SectionID: "EE-B"},
	}
}

func testRules() Rules {
	return Rules{Windows: DefaultWindows(), AuditUser: "System-AI@gate-1"}
}

// TestResolve_IdentifiedGranted covers scenario A: a known QR token grants access.
func TestResolve_IdentifiedGranted(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)

	got := Resolve(Identified("S001", ViaQR), testDirectory(), testRules(), now)
	want := Transition{
		Next:     StateGranted,
		Suppress: 5 * time.Second,
		AccessLog: &AccessLogEntry{
			IdentityID:   "S001",
			Name:         "Ayesha Khan",
			DepartmentID: "CS",
			SectionID:    "CS-A",
			Timestamp:    now,
			Status:       StatusGranted,
			Via:          ViaQR,
		},
		Display: "Access Granted: Ayesha Khan",
		Subject: "Ayesha Khan",
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Resolve() mismatch (-want +got):\n%s", diff)
	}
}

// TestResolve_UnknownToken covers scenario B: an unlisted token is denied without a log entry.
func TestResolve_UnknownToken(t *testing.T) {
	t.Parallel()

	got := Resolve(Unknown("GARBAGE123"), testDirectory(), testRules(), time.Now())

	require.Equal(t, StateDenied, got.Next)
	require.Equal(t, 3*time.Second, got.Suppress)
	require.Nil(t, got.AccessLog)
	require.Nil(t, got.Audit)
	require.Equal(t, "GARBAGE123", got.Subject)
	require.Equal(t, DisplayUnknown, got.Display)
}

// TestResolve_Threat covers scenario C: a knife raises an emergency with one audit entry.
func TestResolve_Threat(t *testing.T) {
	t.Parallel()

	now := time.Now()

	got := Resolve(ThreatDetected("knife", 0.4, ""), testDirectory(), testRules(), now)

	require.Equal(t, StateEmergency, got.Next)
	require.Equal(t, 10*time.Second, got.Suppress)
	require.Nil(t, got.AccessLog)
	require.NotNil(t, got.Audit)
	require.Equal(t, ActionSecurityAlert, got.Audit.Action)
	require.Equal(t, "Weapon detected at terminal: KNIFE by Unknown Person (40%)", got.Audit.Details)
	require.Equal(t, "System-AI@gate-1", got.Audit.User)
	require.Equal(t, now, got.Audit.Timestamp)
	require.Equal(t, "EMERGENCY: KNIFE DETECTED! (Unknown Person)", got.Display)
	require.Equal(t, "KNIFE 40%", got.Subject)

	named := Resolve(ThreatDetected("pistol", 0.873, "Bilal Ahmed"), testDirectory(), testRules(), now)
	require.Contains(t, named.Audit.Details, "PISTOL by Bilal Ahmed (87%)")
}

// TestResolve_NoSideEffects covers the outcomes that return to Idle.
func TestResolve_NoSideEffects(t *testing.T) {
	t.Parallel()

	for _, outcome := range []Outcome{NoSignal(), TimedOut(), DetectorError(SourceFace, "model not loaded")} {
		got := Resolve(outcome, testDirectory(), testRules(), time.Now())

		require.Equal(t, StateIdle, got.Next, outcome.String())
		require.Zero(t, got.Suppress)
		require.Nil(t, got.AccessLog)
		require.Nil(t, got.Audit)
	}
}

// TestResolve_PolicyDeny records a denied entry for a known but refused identity.
func TestResolve_PolicyDeny(t *testing.T) {
	t.Parallel()

	rules := testRules()
	rules.Policy = denyDepartment("EE")

	got := Resolve(Identified("S002", ViaFace), testDirectory(), rules, time.Now())
	require.Equal(t, StateDenied, got.Next)
	require.Equal(t, 3*time.Second, got.Suppress)
	require.NotNil(t, got.AccessLog)
	require.Equal(t, StatusDenied, got.AccessLog.Status)
	require.Equal(t, ViaFace, got.AccessLog.Via)

	allowed := Resolve(Identified("S001", ViaFace), testDirectory(), rules, time.Now())
	require.Equal(t, StateGranted, allowed.Next)

	rules.Policy = brokenPolicy{}
	failed := Resolve(Identified("S001", ViaQR), testDirectory(), rules, time.Now())
	require.Equal(t, StateDenied, failed.Next)
}

// TestResolve_VanishedIdentity denies an id that left the directory mid-cycle.
func TestResolve_VanishedIdentity(t *testing.T) {
	t.Parallel()

	got := Resolve(Identified("S999", ViaQR), testDirectory(), testRules(), time.Now())
	require.Equal(t, StateDenied, got.Next)
	require.Nil(t, got.AccessLog)
	require.Equal(t, "S999", got.Subject)
}

// TestOutcomeKinds_Exclusive checks that every constructor yields its own kind.
func TestOutcomeKinds_Exclusive(t *testing.T) {
	t.Parallel()

	outcomes := []Outcome{
		Identified("S001", ViaQR),
		Unknown(""),
		ThreatDetected("knife", 0.4, ""),
		NoSignal(),
		TimedOut(),
		DetectorError(SourceQR, "x"),
	}

	seen := make(map[OutcomeKind]bool, len(outcomes))
	for _, o := range outcomes {
		require.False(t, seen[o.Kind], o.Kind.String())
		seen[o.Kind] = true
	}

	require.Len(t, seen, 6)
}
