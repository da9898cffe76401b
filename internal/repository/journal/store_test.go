package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/access-terminal/internal/domain/access"
)

func openStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	return store
}

// TestOpen_RequiresPath verifies an empty path is rejected.
func TestOpen_RequiresPath(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), "")
	require.ErrorIs(t, err, errPathRequired)
}

// TestStore_AccessLog verifies ids, ordering and department/section filters.
func TestStore_AccessLog(t *testing.T) {
	t.Parallel()

	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	entries := []access.AccessLogEntry{
		{IdentityID: "S-1", Name: "Asha", DepartmentID: "CSE", SectionID: "A", Status: access.StatusGranted, Via: access.ViaQR, Timestamp: base},
		{IdentityID: "S-2", Name: "Lena", DepartmentID: "CSE", SectionID: "B", Status: access.StatusGranted, Via: access.ViaFace, Timestamp: base.Add(time.Minute)},
		{IdentityID: "S-3", Name: "Omar", DepartmentID: "ECE", SectionID: "A", Status: access.StatusDenied, Via: access.ViaQR, Timestamp: base.Add(2 * time.Minute)},
	}

	for _, entry := range entries {
		stored, err := store.AppendAccess(ctx, entry)
		require.NoError(t, err)
		require.NotEmpty(t, stored.ID)
	}

	all, err := store.ListAccess(ctx, AccessFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "S-3", all[0].IdentityID)
	require.Equal(t, access.ViaQR, all[0].Via)
	require.True(t, all[0].Timestamp.Equal(base.Add(2*time.Minute)))

	cse, err := store.ListAccess(ctx, AccessFilter{DepartmentID: "CSE"})
	require.NoError(t, err)
	require.Len(t, cse, 2)

	section, err := store.ListAccess(ctx, AccessFilter{DepartmentID: "CSE", SectionID: "B"})
	require.NoError(t, err)
	require.Len(t, section, 1)
	require.Equal(t, access.ViaFace, section[0].Via)

	denied, err := store.ListAccess(ctx, AccessFilter{Status: access.StatusDenied, Limit: 5})
	require.NoError(t, err)
	require.Len(t, denied, 1)

	limited, err := store.ListAccess(ctx, AccessFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
}

// TestStore_SecurityAudit verifies audit entries and the action filter.
func TestStore_SecurityAudit(t *testing.T) {
	t.Parallel()

	store := openStore(t)
	ctx := context.Background()

	_, err := store.AppendAudit(ctx, access.SecurityAuditEntry{
		Action:      access.ActionSecurityAlert,
		Entity:      access.AuditEntityTerminal,
		Details:     "Weapon detected at terminal: KNIFE by Unknown Person (40%)",
		User:        "System-AI@gate-1",
		ThreatClass: "knife",
		Confidence:  0.4,
		Timestamp:   time.Now(),
	})
	require.NoError(t, err)

	_, err = store.AppendAudit(ctx, access.SecurityAuditEntry{Action: "Directory Reload", Entity: "Directory", Timestamp: time.Now()})
	require.NoError(t, err)

	alerts, err := store.ListAudit(ctx, AuditFilter{Action: access.ActionSecurityAlert})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	require.Equal(t, "knife", alerts[0].ThreatClass)
	require.InDelta(t, 0.4, alerts[0].Confidence, 1e-9)
	require.Equal(t, "System-AI@gate-1", alerts[0].User)
}

// TestSinks_Record verifies sinks persist and swallow failures.
func TestSinks_Record(t *testing.T) {
	t.Parallel()

	store := openStore(t)
	ctx := context.Background()

	NewAccessLog(store).Record(ctx, access.AccessLogEntry{IdentityID: "S-1", Status: access.StatusGranted, Via: access.ViaQR, Timestamp: time.Now()})
	NewAuditLog(store).Record(ctx, access.SecurityAuditEntry{Action: access.ActionSecurityAlert, Timestamp: time.Now()})

	entries, err := store.ListAccess(ctx, AccessFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	audits, err := store.ListAudit(ctx, AuditFilter{})
	require.NoError(t, err)
	require.Len(t, audits, 1)

	// A duplicate id fails the insert; Record must not panic or propagate it.
	NewAccessLog(store).Record(ctx, access.AccessLogEntry{ID: entries[0].ID, Timestamp: time.Now()})

	entries, err = store.ListAccess(ctx, AccessFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
