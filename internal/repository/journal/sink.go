package journal

import (
	"context"
	"time"

	"github.com/oshokin/access-terminal/internal/domain/access"
	"github.com/oshokin/access-terminal/internal/logger"
)

// writeTimeout bounds one sink write so a locked database cannot stall a cycle.
const writeTimeout = 2 * time.Second

// AccessLog records access decisions. Write failures are logged and dropped.
type AccessLog struct {
	// store receives the entries.
	store *Store
}

// NewAccessLog creates an access log sink over store.
func NewAccessLog(store *Store) *AccessLog {
	return &AccessLog{store: store}
}

// Record appends entry.
func (l *AccessLog) Record(ctx context.Context, entry access.AccessLogEntry) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	stored, err := l.store.AppendAccess(ctx, entry)
	if err != nil {
		logger.ErrorKV(ctx, "Failed to record access", "identity_id", entry.IdentityID, "error", err)

		return
	}

	logger.InfoKV(ctx, "Access recorded",
		"id", stored.ID, "identity_id", stored.IdentityID, "status", stored.Status, "via", stored.Via)
}

// AuditLog records security audit entries. Write failures are logged and dropped.
type AuditLog struct {
	// store receives the entries.
	store *Store
}

// NewAuditLog creates a security audit sink over store.
func NewAuditLog(store *Store) *AuditLog {
	return &AuditLog{store: store}
}

// Record appends entry.
func (l *AuditLog) Record(ctx context.Context, entry access.SecurityAuditEntry) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	stored, err := l.store.AppendAudit(ctx, entry)
	if err != nil {
		logger.ErrorKV(ctx, "Failed to record security audit", "details", entry.Details, "error", err)

		return
	}

	logger.WarnKV(ctx, "Security alert recorded", "id", stored.ID, "details", stored.Details)
}
