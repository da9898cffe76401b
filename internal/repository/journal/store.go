package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go driver.

	"github.com/oshokin/access-terminal/internal/domain/access"
)

const (
	// schemaVersion is stored in PRAGMA user_version.
	schemaVersion = 1
	// busyTimeout makes concurrent writers wait instead of failing.
	busyTimeout = 5 * time.Second
	// maxOpenConns keeps a single writer.
	maxOpenConns = 1
	// DefaultLimit bounds listings without an explicit limit.
	DefaultLimit = 100
)

// errPathRequired is returned when no database path is given.
var errPathRequired = errors.New("journal path must be provided")

// Store persists journal entries.
type Store struct {
	// db is the SQLite pool.
	db *sql.DB
	// newID assigns entry ids.
	newID func() string
}

// AccessFilter narrows an access log listing. Empty fields match everything.
type AccessFilter struct {
	// DepartmentID keeps entries of one department.
	DepartmentID string
	// SectionID keeps entries of one section.
	SectionID string
	// Status keeps entries with one decision.
	Status access.AccessStatus
	// Limit caps the number of entries; zero means DefaultLimit.
	Limit int
}

// AuditFilter narrows a security audit listing.
type AuditFilter struct {
	// Action keeps entries of one action.
	Action access.AuditAction
	// Limit caps the number of entries; zero means DefaultLimit.
	Limit int
}

// Open opens or creates the journal at path and migrates its schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errPathRequired
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		path, busyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxOpenConns)

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping journal: %w", err)
	}

	s := &Store{
		db:    db,
		newID: uuid.NewString,
	}

	if err = s.migrate(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("migrate journal: %w", err)
	}

	return s, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate(ctx context.Context) error {
	var current int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return err
	}

	if current >= schemaVersion {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		_ = tx.Rollback()
	}()

	schema := `
	CREATE TABLE IF NOT EXISTS access_log (
		id TEXT PRIMARY KEY,
		identity_id TEXT NOT NULL,
		name TEXT NOT NULL,
		department_id TEXT NOT NULL,
		section_id TEXT NOT NULL,
		status TEXT NOT NULL,
		via TEXT NOT NULL,
		created_at_ms INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_access_log_created ON access_log(created_at_ms);
	CREATE INDEX IF NOT EXISTS idx_access_log_dept ON access_log(department_id, section_id);

	CREATE TABLE IF NOT EXISTS security_audit (
		id TEXT PRIMARY KEY,
		audit_action TEXT NOT NULL,
		entity TEXT NOT NULL,
		details TEXT NOT NULL,
		audit_user TEXT NOT NULL,
		threat_class TEXT NOT NULL DEFAULT '',
		confidence REAL NOT NULL DEFAULT 0,
		created_at_ms INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_security_audit_created ON security_audit(created_at_ms);
	`

	if _, err = tx.ExecContext(ctx, schema); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return err
	}

	return tx.Commit()
}

// AppendAccess stores entry and returns it with its assigned id.
func (s *Store) AppendAccess(ctx context.Context, entry access.AccessLogEntry) (access.AccessLogEntry, error) {
	if entry.ID == "" {
		entry.ID = s.newID()
	}

	const query = `
	INSERT INTO access_log (id, identity_id, name, department_id, section_id, status, via, created_at_ms)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		entry.ID, entry.IdentityID, entry.Name, entry.DepartmentID, entry.SectionID,
		string(entry.Status), entry.Via.String(), entry.Timestamp.UnixMilli())
	if err != nil {
		return entry, fmt.Errorf("insert access entry: %w", err)
	}

	return entry, nil
}

// AppendAudit stores entry and returns it with its assigned id.
func (s *Store) AppendAudit(ctx context.Context, entry access.SecurityAuditEntry) (access.SecurityAuditEntry, error) {
	if entry.ID == "" {
		entry.ID = s.newID()
	}

	const query = `
	INSERT INTO security_audit (id, audit_action, entity, details, audit_user, threat_class, confidence, created_at_ms)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		entry.ID, string(entry.Action), entry.Entity, entry.Details, entry.User,
		entry.ThreatClass, entry.Confidence, entry.Timestamp.UnixMilli())
	if err != nil {
		return entry, fmt.Errorf("insert audit entry: %w", err)
	}

	return entry, nil
}

// ListAccess returns matching access entries, newest first.
func (s *Store) ListAccess(ctx context.Context, filter AccessFilter) ([]access.AccessLogEntry, error) {
	var (
		where []string
		args  []any
	)

	if filter.DepartmentID != "" {
		where = append(where, "department_id = ?")
		args = append(args, filter.DepartmentID)
	}

	if filter.SectionID != "" {
		where = append(where, "section_id = ?")
		args = append(args, filter.SectionID)
	}

	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}

	query := `SELECT id, identity_id, name, department_id, section_id, status, via, created_at_ms FROM access_log` +
		whereClause(where) + ` ORDER BY created_at_ms DESC, rowid DESC LIMIT ?`
	args = append(args, limitOf(filter.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query access log: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	var entries []access.AccessLogEntry

	for rows.Next() {
		var (
			entry       access.AccessLogEntry
			status, via string
			createdAtMS int64
		)

		err = rows.Scan(&entry.ID, &entry.IdentityID, &entry.Name, &entry.DepartmentID, &entry.SectionID,
			&status, &via, &createdAtMS)
		if err != nil {
			return nil, fmt.Errorf("scan access entry: %w", err)
		}

		entry.Status = access.AccessStatus(status)
		entry.Via = access.ParseVia(via)
		entry.Timestamp = time.UnixMilli(createdAtMS)

		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate access log: %w", err)
	}

	return entries, nil
}

// ListAudit returns matching audit entries, newest first.
func (s *Store) ListAudit(ctx context.Context, filter AuditFilter) ([]access.SecurityAuditEntry, error) {
	var (
		where []string
		args  []any
	)

	if filter.Action != "" {
		where = append(where, "audit_action = ?")
		args = append(args, string(filter.Action))
	}

	query := `SELECT id, audit_action, entity, details, audit_user, threat_class, confidence, created_at_ms FROM security_audit` +
		whereClause(where) + ` ORDER BY created_at_ms DESC, rowid DESC LIMIT ?`
	args = append(args, limitOf(filter.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query security audit: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	var entries []access.SecurityAuditEntry

	for rows.Next() {
		var (
			entry       access.SecurityAuditEntry
			action      string
			createdAtMS int64
		)

		err = rows.Scan(&entry.ID, &action, &entry.Entity, &entry.Details, &entry.User,
			&entry.ThreatClass, &entry.Confidence, &createdAtMS)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}

		entry.Action = access.AuditAction(action)
		entry.Timestamp = time.UnixMilli(createdAtMS)

		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate security audit: %w", err)
	}

	return entries, nil
}

func whereClause(conditions []string) string {
	if len(conditions) == 0 {
		return ""
	}

	return " WHERE " + strings.Join(conditions, " AND ")
}

func limitOf(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}

	return limit
}
