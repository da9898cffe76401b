// Package report prints the access log and the security audit from the journal.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/oshokin/access-terminal/internal/config"
	"github.com/oshokin/access-terminal/internal/domain/access"
	"github.com/oshokin/access-terminal/internal/logger"
	"github.com/oshokin/access-terminal/internal/repository/journal"
)

// Kind selects the journal table.
type Kind string

// Journal tables.
const (
	// KindAccess lists access decisions.
	KindAccess Kind = "access"
	// KindAudit lists security alerts.
	KindAudit Kind = "audit"
)

// timeLayout is used for the text output.
const timeLayout = "2006-01-02 15:04:05"

// Options controls a listing.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// Database overrides the journal file from settings.
	Database string
	// Kind selects access or audit entries.
	Kind Kind
	// Department keeps access entries of one department.
	Department string
	// Section keeps access entries of one section.
	Section string
	// Status keeps access entries with one decision: Granted or Denied.
	Status string
	// Action keeps audit entries of one action.
	Action string
	// Limit caps the number of entries.
	Limit int
	// JSON prints one JSON object per line.
	JSON bool
	// Output receives the listing; nil means stdout.
	Output io.Writer
}

var (
	// errUnknownKind is returned for a Kind other than access or audit.
	errUnknownKind = errors.New("unknown journal kind")
	// errUnknownStatus is returned for a status filter other than Granted or Denied.
	errUnknownStatus = errors.New("status must be Granted or Denied")
)

// Run prints the selected journal entries, newest first.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "report")

	database := opts.Database
	if database == "" {
		settings, err := config.Load(opts.ConfigPath)
		if err != nil {
			return fmt.Errorf("load settings: %w", err)
		}

		database = settings.Database
	}

	store, err := journal.Open(ctx, database)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}

	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.Warnf(ctx, "Close journal: %v", closeErr)
		}
	}()

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	switch opts.Kind {
	case KindAccess, "":
		return listAccess(ctx, store, opts, out)
	case KindAudit:
		return listAudit(ctx, store, opts, out)
	default:
		return fmt.Errorf("%w: %q", errUnknownKind, opts.Kind)
	}
}

// accessRecord is the JSON form of an access log entry.
type accessRecord struct {
	ID         string    `json:"id"`
	IdentityID string    `json:"identity_id"`
	Name       string    `json:"name"`
	Department string    `json:"department_id"`
	Section    string    `json:"section_id"`
	Status     string    `json:"status"`
	Via        string    `json:"via"`
	Timestamp  time.Time `json:"timestamp"`
}

// auditRecord is the JSON form of a security audit entry.
type auditRecord struct {
	ID          string    `json:"id"`
	Action      string    `json:"action"`
	Entity      string    `json:"entity"`
	Details     string    `json:"details"`
	User        string    `json:"user"`
	ThreatClass string    `json:"threat_class,omitempty"`
	Confidence  float64   `json:"confidence,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func listAccess(ctx context.Context, store *journal.Store, opts *Options, out io.Writer) error {
	filter := journal.AccessFilter{
		DepartmentID: opts.Department,
		SectionID:    opts.Section,
		Limit:        opts.Limit,
	}

	switch access.AccessStatus(opts.Status) {
	case "":
	case access.StatusGranted, access.StatusDenied:
		filter.Status = access.AccessStatus(opts.Status)
	default:
		return fmt.Errorf("%w: %q", errUnknownStatus, opts.Status)
	}

	entries, err := store.ListAccess(ctx, filter)
	if err != nil {
		return fmt.Errorf("list access log: %w", err)
	}

	if opts.JSON {
		enc := json.NewEncoder(out)

		for _, e := range entries {
			err = enc.Encode(accessRecord{
				ID:         e.ID,
				IdentityID: e.IdentityID,
				Name:       e.Name,
				Department: e.DepartmentID,
				Section:    e.SectionID,
				Status:     string(e.Status),
				Via:        e.Via.String(),
				Timestamp:  e.Timestamp.UTC(),
			})
			if err != nil {
				return fmt.Errorf("write entry: %w", err)
			}
		}

		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TIME\tID\tNAME\tDEPARTMENT\tSECTION\tSTATUS\tVIA")

	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.Local().Format(timeLayout), e.IdentityID, e.Name,
			e.DepartmentID, e.SectionID, e.Status, e.Via)
	}

	return w.Flush()
}

func listAudit(ctx context.Context, store *journal.Store, opts *Options, out io.Writer) error {
	entries, err := store.ListAudit(ctx, journal.AuditFilter{
		Action: access.AuditAction(opts.Action),
		Limit:  opts.Limit,
	})
	if err != nil {
		return fmt.Errorf("list security audit: %w", err)
	}

	if opts.JSON {
		enc := json.NewEncoder(out)

		for _, e := range entries {
			err = enc.Encode(auditRecord{
				ID:          e.ID,
				Action:      string(e.Action),
				Entity:      e.Entity,
				Details:     e.Details,
				User:        e.User,
				ThreatClass: e.ThreatClass,
				Confidence:  e.Confidence,
				Timestamp:   e.Timestamp.UTC(),
			})
			if err != nil {
				return fmt.Errorf("write entry: %w", err)
			}
		}

		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TIME\tACTION\tUSER\tDETAILS")

	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			e.Timestamp.Local().Format(timeLayout), e.Action, e.User, e.Details)
	}

	return w.Flush()
}
