package access

import "time"

// AccessStatus is the decision recorded in the access log.
type AccessStatus string

// Access decisions.
const (
	StatusGranted AccessStatus = "Granted"
	StatusDenied  AccessStatus = "Denied"
)

// AccessLogEntry records a decision about an identified person.
type AccessLogEntry struct {
	// ID is assigned by the journal.
	ID string
	// IdentityID is the person's id.
	IdentityID string
	// Name is the person's display name at the time of the decision.
	Name string
	// DepartmentID is the person's department.
	DepartmentID string
	// SectionID is the person's section.
	SectionID string
	// Timestamp is when the decision was made.
	Timestamp time.Time
	// Status is the decision.
	Status AccessStatus
	// Via is how the person was recognized.
	Via Via
}

// AuditAction classifies security audit entries.
type AuditAction string

// Audit actions written by the terminal.
const (
	ActionSecurityAlert AuditAction = "Security Alert"
)

// AuditEntityTerminal is the audit entity for events raised by the terminal itself.
const AuditEntityTerminal = "Terminal"

// SecurityAuditEntry records an escalation or administrative event.
type SecurityAuditEntry struct {
	// ID is assigned by the journal.
	ID string
	// Action classifies the event.
	Action AuditAction
	// Entity is the subject of the event.
	Entity string
	// Details is the human readable description.
	Details string
	// Timestamp is when the event happened.
	Timestamp time.Time
	// User is who raised the event.
	User string
	// ThreatClass and Confidence are set for security alerts.
	ThreatClass string
	Confidence  float64
}
