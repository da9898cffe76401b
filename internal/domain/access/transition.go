package access

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Display texts shown by the terminal.
const (
	DisplayReady       = "System Ready. Stand in front of camera."
	DisplayUnknown     = "Access Denied: User not recognized."
	DisplayUnavailable = "Camera Error: Check permissions or connection."
	// UnknownPerson names the bearer of a weapon that could not be identified.
	UnknownPerson = "Unknown Person"
)

// Policy decides whether an identified person may pass.
type Policy interface {
	Allow(identity Identity) (bool, error)
}

// AllowAll grants every identified person.
type AllowAll struct{}

// Allow always returns true.
func (AllowAll) Allow(Identity) (bool, error) {
	return true, nil
}

// Windows holds the suppression duration armed by each terminal state.
type Windows struct {
	Granted   time.Duration
	Denied    time.Duration
	Emergency time.Duration
}

// DefaultWindows returns 5s granted, 3s denied and 10s emergency.
func DefaultWindows() Windows {
	return Windows{
		Granted:   5 * time.Second,
		Denied:    3 * time.Second,
		Emergency: 10 * time.Second,
	}
}

// Rules parameterize Resolve.
type Rules struct {
	// Policy decides identified people; nil allows everyone.
	Policy Policy
	// Windows are the suppression durations.
	Windows Windows
	// AuditUser is written as the user of audit entries.
	AuditUser string
}

// Transition is what the scheduler must do with an outcome.
type Transition struct {
	// Next is the state to enter.
	Next TerminalState
	// Suppress is the window to arm, zero for none.
	Suppress time.Duration
	// AccessLog is written to the access log when set.
	AccessLog *AccessLogEntry
	// Audit is written to the security audit when set.
	Audit *SecurityAuditEntry
	// Display is the status text for the presentation layer.
	Display string
	// Subject is the recognized name, threat label or raw token, if any.
	Subject string
}

// Resolve maps a cycle outcome to the next terminal state and its side effects.
// It performs no I/O and reads the directory once.
func Resolve(outcome Outcome, dir Directory, rules Rules, now time.Time) Transition {
	switch outcome.Kind {
	case OutcomeThreatDetected:
		return resolveThreat(outcome, rules, now)
	case OutcomeIdentified:
		return resolveIdentified(outcome, dir, rules, now)
	case OutcomeUnknown:
		return denyUnknown(outcome.RawToken, rules)
	case OutcomeNoSignal, OutcomeTimedOut, OutcomeDetectorError:
		return Transition{Next: StateIdle, Display: DisplayReady}
	default:
		return Transition{Next: StateIdle, Display: DisplayReady}
	}
}

func resolveThreat(outcome Outcome, rules Rules, now time.Time) Transition {
	person := outcome.IdentifiedPerson
	if person == "" {
		person = UnknownPerson
	}

	label := strings.ToUpper(outcome.ThreatClass)

	return Transition{
		Next:     StateEmergency,
		Suppress: rules.Windows.Emergency,
		Audit: &SecurityAuditEntry{
			Action: ActionSecurityAlert,
			Entity: AuditEntityTerminal,
			Details: fmt.Sprintf("Weapon detected at terminal: %s by %s (%d%%)",
				label, person, Percent(outcome.Confidence)),
			Timestamp:   now,
			User:        rules.AuditUser,
			ThreatClass: outcome.ThreatClass,
			Confidence:  outcome.Confidence,
		},
		Display: fmt.Sprintf("EMERGENCY: %s DETECTED! (%s)", label, person),
		Subject: ThreatLabel(outcome.ThreatClass, outcome.Confidence),
	}
}

func resolveIdentified(outcome Outcome, dir Directory, rules Rules, now time.Time) Transition {
	identity, found := FindIdentity(dir, outcome.IdentityID)
	if !found {
		// The directory changed between detection and resolution.
		return denyUnknown(outcome.IdentityID, rules)
	}

	policy := rules.Policy
	if policy == nil {
		policy = AllowAll{}
	}

	allowed, err := policy.Allow(identity)
	if err != nil {
		allowed = false
	}

	entry := &AccessLogEntry{
		IdentityID:   identity.ID,
		Name:         identity.DisplayName,
		DepartmentID: identity.DepartmentID,
		SectionID:    identity.SectionID,
		Timestamp:    now,
		Status:       StatusGranted,
		Via:          outcome.Via,
	}

	if !allowed {
		entry.Status = StatusDenied

		return Transition{
			Next:      StateDenied,
			Suppress:  rules.Windows.Denied,
			AccessLog: entry,
			Display:   "Access Denied: " + identity.DisplayName,
			Subject:   identity.DisplayName,
		}
	}

	return Transition{
		Next:      StateGranted,
		Suppress:  rules.Windows.Granted,
		AccessLog: entry,
		Display:   "Access Granted: " + identity.DisplayName,
		Subject:   identity.DisplayName,
	}
}

func denyUnknown(rawToken string, rules Rules) Transition {
	return Transition{
		Next:     StateDenied,
		Suppress: rules.Windows.Denied,
		Display:  DisplayUnknown,
		Subject:  rawToken,
	}
}

// Percent converts a [0, 1] score to a rounded percentage.
func Percent(score float64) int {
	return int(math.Round(score * 100))
}

// ThreatLabel renders a detection as "KNIFE 40%".
func ThreatLabel(class string, score float64) string {
	return fmt.Sprintf("%s %d%%", strings.ToUpper(class), Percent(score))
}
