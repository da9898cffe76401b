package access

import "time"

// TerminalState is the state shown by the terminal. Exactly one is active.
type TerminalState int

// Terminal states.
const (
	StateIdle TerminalState = iota
	StateScanning
	StateGranted
	StateDenied
	StateEmergency
	// StateUnavailable is reported while frames cannot be acquired.
	StateUnavailable
)

// String returns the state label.
func (s TerminalState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateScanning:
		return "Scanning"
	case StateGranted:
		return "Granted"
	case StateDenied:
		return "Denied"
	case StateEmergency:
		return "Emergency"
	case StateUnavailable:
		return "Unavailable"
	default:
		return "Invalid"
	}
}

// TerminalStates lists every state in declaration order.
func TerminalStates() []TerminalState {
	states := make([]TerminalState, 0, StateUnavailable+1)
	for state := StateIdle; state <= StateUnavailable; state++ {
		states = append(states, state)
	}

	return states
}

// ParseTerminalState is the inverse of String.
func ParseTerminalState(s string) (TerminalState, bool) {
	for state := StateIdle; state <= StateUnavailable; state++ {
		if state.String() == s {
			return state, true
		}
	}

	return StateIdle, false
}

// Suppressing reports whether entering the state arms a suppression window.
func (s TerminalState) Suppressing() bool {
	return s == StateGranted || s == StateDenied || s == StateEmergency
}

// SuppressionWindow is a timed lockout following a terminal state.
type SuppressionWindow struct {
	// State is the state that armed the window.
	State TerminalState
	// ExpiresAt is the first instant at which cycles may run again.
	ExpiresAt time.Time
}

// Active reports whether the window still blocks cycles at now.
func (w SuppressionWindow) Active(now time.Time) bool {
	return !w.ExpiresAt.IsZero() && now.Before(w.ExpiresAt)
}

// Remaining returns the time left at now, zero once expired.
func (w SuppressionWindow) Remaining(now time.Time) time.Duration {
	if !w.Active(now) {
		return 0
	}

	return w.ExpiresAt.Sub(now)
}
