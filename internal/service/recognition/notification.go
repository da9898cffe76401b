package recognition

import (
	"sync"
	"time"

	"github.com/oshokin/access-terminal/internal/domain/access"
	"github.com/oshokin/access-terminal/internal/metrics"
)

// NotificationKind classifies notifications.
type NotificationKind int

// Notification kinds.
const (
	// KindStateChange announces the terminal entering a state.
	KindStateChange NotificationKind = iota + 1
	// KindDiagnostic carries a non-fatal message about a tick or cycle.
	KindDiagnostic
)

// String returns the kind label.
func (k NotificationKind) String() string {
	switch k {
	case KindStateChange:
		return "state_change"
	case KindDiagnostic:
		return "diagnostic"
	default:
		return "unknown"
	}
}

// Diagnostic payloads.
const (
	DiagnosticInitializing = "Initializing..."
	DiagnosticBusy         = "skipped: busy"
	DiagnosticSlow         = "slow scan"
	DiagnosticTimedOut     = "scan timed out"
	DiagnosticFailed       = "detector failed"
)

// Notification is a presentation event.
type Notification struct {
	// Kind selects state change or diagnostic.
	Kind NotificationKind
	// State is the state in effect when the notification was raised.
	State access.TerminalState
	// Payload is the display text or diagnostic message.
	Payload string
	// Subject is the recognized name, threat label or raw token, if any.
	Subject string
	// At is when the notification was raised.
	At time.Time
}

// broadcaster fans notifications out to subscribers without blocking.
type broadcaster struct {
	// mu protects subs and closed.
	mu sync.Mutex
	// subs are the subscriber channels by id.
	subs map[int]chan Notification
	// next is the next subscriber id.
	next int
	// closed is set once close was called.
	closed bool
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[int]chan Notification)}
}

// subscribe registers a subscriber with the given buffer.
func (b *broadcaster) subscribe(buffer int) (<-chan Notification, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Notification, max(buffer, 1))

	if b.closed {
		close(ch)

		return ch, func() {}
	}

	id := b.next
	b.next++
	b.subs[id] = ch

	var once sync.Once

	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()

			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

// publish delivers n to every subscriber with room for it.
func (b *broadcaster) publish(n Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- n:
		default:
			metrics.RecordDroppedNotification()
		}
	}
}

// close closes every subscriber channel.
func (b *broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true

	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
