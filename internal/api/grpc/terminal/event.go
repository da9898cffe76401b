package terminal

import (
	"errors"
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/access-terminal/internal/service/recognition"
)

// Event kinds on the wire.
const (
	KindSnapshot    = "snapshot"
	KindStateChange = "state_change"
	KindDiagnostic  = "diagnostic"
)

// Field names of the event struct.
const (
	fieldKind            = "kind"
	fieldState           = "state"
	fieldPayload         = "payload"
	fieldSubject         = "subject"
	fieldAt              = "at"
	fieldSuppressedUntil = "suppressed_until"
)

// errMissingField is returned for events without a required field.
var errMissingField = errors.New("event field is missing")

// Event is the client-side view of a status message.
type Event struct {
	// Kind is snapshot, state_change or diagnostic.
	Kind string
	// State is the terminal state label.
	State string
	// Payload is the display text or diagnostic message.
	Payload string
	// Subject is the recognized name, threat label or raw token, if any.
	Subject string
	// At is when the event was raised.
	At time.Time
	// SuppressedUntil is the end of the active suppression window, zero when none.
	SuppressedUntil time.Time
}

// StatusToProto converts a scheduler status into a snapshot event.
func StatusToProto(status recognition.Status) (*structpb.Struct, error) {
	return eventToProto(Event{
		Kind:            KindSnapshot,
		State:           status.State.String(),
		Payload:         status.Display,
		Subject:         status.Subject,
		At:              status.Since,
		SuppressedUntil: status.SuppressedUntil,
	})
}

// NotificationToProto converts a scheduler notification into an event.
func NotificationToProto(n recognition.Notification) (*structpb.Struct, error) {
	kind := KindDiagnostic
	if n.Kind == recognition.KindStateChange {
		kind = KindStateChange
	}

	return eventToProto(Event{
		Kind:    kind,
		State:   n.State.String(),
		Payload: n.Payload,
		Subject: n.Subject,
		At:      n.At,
	})
}

func eventToProto(e Event) (*structpb.Struct, error) {
	fields := map[string]any{
		fieldKind:    e.Kind,
		fieldState:   e.State,
		fieldPayload: e.Payload,
		fieldSubject: e.Subject,
		fieldAt:      formatTime(e.At),
	}

	if !e.SuppressedUntil.IsZero() {
		fields[fieldSuppressedUntil] = formatTime(e.SuppressedUntil)
	}

	message, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}

	return message, nil
}

// EventFromProto parses a status message.
func EventFromProto(message *structpb.Struct) (Event, error) {
	fields := message.GetFields()

	kind := fields[fieldKind].GetStringValue()
	if kind == "" {
		return Event{}, fmt.Errorf("%w: %s", errMissingField, fieldKind)
	}

	event := Event{
		Kind:    kind,
		State:   fields[fieldState].GetStringValue(),
		Payload: fields[fieldPayload].GetStringValue(),
		Subject: fields[fieldSubject].GetStringValue(),
	}

	var err error

	if event.At, err = parseTime(fields[fieldAt].GetStringValue()); err != nil {
		return Event{}, err
	}

	if event.SuppressedUntil, err = parseTime(fields[fieldSuppressedUntil].GetStringValue()); err != nil {
		return Event{}, err
	}

	return event, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}

	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse event time: %w", err)
	}

	return t, nil
}
