package access

import "fmt"

// OutcomeKind tags which variant an Outcome holds.
type OutcomeKind int

// Outcome variants. Exactly one is produced per cycle.
const (
	OutcomeNoSignal OutcomeKind = iota
	OutcomeIdentified
	OutcomeUnknown
	OutcomeThreatDetected
	OutcomeTimedOut
	OutcomeDetectorError
)

// String returns the label used in logs and metrics.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeNoSignal:
		return "no_signal"
	case OutcomeIdentified:
		return "identified"
	case OutcomeUnknown:
		return "unknown"
	case OutcomeThreatDetected:
		return "threat_detected"
	case OutcomeTimedOut:
		return "timed_out"
	case OutcomeDetectorError:
		return "detector_error"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// Via tells how an identity was recognized.
type Via int

// Recognition channels.
const (
	ViaQR Via = iota + 1
	ViaFace
)

// String returns "qr" or "face".
func (v Via) String() string {
	switch v {
	case ViaQR:
		return "qr"
	case ViaFace:
		return "face"
	default:
		return "none"
	}
}

// ParseVia is the inverse of Via.String; unknown labels map to zero.
func ParseVia(s string) Via {
	switch s {
	case "qr":
		return ViaQR
	case "face":
		return ViaFace
	default:
		return 0
	}
}

// Source names the detector stage of a cycle.
type Source int

// Detector stages in pipeline order.
const (
	SourceQR Source = iota + 1
	SourceWeapon
	SourceFace
)

// String returns the stage label.
func (s Source) String() string {
	switch s {
	case SourceQR:
		return "qr"
	case SourceWeapon:
		return "weapon"
	case SourceFace:
		return "face"
	default:
		return "unknown"
	}
}

// Outcome is the single result of a recognition cycle. Only the fields of the
// variant named by Kind are meaningful.
type Outcome struct {
	// Kind selects the variant.
	Kind OutcomeKind

	// IdentityID is the recognized identity (Identified).
	IdentityID string
	// Via is the recognition channel (Identified).
	Via Via

	// RawToken is the unmatched QR token, empty when none was read (Unknown).
	RawToken string

	// ThreatClass is the detected weapon class (ThreatDetected).
	ThreatClass string
	// Confidence is the detection score in [0, 1] (ThreatDetected).
	Confidence float64
	// IdentifiedPerson is the bearer's display name, empty when unknown (ThreatDetected).
	IdentifiedPerson string

	// Source is the failing stage (DetectorError).
	Source Source
	// Detail describes the failure (DetectorError).
	Detail string
}

// Identified builds an Identified outcome.
func Identified(identityID string, via Via) Outcome {
	return Outcome{Kind: OutcomeIdentified, IdentityID: identityID, Via: via}
}

// Unknown builds an Unknown outcome; rawToken may be empty.
func Unknown(rawToken string) Outcome {
	return Outcome{Kind: OutcomeUnknown, RawToken: rawToken}
}

// ThreatDetected builds a ThreatDetected outcome; person may be empty.
func ThreatDetected(class string, confidence float64, person string) Outcome {
	return Outcome{
		Kind:             OutcomeThreatDetected,
		ThreatClass:      class,
		Confidence:       confidence,
		IdentifiedPerson: person,
	}
}

// NoSignal builds a NoSignal outcome.
func NoSignal() Outcome {
	return Outcome{Kind: OutcomeNoSignal}
}

// TimedOut builds a TimedOut outcome.
func TimedOut() Outcome {
	return Outcome{Kind: OutcomeTimedOut}
}

// DetectorError builds a DetectorError outcome.
func DetectorError(source Source, detail string) Outcome {
	return Outcome{Kind: OutcomeDetectorError, Source: source, Detail: detail}
}

// String renders the outcome for logs.
func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeIdentified:
		return fmt.Sprintf("identified{%s via %s}", o.IdentityID, o.Via)
	case OutcomeUnknown:
		return fmt.Sprintf("unknown{token=%q}", o.RawToken)
	case OutcomeThreatDetected:
		return fmt.Sprintf("threat{%s %.2f by %q}", o.ThreatClass, o.Confidence, o.IdentifiedPerson)
	case OutcomeDetectorError:
		return fmt.Sprintf("detector_error{%s: %s}", o.Source, o.Detail)
	case OutcomeNoSignal, OutcomeTimedOut:
		return o.Kind.String()
	default:
		return o.Kind.String()
	}
}
