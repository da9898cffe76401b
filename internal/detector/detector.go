package detector

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/access-terminal/internal/domain/access"
	"github.com/oshokin/access-terminal/internal/frame"
)

// Code is a decoded QR code.
type Code struct {
	// Text is the decoded payload.
	Text string
}

// Box is a detection bounding box in pixels: x, y, width, height.
type Box [4]float64

// Threat is one weapon-class detection.
type Threat struct {
	// Class is the detected class, e.g. "knife".
	Class string `json:"class"`
	// Box locates the detection.
	Box Box `json:"bbox"`
	// Score is the confidence in [0, 1].
	Score float64 `json:"score"`
}

// Face is the most prominent face of a frame.
type Face struct {
	// Box locates the face.
	Box Box `json:"box"`
	// Score is the detection confidence.
	Score float64 `json:"score"`
	// Descriptor is the face embedding.
	Descriptor []float32 `json:"descriptor"`
}

// QRDecoder finds at most one QR code per call. A nil code means none was found.
type QRDecoder interface {
	Decode(ctx context.Context, f *frame.Frame) (*Code, error)
}

// ThreatDetector lists weapon-class detections. An empty list means no threat.
type ThreatDetector interface {
	DetectThreats(ctx context.Context, f *frame.Frame) ([]Threat, error)
}

// FaceMatcher detects a face and matches its descriptor against candidates.
// FindBestMatch applies its own similarity threshold and reports no match
// rather than a weak guess.
type FaceMatcher interface {
	DetectFace(ctx context.Context, f *frame.Frame) (*Face, error)
	FindBestMatch(ctx context.Context, descriptor []float32, candidates []access.Identity) (string, bool, error)
}

// Failure is a detector call that failed within a cycle.
type Failure struct {
	// Source is the stage whose detector failed.
	Source access.Source
	// Err is the cause.
	Err error
}

// Error implements error.
func (f *Failure) Error() string {
	return fmt.Sprintf("%s detector: %v", f.Source, f.Err)
}

// Unwrap returns the cause.
func (f *Failure) Unwrap() error {
	return f.Err
}

// ErrPanicked marks a detector call that panicked.
var ErrPanicked = errors.New("detector panicked")

// Guard runs call, turning a returned error or a panic into a *Failure.
func Guard[T any](source access.Source, call func() (T, error)) (value T, failure *Failure) {
	defer func() {
		if r := recover(); r != nil {
			var zero T

			value = zero
			failure = &Failure{Source: source, Err: fmt.Errorf("%w: %v", ErrPanicked, r)}
		}
	}()

	value, err := call()
	if err != nil {
		var zero T

		return zero, &Failure{Source: source, Err: err}
	}

	return value, nil
}
