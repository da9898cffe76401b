// Package face matches face descriptors against the identity directory.
package face

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/oshokin/access-terminal/internal/detector"
	"github.com/oshokin/access-terminal/internal/domain/access"
	"github.com/oshokin/access-terminal/internal/frame"
	"github.com/oshokin/access-terminal/internal/logger"
)

// errDimension is returned when a descriptor length differs from an enrolled one.
var errDimension = errors.New("descriptor dimension mismatch")

// Detector finds the most prominent face of a frame.
type Detector interface {
	DetectFace(ctx context.Context, f *frame.Frame) (*detector.Face, error)
}

// Matcher implements detector.FaceMatcher with nearest-neighbour Euclidean
// matching. Candidates without a descriptor are skipped.
type Matcher struct {
	// detector extracts the face and its descriptor.
	detector Detector
	// threshold is the largest distance accepted as a match.
	threshold float64
}

// NewMatcher creates a matcher accepting distances up to threshold.
func NewMatcher(d Detector, threshold float64) *Matcher {
	return &Matcher{
		detector:  d,
		threshold: threshold,
	}
}

// DetectFace delegates to the underlying detector.
func (m *Matcher) DetectFace(ctx context.Context, f *frame.Frame) (*detector.Face, error) {
	return m.detector.DetectFace(ctx, f)
}

// FindBestMatch returns the id of the nearest candidate within the threshold.
func (m *Matcher) FindBestMatch(
	ctx context.Context,
	descriptor []float32,
	candidates []access.Identity,
) (string, bool, error) {
	if len(descriptor) == 0 {
		return "", false, nil
	}

	var (
		bestID       string
		bestDistance = math.Inf(1)
	)

	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return "", false, err
		}

		if !candidate.HasDescriptor() {
			continue
		}

		// Enrollments of another dimension are skipped.
		distance, err := Distance(descriptor, candidate.Descriptor)
		if err != nil {
			logger.DebugKV(ctx, "Skipping face candidate", "identity_id", candidate.ID, "error", err)

			continue
		}

		if distance < bestDistance {
			bestID, bestDistance = candidate.ID, distance
		}
	}

	if bestID == "" || bestDistance > m.threshold {
		return "", false, nil
	}

	return bestID, true, nil
}

// Distance is the Euclidean distance between two descriptors.
func Distance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", errDimension, len(a), len(b))
	}

	var sum float64

	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}

	return math.Sqrt(sum), nil
}
