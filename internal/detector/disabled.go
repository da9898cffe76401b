package detector

import (
	"context"

	"github.com/oshokin/access-terminal/internal/domain/access"
	"github.com/oshokin/access-terminal/internal/frame"
)

// Disabled is used for capabilities the terminal runs without. It never
// detects anything.
type Disabled struct{}

// Decode finds no code.
func (Disabled) Decode(context.Context, *frame.Frame) (*Code, error) {
	return nil, nil //nolint:nilnil // No code is a valid answer.
}

// DetectThreats finds no threat.
func (Disabled) DetectThreats(context.Context, *frame.Frame) ([]Threat, error) {
	return nil, nil
}

// DetectFace finds no face.
func (Disabled) DetectFace(context.Context, *frame.Frame) (*Face, error) {
	return nil, nil //nolint:nilnil // No face is a valid answer.
}

// FindBestMatch matches nobody.
func (Disabled) FindBestMatch(context.Context, []float32, []access.Identity) (string, bool, error) {
	return "", false, nil
}
