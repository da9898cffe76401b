// Package frame provides the camera frames a recognition cycle works on.
package frame

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"time"
)

// ErrUnavailable is returned when no frame can be acquired.
var ErrUnavailable = errors.New("frame source unavailable")

// jpegQuality is used when a decoded-only frame must be shipped to a detector.
const jpegQuality = 85

// Frame is one captured camera image. It belongs to a single cycle and must not
// be modified or kept after the cycle ends.
type Frame struct {
	// Image is the decoded picture.
	Image image.Image
	// Data is the encoded picture, filled lazily by Encoded when empty.
	Data []byte
	// ContentType is the MIME type of Data.
	ContentType string
	// Seq is a monotonically increasing capture number.
	Seq uint64
	// CapturedAt is when the frame was acquired.
	CapturedAt time.Time
}

// Encoded returns the encoded picture, JPEG-encoding Image when needed.
func (f *Frame) Encoded() ([]byte, string, error) {
	if len(f.Data) > 0 {
		return f.Data, f.ContentType, nil
	}

	if f.Image == nil {
		return nil, "", fmt.Errorf("encode frame %d: %w", f.Seq, ErrUnavailable)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, f.Image, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, "", fmt.Errorf("encode frame %d: %w", f.Seq, err)
	}

	f.Data = buf.Bytes()
	f.ContentType = "image/jpeg"

	return f.Data, f.ContentType, nil
}

// Source acquires frames.
type Source interface {
	// Capture returns the current frame or an error wrapping ErrUnavailable.
	Capture(ctx context.Context) (*Frame, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (*Frame, error)

// Capture calls f.
func (f SourceFunc) Capture(ctx context.Context) (*Frame, error) {
	return f(ctx)
}
