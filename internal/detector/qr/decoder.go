// Package qr decodes QR codes from camera frames with gozxing.
package qr

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"

	"github.com/oshokin/access-terminal/internal/detector"
	"github.com/oshokin/access-terminal/internal/frame"
)

// errNoImage is returned for frames without a decoded picture.
var errNoImage = errors.New("frame has no image")

// Decoder implements detector.QRDecoder.
type Decoder struct {
	// mu serializes the reader, which keeps state between calls.
	mu sync.Mutex
	// reader is the gozxing QR reader.
	reader gozxing.Reader
}

// NewDecoder creates a QR decoder.
func NewDecoder() *Decoder {
	return &Decoder{reader: qrcode.NewQRCodeReader()}
}

// Decode returns the QR code found in f, or nil when there is none. Codes that
// are located but cannot be read count as none.
func (d *Decoder) Decode(ctx context.Context, f *frame.Frame) (*detector.Code, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if f == nil || f.Image == nil {
		return nil, errNoImage
	}

	bitmap, err := gozxing.NewBinaryBitmapFromImage(f.Image)
	if err != nil {
		return nil, fmt.Errorf("binarize frame %d: %w", f.Seq, err)
	}

	d.mu.Lock()
	result, err := d.reader.Decode(bitmap, nil)
	d.reader.Reset()
	d.mu.Unlock()

	if err != nil {
		if unreadable(err) {
			return nil, nil //nolint:nilnil // Nothing found is not an error.
		}

		return nil, fmt.Errorf("decode qr: %w", err)
	}

	return &detector.Code{Text: result.GetText()}, nil
}

func unreadable(err error) bool {
	var (
		notFound gozxing.NotFoundException
		checksum gozxing.ChecksumException
		format   gozxing.FormatException
	)

	return errors.As(err, &notFound) || errors.As(err, &checksum) || errors.As(err, &format)
}
