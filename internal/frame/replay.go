package frame

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	// Register decoders for replayed captures.
	_ "image/jpeg"
	_ "image/png"
)

// ReplaySource serves the images of a folder in name order, looping forever.
// It stands in for a camera on bench terminals and in tests.
type ReplaySource struct {
	// dir is the folder holding the captures.
	dir string
	// now stamps captured frames.
	now func() time.Time

	// mu guards the cursor below.
	mu sync.Mutex
	// files is the sorted list of images found on the last scan.
	files []string
	// next is the index of the file served by the next Capture.
	next int
	// seq counts captured frames.
	seq uint64
}

// NewReplaySource creates a source reading images from dir.
func NewReplaySource(dir string) *ReplaySource {
	return &ReplaySource{
		dir: filepath.Clean(dir),
		now: time.Now,
	}
}

// Capture decodes the next image. An empty or missing folder is reported as
// ErrUnavailable; the folder is rescanned on every wrap so new captures appear.
func (s *ReplaySource) Capture(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.next >= len(s.files) {
		files, err := scanImages(s.dir)
		if err != nil {
			return nil, err
		}

		s.files = files
		s.next = 0
	}

	path := s.files[s.next]
	s.next++

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w: %w", path, ErrUnavailable, err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w: %w", path, ErrUnavailable, err)
	}

	s.seq++

	return &Frame{
		Image:       img,
		Data:        data,
		ContentType: http.DetectContentType(data),
		Seq:         s.seq,
		CapturedAt:  s.now(),
	}, nil
}

// scanImages lists jpeg and png files of dir in name order.
func scanImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w: %w", dir, ErrUnavailable, err)
	}

	files := make([]string, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".jpg", ".jpeg", ".png":
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("scan %s: no images: %w", dir, ErrUnavailable)
	}

	slices.Sort(files)

	return files, nil
}
