package recognition

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oshokin/access-terminal/internal/detector"
	"github.com/oshokin/access-terminal/internal/domain/access"
	"github.com/oshokin/access-terminal/internal/frame"
)

var errBroken = errors.New("model crashed")

// stage scripts one detector call.
type stage struct {
	delay   time.Duration
	err     error
	panics  bool
	calls   atomic.Int32
	honours bool
}

func (s *stage) run(ctx context.Context) error {
	s.calls.Add(1)

	if s.delay > 0 {
		if s.honours {
			select {
			case <-time.After(s.delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		} else {
			time.Sleep(s.delay)
		}
	}

	if s.panics {
		panic("detector exploded")
	}

	return s.err
}

type fakeQR struct {
	stage
	text string
}

func (f *fakeQR) Decode(ctx context.Context, _ *frame.Frame) (*detector.Code, error) {
	if err := f.run(ctx); err != nil {
		return nil, err
	}

	if f.text == "" {
		return nil, nil //nolint:nilnil // Nothing found.
	}

	return &detector.Code{Text: f.text}, nil
}

type fakeThreats struct {
	stage
	threats []detector.Threat
}

func (f *fakeThreats) DetectThreats(ctx context.Context, _ *frame.Frame) ([]detector.Threat, error) {
	if err := f.run(ctx); err != nil {
		return nil, err
	}

	return f.threats, nil
}

type fakeFaces struct {
	stage
	face    bool
	matchID string
}

func (f *fakeFaces) DetectFace(ctx context.Context, _ *frame.Frame) (*detector.Face, error) {
	if err := f.run(ctx); err != nil {
		return nil, err
	}

	if !f.face {
		return nil, nil //nolint:nilnil // No face.
	}

	return &detector.Face{Score: 0.99, Descriptor: []float32{0.1, 0.2}}, nil
}

func (f *fakeFaces) FindBestMatch(context.Context, []float32, []access.Identity) (string, bool, error) {
	return f.matchID, f.matchID != "", nil
}

type recordingAccessLog struct {
	mu      sync.Mutex
	entries []access.AccessLogEntry
}

func (r *recordingAccessLog) Record(_ context.Context, entry access.AccessLogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, entry)
}

func (r *recordingAccessLog) all() []access.AccessLogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]access.AccessLogEntry(nil), r.entries...)
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []access.SecurityAuditEntry
}

func (r *recordingAudit) Record(_ context.Context, entry access.SecurityAuditEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, entry)
}

func (r *recordingAudit) all() []access.SecurityAuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]access.SecurityAuditEntry(nil), r.entries...)
}

// countingSource hands out numbered frames and remembers capture times.
type countingSource struct {
	mu          sync.Mutex
	seq         uint64
	captures    []time.Time
	unavailable bool
}

func (c *countingSource) Capture(context.Context) (*frame.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.unavailable {
		return nil, frame.ErrUnavailable
	}

	c.seq++
	c.captures = append(c.captures, time.Now())

	return &frame.Frame{Seq: c.seq, CapturedAt: time.Now()}, nil
}

func (c *countingSource) setUnavailable(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.unavailable = v
}

func (c *countingSource) times() []time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]time.Time(nil), c.captures...)
}

func testDirectory() access.StaticDirectory {
	return access.StaticDirectory{
		{ID: "S001", DisplayName: "Asha Rao", DepartmentID: "CSE", SectionID: "A", Descriptor: []float32{0.1, 0.2}},
		{ID: "S002", DisplayName: "Lena Park", DepartmentID: "ECE", SectionID: "B", Descriptor: []float32{0.3, 0.4}},
	}
}
