package recognition

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/oshokin/access-terminal/internal/config"
	"github.com/oshokin/access-terminal/internal/detector"
	"github.com/oshokin/access-terminal/internal/domain/access"
	"github.com/oshokin/access-terminal/internal/frame"
	"github.com/oshokin/access-terminal/internal/logger"
	"github.com/oshokin/access-terminal/internal/tracing"
)

// ErrCycleTimeout is reported when a cycle misses its deadline.
var ErrCycleTimeout = errors.New("recognition cycle timed out")

// tracerName names the spans of recognition cycles.
const tracerName = "github.com/oshokin/access-terminal/internal/service/recognition"

// Runner executes one recognition cycle against a frame.
type Runner interface {
	Execute(ctx context.Context, f *frame.Frame) Result
}

// Result is what a cycle produced.
type Result struct {
	// Outcome is the single outcome of the cycle.
	Outcome access.Outcome
	// Failures lists the detector calls that failed, in stage order.
	Failures []*detector.Failure
	// Err is ErrCycleTimeout or the cancellation cause when the cycle was abandoned.
	Err error
}

// ExecutorOptions configures an Executor.
type ExecutorOptions struct {
	// QR decodes tokens; nil disables the stage.
	QR detector.QRDecoder
	// Threats detects weapons; nil disables the stage.
	Threats detector.ThreatDetector
	// Faces detects and matches faces; nil disables the stage.
	Faces detector.FaceMatcher
	// Directory is read at the start of each stage that needs it.
	Directory access.Directory
	// WeaponThreshold is the score a detection must exceed to raise a threat.
	WeaponThreshold float64
	// QRPayload is the payload convention, see config.QRPayloadAuto.
	QRPayload string
	// Deadline bounds the whole cycle.
	Deadline time.Duration
}

// Executor runs the QR, weapon and face stages on one frame under a deadline.
type Executor struct {
	// qr decodes QR tokens.
	qr detector.QRDecoder
	// threats detects weapons.
	threats detector.ThreatDetector
	// faces detects and matches faces.
	faces detector.FaceMatcher
	// directory resolves identities.
	directory access.Directory
	// threshold is the weapon alert score.
	threshold float64
	// payload is the QR payload convention.
	payload string
	// deadline bounds a cycle.
	deadline time.Duration
	// tracer creates cycle and stage spans.
	tracer trace.Tracer
}

// NewExecutor creates an executor; missing detectors are replaced by detector.Disabled.
func NewExecutor(opts ExecutorOptions) *Executor {
	e := &Executor{
		qr:        opts.QR,
		threats:   opts.Threats,
		faces:     opts.Faces,
		directory: opts.Directory,
		threshold: opts.WeaponThreshold,
		payload:   opts.QRPayload,
		deadline:  opts.Deadline,
		tracer:    tracing.Tracer(tracerName),
	}

	if e.qr == nil {
		e.qr = detector.Disabled{}
	}

	if e.threats == nil {
		e.threats = detector.Disabled{}
	}

	if e.faces == nil {
		e.faces = detector.Disabled{}
	}

	if e.directory == nil {
		e.directory = access.StaticDirectory(nil)
	}

	if e.threshold <= 0 {
		e.threshold = config.DefaultWeaponThreshold
	}

	if e.payload == "" {
		e.payload = config.QRPayloadAuto
	}

	if e.deadline <= 0 {
		e.deadline = config.DefaultCycleDeadline
	}

	return e
}

// Execute races the detector pipeline against the deadline. A pipeline that
// loses the race keeps running on a cancelled context and its result is dropped.
func (e *Executor) Execute(ctx context.Context, f *frame.Frame) Result {
	ctx, span := e.tracer.Start(ctx, "recognition.cycle",
		trace.WithAttributes(attribute.Int64("frame.seq", int64(f.Seq)))) //nolint:gosec // Sequence numbers fit.
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, e.deadline)
	defer cancel()

	done := make(chan Result, 1)

	go func() {
		done <- e.pipeline(ctx, f)
	}()

	var result Result

	select {
	case result = <-done:
	case <-ctx.Done():
	}

	// A result that arrives once the deadline has passed is discarded.
	if err := ctx.Err(); err != nil {
		result = Result{Outcome: access.TimedOut(), Failures: result.Failures, Err: ErrCycleTimeout}
		if !errors.Is(err, context.DeadlineExceeded) {
			result.Err = err
		}
	}

	span.SetAttributes(attribute.String("outcome", result.Outcome.Kind.String()))

	if result.Err != nil {
		span.SetStatus(codes.Error, result.Err.Error())
	}

	return result
}

// pipeline runs the stages in order; its panics are reported as a face-stage failure.
func (e *Executor) pipeline(ctx context.Context, f *frame.Frame) (result Result) {
	var failures []*detector.Failure

	defer func() {
		if r := recover(); r != nil {
			failure := &detector.Failure{Source: access.SourceFace, Err: fmt.Errorf("%w: %v", detector.ErrPanicked, r)}
			failures = append(failures, failure)
			result = Result{
				Outcome:  access.DetectorError(failure.Source, describe(failures)),
				Failures: failures,
			}
		}
	}()

	if outcome, ok, failure := e.scanQR(ctx, f); failure != nil {
		failures = append(failures, failure)
	} else if ok {
		return Result{Outcome: outcome, Failures: failures}
	}

	if ctx.Err() != nil {
		return Result{Outcome: access.TimedOut(), Failures: failures, Err: ctx.Err()}
	}

	if outcome, ok, failure := e.scanWeapons(ctx, f); failure != nil {
		failures = append(failures, failure)
	} else if ok {
		return Result{Outcome: outcome, Failures: failures}
	}

	if ctx.Err() != nil {
		return Result{Outcome: access.TimedOut(), Failures: failures, Err: ctx.Err()}
	}

	outcome, failure := e.scanFace(ctx, f)
	if failure != nil {
		failures = append(failures, failure)

		return Result{
			Outcome:  access.DetectorError(access.SourceFace, describe(failures)),
			Failures: failures,
		}
	}

	return Result{Outcome: outcome, Failures: failures}
}

// scanQR returns Identified or Unknown when a code was read.
func (e *Executor) scanQR(ctx context.Context, f *frame.Frame) (access.Outcome, bool, *detector.Failure) {
	ctx, span := e.tracer.Start(ctx, "recognition.qr")
	defer span.End()

	code, failure := detector.Guard(access.SourceQR, func() (*detector.Code, error) {
		return e.qr.Decode(ctx, f)
	})
	if failure != nil {
		span.SetStatus(codes.Error, failure.Error())

		return access.Outcome{}, false, failure
	}

	if code == nil || strings.TrimSpace(code.Text) == "" {
		return access.Outcome{}, false, nil
	}

	raw := strings.TrimSpace(code.Text)
	token := ParseToken(raw, e.payload)

	if _, found := access.FindIdentity(e.directory, token); found {
		return access.Identified(token, access.ViaQR), true, nil
	}

	if token == "" {
		token = raw
	}

	return access.Unknown(token), true, nil
}

// scanWeapons returns ThreatDetected for the strongest qualifying detection.
func (e *Executor) scanWeapons(ctx context.Context, f *frame.Frame) (access.Outcome, bool, *detector.Failure) {
	ctx, span := e.tracer.Start(ctx, "recognition.weapon")
	defer span.End()

	threats, failure := detector.Guard(access.SourceWeapon, func() ([]detector.Threat, error) {
		return e.threats.DetectThreats(ctx, f)
	})
	if failure != nil {
		span.SetStatus(codes.Error, failure.Error())

		return access.Outcome{}, false, failure
	}

	best, found := strongest(threats, e.threshold)
	if !found {
		return access.Outcome{}, false, nil
	}

	span.SetAttributes(attribute.String("threat.class", best.Class), attribute.Float64("threat.score", best.Score))

	return access.ThreatDetected(best.Class, best.Score, e.bearer(ctx, f)), true, nil
}

// bearer makes one best-effort attempt to name the person holding a weapon.
func (e *Executor) bearer(ctx context.Context, f *frame.Frame) string {
	outcome, failure := e.scanFace(ctx, f)
	if failure != nil {
		logger.DebugKV(ctx, "Could not identify weapon bearer", "error", failure)

		return ""
	}

	if outcome.Kind != access.OutcomeIdentified {
		return ""
	}

	identity, found := access.FindIdentity(e.directory, outcome.IdentityID)
	if !found {
		return ""
	}

	return identity.DisplayName
}

// faceMatch is the result of a FindBestMatch call.
type faceMatch struct {
	id    string
	found bool
}

// scanFace returns Identified, Unknown or NoSignal.
func (e *Executor) scanFace(ctx context.Context, f *frame.Frame) (access.Outcome, *detector.Failure) {
	ctx, span := e.tracer.Start(ctx, "recognition.face")
	defer span.End()

	face, failure := detector.Guard(access.SourceFace, func() (*detector.Face, error) {
		return e.faces.DetectFace(ctx, f)
	})
	if failure != nil {
		span.SetStatus(codes.Error, failure.Error())

		return access.Outcome{}, failure
	}

	if face == nil || len(face.Descriptor) == 0 {
		return access.NoSignal(), nil
	}

	candidates := e.directory.ListIdentities()

	match, failure := detector.Guard(access.SourceFace, func() (faceMatch, error) {
		id, found, err := e.faces.FindBestMatch(ctx, face.Descriptor, candidates)

		return faceMatch{id: id, found: found}, err
	})
	if failure != nil {
		span.SetStatus(codes.Error, failure.Error())

		return access.Outcome{}, failure
	}

	if !match.found {
		return access.Unknown(""), nil
	}

	return access.Identified(match.id, access.ViaFace), nil
}

// strongest returns the highest-scoring detection strictly above threshold.
func strongest(threats []detector.Threat, threshold float64) (detector.Threat, bool) {
	var (
		best  detector.Threat
		found bool
	)

	for _, threat := range threats {
		if threat.Score <= threshold {
			continue
		}

		if !found || threat.Score > best.Score {
			best, found = threat, true
		}
	}

	return best, found
}

func describe(failures []*detector.Failure) string {
	parts := make([]string, 0, len(failures))
	for _, failure := range failures {
		parts = append(parts, failure.Error())
	}

	return strings.Join(parts, "; ")
}
