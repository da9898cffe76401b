package recognition

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/oshokin/access-terminal/internal/config"
	"github.com/oshokin/access-terminal/internal/domain/access"
	"github.com/oshokin/access-terminal/internal/frame"
	"github.com/oshokin/access-terminal/internal/logger"
	"github.com/oshokin/access-terminal/internal/metrics"
)

// busyLogInterval throttles the busy-skip warning; the diagnostic itself is always published.
const busyLogInterval = 5 * time.Second

var (
	// errSourceRequired is returned when no frame source is configured.
	errSourceRequired = errors.New("frame source must be provided")
	// errRunnerRequired is returned when no cycle runner is configured.
	errRunnerRequired = errors.New("cycle runner must be provided")
)

// AccessLogSink records access decisions. Failures are handled by the sink.
type AccessLogSink interface {
	Record(ctx context.Context, entry access.AccessLogEntry)
}

// SecurityAuditSink records security audit entries. Failures are handled by the sink.
type SecurityAuditSink interface {
	Record(ctx context.Context, entry access.SecurityAuditEntry)
}

// AuditSinks fans an entry out to several sinks in order.
type AuditSinks []SecurityAuditSink

// Record forwards entry to every sink.
func (s AuditSinks) Record(ctx context.Context, entry access.SecurityAuditEntry) {
	for _, sink := range s {
		sink.Record(ctx, entry)
	}
}

// EmergencyHook is called after the terminal enters Emergency.
type EmergencyHook func(ctx context.Context, status Status)

// Options configures a Scheduler.
type Options struct {
	// Source captures one frame per cycle.
	Source frame.Source
	// Runner executes cycles, normally an *Executor.
	Runner Runner
	// Directory resolves identified people.
	Directory access.Directory
	// Rules parameterize outcome resolution.
	Rules access.Rules
	// AccessLog receives access decisions; nil drops them.
	AccessLog AccessLogSink
	// Audit receives security alerts; nil drops them.
	Audit SecurityAuditSink
	// Interval is the tick period.
	Interval time.Duration
	// SlowCycle is the duration above which a cycle is reported as slow.
	SlowCycle time.Duration
	// OnEmergency is called when a threat is detected.
	OnEmergency EmergencyHook
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// Status is the terminal state as seen by the presentation layer.
type Status struct {
	// State is the current state.
	State access.TerminalState
	// Display is the status text.
	Display string
	// Subject is the recognized name, threat label or raw token, if any.
	Subject string
	// Since is when the state was entered.
	Since time.Time
	// SuppressedUntil is when the active suppression window ends, zero when none.
	SuppressedUntil time.Time
}

// Scheduler drives recognition cycles and the terminal state machine. At most
// one cycle is in flight; ticks arriving meanwhile are dropped.
type Scheduler struct {
	// source captures frames.
	source frame.Source
	// runner executes cycles.
	runner Runner
	// directory resolves identities.
	directory access.Directory
	// rules parameterize Resolve.
	rules access.Rules
	// accessLog receives access entries.
	accessLog AccessLogSink
	// audit receives security audit entries.
	audit SecurityAuditSink
	// interval is the tick period.
	interval time.Duration
	// slowCycle marks slow cycles.
	slowCycle time.Duration
	// onEmergency is the alarm hook.
	onEmergency EmergencyHook
	// now is the clock.
	now func() time.Time

	// busy is held from frame capture until the cycle is fully applied.
	busy atomic.Bool
	// cycles tracks the in-flight cycle for shutdown.
	cycles sync.WaitGroup
	// busyLog throttles the busy warning.
	busyLog rate.Sometimes

	// mu protects status, window and announced.
	mu sync.RWMutex
	// status is the current state.
	status Status
	// window is the active suppression window.
	window access.SuppressionWindow
	// announced is the last published state change.
	announced Notification

	// notify fans out notifications.
	notify *broadcaster
}

// NewScheduler creates a scheduler in the Idle state.
func NewScheduler(opts *Options) (*Scheduler, error) {
	if opts.Source == nil {
		return nil, errSourceRequired
	}

	if opts.Runner == nil {
		return nil, errRunnerRequired
	}

	s := &Scheduler{
		source:      opts.Source,
		runner:      opts.Runner,
		directory:   opts.Directory,
		rules:       opts.Rules,
		accessLog:   opts.AccessLog,
		audit:       opts.Audit,
		interval:    opts.Interval,
		slowCycle:   opts.SlowCycle,
		onEmergency: opts.OnEmergency,
		now:         opts.Now,
		busyLog:     rate.Sometimes{Interval: busyLogInterval},
		notify:      newBroadcaster(),
	}

	if s.interval <= 0 {
		s.interval = config.DefaultTickInterval
	}

	if s.slowCycle <= 0 {
		s.slowCycle = config.DefaultSlowCycle
	}

	if s.now == nil {
		s.now = time.Now
	}

	if s.directory == nil {
		s.directory = access.StaticDirectory(nil)
	}

	s.status = Status{State: access.StateIdle, Display: access.DisplayReady, Since: s.now()}

	return s, nil
}

// Subscribe registers a notification subscriber. Notifications that do not fit
// in buffer are dropped for that subscriber. The channel is closed when the
// scheduler stops or cancel is called.
func (s *Scheduler) Subscribe(buffer int) (<-chan Notification, func()) {
	return s.notify.subscribe(buffer)
}

// Status returns the current terminal state.
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.status
}

// Busy reports whether a cycle is in flight.
func (s *Scheduler) Busy() bool {
	return s.busy.Load()
}

// Run ticks until ctx is done, then waits for the in-flight cycle.
func (s *Scheduler) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, "scheduler")

	defer s.notify.close()

	s.publish(KindDiagnostic, DiagnosticInitializing, "")
	s.enter(ctx, access.StateIdle, access.DisplayReady, "", 0)

	logger.InfoKV(ctx, "Recognition scheduler started", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.cycles.Wait()
			logger.Info(ctx, "Recognition scheduler stopped")

			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick evaluates the busy and suppression gates once and starts a cycle in
// the background when both are clear. It reports whether a cycle started.
func (s *Scheduler) Tick(ctx context.Context) bool {
	if !s.busy.CompareAndSwap(false, true) {
		metrics.RecordSkip(metrics.SkipBusy)
		s.busyLog.Do(func() {
			logger.Warn(ctx, "Skipping scan: previous scan still in progress")
		})
		s.publish(KindDiagnostic, DiagnosticBusy, "")

		return false
	}

	if s.suppressed(ctx) {
		s.busy.Store(false)
		metrics.RecordSkip(metrics.SkipSuppressed)

		return false
	}

	s.cycles.Add(1)

	go func() {
		defer s.cycles.Done()
		defer s.busy.Store(false)

		s.cycle(ctx)
	}()

	return true
}

// suppressed reports whether a window blocks cycles now. The first check after
// a window expires returns the terminal to Idle.
func (s *Scheduler) suppressed(ctx context.Context) bool {
	now := s.now()

	s.mu.RLock()
	window := s.window
	s.mu.RUnlock()

	if window.Active(now) {
		return true
	}

	if !window.ExpiresAt.IsZero() {
		logger.DebugKV(ctx, "Suppression expired", "state", window.State)
		s.enter(ctx, access.StateIdle, access.DisplayReady, "", 0)
	}

	return false
}

// cycle captures a frame, runs the detectors and applies the outcome.
func (s *Scheduler) cycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorKV(ctx, "Recognition cycle panicked", "panic", r)
			s.publish(KindDiagnostic, fmt.Sprintf("%s: %v", DiagnosticFailed, r), "")
			s.enter(ctx, access.StateIdle, access.DisplayReady, "", 0)
		}
	}()

	f, err := s.source.Capture(ctx)
	if err != nil {
		s.captureFailed(ctx, err)

		return
	}

	if s.Status().State == access.StateUnavailable {
		logger.Info(ctx, "Camera is available again")
	}

	s.enter(ctx, access.StateScanning, "", "", 0)

	start := s.now()
	result := s.runner.Execute(ctx, f)
	elapsed := s.now().Sub(start)

	if ctx.Err() != nil {
		s.enter(ctx, access.StateIdle, access.DisplayReady, "", 0)

		return
	}

	s.report(ctx, result, elapsed)

	transition := access.Resolve(result.Outcome, s.directory, s.rules, s.now())

	if transition.AccessLog != nil && s.accessLog != nil {
		s.accessLog.Record(ctx, *transition.AccessLog)
	}

	if transition.Audit != nil && s.audit != nil {
		s.audit.Record(ctx, *transition.Audit)
	}

	status := s.enter(ctx, transition.Next, transition.Display, transition.Subject, transition.Suppress)

	if transition.Next == access.StateEmergency && s.onEmergency != nil {
		s.onEmergency(ctx, status)
	}
}

func (s *Scheduler) captureFailed(ctx context.Context, err error) {
	if !errors.Is(err, frame.ErrUnavailable) {
		logger.WarnKV(ctx, "Frame capture failed", "error", err)
		s.publish(KindDiagnostic, "capture failed: "+err.Error(), "")

		return
	}

	metrics.RecordSkip(metrics.SkipUnavailable)

	if s.Status().State != access.StateUnavailable {
		logger.WarnKV(ctx, "Camera unavailable", "error", err)
	}

	s.enter(ctx, access.StateUnavailable, access.DisplayUnavailable, "", 0)
}

// report logs and publishes the diagnostics of a finished cycle.
func (s *Scheduler) report(ctx context.Context, result Result, elapsed time.Duration) {
	metrics.ObserveCycle(result.Outcome.Kind, elapsed)

	for _, failure := range result.Failures {
		metrics.RecordStageFailure(failure.Source)
		logger.WarnKV(ctx, "Detector failed", "stage", failure.Source, "error", failure.Err)
	}

	switch result.Outcome.Kind {
	case access.OutcomeTimedOut:
		logger.WarnKV(ctx, "Scan timed out", "elapsed", elapsed, "error", result.Err)
		s.publish(KindDiagnostic, DiagnosticTimedOut, "")
	case access.OutcomeDetectorError:
		logger.WarnKV(ctx, "All detectors failed", "detail", result.Outcome.Detail)
		s.publish(KindDiagnostic, DiagnosticFailed+": "+result.Outcome.Detail, "")
	default:
	}

	if elapsed > s.slowCycle {
		logger.WarnKV(ctx, "Slow scan detected", "elapsed", elapsed)
		s.publish(KindDiagnostic, DiagnosticSlow, elapsed.String())
	}

	logger.DebugKV(ctx, "Scan finished", "outcome", result.Outcome, "elapsed", elapsed)
}

// enter switches state, arms or clears the suppression window and announces
// the change. Scanning is tracked but not announced.
func (s *Scheduler) enter(
	ctx context.Context,
	state access.TerminalState,
	display, subject string,
	suppress time.Duration,
) Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	if s.status.State != state {
		s.status.Since = now
	}

	s.status.State = state
	s.status.Display = display
	s.status.Subject = subject
	s.window = access.SuppressionWindow{}
	s.status.SuppressedUntil = time.Time{}

	if suppress > 0 {
		s.window = access.SuppressionWindow{State: state, ExpiresAt: now.Add(suppress)}
		s.status.SuppressedUntil = s.window.ExpiresAt
	}

	metrics.SetState(state)

	if state == access.StateScanning {
		return s.status
	}

	repeated := s.announced.State == state &&
		s.announced.Payload == display &&
		s.announced.Subject == subject &&
		!s.announced.At.IsZero()
	if repeated && suppress == 0 {
		return s.status
	}

	s.announced = Notification{
		Kind:    KindStateChange,
		State:   state,
		Payload: display,
		Subject: subject,
		At:      now,
	}
	s.notify.publish(s.announced)

	logger.InfoKV(ctx, "Terminal state changed", "state", state, "display", display, "subject", subject)

	return s.status
}

// publish sends a diagnostic tagged with the current state.
func (s *Scheduler) publish(kind NotificationKind, payload, subject string) {
	s.mu.RLock()
	state := s.status.State
	s.mu.RUnlock()

	s.notify.publish(Notification{
		Kind:    kind,
		State:   state,
		Payload: payload,
		Subject: subject,
		At:      s.now(),
	})
}
