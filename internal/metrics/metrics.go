// Package metrics provides Prometheus metrics for the recognition scheduler.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/oshokin/access-terminal/internal/domain/access"
)

// Skip reasons.
const (
	SkipBusy        = "busy"
	SkipSuppressed  = "suppressed"
	SkipUnavailable = "unavailable"
)

var (
	// CyclesTotal counts finished cycles by outcome kind.
	CyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "access_terminal_cycles_total",
		Help: "Total number of recognition cycles, by outcome.",
	}, []string{"outcome"})

	// SkipsTotal counts ticks that did not start a cycle.
	SkipsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "access_terminal_skipped_ticks_total",
		Help: "Total number of ticks that did not start a cycle, by reason.",
	}, []string{"reason"})

	// StageFailuresTotal counts detector failures by stage.
	StageFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "access_terminal_detector_failures_total",
		Help: "Total number of detector failures, by stage.",
	}, []string{"stage"})

	// CycleDuration tracks how long cycles take.
	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "access_terminal_cycle_duration_seconds",
		Help:    "Duration of recognition cycles.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5},
	})

	// TerminalState is 1 for the current state and 0 for the others.
	TerminalState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "access_terminal_state",
		Help: "Current terminal state (1 = active).",
	}, []string{"state"})

	// NotificationsDropped counts notifications lost to full subscriber buffers.
	NotificationsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "access_terminal_notifications_dropped_total",
		Help: "Total number of notifications dropped because a subscriber was not keeping up.",
	})

	// DirectoryIdentities tracks the size of the loaded directory.
	DirectoryIdentities = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "access_terminal_directory_identities",
		Help: "Number of identities in the loaded directory.",
	})
)

// ObserveCycle records a finished cycle.
func ObserveCycle(kind access.OutcomeKind, duration time.Duration) {
	CyclesTotal.WithLabelValues(kind.String()).Inc()
	CycleDuration.Observe(duration.Seconds())
}

// RecordSkip records a tick that did not start a cycle.
func RecordSkip(reason string) {
	SkipsTotal.WithLabelValues(reason).Inc()
}

// RecordStageFailure records a failed detector call.
func RecordStageFailure(source access.Source) {
	StageFailuresTotal.WithLabelValues(source.String()).Inc()
}

// RecordDroppedNotification records a notification a subscriber missed.
func RecordDroppedNotification() {
	NotificationsDropped.Inc()
}

// SetState marks state as current.
func SetState(state access.TerminalState) {
	for _, s := range access.TerminalStates() {
		value := 0.0
		if s == state {
			value = 1
		}

		TerminalState.WithLabelValues(s.String()).Set(value)
	}
}
