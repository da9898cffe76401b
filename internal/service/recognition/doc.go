// Package recognition runs the terminal's recognition cycles.
//
// The Executor races the QR, weapon and face stages against a deadline and
// yields one access.Outcome per frame. The Scheduler ticks at a fixed rate,
// keeps at most one cycle in flight, honours suppression windows and applies
// outcomes to the terminal state machine, the sinks and the subscribers.
package recognition
