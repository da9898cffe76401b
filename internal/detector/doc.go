// Package detector declares the three capabilities a recognition cycle calls
// against a frame: QR decoding, weapon detection and face matching.
//
// Every capability returns a value and an error. The cycle executor wraps the
// error in a Failure tagged with the stage it came from, so the three stages
// share one error isolation and deadline path.
package detector
