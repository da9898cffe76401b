// Package version exposes build metadata of the terminal binaries.
//
// Version, Commit and BuildTime are injected through ldflags. The terminal
// reports them on startup and in the status API so an operator can tell which
// build is guarding a door.
package version
