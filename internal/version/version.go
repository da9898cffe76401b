package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the semantic version of the build.
	Version = "0.1.0"
	// Commit is the short git SHA embedded at build time.
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// Short returns the semantic version.
func Short() string {
	return Version
}

// Full returns the version line printed by the version subcommand.
func Full(program string) string {
	return fmt.Sprintf("%s version: %s, commit: %s, built at: %s, %s/%s",
		program, Version, Commit, BuildTime, runtime.GOOS, runtime.GOARCH)
}

// Fields returns build metadata as logger key-value pairs.
func Fields() []any {
	return []any{"version", Version, "commit", Commit, "built_at", BuildTime}
}
