// Package guard keeps a single terminal daemon running per host. Two daemons
// would race for the camera and double every journal entry.
package guard

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-ps"
)

// ErrAlreadyRunning is returned when another instance of the daemon is found.
var ErrAlreadyRunning = errors.New("another terminal instance is already running")

// EnsureSingleInstance fails when another process runs the current executable.
func EnsureSingleInstance() error {
	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	processList, err := ps.Processes()
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}

	others := findOthers(processList, filepath.Base(executable), os.Getpid())
	if len(others) > 0 {
		return fmt.Errorf("%w: pid %d", ErrAlreadyRunning, others[0])
	}

	return nil
}

// findOthers returns the pids running name other than self and its parent,
// which is a wrapper re-executing the terminal under the same name.
func findOthers(processList []ps.Process, name string, self int) []int {
	var (
		parent int
		pids   []int
	)

	for _, process := range processList {
		if process.Pid() == self {
			parent = process.PPid()
		}
	}

	for _, process := range processList {
		pid := process.Pid()
		if pid == self || pid == parent {
			continue
		}

		if !sameExecutable(process.Executable(), name) {
			continue
		}

		pids = append(pids, pid)
	}

	return pids
}

// commLength is the length Linux truncates process names to.
const commLength = 15

// sameExecutable compares a listed process name with name, ignoring case and
// ".exe", and accepting names truncated by the kernel.
func sameExecutable(listed, name string) bool {
	trim := func(s string) string {
		return strings.TrimSuffix(strings.ToLower(s), ".exe")
	}

	listed, name = trim(listed), trim(name)
	if listed == name {
		return true
	}

	return len(listed) == commLength && strings.HasPrefix(name, listed)
}
