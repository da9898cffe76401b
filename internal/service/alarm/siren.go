// Package alarm sounds the local siren when the terminal enters Emergency.
package alarm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync/atomic"

	"github.com/oshokin/access-terminal/internal/logger"
	"github.com/oshokin/access-terminal/internal/service/recognition"
)

// bell is written when no siren command is configured.
const bell = "\a"

// ErrSirenBusy is returned when the previous siren command is still running.
var ErrSirenBusy = errors.New("siren already sounding")

// Siren runs the configured alarm command, or rings the terminal bell.
type Siren struct {
	// command is the program and its arguments; empty rings the bell.
	command []string
	// out receives the bell.
	out io.Writer
	// running is set while the command runs.
	running atomic.Bool
}

// NewSiren creates a siren for command.
func NewSiren(command []string) *Siren {
	return &Siren{
		command: command,
		out:     os.Stdout,
	}
}

// Sound starts the siren for status. The command runs in the background with
// the emergency text in ACCESS_TERMINAL_ALERT; the call does not wait for it.
func (s *Siren) Sound(ctx context.Context, status recognition.Status) error {
	if len(s.command) == 0 {
		_, err := io.WriteString(s.out, bell)

		return err
	}

	if !s.running.CompareAndSwap(false, true) {
		return ErrSirenBusy
	}

	//nolint:gosec // The command comes from the operator's settings file.
	cmd := exec.CommandContext(context.WithoutCancel(ctx), s.command[0], s.command[1:]...)
	cmd.Env = append(os.Environ(),
		"ACCESS_TERMINAL_ALERT="+status.Display,
		"ACCESS_TERMINAL_THREAT="+status.Subject,
	)

	if err := cmd.Start(); err != nil {
		s.running.Store(false)

		return fmt.Errorf("start siren: %w", err)
	}

	go func() {
		defer s.running.Store(false)

		if err := cmd.Wait(); err != nil {
			logger.WarnKV(ctx, "Siren command failed", "error", err)
		}
	}()

	return nil
}

// Hook adapts the siren to the scheduler's emergency hook, logging failures.
func (s *Siren) Hook() recognition.EmergencyHook {
	return func(ctx context.Context, status recognition.Status) {
		if err := s.Sound(ctx, status); err != nil {
			logger.WarnKV(ctx, "Unable to sound siren", "error", err)
		}
	}
}
