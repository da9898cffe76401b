package alarm

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/access-terminal/internal/domain/access"
	"github.com/oshokin/access-terminal/internal/service/recognition"
)

func emergency() recognition.Status {
	return recognition.Status{
		State:   access.StateEmergency,
		Display: "EMERGENCY: KNIFE DETECTED! (Unknown Person)",
		Subject: "KNIFE 40%",
	}
}

// TestSiren_Bell rings the bell without a command.
func TestSiren_Bell(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	s := NewSiren(nil)
	s.out = &out

	s.Hook()(context.Background(), emergency())
	require.Equal(t, bell, out.String())
}

// TestSiren_Command runs the command with the alert in its environment.
func TestSiren_Command(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("uses a POSIX shell")
	}

	marker := filepath.Join(t.TempDir(), "alert.txt")
	s := NewSiren([]string{"sh", "-c", `printf '%s' "$ACCESS_TERMINAL_THREAT" > "$0"`, marker})

	require.NoError(t, s.Sound(context.Background(), emergency()))

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(marker)

		return err == nil && string(data) == "KNIFE 40%" && !s.running.Load()
	}, 5*time.Second, 20*time.Millisecond)
}

// TestSiren_Busy refuses to overlap a running command.
func TestSiren_Busy(t *testing.T) {
	t.Parallel()

	s := NewSiren([]string{"does-not-matter"})
	s.running.Store(true)

	require.ErrorIs(t, s.Sound(context.Background(), emergency()), ErrSirenBusy)
}

// TestSiren_StartFailure releases the busy flag.
func TestSiren_StartFailure(t *testing.T) {
	t.Parallel()

	s := NewSiren([]string{filepath.Join(t.TempDir(), "missing-binary")})

	require.Error(t, s.Sound(context.Background(), emergency()))
	require.False(t, s.running.Load())
}
