package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	api "github.com/oshokin/access-terminal/internal/api/grpc/terminal"
	"github.com/oshokin/access-terminal/internal/config"
	"github.com/oshokin/access-terminal/internal/domain/access"
	repository "github.com/oshokin/access-terminal/internal/repository/directory"
	"github.com/oshokin/access-terminal/internal/service/common"
	"github.com/oshokin/access-terminal/internal/service/monitor"
	"github.com/oshokin/access-terminal/internal/service/report"
	"github.com/oshokin/access-terminal/internal/service/terminal"
)

// errSeen stops a watch once the wanted event arrived.
var errSeen = errors.New("seen")

// freeAddress reserves a local port.
func freeAddress(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	require.NoError(t, l.Close())

	return addr
}

// prepareTerminal writes settings, a directory with one student and a replay
// folder holding the student's badge.
func prepareTerminal(t *testing.T) (string, *config.Config) {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{
		ListenAddress: freeAddress(t),
		OpsAddress:    freeAddress(t),
		Database:      filepath.Join(dir, "journal.db"),
		DirectoryFile: filepath.Join(dir, "directory.yaml"),
		FramesDir:     filepath.Join(dir, "frames"),
		TickInterval:  50 * time.Millisecond,
		GrantedWindow: 5 * time.Second,
		Timeout:       3 * time.Second,
	}

	cfgPath := filepath.Join(dir, "settings.yaml")
	require.NoError(t, config.Save(cfgPath, cfg))

	require.NoError(t, repository.NewFileRepository(cfg.DirectoryFile).Save(context.Background(), []access.Identity{
		{ID: "S001", DisplayName: "Asha Rao", DepartmentID: "CSE", SectionID: "A"},
	}))

	img, err := qrcode.NewQRCodeWriter().Encode(`{"studentId":"S001"}`, gozxing.BarcodeFormat_QR_CODE, 240, 240, nil)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(cfg.FramesDir, 0o750))

	f, err := os.Create(filepath.Join(cfg.FramesDir, "badge.png"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	return cfgPath, cfg
}

// TestTerminal_EndToEnd runs the daemon on a replayed badge and follows it
// through the status API, the monitor, the ops endpoints and the journal.
func TestTerminal_EndToEnd(t *testing.T) {
	t.Parallel()

	cfgPath, cfg := prepareTerminal(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)

	go func() {
		done <- terminal.Run(ctx, &terminal.Options{ConfigPath: cfgPath, AllowMultiple: true})
	}()

	client, err := common.Dial(ctx, cfg.ListenAddress, common.WithCallTimeout(time.Second))
	require.NoError(t, err)

	defer func() {
		_ = client.Close()
	}()

	require.Eventually(t, func() bool {
		_, err := client.GetState(ctx)

		return err == nil
	}, 10*time.Second, 50*time.Millisecond)

	watchCtx, stopWatch := context.WithTimeout(ctx, 10*time.Second)
	defer stopWatch()

	var granted api.Event

	err = client.Watch(watchCtx, func(message *structpb.Struct) error {
		event, err := api.EventFromProto(message)
		if err != nil {
			return err
		}

		if event.State == access.StateGranted.String() {
			granted = event

			return errSeen
		}

		return nil
	})
	require.ErrorIs(t, err, errSeen)
	require.Equal(t, "Access Granted: Asha Rao", granted.Payload)

	var out bytes.Buffer

	require.NoError(t, monitor.Run(ctx, &monitor.Options{ConfigPath: cfgPath, Once: true, Output: &out}))
	require.Contains(t, out.String(), "Granted")

	resp, err := http.Get("http://" + cfg.OpsAddress + "/state") //nolint:noctx // Test request.
	require.NoError(t, err)

	var state struct {
		State string `json:"state"`
	}

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	require.NoError(t, resp.Body.Close())
	require.Equal(t, access.StateGranted.String(), state.State)

	cancel()

	select {
	case err = <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		require.FailNow(t, "terminal did not stop")
	}

	out.Reset()
	require.NoError(t, report.Run(context.Background(), &report.Options{ConfigPath: cfgPath, Output: &out}))
	require.Contains(t, out.String(), "Asha Rao")
	require.Contains(t, out.String(), "Granted")
}

// TestMonitor_NoTerminal fails a one-shot query when nothing listens.
func TestMonitor_NoTerminal(t *testing.T) {
	t.Parallel()

	cfgPath, _ := prepareTerminal(t)

	err := monitor.Run(context.Background(), &monitor.Options{ConfigPath: cfgPath, Once: true, Output: &bytes.Buffer{}})
	require.Error(t, err)
}
