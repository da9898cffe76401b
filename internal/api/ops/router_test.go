package ops

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/access-terminal/internal/domain/access"
	"github.com/oshokin/access-terminal/internal/metrics"
	"github.com/oshokin/access-terminal/internal/service/recognition"
)

type fakeStatus struct {
	status recognition.Status
}

func (f fakeStatus) Status() recognition.Status { return f.status }

func (fakeStatus) Busy() bool { return true }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	return rec
}

// TestRouter_State returns the current state as JSON.
func TestRouter_State(t *testing.T) {
	t.Parallel()

	until := time.Date(2026, 3, 2, 9, 0, 10, 0, time.UTC)
	h := NewRouter(fakeStatus{status: recognition.Status{
		State:           access.StateEmergency,
		Display:         "EMERGENCY: KNIFE DETECTED! (Unknown Person)",
		Subject:         "KNIFE 40%",
		SuppressedUntil: until,
	}}, nil)

	rec := get(t, h, "/state")
	require.Equal(t, http.StatusOK, rec.Code)

	var body stateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "Emergency", body.State)
	require.True(t, body.Busy)
	require.NotNil(t, body.SuppressedUntil)
	require.True(t, body.SuppressedUntil.Equal(until))
}

// TestRouter_Healthz reports failing checks.
func TestRouter_Healthz(t *testing.T) {
	t.Parallel()

	healthy := NewRouter(fakeStatus{}, map[string]HealthCheck{
		"journal": func(context.Context) error { return nil },
	})
	require.Equal(t, http.StatusOK, get(t, healthy, "/healthz").Code)

	unhealthy := NewRouter(fakeStatus{}, map[string]HealthCheck{
		"camera": func(context.Context) error { return errors.New("unavailable") },
	})
	rec := get(t, unhealthy, "/healthz")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "camera")
}

// TestRouter_Metrics exposes the scheduler metrics.
func TestRouter_Metrics(t *testing.T) {
	t.Parallel()

	metrics.RecordSkip(metrics.SkipBusy)

	rec := get(t, NewRouter(fakeStatus{}, nil), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "access_terminal_skipped_ticks_total"))
}

// TestServe_StopsOnCancel verifies graceful shutdown.
func TestServe_StopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- Serve(ctx, "127.0.0.1:0", NewRouter(fakeStatus{}, nil))
	}()

	cancel()
	require.NoError(t, <-done)
}
