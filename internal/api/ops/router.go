// Package ops serves the terminal's operational HTTP endpoints: Prometheus
// metrics, a health probe and the current state as JSON.
package ops

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oshokin/access-terminal/internal/logger"
	"github.com/oshokin/access-terminal/internal/service/recognition"
)

const (
	// readHeaderTimeout bounds slow clients.
	readHeaderTimeout = 5 * time.Second
	// shutdownTimeout bounds draining on exit.
	shutdownTimeout = 5 * time.Second
)

// StatusProvider exposes the terminal state.
type StatusProvider interface {
	Status() recognition.Status
	Busy() bool
}

// HealthCheck reports a failing dependency.
type HealthCheck func(ctx context.Context) error

// stateResponse is the /state document.
type stateResponse struct {
	State           string     `json:"state"`
	Display         string     `json:"display"`
	Subject         string     `json:"subject,omitempty"`
	Since           time.Time  `json:"since"`
	SuppressedUntil *time.Time `json:"suppressed_until,omitempty"`
	Busy            bool       `json:"busy"`
}

// NewRouter builds the ops handler.
func NewRouter(status StatusProvider, checks map[string]HealthCheck) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		failures := make(map[string]string)

		for name, check := range checks {
			if err := check(req.Context()); err != nil {
				failures[name] = err.Error()
			}
		}

		if len(failures) > 0 {
			writeJSON(req.Context(), w, http.StatusServiceUnavailable, map[string]any{"status": "unhealthy", "failures": failures})

			return
		}

		writeJSON(req.Context(), w, http.StatusOK, map[string]any{"status": "ok"})
	})

	r.Get("/state", func(w http.ResponseWriter, req *http.Request) {
		current := status.Status()

		resp := stateResponse{
			State:   current.State.String(),
			Display: current.Display,
			Subject: current.Subject,
			Since:   current.Since,
			Busy:    status.Busy(),
		}

		if !current.SuppressedUntil.IsZero() {
			resp.SuppressedUntil = &current.SuppressedUntil
		}

		writeJSON(req.Context(), w, http.StatusOK, resp)
	})

	return r
}

func writeJSON(ctx context.Context, w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Debugf(ctx, "Write ops response: %v", err)
	}
}

// Serve listens on address until ctx is done, then shuts down gracefully.
func Serve(ctx context.Context, address string, handler http.Handler) error {
	ctx = logger.WithName(ctx, "ops")

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}

		return fmt.Errorf("listen on %s: %w", address, err)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	done := make(chan struct{})

	go func() {
		defer close(done)

		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.InfoKV(ctx, "Ops endpoints listening", "address", lis.Addr().String())

	if err = srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve ops: %w", err)
	}

	<-done

	return nil
}
