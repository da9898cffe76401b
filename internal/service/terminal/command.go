package terminal

import (
	"context"
	"errors"
	"fmt"
	"net"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	api "github.com/oshokin/access-terminal/internal/api/grpc/terminal"
	"github.com/oshokin/access-terminal/internal/api/ops"
	"github.com/oshokin/access-terminal/internal/config"
	"github.com/oshokin/access-terminal/internal/logger"
	"github.com/oshokin/access-terminal/internal/service/guard"
	"github.com/oshokin/access-terminal/internal/tracing"
	"github.com/oshokin/access-terminal/internal/version"
)

// serviceName identifies the daemon in traces.
const serviceName = "access-terminal"

// Options controls the access-terminal daemon.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress overrides the gRPC status API address.
	ListenAddress string
	// FramesDir overrides the replay folder.
	FramesDir string
	// AllowMultiple skips the single-instance check.
	AllowMultiple bool
}

// Run starts the terminal and blocks until ctx is canceled or a component fails.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, serviceName)

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if opts.ListenAddress != "" {
		settings.ListenAddress = opts.ListenAddress
	}

	if opts.FramesDir != "" {
		settings.FramesDir = opts.FramesDir
	}

	if level, ok := logger.ParseLogLevel(settings.LogLevel); ok {
		logger.SetLevel(level)
	}

	if !opts.AllowMultiple {
		if err = guard.EnsureSingleInstance(); err != nil {
			return err
		}
	}

	logger.InfoKV(ctx, "Starting access terminal", version.Fields()...)

	provider, err := tracing.Setup(ctx, settings.OTLPEndpoint, serviceName, version.Short())
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}

	defer func() {
		if shutdownErr := provider.Shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
			logger.Warnf(ctx, "Flush traces: %v", shutdownErr)
		}
	}()

	t, err := Assemble(ctx, settings, Deps{})
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := t.Close(); closeErr != nil {
			logger.Warnf(ctx, "Close terminal: %v", closeErr)
		}
	}()

	return t.Run(ctx)
}

// Run runs every component of the terminal until ctx is done.
func (t *Terminal) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return t.Scheduler.Run(ctx)
	})

	g.Go(func() error {
		return t.Refresher.Run(ctx)
	})

	g.Go(func() error {
		return serveStatus(ctx, t.settings.ListenAddress, t)
	})

	if t.settings.OpsAddress != "" {
		g.Go(func() error {
			return ops.Serve(ctx, t.settings.OpsAddress, ops.NewRouter(t.Scheduler, t.healthChecks()))
		})
	}

	return g.Wait()
}

// healthChecks reports the journal and, when configured, Redis.
func (t *Terminal) healthChecks() map[string]ops.HealthCheck {
	checks := map[string]ops.HealthCheck{
		"journal": t.Journal.Ping,
	}

	if t.Alerts != nil {
		checks["alerts"] = t.Alerts.Ping
	}

	return checks
}

// serveStatus runs the gRPC status API until ctx is done.
func serveStatus(ctx context.Context, address string, t *Terminal) error {
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", address, err)
	}

	grpcServer := grpc.NewServer()
	api.RegisterStatusServer(grpcServer, api.NewServer(t.Scheduler))

	logger.InfoKV(ctx, "Status API listening", "listen_address", lis.Addr().String())

	// Closed after GracefulStop so Serve's return is not mistaken for shutdown.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down gRPC server")
		grpcServer.GracefulStop()
		close(done)
	}()

	if err = grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done
	logger.Info(ctx, "GRPC server stopped")

	return nil
}
