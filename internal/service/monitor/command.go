// Package monitor implements terminal-monitor: it follows the terminal status
// stream and prints every state change and diagnostic.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	api "github.com/oshokin/access-terminal/internal/api/grpc/terminal"
	"github.com/oshokin/access-terminal/internal/config"
	"github.com/oshokin/access-terminal/internal/logger"
	"github.com/oshokin/access-terminal/internal/service/common"
)

// Options controls the monitor behavior and configuration.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// ServerAddress provides an optional gRPC server address override.
	ServerAddress string
	// RetryInterval is the pause before reconnecting after the stream breaks.
	RetryInterval time.Duration
	// JSON prints events as protobuf JSON instead of text lines.
	JSON bool
	// Once prints the current state and exits.
	Once bool
	// Output receives the printed events; nil means standard output.
	Output io.Writer
}

// DefaultRetryInterval is the reconnect pause.
const DefaultRetryInterval = 3 * time.Second

// Run follows the terminal stream until ctx is done, reconnecting when it breaks.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "terminal-monitor")

	// Load settings from configuration file.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if opts.RetryInterval <= 0 {
		opts.RetryInterval = DefaultRetryInterval
	}

	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	// Determine server address: command line argument overrides config.
	serverAddress := cfg.ListenAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	client, err := common.Dial(ctx, serverAddress, common.WithCallTimeout(cfg.Timeout))
	if err != nil {
		return fmt.Errorf("dial terminal: %w", err)
	}

	// Ensure connection cleanup on function exit.
	defer func() {
		_ = client.Close()
	}()

	printer := newPrinter(opts.Output, opts.JSON)

	if opts.Once {
		message, err := client.GetState(ctx)
		if err != nil {
			return err
		}

		return printer.print(message)
	}

	return follow(ctx, client, printer, serverAddress, opts.RetryInterval)
}

// follow keeps a watch open, retrying every interval until ctx is done.
func follow(ctx context.Context, client *common.Client, p *printer, address string, interval time.Duration) error {
	logger.InfoKV(ctx, "Watching terminal", "server_address", address)

	for {
		err := client.Watch(ctx, p.print)

		switch {
		case ctx.Err() != nil:
			logger.Info(ctx, "Context canceled, exiting")

			return nil
		case err == nil:
			logger.Warn(ctx, "Terminal closed the stream")
		case errors.Is(err, errWrite):
			return err
		default:
			logger.ErrorKV(ctx, "Watch failed", "error", err)
		}

		timer := time.NewTimer(interval)

		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info(ctx, "Context canceled, exiting")

			return nil
		case <-timer.C:
		}
	}
}

// errWrite marks output failures, which end the monitor.
var errWrite = errors.New("write event")

// printer renders events.
type printer struct {
	// w receives the output.
	w io.Writer
	// json selects protojson output.
	json bool
	// marshal renders protojson.
	marshal protojson.MarshalOptions
}

func newPrinter(w io.Writer, json bool) *printer {
	return &printer{
		w:       w,
		json:    json,
		marshal: protojson.MarshalOptions{},
	}
}

func (p *printer) print(message *structpb.Struct) error {
	var line string

	if p.json {
		data, err := p.marshal.Marshal(message)
		if err != nil {
			return fmt.Errorf("%w: %w", errWrite, err)
		}

		line = string(data)
	} else {
		event, err := api.EventFromProto(message)
		if err != nil {
			return fmt.Errorf("%w: %w", errWrite, err)
		}

		line = formatEvent(event)
	}

	if _, err := fmt.Fprintln(p.w, line); err != nil {
		return fmt.Errorf("%w: %w", errWrite, err)
	}

	return nil
}

// formatEvent renders "15:04:05 Emergency  EMERGENCY: KNIFE DETECTED! (X) [KNIFE 40%]".
func formatEvent(e api.Event) string {
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}

	line := fmt.Sprintf("%s %-11s %s", at.Local().Format(time.TimeOnly), e.State, e.Payload)

	if e.Kind == api.KindDiagnostic {
		line = fmt.Sprintf("%s %-11s (%s)", at.Local().Format(time.TimeOnly), e.State, e.Payload)
	}

	if e.Subject != "" {
		line += " [" + e.Subject + "]"
	}

	if !e.SuppressedUntil.IsZero() {
		line += " until " + e.SuppressedUntil.Local().Format(time.TimeOnly)
	}

	return line
}
