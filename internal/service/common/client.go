//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	api "github.com/oshokin/access-terminal/internal/api/grpc/terminal"
	"github.com/oshokin/access-terminal/internal/config"
)

// Client wraps the gRPC TerminalStatus client with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the terminal.
	conn *grpc.ClientConn
	// api is the TerminalStatus client.
	api *api.StatusClient

	// callTimeout is the default timeout for unary calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for unary calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithConn uses an existing connection instead of dialing.
func WithConn(conn *grpc.ClientConn) Option {
	return func(c *Client) {
		c.conn = conn
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errHandlerRequired is returned when Watch is called without a handler.
	errHandlerRequired = errors.New("event handler must be provided")
)

// Dial creates a client for the terminal at address.
// Note: this uses insecure transport credentials; the status API is meant for
// the terminal host and its trusted network.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	client := &Client{
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.conn == nil {
		conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, fmt.Errorf("dial terminal: %w", err)
		}

		client.conn = conn
	}

	client.api = api.NewStatusClient(client.conn)

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// GetState retrieves the current terminal state.
func (c *Client) GetState(ctx context.Context) (*structpb.Struct, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.GetState(callCtx)
	if err != nil {
		return nil, fmt.Errorf("get terminal state: %w", err)
	}

	return resp, nil
}

// Watch streams terminal events to handle until the stream ends, ctx is done
// or handle returns an error. A stream closed by the server returns nil.
func (c *Client) Watch(ctx context.Context, handle func(*structpb.Struct) error) error {
	if handle == nil {
		return errHandlerRequired
	}

	stream, err := c.api.WatchState(ctx)
	if err != nil {
		return fmt.Errorf("watch terminal state: %w", err)
	}

	for {
		message, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("receive terminal event: %w", err)
		}

		if err = handle(message); err != nil {
			return err
		}
	}
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
