package terminal

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/oshokin/access-terminal/internal/domain/access"
	"github.com/oshokin/access-terminal/internal/service/recognition"
)

// fakeService implements Service with a hand-driven notification channel.
type fakeService struct {
	mu         sync.Mutex
	status     recognition.Status
	events     chan recognition.Notification
	subscribed chan struct{}
}

func newFakeService() *fakeService {
	return &fakeService{
		status: recognition.Status{
			State:   access.StateIdle,
			Display: access.DisplayReady,
			Since:   time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		},
		events:     make(chan recognition.Notification, 8),
		subscribed: make(chan struct{}, 1),
	}
}

func (f *fakeService) Status() recognition.Status {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.status
}

func (f *fakeService) Subscribe(int) (<-chan recognition.Notification, func()) {
	f.subscribed <- struct{}{}

	return f.events, func() {}
}

func startServer(t *testing.T, svc Service) *StatusClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterStatusServer(srv, NewServer(svc))

	go func() {
		_ = srv.Serve(lis)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		srv.Stop()
	})

	return NewStatusClient(conn)
}

// TestServer_GetState returns the snapshot event.
func TestServer_GetState(t *testing.T) {
	t.Parallel()

	client := startServer(t, newFakeService())

	message, err := client.GetState(context.Background())
	require.NoError(t, err)

	event, err := EventFromProto(message)
	require.NoError(t, err)
	require.Equal(t, KindSnapshot, event.Kind)
	require.Equal(t, "Idle", event.State)
	require.Equal(t, access.DisplayReady, event.Payload)
	require.True(t, event.SuppressedUntil.IsZero())
}

// TestServer_WatchState streams the snapshot, then notifications, then ends.
func TestServer_WatchState(t *testing.T) {
	t.Parallel()

	svc := newFakeService()
	client := startServer(t, svc)

	stream, err := client.WatchState(context.Background())
	require.NoError(t, err)

	first, err := stream.Recv()
	require.NoError(t, err)

	event, err := EventFromProto(first)
	require.NoError(t, err)
	require.Equal(t, KindSnapshot, event.Kind)

	<-svc.subscribed

	at := time.Date(2026, 3, 2, 9, 0, 1, 0, time.UTC)
	svc.events <- recognition.Notification{
		Kind:    recognition.KindStateChange,
		State:   access.StateEmergency,
		Payload: "EMERGENCY: KNIFE DETECTED! (Unknown Person)",
		Subject: "KNIFE 40%",
		At:      at,
	}
	svc.events <- recognition.Notification{Kind: recognition.KindDiagnostic, State: access.StateEmergency, Payload: "skipped: busy", At: at}
	close(svc.events)

	second, err := stream.Recv()
	require.NoError(t, err)

	event, err = EventFromProto(second)
	require.NoError(t, err)
	require.Equal(t, KindStateChange, event.Kind)
	require.Equal(t, "Emergency", event.State)
	require.Equal(t, "KNIFE 40%", event.Subject)
	require.True(t, event.At.Equal(at))

	third, err := stream.Recv()
	require.NoError(t, err)

	event, err = EventFromProto(third)
	require.NoError(t, err)
	require.Equal(t, KindDiagnostic, event.Kind)

	_, err = stream.Recv()
	require.True(t, errors.Is(err, io.EOF), "got %v", err)
}

// TestEventFromProto_Validation rejects events without a kind.
func TestEventFromProto_Validation(t *testing.T) {
	t.Parallel()

	message, err := eventToProto(Event{})
	require.NoError(t, err)

	_, err = EventFromProto(message)
	require.ErrorIs(t, err, errMissingField)
}
