package terminal

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/access-terminal/internal/service/recognition"
)

// watchBuffer is how many notifications a slow watcher may lag behind.
const watchBuffer = 64

// Service abstracts the scheduler operations the transport layer depends on.
type Service interface {
	Status() recognition.Status
	Subscribe(buffer int) (<-chan recognition.Notification, func())
}

// Server implements the TerminalStatus gRPC API.
type Server struct {
	// service provides the terminal state.
	service Service
}

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// GetState returns the current terminal state.
func (s *Server) GetState(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	message, err := StatusToProto(s.service.Status())
	if err != nil {
		return nil, status.Error(codes.Internal, "unable to encode state")
	}

	return message, nil
}

// WatchState sends the current state, then every notification until the
// client leaves or the scheduler stops.
func (s *Server) WatchState(_ *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	// Subscribe before the snapshot so nothing falls between them.
	events, cancel := s.service.Subscribe(watchBuffer)
	defer cancel()

	snapshot, err := StatusToProto(s.service.Status())
	if err != nil {
		return status.Error(codes.Internal, "unable to encode state")
	}

	if err = stream.Send(snapshot); err != nil {
		return err
	}

	ctx := stream.Context()

	for {
		select {
		case <-ctx.Done():
			return status.FromContextError(ctx.Err()).Err()
		case notification, ok := <-events:
			if !ok {
				return nil
			}

			message, err := NotificationToProto(notification)
			if err != nil {
				return status.Error(codes.Internal, "unable to encode event")
			}

			if err = stream.Send(message); err != nil {
				return err
			}
		}
	}
}
