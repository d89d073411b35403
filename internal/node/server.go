package node

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"irondb/internal/api"
	"irondb/internal/clock"
	"irondb/internal/metrics"
	"irondb/internal/storage"
)

// Backend is the store the server delegates to. *storage.Actor[string, []byte]
// satisfies it.
type Backend interface {
	Get(ctx context.Context, key string) ([]clock.Versioned[[]byte], error)
	Put(ctx context.Context, key string, v clock.Versioned[[]byte]) ([]clock.Versioned[[]byte], error)
}

// Server implements the Irondb gRPC service.
type Server struct {
	api.UnimplementedIrondbServer
	backend Backend
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// NewServer creates a new gRPC server instance recording into m.
func NewServer(backend Backend, m *metrics.Metrics, logger zerolog.Logger) *Server {
	return &Server{
		backend: backend,
		metrics: m,
		log:     logger.With().Str("component", "server").Logger(),
	}
}

// AreYouOkay answers liveness checks.
func (s *Server) AreYouOkay(ctx context.Context, req *api.AreYouOkayRequest) (*api.AreYouOkayReply, error) {
	return &api.AreYouOkayReply{Message: "AreYouOkay " + req.Name + "!"}, nil
}

// Get handles Get requests. An unknown key yields an empty result list.
func (s *Server) Get(ctx context.Context, req *api.GetRequest) (*api.GetReply, error) {
	if req.Key == "" {
		return nil, status.Error(codes.InvalidArgument, "key cannot be empty")
	}

	siblings, err := s.backend.Get(ctx, req.Key)
	if err != nil {
		return nil, s.toStatus(err, req.Key, req.RequestId)
	}
	s.metrics.SiblingsReturned.Observe(float64(len(siblings)))

	return &api.GetReply{Results: api.FromVersioned(siblings)}, nil
}

// Put handles Put requests. A request without a version is written with a
// fresh empty clock.
func (s *Server) Put(ctx context.Context, req *api.PutRequest) (*api.PutReply, error) {
	if req.Key == "" {
		return nil, status.Error(codes.InvalidArgument, "key cannot be empty")
	}

	var v clock.Versioned[[]byte]
	if req.Version == nil {
		v = clock.NewVersioned(req.Value)
	} else {
		vc, err := api.ToClock(req.Version)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "invalid version: %v", err)
		}
		v = clock.WithVersion(vc, req.Value)
	}

	previous, err := s.backend.Put(ctx, req.Key, v)
	if err != nil {
		return nil, s.toStatus(err, req.Key, req.RequestId)
	}

	return &api.PutReply{Key: req.Key, Previous: api.FromVersioned(previous)}, nil
}

// toStatus maps store errors to gRPC status errors.
func (s *Server) toStatus(err error, key, requestID string) error {
	switch {
	case errors.Is(err, storage.ErrStaleWrite):
		s.metrics.StaleWrites.Inc()
		s.log.Info().Str("key", key).Str("request_id", requestID).Err(err).Msg("rejected stale write")
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, storage.ErrActorUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, storage.ErrResponseLost):
		return status.Error(codes.Unknown, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		s.log.Error().Str("key", key).Str("request_id", requestID).Err(err).Msg("store failure")
		return status.Error(codes.Internal, err.Error())
	}
}
