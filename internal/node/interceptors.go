package node

import (
	"context"
	"path"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"irondb/internal/metrics"
)

// observe logs every unary RPC at debug level and records its outcome.
func observe(m *metrics.Metrics, logger zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		elapsed := time.Since(start)

		method := path.Base(info.FullMethod)
		code := status.Code(err)
		m.RPCRequests.WithLabelValues(method, code.String()).Inc()
		m.RPCDuration.WithLabelValues(method).Observe(elapsed.Seconds())

		logger.Debug().
			Str("method", method).
			Str("code", code.String()).
			Dur("elapsed", elapsed).
			Msg("rpc")
		return resp, err
	}
}
