package grpc

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vogiaan1904/lobbydraft/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const RequestIDMetadata = "x-request-id"

// NewServer builds a gRPC server whose first interceptor logs every call and
// recovers panics. The standard health service is registered and returned so
// the caller can flip serving status during shutdown.
func NewServer(l logger.Logger, interceptors ...grpc.UnaryServerInterceptor) (*grpc.Server, *health.Server) {
	chain := append([]grpc.UnaryServerInterceptor{LoggingInterceptor(l)}, interceptors...)
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(chain...))

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	return srv, hs
}

// LoggingInterceptor attaches a request-scoped logger carrying the request id
// and logs the outcome of each call.
func LoggingInterceptor(l logger.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		start := time.Now()

		requestID := ""
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if vals := md.Get(RequestIDMetadata); len(vals) > 0 {
				requestID = vals[0]
			}
		}
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx = l.With(ctx, "request_id", requestID)

		defer func() {
			if r := recover(); r != nil {
				l.Errorf(ctx, "pkg.grpc.LoggingInterceptor: panic in %s: %v", info.FullMethod, r)
				err = status.Error(codes.Internal, "Internal server error")
			}
			l.Infof(ctx, "gRPC %s %s %dms", info.FullMethod, status.Code(err), time.Since(start).Milliseconds())
		}()

		return handler(ctx, req)
	}
}
