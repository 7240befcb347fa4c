package grpc

import (
	"context"
	"strings"

	"github.com/vogiaan1904/lobbydraft/internal/delivery"
	errs "github.com/vogiaan1904/lobbydraft/internal/errors"
	"github.com/vogiaan1904/lobbydraft/internal/service"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

var errInvalidBody = errs.NewValidationError("body", "malformed request")

// AuthInterceptor resolves the caller from the authorization metadata.
// Requests without a token pass through anonymously; handlers that mutate
// a lobby reject them.
func AuthInterceptor(tokens service.TokenService) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if strings.HasPrefix(info.FullMethod, "/grpc.health.v1.Health/") {
			return handler(ctx, req)
		}

		md, _ := metadata.FromIncomingContext(ctx)
		vals := md.Get("authorization")
		if len(vals) == 0 || vals[0] == "" {
			return handler(ctx, req)
		}

		ctx, err := delivery.Authenticate(ctx, tokens, vals[0])
		if err != nil {
			return nil, mapGRPCError(err)
		}
		return handler(ctx, req)
	}
}
