package grpc

import (
	"github.com/vogiaan1904/lobbydraft/internal/delivery"
	pkgErrors "github.com/vogiaan1904/lobbydraft/pkg/errors"
	resp "github.com/vogiaan1904/lobbydraft/pkg/response"
	"google.golang.org/grpc/codes"
)

var grpcCodes = map[delivery.Kind]codes.Code{
	delivery.KindInvalid:         codes.InvalidArgument,
	delivery.KindUnauthenticated: codes.Unauthenticated,
	delivery.KindNotFound:        codes.NotFound,
	delivery.KindDenied:          codes.PermissionDenied,
	delivery.KindPrecondition:    codes.FailedPrecondition,
	delivery.KindConflict:        codes.AlreadyExists,
	delivery.KindExhausted:       codes.ResourceExhausted,
	delivery.KindUnavailable:     codes.Unavailable,
	delivery.KindInternal:        codes.Internal,
}

func mapGRPCError(err error) error {
	b, kind := delivery.Classify(err)
	return resp.ParseGRPCError(pkgErrors.NewGRPCError(b, grpcCodes[kind]))
}
