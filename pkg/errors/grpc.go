package errors

import (
	"google.golang.org/grpc/codes"
)

type GRPCError struct {
	Message  string
	GrpcCode codes.Code
}

func NewGRPCError(b *BusinessError, grpcCode codes.Code) *GRPCError {
	return &GRPCError{
		Message:  b.Error(),
		GrpcCode: grpcCode,
	}
}

func (e GRPCError) Error() string {
	return e.Message
}
