package response

import (
	"encoding/json"
	"net/http"

	pkgErrors "github.com/vogiaan1904/lobbydraft/pkg/errors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Resp struct {
	ErrorCode string `json:"error_code,omitempty"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	Errors    any    `json:"errors,omitempty"`
}

func parseHttpError(err error) (int, Resp) {
	switch parsedErr := err.(type) {
	case *pkgErrors.HTTPError:
		statusCode := parsedErr.StatusCode
		if statusCode == 0 {
			statusCode = http.StatusBadRequest
		}

		return statusCode, Resp{
			ErrorCode: parsedErr.Code,
			Message:   parsedErr.Message,
		}
	default:
		return http.StatusInternalServerError, Resp{
			ErrorCode: "500",
			Message:   "Internal server error",
		}
	}
}

func ParseGRPCError(err error) error {
	switch parsedErr := err.(type) {
	case *pkgErrors.GRPCError:
		grpcCode := parsedErr.GrpcCode
		if grpcCode == 0 {
			grpcCode = codes.InvalidArgument
		}
		return status.Error(grpcCode, parsedErr.Error())
	default:
		return status.Error(codes.Internal, "Internal server error")
	}
}

// WriteError renders err as a Resp body. Anything other than an HTTPError
// is reported as an opaque 500.
func WriteError(w http.ResponseWriter, err error) {
	statusCode, body := parseHttpError(err)
	writeJSON(w, statusCode, body)
}

// WriteJSON wraps data in a Resp envelope.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	writeJSON(w, statusCode, Resp{Message: http.StatusText(statusCode), Data: data})
}

func writeJSON(w http.ResponseWriter, statusCode int, body Resp) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}
