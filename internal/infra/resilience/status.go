package resilience

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type statusCoder interface {
	StatusCode() int
}

// grpcToHTTP maps gRPC codes onto the HTTP statuses the classifier knows.
var grpcToHTTP = map[codes.Code]int{
	codes.Canceled:           408,
	codes.Unknown:            500,
	codes.InvalidArgument:    400,
	codes.DeadlineExceeded:   504,
	codes.NotFound:           404,
	codes.AlreadyExists:      409,
	codes.PermissionDenied:   403,
	codes.ResourceExhausted:  429,
	codes.FailedPrecondition: 422,
	codes.Aborted:            409,
	codes.OutOfRange:         400,
	codes.Unimplemented:      501,
	codes.Internal:           500,
	codes.Unavailable:        503,
	codes.DataLoss:           500,
	codes.Unauthenticated:    401,
}

// StatusCode extracts a numeric status from err, if it carries one.
func StatusCode(err error) (int, bool) {
	if err == nil {
		return 0, false
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		if code := sc.StatusCode(); code > 0 {
			return code, true
		}
	}

	if st, ok := status.FromError(err); ok && st.Code() != codes.OK {
		if code, known := grpcToHTTP[st.Code()]; known {
			return code, true
		}
	}

	return 0, false
}
