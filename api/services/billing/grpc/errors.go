package grpcserver

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	app "github.com/tbeaudouin05/subscription-reconciler/api/services/billing/app"
)

// ToStatus maps app errors to gRPC status. Only user-safe text reaches the message.
func ToStatus(err error) *status.Status {
	if err == nil {
		return status.New(codes.OK, "")
	}
	if st, ok := status.FromError(err); ok {
		return st
	}
	code := codes.Internal
	switch {
	case errors.Is(err, app.ErrValidation), errors.Is(err, app.ErrBadEvent):
		code = codes.InvalidArgument
	case errors.Is(err, app.ErrConflict):
		code = codes.AlreadyExists
	case errors.Is(err, app.ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, app.ErrGateway):
		code = codes.FailedPrecondition
	case errors.Is(err, app.ErrUnauthorized):
		code = codes.PermissionDenied
	case errors.Is(err, app.ErrUnauthenticated):
		code = codes.Unauthenticated
	}
	return status.New(code, app.UserMessage(err))
}
