package app

import (
	"errors"
	"fmt"

	gw "github.com/tbeaudouin05/subscription-reconciler/api/services/billing/gateway"
)

// Typed errors for the billing app layer. These enable transport mapping without
// relying on SDK-specific error types.
var (
	// ErrValidation indicates malformed caller input.
	ErrValidation = errors.New("validation error")
	// ErrConflict covers duplicate cards, an already active subscription and no-op cancellation changes.
	ErrConflict = errors.New("conflict")
	ErrNotFound = errors.New("not found")
	// ErrGateway indicates a failure from the payment gateway.
	ErrGateway = errors.New("gateway error")
	// ErrUnauthorized is an access gate denial.
	ErrUnauthorized    = errors.New("access denied")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrInternal        = errors.New("internal error")

	// ErrBadEvent indicates the incoming event payload is unsigned, invalid or missing required fields.
	ErrBadEvent = errors.New("bad event")
	// ErrDatabase indicates a database-related failure.
	ErrDatabase = errors.New("database error")
	// ErrNotReady is an event that arrived before the local record it applies to.
	// The gateway redelivers it.
	ErrNotReady = errors.New("event not applicable yet")
)

// GatewayError is a failed gateway call. Message is the gateway's user-facing text.
type GatewayError struct {
	Op      string
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrGateway, e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

func (e *GatewayError) Is(target error) bool { return target == ErrGateway }

func gatewayErr(op string, err error) error {
	msg := "The payment provider could not process the request."
	var remote *gw.Error
	if errors.As(err, &remote) && remote.UserMessage != "" {
		msg = remote.UserMessage
	}
	return &GatewayError{Op: op, Message: msg, Err: err}
}

// AccessDeniedError carries the access gate's reason.
type AccessDeniedError struct {
	Reason string
}

func (e *AccessDeniedError) Error() string { return fmt.Sprintf("%s: %s", ErrUnauthorized, e.Reason) }

func (e *AccessDeniedError) Is(target error) bool { return target == ErrUnauthorized }

// UserMessage returns the text that may be shown to the caller for err.
// Unexpected errors collapse to a generic message.
func UserMessage(err error) string {
	var gwErr *GatewayError
	var denied *AccessDeniedError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &gwErr):
		return gwErr.Message
	case errors.As(err, &denied):
		return denied.Reason
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConflict), errors.Is(err, ErrNotFound),
		errors.Is(err, ErrBadEvent), errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrUnauthorized):
		return err.Error()
	}
	return ErrInternal.Error()
}
