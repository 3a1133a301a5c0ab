// internal/errors/mapper.go
package errors

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"
)

// Domain error kinds. Services wrap these with a caller-facing message and
// Map turns them into gRPC statuses at the transport boundary.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
)

// InvalidArgument reports malformed, missing or out-of-range input.
func InvalidArgument(msg string) error {
	return &kindError{kind: ErrInvalidArgument, msg: msg}
}

// NotFound reports an absent user/match, or a match already in a terminal state.
func NotFound(msg string) error {
	return &kindError{kind: ErrNotFound, msg: msg}
}

// Forbidden reports an actor that is not a participant of the referenced match.
func Forbidden(msg string) error {
	return &kindError{kind: ErrForbidden, msg: msg}
}

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return fmt.Sprintf("%s: %s", e.kind, e.msg) }
func (e *kindError) Unwrap() error { return e.kind }

// Map converts domain/repo/infra errors into gRPC-friendly status errors.
// Keeps service layer clean by centralizing error mapping.
//
// Anything unrecognized becomes codes.Internal with a fixed message: store
// diagnostics stay in the logs and never reach the caller.
func Map(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var ke *kindError
	switch {
	case errors.As(err, &ke) && ke.kind == ErrInvalidArgument:
		return status.Error(codes.InvalidArgument, ke.msg)

	case errors.As(err, &ke) && ke.kind == ErrNotFound:
		return status.Error(codes.NotFound, ke.msg)

	case errors.As(err, &ke) && ke.kind == ErrForbidden:
		return status.Error(codes.PermissionDenied, ke.msg)

	case errors.Is(err, gorm.ErrRecordNotFound):
		return status.Error(codes.NotFound, "record not found")

	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request timed out")

	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request was canceled")

	default:
		return status.Error(codes.Internal, "internal error")
	}
}
