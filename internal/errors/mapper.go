// internal/errors/mapper.go
package errors

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"

	"github.com/oggyb/campus-connect/internal/chat"
	"github.com/oggyb/campus-connect/internal/matching"
	"github.com/oggyb/campus-connect/internal/realtime"
	"github.com/oggyb/campus-connect/internal/repository"
	"github.com/oggyb/campus-connect/internal/utils/pagination"
	"github.com/oggyb/campus-connect/internal/validation"
)

// Map converts domain/repo/infra errors into gRPC-friendly status errors.
// Keeps service layer clean by centralizing error mapping.
func Map(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var perr *matching.PersistenceError
	switch {
	// validation: rejected before any backend call
	case errors.Is(err, validation.ErrInvalid),
		errors.Is(err, matching.ErrSelfTarget),
		errors.Is(err, matching.ErrInvalidKind),
		errors.Is(err, matching.ErrMissingUser),
		errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, chat.ErrMessageTooLong),
		errors.Is(err, chat.ErrMissingConversation),
		errors.Is(err, pagination.ErrInvalidToken):
		return InvalidArgument(err.Error())

	case errors.Is(err, chat.ErrNotParticipant):
		return PermissionDenied(err.Error())

	case errors.Is(err, repository.ErrEmailTaken):
		return AlreadyExists(err.Error())

	case errors.Is(err, gorm.ErrRecordNotFound),
		errors.Is(err, chat.ErrConversationNotFound):
		return status.Error(codes.NotFound, "record not found")

	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request timed out")

	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request was canceled")

	// transient: local state untouched, safe to retry
	case errors.As(err, &perr):
		return status.Error(codes.Unavailable, err.Error())

	case errors.Is(err, realtime.ErrMalformedEvent):
		return status.Error(codes.Internal, "internal error")

	default:
		// fallback → bubble up error message for debugging
		return status.Error(codes.Internal, err.Error())
	}
}

// InvalidArgument creates a gRPC InvalidArgument error.
// Use this in service layer for bad input validation.
func InvalidArgument(msg string) error {
	return status.Error(codes.InvalidArgument, msg)
}

// AlreadyExists creates a gRPC AlreadyExists error.
func AlreadyExists(msg string) error {
	return status.Error(codes.AlreadyExists, msg)
}

// PermissionDenied creates a gRPC PermissionDenied error.
func PermissionDenied(msg string) error {
	return status.Error(codes.PermissionDenied, msg)
}
