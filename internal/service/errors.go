package service

import (
	"context"
	"errors"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/billing"
)

// toConnectError maps billing errors onto Connect codes. Errors that already
// carry a code pass through unchanged.
func toConnectError(err error) error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return err
	}

	switch {
	case errors.Is(err, billing.ErrValidation):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, billing.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, billing.ErrInvalidState):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, billing.ErrConflict):
		return connect.NewError(connect.CodeAborted, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
