package billing

import (
	"errors"
	"fmt"

	"github.com/mmynk/splitledger/internal/storage"
)

var (
	// ErrValidation marks input that breaks a model rule: a bad amount, an
	// empty name, a reference to a participant or bill that does not exist.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks an operation whose target does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState marks a transition the bill's status does not allow.
	ErrInvalidState = errors.New("invalid state")
	// ErrConflict marks a write that raced a bill change: an edit based on a
	// stale version, or a payment by someone the edit removed.
	ErrConflict = errors.New("conflict")
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// translate maps store sentinels onto billing sentinels, keeping the
// original error in the chain.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, storage.ErrConflict):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	default:
		return err
	}
}
