package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound                = errors.New("client not found")
	ErrDuplicateName           = errors.New("client with this name already exists")
	ErrAuthFailed              = errors.New("invalid client credentials")
	ErrInsufficientFunds       = errors.New("insufficient funds")
	ErrInvalidAmount           = errors.New("amount must be positive")
	ErrInvalidInput            = errors.New("invalid input")
	ErrInvariantViolation      = errors.New("invariant violation")
	ErrStoreUnavailable        = errors.New("store unavailable")
	ErrRequestAlreadyProcessed = errors.New("request already processed")
)

// InvariantViolationError reports a mutation that touched an unexpected number
// of rows. It is never retried.
type InvariantViolationError struct {
	Op           string
	Name         string
	RowsAffected int64
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("%s: %s %q affected %d rows, expected 1", ErrInvariantViolation, e.Op, e.Name, e.RowsAffected)
}

func (e *InvariantViolationError) Is(target error) bool {
	return target == ErrInvariantViolation
}

// StoreUnavailable wraps a driver or connectivity failure so that it matches
// ErrStoreUnavailable while keeping the cause.
func StoreUnavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

// IsExpected reports whether err is a validation outcome the caller should
// present as a rejection rather than a fault.
func IsExpected(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrDuplicateName),
		errors.Is(err, ErrAuthFailed),
		errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrRequestAlreadyProcessed):
		return true
	}
	return false
}
