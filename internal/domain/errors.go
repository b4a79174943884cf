package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrValidation is the parent of every input validation failure.
var ErrValidation = errors.New("validation failed")

var (
	// Expense errors
	ErrExpenseNotFound    = errors.New("expense not found")
	ErrInvalidDescription = validationError("invalid description")
	ErrInvalidAmount      = validationError("amount must be positive")
	ErrAmountTooLarge     = validationError("amount exceeds maximum allowed")

	// Split errors
	ErrUnsupportedMethod    = validationError("unsupported split method")
	ErrMissingParticipants  = validationError("participants are required")
	ErrMissingValue         = validationError("split value is required")
	ErrNegativeShare        = validationError("share amount cannot be negative")
	ErrOutOfRange           = validationError("percentage must be between 0 and 100")
	ErrDuplicateParticipant = validationError("participant listed more than once")
	ErrSplitMismatch        = validationError("split does not add up")

	// Participant errors
	ErrParticipantNotFound = errors.New("participant not found")
	ErrAlreadySettled      = errors.New("participant already settled")
	ErrNothingToSettle     = errors.New("no pending payments to settle for this expense")

	// User errors
	ErrUserNotFound = errors.New("user not found")
	ErrInvalidEmail = validationError("invalid email format")
)

type validationErr struct{ msg string }

func validationError(msg string) error { return &validationErr{msg: msg} }

func (e *validationErr) Error() string { return e.msg }

func (e *validationErr) Is(target error) bool { return target == ErrValidation }

// SplitMismatchError reports how far a split is from its expected total.
// Delta is expected minus actual.
type SplitMismatchError struct {
	Expected decimal.Decimal
	Actual   decimal.Decimal
	Delta    decimal.Decimal
}

func newSplitMismatch(expected, actual decimal.Decimal) *SplitMismatchError {
	return &SplitMismatchError{
		Expected: expected,
		Actual:   actual,
		Delta:    expected.Sub(actual),
	}
}

func (e *SplitMismatchError) Error() string {
	return fmt.Sprintf("%v: expected %s, got %s (delta %s)",
		ErrSplitMismatch, e.Expected.StringFixed(2), e.Actual.StringFixed(2), e.Delta.StringFixed(2))
}

func (e *SplitMismatchError) Is(target error) bool {
	return target == ErrSplitMismatch || target == ErrValidation
}

// ParticipantNotFoundError names the user reference that could not be resolved.
type ParticipantNotFoundError struct {
	UserID string
}

func (e *ParticipantNotFoundError) Error() string {
	return fmt.Sprintf("%v: %s", ErrParticipantNotFound, e.UserID)
}

func (e *ParticipantNotFoundError) Is(target error) bool {
	return target == ErrParticipantNotFound
}
