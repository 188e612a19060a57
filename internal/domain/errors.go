package domain

import "errors"

// Domain errors
var (
	ErrInvalidInitials = errors.New("player initials must be exactly 3 characters")
	ErrInvalidScore    = errors.New("score cannot be negative")
	ErrInvalidGameMode = errors.New("game mode must not be blank")
	ErrInvalidRequest  = errors.New("invalid request")
	ErrInternalError   = errors.New("internal server error")
)

// IsValidationError reports whether an error is a rejected-input error,
// as opposed to a store or transport failure.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInitials) ||
		errors.Is(err, ErrInvalidScore) ||
		errors.Is(err, ErrInvalidGameMode)
}
