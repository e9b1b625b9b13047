package domain

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")

var (
	ErrTrainNotFound   error = notFoundError{what: "train"}
	ErrBookingNotFound error = notFoundError{what: "booking"}
	ErrUserNotFound    error = notFoundError{what: "user"}
)

var (
	ErrNoSeatsAvailable   = errors.New("no seats available")
	ErrConcurrentConflict = errors.New("concurrent reservation conflict, retry")
	ErrTimeout            = errors.New("reservation timed out")

	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrValidation   = errors.New("validation error")
	ErrEmailTaken   = errors.New("email already exists")
)

// notFoundError matches both its own value and ErrNotFound.
type notFoundError struct {
	what string
}

func (e notFoundError) Error() string {
	return e.what + " not found"
}

func (e notFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Validation returns an ErrValidation carrying a message meant for the caller.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
