// Package errors defines the error kinds shared by every domain package. Use
// cases wrap their domain errors with one of these kinds and the HTTP layer
// picks a status code from the kind alone.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks a missing key, field, rotation job or audit entry.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a state clash, such as a second rotation or a key still in use.
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput marks input rejected before any state changed.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnavailable marks a transient condition the caller may retry.
	ErrUnavailable = errors.New("unavailable")

	// ErrIntegrity marks stored data that failed authentication or hash checks.
	ErrIntegrity = errors.New("integrity check failed")
)

// Wrap tags kind with message. The result matches kind under errors.Is.
func Wrap(kind error, message string) error {
	if kind == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, kind)
}

// Is reports whether err carries target anywhere in its chain.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
