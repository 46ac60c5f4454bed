package domain

import (
	"github.com/sobebarali/useHely-sub006/internal/errors"
)

// Audit chain errors.
var (
	// ErrConcurrentAppendConflict indicates the tail compare-and-swap kept failing
	// for the configured number of attempts. The caller may retry the whole append.
	ErrConcurrentAppendConflict = errors.Wrap(errors.ErrUnavailable, "concurrent append conflict")

	// ErrTailChanged indicates the chain tail moved between read and conditional write.
	ErrTailChanged = errors.Wrap(errors.ErrConflict, "audit chain tail changed")

	// ErrEntryNotFound indicates no entry exists at the requested sequence number.
	ErrEntryNotFound = errors.Wrap(errors.ErrNotFound, "audit entry not found")

	// ErrInvalidRange indicates fromSeq is greater than toSeq.
	ErrInvalidRange = errors.Wrap(errors.ErrInvalidInput, "invalid sequence range")

	// ErrMalformedPayload indicates a sealed payload envelope could not be parsed.
	ErrMalformedPayload = errors.Wrap(errors.ErrIntegrity, "malformed sealed payload")

	// ErrChainBroken indicates an operation that requires an intact range found a break.
	ErrChainBroken = errors.Wrap(errors.ErrIntegrity, "audit chain broken")

	// ErrArchiveNotConfigured indicates export was requested without an archive bucket.
	ErrArchiveNotConfigured = errors.Wrap(errors.ErrInvalidInput, "audit archive is not configured")
)
