package domain

import (
	"github.com/sobebarali/useHely-sub006/internal/errors"
)

// Encryption engine errors.
var (
	// ErrUnsupportedAlgorithm indicates the requested encryption algorithm is not supported.
	ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrInvalidInput, "unsupported algorithm")

	// ErrInvalidKey indicates key material is not exactly 32 bytes. Never retried.
	ErrInvalidKey = errors.Wrap(errors.ErrInvalidInput, "invalid key: must be exactly 32 bytes")

	// ErrInvalidKeyHex indicates the external hex form of a key could not be parsed.
	ErrInvalidKeyHex = errors.Wrap(errors.ErrInvalidInput, "invalid key: must be 64 lowercase hex characters")

	// ErrMalformedCiphertext indicates a blob is not base64 or is shorter than nonce plus tag.
	// It is returned before any cipher operation runs.
	ErrMalformedCiphertext = errors.Wrap(errors.ErrInvalidInput, "malformed ciphertext")

	// ErrDecryptionFailed indicates the authentication tag did not verify, either
	// because the wrong key was used or the blob was tampered with.
	//
	// For security reasons, the specific cause is not disclosed.
	ErrDecryptionFailed = errors.Wrap(errors.ErrIntegrity, "decryption failed")
)

// Key registry errors.
var (
	// ErrNoActiveKey indicates the registry has not been bootstrapped.
	ErrNoActiveKey = errors.Wrap(errors.ErrNotFound, "no active master key")

	// ErrUnknownKey indicates a key id that was never registered or has been decommissioned.
	ErrUnknownKey = errors.Wrap(errors.ErrNotFound, "unknown master key")

	// ErrRegistryAlreadyBootstrapped indicates Bootstrap was called on a registry that has keys.
	ErrRegistryAlreadyBootstrapped = errors.Wrap(errors.ErrConflict, "key registry already bootstrapped")

	// ErrKeyNotPending indicates an attempt to promote a key that is not PENDING.
	ErrKeyNotPending = errors.Wrap(errors.ErrConflict, "master key is not pending")

	// ErrKeyNotRetired indicates an attempt to decommission a key that is not RETIRED.
	ErrKeyNotRetired = errors.Wrap(errors.ErrConflict, "master key is not retired")

	// ErrKeyStillReferenced indicates stored values still depend on a key being decommissioned.
	ErrKeyStillReferenced = errors.Wrap(errors.ErrConflict, "master key is still referenced")

	// ErrActivePointerChanged indicates another writer moved the active key pointer first.
	ErrActivePointerChanged = errors.Wrap(errors.ErrConflict, "active key pointer changed concurrently")
)

// Rotation and field store errors.
var (
	// ErrRotationInProgress indicates another rotation sweep holds a live lease.
	ErrRotationInProgress = errors.Wrap(errors.ErrConflict, "key rotation already in progress")

	// ErrNoRotationToResume indicates there is no abandoned rotation job to resume.
	ErrNoRotationToResume = errors.Wrap(errors.ErrNotFound, "no rotation to resume")

	// ErrSweepIncomplete indicates values still referenced the retired key after the
	// last sweep pass. The job stays RUNNING and can be resumed.
	ErrSweepIncomplete = errors.Wrap(errors.ErrUnavailable, "rotation sweep incomplete")

	// ErrRotationJobNotFound indicates a rotation job lookup failed.
	ErrRotationJobNotFound = errors.Wrap(errors.ErrNotFound, "rotation job not found")

	// ErrFieldNotFound indicates an encrypted field does not exist for the tenant.
	ErrFieldNotFound = errors.Wrap(errors.ErrNotFound, "encrypted field not found")
)
