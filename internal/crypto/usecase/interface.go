// Package usecase implements the key lifecycle and field protection workflows:
// the key registry, the rotation sweep and the encrypted field store.
//
// Repositories are transaction-aware. When a context produced by
// database.TxManager.WithTx is passed in, every repository call joins that
// transaction, which is how status flips, pointer swaps and sweep checkpoints
// commit together.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/sobebarali/useHely-sub006/internal/crypto/domain"
)

// MasterKeyRepository persists master keys and the single active key pointer.
//
// Implementations:
//   - PostgreSQLMasterKeyRepository
//   - MySQLMasterKeyRepository
type MasterKeyRepository interface {
	// Create inserts key and sets key.ID to the assigned, monotonically increasing id.
	Create(ctx context.Context, key *cryptoDomain.MasterKey) error

	// Get returns the key with id, without material. Returns ErrUnknownKey if absent.
	Get(ctx context.Context, id uint64) (*cryptoDomain.MasterKey, error)

	// GetForUpdate is Get that also locks the key row until the surrounding
	// transaction ends.
	GetForUpdate(ctx context.Context, id uint64) (*cryptoDomain.MasterKey, error)

	// List returns every key ordered by id ascending.
	List(ctx context.Context) ([]*cryptoDomain.MasterKey, error)

	// UpdateStatus writes status, retired_at and wrapped_material for key.ID.
	UpdateStatus(ctx context.Context, key *cryptoDomain.MasterKey) error

	// GetActivePointer returns the active key pointer. Returns ErrNoActiveKey before bootstrap.
	GetActivePointer(ctx context.Context) (*cryptoDomain.ActiveKeyPointer, error)

	// LockActivePointer reads the pointer under a shared lock held until the
	// surrounding transaction ends. A pointer swap waits for every such holder.
	LockActivePointer(ctx context.Context) (*cryptoDomain.ActiveKeyPointer, error)

	// InitActivePointer creates the pointer row. Returns ErrActivePointerChanged if it exists.
	InitActivePointer(ctx context.Context, keyID uint64, now time.Time) error

	// SwapActivePointer moves the pointer from expected to next in a single conditional
	// write. Returns ErrActivePointerChanged if the pointer no longer names expected.
	SwapActivePointer(ctx context.Context, expected, next uint64, now time.Time) error
}

// EncryptedFieldRepository persists EncryptedValues next to the id of the key that
// produced them.
type EncryptedFieldRepository interface {
	// Create inserts a new encrypted field.
	Create(ctx context.Context, field *cryptoDomain.EncryptedField) error

	// Get returns a field owned by tenantID. Returns ErrFieldNotFound if absent.
	Get(ctx context.Context, tenantID string, id uuid.UUID) (*cryptoDomain.EncryptedField, error)

	// Update overwrites key_id, ciphertext and updated_at. Returns ErrFieldNotFound if absent.
	Update(ctx context.Context, field *cryptoDomain.EncryptedField) error

	// ListByKey returns up to limit fields tagged with keyID whose id is greater
	// than after, ordered by id.
	ListByKey(ctx context.Context, keyID uint64, after uuid.UUID, limit int) ([]*cryptoDomain.EncryptedField, error)

	// ReEncrypt replaces the ciphertext of field only if the stored row still has
	// field.KeyID and field.Ciphertext. It reports whether the row was changed.
	ReEncrypt(
		ctx context.Context,
		field *cryptoDomain.EncryptedField,
		toKeyID uint64,
		ciphertext string,
		now time.Time,
	) (bool, error)

	// CountByKey returns how many fields are tagged with keyID.
	CountByKey(ctx context.Context, keyID uint64) (int64, error)
}

// RotationJobRepository persists sweep state and the rotation ledger.
type RotationJobRepository interface {
	// Create inserts a RUNNING job. Returns ErrRotationInProgress if one already exists.
	Create(ctx context.Context, job *cryptoDomain.RotationJob) error

	// GetRunning returns the RUNNING job. Returns ErrRotationJobNotFound if none.
	GetRunning(ctx context.Context) (*cryptoDomain.RotationJob, error)

	// ClaimLease hands an expired lease to owner. It reports whether the claim won.
	ClaimLease(ctx context.Context, id, owner uuid.UUID, now, leaseUntil time.Time) (bool, error)

	// UpdateProgress stores checkpoint, count and lease expiry, conditional on
	// job.LeaseOwner still holding the lease.
	UpdateProgress(ctx context.Context, job *cryptoDomain.RotationJob) (bool, error)

	// ReleaseLease expires the lease held by job.LeaseOwner at now.
	ReleaseLease(ctx context.Context, job *cryptoDomain.RotationJob, now time.Time) error

	// Complete marks the job COMPLETED, conditional on job.LeaseOwner.
	Complete(ctx context.Context, job *cryptoDomain.RotationJob) (bool, error)

	// CreateRecord appends an immutable rotation ledger entry.
	CreateRecord(ctx context.Context, record *cryptoDomain.RotationRecord) error

	// ListRecords returns ledger entries newest first.
	ListRecords(ctx context.Context, offset, limit int) ([]*cryptoDomain.RotationRecord, error)
}

// KeyReferenceCounter counts stored values that still depend on a master key.
// Decommission consults every registered counter.
type KeyReferenceCounter interface {
	CountByKey(ctx context.Context, keyID uint64) (int64, error)
}

// KeyRegistry resolves master keys for encryption and decryption.
type KeyRegistry interface {
	// GetActiveKey returns the key the durable active pointer names. Returns
	// ErrNoActiveKey before bootstrap.
	GetActiveKey(ctx context.Context) (*cryptoDomain.MasterKey, error)

	// WithActiveKey runs fn in a transaction that holds the active pointer under a
	// shared lock, passing the ACTIVE key. Values written by fn are visible to any
	// rotation that promotes after it, so none is left under a retired key.
	WithActiveKey(ctx context.Context, fn func(ctx context.Context, key *cryptoDomain.MasterKey) error) error

	// GetKey resolves any non-decommissioned key by id. Returns ErrUnknownKey if absent.
	GetKey(ctx context.Context, id uint64) (*cryptoDomain.MasterKey, error)

	// Bootstrap creates key 1 as ACTIVE on an empty registry.
	Bootstrap(ctx context.Context, material []byte, alg cryptoDomain.Algorithm) (*cryptoDomain.MasterKey, error)

	// Register stores material as a new PENDING key.
	Register(ctx context.Context, material []byte, alg cryptoDomain.Algorithm) (*cryptoDomain.MasterKey, error)

	// Promote makes a PENDING key ACTIVE and retires the previous ACTIVE key atomically.
	Promote(ctx context.Context, id uint64) (*cryptoDomain.MasterKey, error)

	// Decommission erases a RETIRED key that nothing references any more.
	Decommission(ctx context.Context, id uint64) error

	// List returns every key without material.
	List(ctx context.Context) ([]*cryptoDomain.MasterKey, error)

	// Refresh reloads the registry snapshot from the store.
	Refresh(ctx context.Context) error

	// Run refreshes the snapshot every interval until ctx is cancelled.
	Run(ctx context.Context, interval time.Duration) error
}

// RotationUseCase drives key rotation and the resumable re-encryption sweep.
type RotationUseCase interface {
	// Rotate registers and promotes newKeyMaterial, then re-encrypts every field
	// tagged with the previously active key.
	Rotate(ctx context.Context, newKeyMaterial []byte, actor string) (*cryptoDomain.RotationRecord, error)

	// ResumeRotation continues an abandoned sweep from its last checkpoint.
	ResumeRotation(ctx context.Context, actor string) (*cryptoDomain.RotationRecord, error)

	// ListRotations returns completed rotation records newest first.
	ListRotations(ctx context.Context, offset, limit int) ([]*cryptoDomain.RotationRecord, error)
}

// FieldUseCase encrypts and decrypts caller-owned field values.
type FieldUseCase interface {
	// Protect encrypts plaintext under the ACTIVE key and stores it.
	Protect(
		ctx context.Context,
		tenantID string,
		ref cryptoDomain.FieldRef,
		plaintext []byte,
	) (*cryptoDomain.EncryptedField, error)

	// Reveal decrypts a stored field with the key recorded beside it.
	Reveal(ctx context.Context, tenantID string, id uuid.UUID) ([]byte, *cryptoDomain.EncryptedField, error)

	// Replace re-encrypts a stored field with new plaintext under the ACTIVE key.
	Replace(ctx context.Context, tenantID string, id uuid.UUID, plaintext []byte) (*cryptoDomain.EncryptedField, error)

	// CountByKey returns how many stored fields reference keyID.
	CountByKey(ctx context.Context, keyID uint64) (int64, error)
}
