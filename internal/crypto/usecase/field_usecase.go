package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/sobebarali/useHely-sub006/internal/crypto/domain"
	cryptoService "github.com/sobebarali/useHely-sub006/internal/crypto/service"
)

// fieldUseCase implements FieldUseCase.
type fieldUseCase struct {
	registry  KeyRegistry
	fieldRepo EncryptedFieldRepository
	engine    *cryptoService.Engine
	now       func() time.Time
}

// Protect encrypts plaintext under the ACTIVE key and stores the blob with the key
// id. The insert commits while the active pointer is share-locked, so a rotation
// promoting afterwards always sweeps it.
func (f *fieldUseCase) Protect(
	ctx context.Context,
	tenantID string,
	ref cryptoDomain.FieldRef,
	plaintext []byte,
) (*cryptoDomain.EncryptedField, error) {
	now := f.now()
	field := &cryptoDomain.EncryptedField{
		ID:           uuid.Must(uuid.NewV7()),
		TenantID:     tenantID,
		ResourceType: ref.ResourceType,
		ResourceID:   ref.ResourceID,
		FieldName:    ref.FieldName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := f.registry.WithActiveKey(ctx, func(ctx context.Context, key *cryptoDomain.MasterKey) error {
		ciphertext, err := f.engine.EncryptWithKey(key, plaintext, cryptoDomain.FieldAAD(tenantID, field.ID))
		if err != nil {
			return err
		}
		field.KeyID = key.ID
		field.Ciphertext = ciphertext
		return f.fieldRepo.Create(ctx, field)
	})
	if err != nil {
		return nil, err
	}
	return field, nil
}

// Reveal decrypts a stored field with the key recorded beside it, independent of
// any rotation in progress.
func (f *fieldUseCase) Reveal(
	ctx context.Context,
	tenantID string,
	id uuid.UUID,
) ([]byte, *cryptoDomain.EncryptedField, error) {
	field, err := f.fieldRepo.Get(ctx, tenantID, id)
	if err != nil {
		return nil, nil, err
	}

	key, err := f.registry.GetKey(ctx, field.KeyID)
	if err != nil {
		return nil, field, err
	}

	plaintext, err := f.engine.DecryptWithKey(key, field.Ciphertext, cryptoDomain.FieldAAD(tenantID, field.ID))
	if err != nil {
		return nil, field, err
	}
	return plaintext, field, nil
}

// Replace stores new plaintext for an existing field under the ACTIVE key.
func (f *fieldUseCase) Replace(
	ctx context.Context,
	tenantID string,
	id uuid.UUID,
	plaintext []byte,
) (*cryptoDomain.EncryptedField, error) {
	var field *cryptoDomain.EncryptedField

	err := f.registry.WithActiveKey(ctx, func(ctx context.Context, key *cryptoDomain.MasterKey) error {
		var err error
		field, err = f.fieldRepo.Get(ctx, tenantID, id)
		if err != nil {
			return err
		}

		ciphertext, err := f.engine.EncryptWithKey(key, plaintext, cryptoDomain.FieldAAD(tenantID, field.ID))
		if err != nil {
			return err
		}

		field.KeyID = key.ID
		field.Ciphertext = ciphertext
		field.UpdatedAt = f.now()
		return f.fieldRepo.Update(ctx, field)
	})
	if err != nil {
		return nil, err
	}
	return field, nil
}

// CountByKey returns how many stored fields reference keyID.
func (f *fieldUseCase) CountByKey(ctx context.Context, keyID uint64) (int64, error) {
	return f.fieldRepo.CountByKey(ctx, keyID)
}

// NewFieldUseCase creates a field use case.
func NewFieldUseCase(
	registry KeyRegistry,
	fieldRepo EncryptedFieldRepository,
	engine *cryptoService.Engine,
) FieldUseCase {
	return &fieldUseCase{
		registry:  registry,
		fieldRepo: fieldRepo,
		engine:    engine,
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}
