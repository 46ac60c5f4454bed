package usecase

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/sobebarali/useHely-sub006/internal/crypto/domain"
	"github.com/sobebarali/useHely-sub006/internal/testutil"
)

func TestFieldUseCase_Protect(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_EncryptsUnderActiveKey", func(t *testing.T) {
		env := newTestEnv(t)
		key := env.bootstrap(t)

		field := env.protect(t, "tenant-a", "123-45-6789")

		assert.Equal(t, key.ID, field.KeyID)
		assert.Equal(t, "tenant-a", field.TenantID)
		assert.Equal(t, cryptoDomain.FieldRef{ResourceType: "patient", ResourceID: "p-1", FieldName: "ssn"}, field.Ref())
		assert.NotContains(t, field.Ciphertext, "123-45-6789")
		assert.Equal(t, uuid.Version(7), field.ID.Version())

		stored, err := env.store.Fields().Get(ctx, "tenant-a", field.ID)
		require.NoError(t, err)
		assert.Equal(t, field.Ciphertext, stored.Ciphertext)
	})

	t.Run("Success_SamePlaintextDiffersPerCall", func(t *testing.T) {
		env := newTestEnv(t)
		env.bootstrap(t)

		a := env.protect(t, "tenant-a", "same")
		b := env.protect(t, "tenant-a", "same")
		assert.NotEqual(t, a.Ciphertext, b.Ciphertext)
	})

	t.Run("Error_NoActiveKey", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.fields.Protect(ctx, "tenant-a", cryptoDomain.FieldRef{}, []byte("x"))
		assert.ErrorIs(t, err, cryptoDomain.ErrNoActiveKey)
	})
}

func TestFieldUseCase_Reveal(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_RoundTrip", func(t *testing.T) {
		env := newTestEnv(t)
		env.bootstrap(t)
		field := env.protect(t, "tenant-a", "123-45-6789")

		plaintext, revealed, err := env.fields.Reveal(ctx, "tenant-a", field.ID)
		require.NoError(t, err)
		assert.Equal(t, "123-45-6789", string(plaintext))
		assert.Equal(t, field.ID, revealed.ID)
	})

	t.Run("Success_UsesRecordedKeyAfterPromotion", func(t *testing.T) {
		env := newTestEnv(t)
		first := env.bootstrap(t)
		field := env.protect(t, "tenant-a", "old")

		pending, err := env.registry.Register(ctx, testutil.NewTestKeyMaterial(t), cryptoDomain.AESGCM)
		require.NoError(t, err)
		_, err = env.registry.Promote(ctx, pending.ID)
		require.NoError(t, err)

		plaintext, revealed, err := env.fields.Reveal(ctx, "tenant-a", field.ID)
		require.NoError(t, err)
		assert.Equal(t, "old", string(plaintext))
		assert.Equal(t, first.ID, revealed.KeyID)
	})

	t.Run("Error_OtherTenant", func(t *testing.T) {
		env := newTestEnv(t)
		env.bootstrap(t)
		field := env.protect(t, "tenant-a", "secret")

		_, _, err := env.fields.Reveal(ctx, "tenant-b", field.ID)
		assert.ErrorIs(t, err, cryptoDomain.ErrFieldNotFound)
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		env := newTestEnv(t)
		env.bootstrap(t)

		_, _, err := env.fields.Reveal(ctx, "tenant-a", uuid.Must(uuid.NewV7()))
		assert.ErrorIs(t, err, cryptoDomain.ErrFieldNotFound)
	})

	t.Run("Error_CiphertextMovedBetweenRows", func(t *testing.T) {
		env := newTestEnv(t)
		env.bootstrap(t)
		a := env.protect(t, "tenant-a", "a")
		b := env.protect(t, "tenant-a", "b")

		require.True(t, env.store.UpdateField(a.ID, func(field *cryptoDomain.EncryptedField) {
			field.Ciphertext = b.Ciphertext
		}))

		plaintext, field, err := env.fields.Reveal(ctx, "tenant-a", a.ID)
		assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
		assert.Nil(t, plaintext)
		require.NotNil(t, field)
		assert.Equal(t, a.ID, field.ID)
	})

	t.Run("Error_UnknownKey", func(t *testing.T) {
		env := newTestEnv(t)
		first := env.bootstrap(t)
		field := env.protect(t, "tenant-a", "a")

		// The row points at a key that no longer exists.
		require.True(t, env.store.UpdateField(field.ID, func(f *cryptoDomain.EncryptedField) {
			f.KeyID = first.ID + 10
		}))

		_, _, err := env.fields.Reveal(ctx, "tenant-a", field.ID)
		assert.ErrorIs(t, err, cryptoDomain.ErrUnknownKey)
	})
}

func TestFieldUseCase_Replace(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_ReEncryptsUnderCurrentActiveKey", func(t *testing.T) {
		env := newTestEnv(t)
		env.bootstrap(t)
		field := env.protect(t, "tenant-a", "old")

		pending, err := env.registry.Register(ctx, testutil.NewTestKeyMaterial(t), cryptoDomain.AESGCM)
		require.NoError(t, err)
		_, err = env.registry.Promote(ctx, pending.ID)
		require.NoError(t, err)

		replaced, err := env.fields.Replace(ctx, "tenant-a", field.ID, []byte("new"))
		require.NoError(t, err)
		assert.Equal(t, pending.ID, replaced.KeyID)
		assert.Equal(t, field.CreatedAt, replaced.CreatedAt)

		plaintext, _, err := env.fields.Reveal(ctx, "tenant-a", field.ID)
		require.NoError(t, err)
		assert.Equal(t, "new", string(plaintext))

		count, err := env.fields.CountByKey(ctx, pending.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		env := newTestEnv(t)
		env.bootstrap(t)

		_, err := env.fields.Replace(ctx, "tenant-a", uuid.Must(uuid.NewV7()), []byte("x"))
		assert.ErrorIs(t, err, cryptoDomain.ErrFieldNotFound)
	})
}
