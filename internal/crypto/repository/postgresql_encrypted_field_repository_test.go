package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/sobebarali/useHely-sub006/internal/crypto/domain"
)

var fieldColumns = []string{
	"id", "tenant_id", "resource_type", "resource_id", "field_name",
	"key_id", "ciphertext", "created_at", "updated_at",
}

func TestPostgreSQLEncryptedFieldRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgreSQLEncryptedFieldRepository(db)
	now := time.Now().UTC()

	field := &cryptoDomain.EncryptedField{
		ID:           uuid.Must(uuid.NewV7()),
		TenantID:     "hospital-a",
		ResourceType: "patient",
		ResourceID:   "p-1",
		FieldName:    "ssn",
		KeyID:        1,
		Ciphertext:   "blob",
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	mock.ExpectExec(`INSERT INTO encrypted_fields`).
		WithArgs(field.ID, "hospital-a", "patient", "p-1", "ssn", 1, "blob", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), field))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLEncryptedFieldRepository_Get(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLEncryptedFieldRepository(db)
		id := uuid.Must(uuid.NewV7())
		now := time.Now().UTC()

		mock.ExpectQuery(`SELECT .* FROM encrypted_fields WHERE tenant_id = .* AND id = `).
			WithArgs("hospital-a", id).
			WillReturnRows(sqlmock.NewRows(fieldColumns).
				AddRow(id.String(), "hospital-a", "patient", "p-1", "ssn", 2, "blob", now, now))

		field, err := repo.Get(context.Background(), "hospital-a", id)
		require.NoError(t, err)
		assert.Equal(t, id, field.ID)
		assert.Equal(t, uint64(2), field.KeyID)
		assert.Equal(t, "blob", field.Ciphertext)
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLEncryptedFieldRepository(db)

		mock.ExpectQuery(`SELECT .* FROM encrypted_fields`).WillReturnRows(sqlmock.NewRows(fieldColumns))

		_, err := repo.Get(context.Background(), "hospital-a", uuid.Must(uuid.NewV7()))
		assert.ErrorIs(t, err, cryptoDomain.ErrFieldNotFound)
	})

	t.Run("Error_DatabaseFailure", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLEncryptedFieldRepository(db)

		mock.ExpectQuery(`SELECT .* FROM encrypted_fields`).WillReturnError(errors.New("connection reset"))

		_, err := repo.Get(context.Background(), "hospital-a", uuid.Must(uuid.NewV7()))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to get encrypted field")
	})
}

func TestPostgreSQLEncryptedFieldRepository_Update(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgreSQLEncryptedFieldRepository(db)

	mock.ExpectExec(`UPDATE encrypted_fields SET key_id`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &cryptoDomain.EncryptedField{ID: uuid.Must(uuid.NewV7())})
	assert.ErrorIs(t, err, cryptoDomain.ErrFieldNotFound)
}

func TestPostgreSQLEncryptedFieldRepository_ListByKey(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgreSQLEncryptedFieldRepository(db)
	now := time.Now().UTC()
	a := uuid.Must(uuid.NewV7())
	b := uuid.Must(uuid.NewV7())

	mock.ExpectQuery(`WHERE key_id = .* AND id > .* ORDER BY id ASC LIMIT`).
		WithArgs(1, uuid.Nil, 2).
		WillReturnRows(sqlmock.NewRows(fieldColumns).
			AddRow(a.String(), "t", "patient", "p-1", "ssn", 1, "x", now, now).
			AddRow(b.String(), "t", "patient", "p-2", "ssn", 1, "y", now, now))

	fields, err := repo.ListByKey(context.Background(), 1, uuid.Nil, 2)
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, a, fields[0].ID)
	assert.Equal(t, b, fields[1].ID)
}

func TestPostgreSQLEncryptedFieldRepository_ReEncrypt(t *testing.T) {
	field := &cryptoDomain.EncryptedField{ID: uuid.Must(uuid.NewV7()), KeyID: 1, Ciphertext: "old"}

	t.Run("Success_RowMatched", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLEncryptedFieldRepository(db)

		mock.ExpectExec(`UPDATE encrypted_fields SET .* WHERE id = .* AND key_id = .* AND ciphertext = `).
			WithArgs(2, "new", sqlmock.AnyArg(), field.ID, 1, "old").
			WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := repo.ReEncrypt(context.Background(), field, 2, "new", time.Now())
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Success_AlreadyMigratedIsNoop", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLEncryptedFieldRepository(db)

		mock.ExpectExec(`UPDATE encrypted_fields SET`).WillReturnResult(sqlmock.NewResult(0, 0))

		ok, err := repo.ReEncrypt(context.Background(), field, 2, "new", time.Now())
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestPostgreSQLEncryptedFieldRepository_CountByKey(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgreSQLEncryptedFieldRepository(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM encrypted_fields WHERE key_id`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	count, err := repo.CountByKey(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(42), count)
}
