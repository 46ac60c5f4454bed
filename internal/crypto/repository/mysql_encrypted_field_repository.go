package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/sobebarali/useHely-sub006/internal/crypto/domain"
	"github.com/sobebarali/useHely-sub006/internal/database"
	apperrors "github.com/sobebarali/useHely-sub006/internal/errors"
)

// MySQLEncryptedFieldRepository implements encrypted field persistence for MySQL.
// Field ids are stored as BINARY(16), which keeps UUIDv7 byte order for cursor paging.
type MySQLEncryptedFieldRepository struct {
	db *sql.DB
}

// Create inserts a new encrypted field.
func (m *MySQLEncryptedFieldRepository) Create(ctx context.Context, field *cryptoDomain.EncryptedField) error {
	querier := database.GetTx(ctx, m.db)

	id, err := field.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal encrypted field id")
	}

	query := `INSERT INTO encrypted_fields (` + encryptedFieldColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		field.TenantID,
		field.ResourceType,
		field.ResourceID,
		field.FieldName,
		field.KeyID,
		field.Ciphertext,
		field.CreatedAt,
		field.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create encrypted field")
	}
	return nil
}

// Get retrieves a field owned by tenantID.
func (m *MySQLEncryptedFieldRepository) Get(
	ctx context.Context,
	tenantID string,
	id uuid.UUID,
) (*cryptoDomain.EncryptedField, error) {
	querier := database.GetTx(ctx, m.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal encrypted field id")
	}

	query := `SELECT ` + encryptedFieldColumns + ` FROM encrypted_fields WHERE tenant_id = ? AND id = ?`

	field, err := scanMySQLEncryptedField(querier.QueryRowContext(ctx, query, tenantID, idBytes))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, cryptoDomain.ErrFieldNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get encrypted field")
	}
	return field, nil
}

// Update overwrites the ciphertext and key tag of a field.
func (m *MySQLEncryptedFieldRepository) Update(ctx context.Context, field *cryptoDomain.EncryptedField) error {
	querier := database.GetTx(ctx, m.db)

	id, err := field.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal encrypted field id")
	}

	query := `UPDATE encrypted_fields SET key_id = ?, ciphertext = ?, updated_at = ?
			  WHERE tenant_id = ? AND id = ?`

	result, err := querier.ExecContext(ctx, query, field.KeyID, field.Ciphertext, field.UpdatedAt, field.TenantID, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to update encrypted field")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return cryptoDomain.ErrFieldNotFound
	}
	return nil
}

// ListByKey returns the next page of fields tagged with keyID after the cursor.
func (m *MySQLEncryptedFieldRepository) ListByKey(
	ctx context.Context,
	keyID uint64,
	after uuid.UUID,
	limit int,
) ([]*cryptoDomain.EncryptedField, error) {
	querier := database.GetTx(ctx, m.db)

	afterBytes, err := after.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal cursor")
	}

	query := `SELECT ` + encryptedFieldColumns + ` FROM encrypted_fields
			  WHERE key_id = ? AND id > ? ORDER BY id ASC LIMIT ?`

	rows, err := querier.QueryContext(ctx, query, keyID, afterBytes, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list encrypted fields")
	}
	defer func() {
		_ = rows.Close()
	}()

	fields := make([]*cryptoDomain.EncryptedField, 0, limit)
	for rows.Next() {
		field, err := scanMySQLEncryptedField(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan encrypted field")
		}
		fields = append(fields, field)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate encrypted fields")
	}

	return fields, nil
}

// ReEncrypt swaps in a new ciphertext if the row is unchanged since it was read.
func (m *MySQLEncryptedFieldRepository) ReEncrypt(
	ctx context.Context,
	field *cryptoDomain.EncryptedField,
	toKeyID uint64,
	ciphertext string,
	now time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := field.ID.MarshalBinary()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to marshal encrypted field id")
	}

	query := `UPDATE encrypted_fields SET key_id = ?, ciphertext = ?, updated_at = ?
			  WHERE id = ? AND key_id = ? AND ciphertext = ?`

	result, err := querier.ExecContext(ctx, query, toKeyID, ciphertext, now, id, field.KeyID, field.Ciphertext)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to re-encrypt field")
	}
	return affectedOne(result)
}

// CountByKey counts fields tagged with keyID.
func (m *MySQLEncryptedFieldRepository) CountByKey(ctx context.Context, keyID uint64) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	var count int64
	err := querier.QueryRowContext(ctx, `SELECT COUNT(*) FROM encrypted_fields WHERE key_id = ?`, keyID).
		Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count encrypted fields")
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMySQLEncryptedField(row rowScanner) (*cryptoDomain.EncryptedField, error) {
	var field cryptoDomain.EncryptedField
	var id []byte

	if err := row.Scan(
		&id,
		&field.TenantID,
		&field.ResourceType,
		&field.ResourceID,
		&field.FieldName,
		&field.KeyID,
		&field.Ciphertext,
		&field.CreatedAt,
		&field.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if err := field.ID.UnmarshalBinary(id); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal encrypted field id")
	}
	return &field, nil
}

// NewMySQLEncryptedFieldRepository creates a new MySQL encrypted field repository.
func NewMySQLEncryptedFieldRepository(db *sql.DB) *MySQLEncryptedFieldRepository {
	return &MySQLEncryptedFieldRepository{db: db}
}
