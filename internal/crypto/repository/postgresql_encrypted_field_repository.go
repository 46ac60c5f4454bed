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

const encryptedFieldColumns = `id, tenant_id, resource_type, resource_id, field_name, key_id, ciphertext, created_at, updated_at`

// PostgreSQLEncryptedFieldRepository implements encrypted field persistence for PostgreSQL.
type PostgreSQLEncryptedFieldRepository struct {
	db *sql.DB
}

// Create inserts a new encrypted field.
func (p *PostgreSQLEncryptedFieldRepository) Create(ctx context.Context, field *cryptoDomain.EncryptedField) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO encrypted_fields (` + encryptedFieldColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := querier.ExecContext(
		ctx,
		query,
		field.ID,
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
func (p *PostgreSQLEncryptedFieldRepository) Get(
	ctx context.Context,
	tenantID string,
	id uuid.UUID,
) (*cryptoDomain.EncryptedField, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + encryptedFieldColumns + ` FROM encrypted_fields WHERE tenant_id = $1 AND id = $2`

	var field cryptoDomain.EncryptedField
	err := querier.QueryRowContext(ctx, query, tenantID, id).Scan(
		&field.ID,
		&field.TenantID,
		&field.ResourceType,
		&field.ResourceID,
		&field.FieldName,
		&field.KeyID,
		&field.Ciphertext,
		&field.CreatedAt,
		&field.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, cryptoDomain.ErrFieldNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get encrypted field")
	}
	return &field, nil
}

// Update overwrites the ciphertext and key tag of a field.
func (p *PostgreSQLEncryptedFieldRepository) Update(ctx context.Context, field *cryptoDomain.EncryptedField) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE encrypted_fields SET key_id = $1, ciphertext = $2, updated_at = $3
			  WHERE tenant_id = $4 AND id = $5`

	result, err := querier.ExecContext(
		ctx,
		query,
		field.KeyID,
		field.Ciphertext,
		field.UpdatedAt,
		field.TenantID,
		field.ID,
	)
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
func (p *PostgreSQLEncryptedFieldRepository) ListByKey(
	ctx context.Context,
	keyID uint64,
	after uuid.UUID,
	limit int,
) ([]*cryptoDomain.EncryptedField, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + encryptedFieldColumns + ` FROM encrypted_fields
			  WHERE key_id = $1 AND id > $2 ORDER BY id ASC LIMIT $3`

	rows, err := querier.QueryContext(ctx, query, keyID, after, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list encrypted fields")
	}
	defer func() {
		_ = rows.Close()
	}()

	fields := make([]*cryptoDomain.EncryptedField, 0, limit)
	for rows.Next() {
		var field cryptoDomain.EncryptedField
		if err := rows.Scan(
			&field.ID,
			&field.TenantID,
			&field.ResourceType,
			&field.ResourceID,
			&field.FieldName,
			&field.KeyID,
			&field.Ciphertext,
			&field.CreatedAt,
			&field.UpdatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan encrypted field")
		}
		fields = append(fields, &field)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate encrypted fields")
	}

	return fields, nil
}

// ReEncrypt swaps in a new ciphertext if the row is unchanged since it was read.
func (p *PostgreSQLEncryptedFieldRepository) ReEncrypt(
	ctx context.Context,
	field *cryptoDomain.EncryptedField,
	toKeyID uint64,
	ciphertext string,
	now time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE encrypted_fields SET key_id = $1, ciphertext = $2, updated_at = $3
			  WHERE id = $4 AND key_id = $5 AND ciphertext = $6`

	result, err := querier.ExecContext(ctx, query, toKeyID, ciphertext, now, field.ID, field.KeyID, field.Ciphertext)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to re-encrypt field")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to get rows affected")
	}
	return rows == 1, nil
}

// CountByKey counts fields tagged with keyID.
func (p *PostgreSQLEncryptedFieldRepository) CountByKey(ctx context.Context, keyID uint64) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	var count int64
	err := querier.QueryRowContext(ctx, `SELECT COUNT(*) FROM encrypted_fields WHERE key_id = $1`, keyID).
		Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count encrypted fields")
	}
	return count, nil
}

// NewPostgreSQLEncryptedFieldRepository creates a new PostgreSQL encrypted field repository.
func NewPostgreSQLEncryptedFieldRepository(db *sql.DB) *PostgreSQLEncryptedFieldRepository {
	return &PostgreSQLEncryptedFieldRepository{db: db}
}
