// Package repository implements persistence for the key registry, encrypted
// fields and rotation jobs.
//
// Each repository has two implementations:
//   - PostgreSQL: native UUID type, BYTEA for wrapped key material
//   - MySQL: BINARY(16) for UUIDs, BLOB for wrapped key material
//
// All repositories are transaction-aware via database.GetTx(). Conditional
// writes (the active key pointer, rotation leases, per-row re-encryption)
// report a lost race through their return values instead of failing silently.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	cryptoDomain "github.com/sobebarali/useHely-sub006/internal/crypto/domain"
	"github.com/sobebarali/useHely-sub006/internal/database"
	apperrors "github.com/sobebarali/useHely-sub006/internal/errors"
)

// PostgreSQLMasterKeyRepository implements master key persistence for PostgreSQL.
//
// Database schema requirements:
//   - master_keys.id: BIGSERIAL PRIMARY KEY
//   - master_keys.wrapped_material: BYTEA (NULL once decommissioned)
//   - active_key_pointer: single row (id = 1) naming the ACTIVE key
type PostgreSQLMasterKeyRepository struct {
	db *sql.DB
}

// Create inserts a new master key and sets key.ID from the sequence.
func (p *PostgreSQLMasterKeyRepository) Create(ctx context.Context, key *cryptoDomain.MasterKey) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO master_keys (algorithm, status, wrapped_material, created_at, retired_at)
			  VALUES ($1, $2, $3, $4, $5) RETURNING id`

	err := querier.QueryRowContext(
		ctx,
		query,
		key.Algorithm,
		key.Status,
		key.WrappedMaterial,
		key.CreatedAt,
		key.RetiredAt,
	).Scan(&key.ID)
	if err != nil {
		return apperrors.Wrap(err, "failed to create master key")
	}
	return nil
}

// Get retrieves a master key by id.
func (p *PostgreSQLMasterKeyRepository) Get(ctx context.Context, id uint64) (*cryptoDomain.MasterKey, error) {
	return p.getKey(ctx, `WHERE id = $1`, id)
}

// GetForUpdate retrieves a master key by id and locks its row.
func (p *PostgreSQLMasterKeyRepository) GetForUpdate(ctx context.Context, id uint64) (*cryptoDomain.MasterKey, error) {
	return p.getKey(ctx, `WHERE id = $1 FOR UPDATE`, id)
}

func (p *PostgreSQLMasterKeyRepository) getKey(ctx context.Context, where string, id uint64) (*cryptoDomain.MasterKey, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, algorithm, status, wrapped_material, created_at, retired_at
			  FROM master_keys ` + where

	var key cryptoDomain.MasterKey
	err := querier.QueryRowContext(ctx, query, id).Scan(
		&key.ID,
		&key.Algorithm,
		&key.Status,
		&key.WrappedMaterial,
		&key.CreatedAt,
		&key.RetiredAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, cryptoDomain.ErrUnknownKey
		}
		return nil, apperrors.Wrap(err, "failed to get master key")
	}
	return &key, nil
}

// List retrieves all master keys ordered by id ascending.
func (p *PostgreSQLMasterKeyRepository) List(ctx context.Context) ([]*cryptoDomain.MasterKey, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, algorithm, status, wrapped_material, created_at, retired_at
			  FROM master_keys ORDER BY id ASC`

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list master keys")
	}
	defer func() {
		_ = rows.Close()
	}()

	var keys []*cryptoDomain.MasterKey
	for rows.Next() {
		var key cryptoDomain.MasterKey
		if err := rows.Scan(
			&key.ID,
			&key.Algorithm,
			&key.Status,
			&key.WrappedMaterial,
			&key.CreatedAt,
			&key.RetiredAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan master key")
		}
		keys = append(keys, &key)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate master keys")
	}

	return keys, nil
}

// UpdateStatus writes the lifecycle columns of a master key.
func (p *PostgreSQLMasterKeyRepository) UpdateStatus(ctx context.Context, key *cryptoDomain.MasterKey) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE master_keys SET status = $1, retired_at = $2, wrapped_material = $3 WHERE id = $4`

	result, err := querier.ExecContext(ctx, query, key.Status, key.RetiredAt, key.WrappedMaterial, key.ID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update master key")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return cryptoDomain.ErrUnknownKey
	}
	return nil
}

// GetActivePointer reads the single active key pointer row.
func (p *PostgreSQLMasterKeyRepository) GetActivePointer(ctx context.Context) (*cryptoDomain.ActiveKeyPointer, error) {
	return p.getPointer(ctx, "")
}

// LockActivePointer reads the pointer row under a shared lock. Must run inside a
// transaction for the lock to outlive the statement.
func (p *PostgreSQLMasterKeyRepository) LockActivePointer(ctx context.Context) (*cryptoDomain.ActiveKeyPointer, error) {
	return p.getPointer(ctx, " FOR SHARE")
}

func (p *PostgreSQLMasterKeyRepository) getPointer(ctx context.Context, lock string) (*cryptoDomain.ActiveKeyPointer, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT key_id, updated_at FROM active_key_pointer WHERE id = 1` + lock

	var pointer cryptoDomain.ActiveKeyPointer
	err := querier.QueryRowContext(ctx, query).Scan(&pointer.KeyID, &pointer.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, cryptoDomain.ErrNoActiveKey
		}
		return nil, apperrors.Wrap(err, "failed to get active key pointer")
	}
	return &pointer, nil
}

// InitActivePointer creates the active key pointer row.
func (p *PostgreSQLMasterKeyRepository) InitActivePointer(ctx context.Context, keyID uint64, now time.Time) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO active_key_pointer (id, key_id, updated_at) VALUES (1, $1, $2)`

	if _, err := querier.ExecContext(ctx, query, keyID, now); err != nil {
		if database.IsUniqueViolation(err) {
			return cryptoDomain.ErrActivePointerChanged
		}
		return apperrors.Wrap(err, "failed to create active key pointer")
	}
	return nil
}

// SwapActivePointer moves the pointer from expected to next.
func (p *PostgreSQLMasterKeyRepository) SwapActivePointer(
	ctx context.Context,
	expected, next uint64,
	now time.Time,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE active_key_pointer SET key_id = $1, updated_at = $2 WHERE id = 1 AND key_id = $3`

	result, err := querier.ExecContext(ctx, query, next, now, expected)
	if err != nil {
		return apperrors.Wrap(err, "failed to swap active key pointer")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return cryptoDomain.ErrActivePointerChanged
	}
	return nil
}

// NewPostgreSQLMasterKeyRepository creates a new PostgreSQL master key repository.
func NewPostgreSQLMasterKeyRepository(db *sql.DB) *PostgreSQLMasterKeyRepository {
	return &PostgreSQLMasterKeyRepository{db: db}
}
