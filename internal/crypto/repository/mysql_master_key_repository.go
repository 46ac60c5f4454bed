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

// MySQLMasterKeyRepository implements master key persistence for MySQL.
// Ids come from AUTO_INCREMENT and wrapped material is stored as BLOB.
type MySQLMasterKeyRepository struct {
	db *sql.DB
}

// Create inserts a new master key and sets key.ID from LAST_INSERT_ID().
func (m *MySQLMasterKeyRepository) Create(ctx context.Context, key *cryptoDomain.MasterKey) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO master_keys (algorithm, status, wrapped_material, created_at, retired_at)
			  VALUES (?, ?, ?, ?, ?)`

	result, err := querier.ExecContext(
		ctx,
		query,
		key.Algorithm,
		key.Status,
		key.WrappedMaterial,
		key.CreatedAt,
		key.RetiredAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create master key")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return apperrors.Wrap(err, "failed to get master key id")
	}
	key.ID = uint64(id)
	return nil
}

// Get retrieves a master key by id.
func (m *MySQLMasterKeyRepository) Get(ctx context.Context, id uint64) (*cryptoDomain.MasterKey, error) {
	return m.getKey(ctx, `WHERE id = ?`, id)
}

// GetForUpdate retrieves a master key by id and locks its row.
func (m *MySQLMasterKeyRepository) GetForUpdate(ctx context.Context, id uint64) (*cryptoDomain.MasterKey, error) {
	return m.getKey(ctx, `WHERE id = ? FOR UPDATE`, id)
}

func (m *MySQLMasterKeyRepository) getKey(ctx context.Context, where string, id uint64) (*cryptoDomain.MasterKey, error) {
	querier := database.GetTx(ctx, m.db)

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
func (m *MySQLMasterKeyRepository) List(ctx context.Context) ([]*cryptoDomain.MasterKey, error) {
	querier := database.GetTx(ctx, m.db)

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
func (m *MySQLMasterKeyRepository) UpdateStatus(ctx context.Context, key *cryptoDomain.MasterKey) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE master_keys SET status = ?, retired_at = ?, wrapped_material = ? WHERE id = ?`

	result, err := querier.ExecContext(ctx, query, key.Status, key.RetiredAt, key.WrappedMaterial, key.ID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update master key")
	}

	// MySQL reports matched rows only when CLIENT_FOUND_ROWS is set, so a
	// no-op update is resolved with a lookup instead.
	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		if _, err := m.Get(ctx, key.ID); err != nil {
			return err
		}
	}
	return nil
}

// GetActivePointer reads the single active key pointer row.
func (m *MySQLMasterKeyRepository) GetActivePointer(ctx context.Context) (*cryptoDomain.ActiveKeyPointer, error) {
	return m.getPointer(ctx, "")
}

// LockActivePointer reads the pointer row under a shared lock. Must run inside a
// transaction for the lock to outlive the statement.
func (m *MySQLMasterKeyRepository) LockActivePointer(ctx context.Context) (*cryptoDomain.ActiveKeyPointer, error) {
	return m.getPointer(ctx, " LOCK IN SHARE MODE")
}

func (m *MySQLMasterKeyRepository) getPointer(ctx context.Context, lock string) (*cryptoDomain.ActiveKeyPointer, error) {
	querier := database.GetTx(ctx, m.db)

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
func (m *MySQLMasterKeyRepository) InitActivePointer(ctx context.Context, keyID uint64, now time.Time) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO active_key_pointer (id, key_id, updated_at) VALUES (1, ?, ?)`

	if _, err := querier.ExecContext(ctx, query, keyID, now); err != nil {
		if database.IsUniqueViolation(err) {
			return cryptoDomain.ErrActivePointerChanged
		}
		return apperrors.Wrap(err, "failed to create active key pointer")
	}
	return nil
}

// SwapActivePointer moves the pointer from expected to next.
func (m *MySQLMasterKeyRepository) SwapActivePointer(ctx context.Context, expected, next uint64, now time.Time) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE active_key_pointer SET key_id = ?, updated_at = ? WHERE id = 1 AND key_id = ?`

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

// NewMySQLMasterKeyRepository creates a new MySQL master key repository.
func NewMySQLMasterKeyRepository(db *sql.DB) *MySQLMasterKeyRepository {
	return &MySQLMasterKeyRepository{db: db}
}
