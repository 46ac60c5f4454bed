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

const rotationJobColumns = `id, key_id, previous_key_id, status, checkpoint, records_re_encrypted,
			  rotated_by, started_at, lease_owner, lease_expires_at, completed_at`

// PostgreSQLRotationJobRepository implements rotation job persistence for PostgreSQL.
//
// A partial unique index on status = 'RUNNING' keeps at most one running job.
type PostgreSQLRotationJobRepository struct {
	db *sql.DB
}

// Create inserts a RUNNING rotation job.
func (p *PostgreSQLRotationJobRepository) Create(ctx context.Context, job *cryptoDomain.RotationJob) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO rotation_jobs (` + rotationJobColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := querier.ExecContext(
		ctx,
		query,
		job.ID,
		job.KeyID,
		job.PreviousKeyID,
		job.Status,
		job.Checkpoint,
		job.RecordsReEncrypted,
		job.RotatedBy,
		job.StartedAt,
		job.LeaseOwner,
		job.LeaseExpiresAt,
		job.CompletedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return cryptoDomain.ErrRotationInProgress
		}
		return apperrors.Wrap(err, "failed to create rotation job")
	}
	return nil
}

// GetRunning returns the RUNNING rotation job.
func (p *PostgreSQLRotationJobRepository) GetRunning(ctx context.Context) (*cryptoDomain.RotationJob, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + rotationJobColumns + ` FROM rotation_jobs WHERE status = $1`

	var job cryptoDomain.RotationJob
	err := querier.QueryRowContext(ctx, query, cryptoDomain.RotationJobRunning).Scan(
		&job.ID,
		&job.KeyID,
		&job.PreviousKeyID,
		&job.Status,
		&job.Checkpoint,
		&job.RecordsReEncrypted,
		&job.RotatedBy,
		&job.StartedAt,
		&job.LeaseOwner,
		&job.LeaseExpiresAt,
		&job.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, cryptoDomain.ErrRotationJobNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get running rotation job")
	}
	return &job, nil
}

// ClaimLease hands an expired lease to owner.
func (p *PostgreSQLRotationJobRepository) ClaimLease(
	ctx context.Context,
	id, owner uuid.UUID,
	now, leaseUntil time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE rotation_jobs SET lease_owner = $1, lease_expires_at = $2
			  WHERE id = $3 AND status = $4 AND lease_expires_at <= $5`

	result, err := querier.ExecContext(ctx, query, owner, leaseUntil, id, cryptoDomain.RotationJobRunning, now)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to claim rotation lease")
	}
	return affectedOne(result)
}

// UpdateProgress stores the sweep checkpoint and extends the lease.
func (p *PostgreSQLRotationJobRepository) UpdateProgress(
	ctx context.Context,
	job *cryptoDomain.RotationJob,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE rotation_jobs SET checkpoint = $1, records_re_encrypted = $2, lease_expires_at = $3
			  WHERE id = $4 AND lease_owner = $5 AND status = $6`

	result, err := querier.ExecContext(
		ctx,
		query,
		job.Checkpoint,
		job.RecordsReEncrypted,
		job.LeaseExpiresAt,
		job.ID,
		job.LeaseOwner,
		cryptoDomain.RotationJobRunning,
	)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to update rotation progress")
	}
	return affectedOne(result)
}

// ReleaseLease expires the lease held by job.LeaseOwner.
func (p *PostgreSQLRotationJobRepository) ReleaseLease(
	ctx context.Context,
	job *cryptoDomain.RotationJob,
	now time.Time,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE rotation_jobs SET lease_expires_at = $1 WHERE id = $2 AND lease_owner = $3 AND status = $4`

	if _, err := querier.ExecContext(ctx, query, now, job.ID, job.LeaseOwner, cryptoDomain.RotationJobRunning); err != nil {
		return apperrors.Wrap(err, "failed to release rotation lease")
	}
	return nil
}

// Complete marks the job COMPLETED.
func (p *PostgreSQLRotationJobRepository) Complete(ctx context.Context, job *cryptoDomain.RotationJob) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE rotation_jobs
			  SET status = $1, checkpoint = $2, records_re_encrypted = $3, completed_at = $4
			  WHERE id = $5 AND lease_owner = $6 AND status = $7`

	result, err := querier.ExecContext(
		ctx,
		query,
		cryptoDomain.RotationJobCompleted,
		job.Checkpoint,
		job.RecordsReEncrypted,
		job.CompletedAt,
		job.ID,
		job.LeaseOwner,
		cryptoDomain.RotationJobRunning,
	)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to complete rotation job")
	}
	return affectedOne(result)
}

// CreateRecord inserts a rotation ledger entry.
func (p *PostgreSQLRotationJobRepository) CreateRecord(
	ctx context.Context,
	record *cryptoDomain.RotationRecord,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO rotation_records (id, key_id, rotated_at, rotated_by, records_re_encrypted)
			  VALUES ($1, $2, $3, $4, $5)`

	_, err := querier.ExecContext(
		ctx,
		query,
		record.ID,
		record.KeyID,
		record.RotatedAt,
		record.RotatedBy,
		record.RecordsReEncrypted,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create rotation record")
	}
	return nil
}

// ListRecords returns rotation ledger entries newest first.
func (p *PostgreSQLRotationJobRepository) ListRecords(
	ctx context.Context,
	offset, limit int,
) ([]*cryptoDomain.RotationRecord, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, key_id, rotated_at, rotated_by, records_re_encrypted
			  FROM rotation_records ORDER BY id DESC LIMIT $1 OFFSET $2`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list rotation records")
	}
	defer func() {
		_ = rows.Close()
	}()

	records := make([]*cryptoDomain.RotationRecord, 0)
	for rows.Next() {
		var record cryptoDomain.RotationRecord
		if err := rows.Scan(
			&record.ID,
			&record.KeyID,
			&record.RotatedAt,
			&record.RotatedBy,
			&record.RecordsReEncrypted,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan rotation record")
		}
		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate rotation records")
	}

	return records, nil
}

func affectedOne(result sql.Result) (bool, error) {
	rows, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to get rows affected")
	}
	return rows == 1, nil
}

// NewPostgreSQLRotationJobRepository creates a new PostgreSQL rotation job repository.
func NewPostgreSQLRotationJobRepository(db *sql.DB) *PostgreSQLRotationJobRepository {
	return &PostgreSQLRotationJobRepository{db: db}
}
