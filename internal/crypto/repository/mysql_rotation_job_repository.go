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

// MySQLRotationJobRepository implements rotation job persistence for MySQL.
//
// A stored generated column (running_marker) with a unique index keeps at most
// one RUNNING job, since MySQL has no partial indexes.
type MySQLRotationJobRepository struct {
	db *sql.DB
}

// Create inserts a RUNNING rotation job.
func (m *MySQLRotationJobRepository) Create(ctx context.Context, job *cryptoDomain.RotationJob) error {
	querier := database.GetTx(ctx, m.db)

	ids, err := marshalUUIDs(job.ID, job.Checkpoint, job.LeaseOwner)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal rotation job ids")
	}

	query := `INSERT INTO rotation_jobs (` + rotationJobColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		ids[0],
		job.KeyID,
		job.PreviousKeyID,
		job.Status,
		ids[1],
		job.RecordsReEncrypted,
		job.RotatedBy,
		job.StartedAt,
		ids[2],
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
func (m *MySQLRotationJobRepository) GetRunning(ctx context.Context) (*cryptoDomain.RotationJob, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + rotationJobColumns + ` FROM rotation_jobs WHERE status = ?`

	var job cryptoDomain.RotationJob
	var id, checkpoint, owner []byte

	err := querier.QueryRowContext(ctx, query, cryptoDomain.RotationJobRunning).Scan(
		&id,
		&job.KeyID,
		&job.PreviousKeyID,
		&job.Status,
		&checkpoint,
		&job.RecordsReEncrypted,
		&job.RotatedBy,
		&job.StartedAt,
		&owner,
		&job.LeaseExpiresAt,
		&job.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, cryptoDomain.ErrRotationJobNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get running rotation job")
	}

	if err := job.ID.UnmarshalBinary(id); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal rotation job id")
	}
	if err := job.Checkpoint.UnmarshalBinary(checkpoint); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal rotation checkpoint")
	}
	if err := job.LeaseOwner.UnmarshalBinary(owner); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal rotation lease owner")
	}
	return &job, nil
}

// ClaimLease hands an expired lease to owner.
func (m *MySQLRotationJobRepository) ClaimLease(
	ctx context.Context,
	id, owner uuid.UUID,
	now, leaseUntil time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	ids, err := marshalUUIDs(id, owner)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to marshal rotation job ids")
	}

	query := `UPDATE rotation_jobs SET lease_owner = ?, lease_expires_at = ?
			  WHERE id = ? AND status = ? AND lease_expires_at <= ?`

	result, err := querier.ExecContext(ctx, query, ids[1], leaseUntil, ids[0], cryptoDomain.RotationJobRunning, now)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to claim rotation lease")
	}
	return affectedOne(result)
}

// UpdateProgress stores the sweep checkpoint and extends the lease.
func (m *MySQLRotationJobRepository) UpdateProgress(ctx context.Context, job *cryptoDomain.RotationJob) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	ids, err := marshalUUIDs(job.ID, job.Checkpoint, job.LeaseOwner)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to marshal rotation job ids")
	}

	query := `UPDATE rotation_jobs SET checkpoint = ?, records_re_encrypted = ?, lease_expires_at = ?
			  WHERE id = ? AND lease_owner = ? AND status = ?`

	result, err := querier.ExecContext(
		ctx,
		query,
		ids[1],
		job.RecordsReEncrypted,
		job.LeaseExpiresAt,
		ids[0],
		ids[2],
		cryptoDomain.RotationJobRunning,
	)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to update rotation progress")
	}
	return leaseStillHeld(ctx, querier, result, ids[0], ids[2])
}

// ReleaseLease expires the lease held by job.LeaseOwner.
func (m *MySQLRotationJobRepository) ReleaseLease(ctx context.Context, job *cryptoDomain.RotationJob, now time.Time) error {
	querier := database.GetTx(ctx, m.db)

	ids, err := marshalUUIDs(job.ID, job.LeaseOwner)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal rotation job ids")
	}

	query := `UPDATE rotation_jobs SET lease_expires_at = ? WHERE id = ? AND lease_owner = ? AND status = ?`

	if _, err := querier.ExecContext(ctx, query, now, ids[0], ids[1], cryptoDomain.RotationJobRunning); err != nil {
		return apperrors.Wrap(err, "failed to release rotation lease")
	}
	return nil
}

// Complete marks the job COMPLETED.
func (m *MySQLRotationJobRepository) Complete(ctx context.Context, job *cryptoDomain.RotationJob) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	ids, err := marshalUUIDs(job.ID, job.Checkpoint, job.LeaseOwner)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to marshal rotation job ids")
	}

	query := `UPDATE rotation_jobs
			  SET status = ?, checkpoint = ?, records_re_encrypted = ?, completed_at = ?
			  WHERE id = ? AND lease_owner = ? AND status = ?`

	result, err := querier.ExecContext(
		ctx,
		query,
		cryptoDomain.RotationJobCompleted,
		ids[1],
		job.RecordsReEncrypted,
		job.CompletedAt,
		ids[0],
		ids[2],
		cryptoDomain.RotationJobRunning,
	)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to complete rotation job")
	}
	return affectedOne(result)
}

// CreateRecord inserts a rotation ledger entry.
func (m *MySQLRotationJobRepository) CreateRecord(ctx context.Context, record *cryptoDomain.RotationRecord) error {
	querier := database.GetTx(ctx, m.db)

	id, err := record.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal rotation record id")
	}

	query := `INSERT INTO rotation_records (id, key_id, rotated_at, rotated_by, records_re_encrypted)
			  VALUES (?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(ctx, query, id, record.KeyID, record.RotatedAt, record.RotatedBy, record.RecordsReEncrypted)
	if err != nil {
		return apperrors.Wrap(err, "failed to create rotation record")
	}
	return nil
}

// ListRecords returns rotation ledger entries newest first.
func (m *MySQLRotationJobRepository) ListRecords(
	ctx context.Context,
	offset, limit int,
) ([]*cryptoDomain.RotationRecord, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, key_id, rotated_at, rotated_by, records_re_encrypted
			  FROM rotation_records ORDER BY id DESC LIMIT ? OFFSET ?`

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
		var id []byte
		if err := rows.Scan(
			&id,
			&record.KeyID,
			&record.RotatedAt,
			&record.RotatedBy,
			&record.RecordsReEncrypted,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan rotation record")
		}
		if err := record.ID.UnmarshalBinary(id); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal rotation record id")
		}
		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate rotation records")
	}

	return records, nil
}

// leaseStillHeld treats an unchanged row as success when the lease is still ours;
// MySQL reports zero affected rows when an UPDATE writes identical values.
func leaseStillHeld(ctx context.Context, querier database.Querier, result sql.Result, id, owner []byte) (bool, error) {
	ok, err := affectedOne(result)
	if err != nil || ok {
		return ok, err
	}

	var count int
	err = querier.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM rotation_jobs WHERE id = ? AND lease_owner = ? AND status = ?`,
		id,
		owner,
		cryptoDomain.RotationJobRunning,
	).Scan(&count)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to check rotation lease")
	}
	return count == 1, nil
}

func marshalUUIDs(ids ...uuid.UUID) ([][]byte, error) {
	out := make([][]byte, len(ids))
	for i, id := range ids {
		b, err := id.MarshalBinary()
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

// NewMySQLRotationJobRepository creates a new MySQL rotation job repository.
func NewMySQLRotationJobRepository(db *sql.DB) *MySQLRotationJobRepository {
	return &MySQLRotationJobRepository{db: db}
}
