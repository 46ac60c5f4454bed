package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/sobebarali/useHely-sub006/internal/crypto/domain"
)

var jobColumns = []string{
	"id", "key_id", "previous_key_id", "status", "checkpoint", "records_re_encrypted",
	"rotated_by", "started_at", "lease_owner", "lease_expires_at", "completed_at",
}

func newRunningJob() *cryptoDomain.RotationJob {
	now := time.Now().UTC()
	return &cryptoDomain.RotationJob{
		ID:             uuid.Must(uuid.NewV7()),
		KeyID:          2,
		PreviousKeyID:  1,
		Status:         cryptoDomain.RotationJobRunning,
		RotatedBy:      "ops@example.com",
		StartedAt:      now,
		LeaseOwner:     uuid.Must(uuid.NewV7()),
		LeaseExpiresAt: now.Add(time.Minute),
	}
}

func TestPostgreSQLRotationJobRepository_Create(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLRotationJobRepository(db)
		job := newRunningJob()

		mock.ExpectExec(`INSERT INTO rotation_jobs`).WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Create(context.Background(), job))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error_SecondRunningJob", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLRotationJobRepository(db)

		mock.ExpectExec(`INSERT INTO rotation_jobs`).WillReturnError(&pq.Error{Code: "23505"})

		err := repo.Create(context.Background(), newRunningJob())
		assert.ErrorIs(t, err, cryptoDomain.ErrRotationInProgress)
	})
}

func TestPostgreSQLRotationJobRepository_GetRunning(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLRotationJobRepository(db)
		job := newRunningJob()
		checkpoint := uuid.Must(uuid.NewV7())

		mock.ExpectQuery(`SELECT .* FROM rotation_jobs WHERE status`).
			WithArgs(cryptoDomain.RotationJobRunning).
			WillReturnRows(sqlmock.NewRows(jobColumns).AddRow(
				job.ID.String(), 2, 1, "RUNNING", checkpoint.String(), 10,
				job.RotatedBy, job.StartedAt, job.LeaseOwner.String(), job.LeaseExpiresAt, nil,
			))

		got, err := repo.GetRunning(context.Background())
		require.NoError(t, err)
		assert.Equal(t, job.ID, got.ID)
		assert.Equal(t, checkpoint, got.Checkpoint)
		assert.Equal(t, int64(10), got.RecordsReEncrypted)
		assert.Equal(t, job.LeaseOwner, got.LeaseOwner)
		assert.Nil(t, got.CompletedAt)
	})

	t.Run("Error_NoneRunning", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLRotationJobRepository(db)

		mock.ExpectQuery(`SELECT .* FROM rotation_jobs`).WillReturnRows(sqlmock.NewRows(jobColumns))

		_, err := repo.GetRunning(context.Background())
		assert.ErrorIs(t, err, cryptoDomain.ErrRotationJobNotFound)
	})
}

func TestPostgreSQLRotationJobRepository_Lease(t *testing.T) {
	job := newRunningJob()

	t.Run("ClaimLease_Won", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLRotationJobRepository(db)
		owner := uuid.Must(uuid.NewV7())

		mock.ExpectExec(`UPDATE rotation_jobs SET lease_owner .* lease_expires_at <= `).
			WithArgs(owner, sqlmock.AnyArg(), job.ID, cryptoDomain.RotationJobRunning, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := repo.ClaimLease(context.Background(), job.ID, owner, time.Now(), time.Now().Add(time.Minute))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("ClaimLease_LiveLeaseNotStolen", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLRotationJobRepository(db)

		mock.ExpectExec(`UPDATE rotation_jobs SET lease_owner`).WillReturnResult(sqlmock.NewResult(0, 0))

		ok, err := repo.ClaimLease(context.Background(), job.ID, uuid.New(), time.Now(), time.Now())
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("UpdateProgress_LostLease", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLRotationJobRepository(db)

		mock.ExpectExec(`UPDATE rotation_jobs SET checkpoint .* lease_owner = `).
			WillReturnResult(sqlmock.NewResult(0, 0))

		ok, err := repo.UpdateProgress(context.Background(), job)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("ReleaseLease", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLRotationJobRepository(db)

		mock.ExpectExec(`UPDATE rotation_jobs SET lease_expires_at`).
			WithArgs(sqlmock.AnyArg(), job.ID, job.LeaseOwner, cryptoDomain.RotationJobRunning).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.ReleaseLease(context.Background(), job, time.Now()))
	})

	t.Run("Complete", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLRotationJobRepository(db)

		mock.ExpectExec(`UPDATE rotation_jobs\s+SET status`).
			WithArgs(cryptoDomain.RotationJobCompleted, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
				job.ID, job.LeaseOwner, cryptoDomain.RotationJobRunning).
			WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := repo.Complete(context.Background(), job)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestPostgreSQLRotationJobRepository_Records(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPostgreSQLRotationJobRepository(db)
	record := &cryptoDomain.RotationRecord{
		ID:                 uuid.Must(uuid.NewV7()),
		KeyID:              2,
		RotatedAt:          time.Now().UTC(),
		RotatedBy:          "ops",
		RecordsReEncrypted: 12,
	}

	mock.ExpectExec(`INSERT INTO rotation_records`).
		WithArgs(record.ID, 2, record.RotatedAt, "ops", 12).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT .* FROM rotation_records ORDER BY id DESC LIMIT .* OFFSET`).
		WithArgs(10, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "key_id", "rotated_at", "rotated_by", "records_re_encrypted"}).
			AddRow(record.ID.String(), 2, record.RotatedAt, "ops", 12))

	require.NoError(t, repo.CreateRecord(context.Background(), record))

	records, err := repo.ListRecords(context.Background(), 0, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, record.ID, records[0].ID)
	assert.Equal(t, int64(12), records[0].RecordsReEncrypted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
