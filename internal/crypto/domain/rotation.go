package domain

import (
	"time"

	"github.com/google/uuid"
)

// RotationJobStatus is the state of a rotation sweep.
type RotationJobStatus string

const (
	RotationJobRunning   RotationJobStatus = "RUNNING"
	RotationJobCompleted RotationJobStatus = "COMPLETED"
)

// RotationJob is the resumable state of a rotation sweep. Checkpoint is the id of
// the last encrypted field processed; uuid.Nil means the current pass has not started.
// LeaseOwner identifies the process run that holds the lease; every progress write
// is conditional on it.
type RotationJob struct {
	ID                 uuid.UUID
	KeyID              uint64
	PreviousKeyID      uint64
	Status             RotationJobStatus
	Checkpoint         uuid.UUID
	RecordsReEncrypted int64
	RotatedBy          string
	StartedAt          time.Time
	LeaseOwner         uuid.UUID
	LeaseExpiresAt     time.Time
	CompletedAt        *time.Time
}

// LeaseActive reports whether a sweep process still owns the job at now.
func (j *RotationJob) LeaseActive(now time.Time) bool {
	return j.Status == RotationJobRunning && now.Before(j.LeaseExpiresAt)
}

// RotationRecord is the immutable ledger entry written once a sweep completes.
type RotationRecord struct {
	ID                 uuid.UUID
	KeyID              uint64
	RotatedAt          time.Time
	RotatedBy          string
	RecordsReEncrypted int64
}
