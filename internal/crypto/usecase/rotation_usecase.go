package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	cryptoDomain "github.com/sobebarali/useHely-sub006/internal/crypto/domain"
	cryptoService "github.com/sobebarali/useHely-sub006/internal/crypto/service"
	"github.com/sobebarali/useHely-sub006/internal/database"
)

// maxSweepPasses bounds how many times the sweep restarts from the beginning. A
// pass that finds no value under the old key ends the sweep; running out of
// passes leaves the job RUNNING for a resume.
const maxSweepPasses = 3

const defaultPageSize = 100

// RotationConfig holds rotation sweep configuration.
type RotationConfig struct {
	PageSize       int
	PagesPerSecond float64
	MaxPageRetries int
	LeaseDuration  time.Duration
}

// rotationUseCase implements RotationUseCase.
type rotationUseCase struct {
	config    RotationConfig
	txManager database.TxManager
	registry  KeyRegistry
	fieldRepo EncryptedFieldRepository
	jobRepo   RotationJobRepository
	engine    *cryptoService.Engine
	limiter   *rate.Limiter
	logger    *slog.Logger

	running    atomic.Bool
	now        func() time.Time
	newBackOff func() backoff.BackOff
}

// Rotate registers newKeyMaterial, promotes it and re-encrypts every field still
// tagged with the previously active key.
//
// An abandoned sweep (RUNNING job with an expired lease) is resumed when called
// with the same material; any other material is refused with
// ErrRotationInProgress until that sweep completes.
func (r *rotationUseCase) Rotate(
	ctx context.Context,
	newKeyMaterial []byte,
	actor string,
) (*cryptoDomain.RotationRecord, error) {
	if len(newKeyMaterial) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrInvalidKey
	}
	if !r.running.CompareAndSwap(false, true) {
		return nil, cryptoDomain.ErrRotationInProgress
	}
	defer r.running.Store(false)

	job, err := r.jobRepo.GetRunning(ctx)
	switch {
	case err == nil:
		if job.LeaseActive(r.now()) {
			return nil, cryptoDomain.ErrRotationInProgress
		}
		pending, err := r.registry.GetKey(ctx, job.KeyID)
		if err != nil {
			return nil, err
		}
		if subtle.ConstantTimeCompare(pending.Material, newKeyMaterial) != 1 {
			return nil, cryptoDomain.ErrRotationInProgress
		}
		return r.resume(ctx, job)
	case !errors.Is(err, cryptoDomain.ErrRotationJobNotFound):
		return nil, err
	}

	if err := r.registry.Refresh(ctx); err != nil {
		return nil, err
	}
	active, err := r.registry.GetActiveKey(ctx)
	if err != nil {
		return nil, err
	}

	now := r.now()
	err = r.txManager.WithTx(ctx, func(ctx context.Context) error {
		key, err := r.registry.Register(ctx, newKeyMaterial, active.Algorithm)
		if err != nil {
			return err
		}

		job = &cryptoDomain.RotationJob{
			ID:             uuid.Must(uuid.NewV7()),
			KeyID:          key.ID,
			PreviousKeyID:  active.ID,
			Status:         cryptoDomain.RotationJobRunning,
			Checkpoint:     uuid.Nil,
			RotatedBy:      actor,
			StartedAt:      now,
			LeaseOwner:     uuid.Must(uuid.NewV7()),
			LeaseExpiresAt: now.Add(r.config.LeaseDuration),
		}
		return r.jobRepo.Create(ctx, job)
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("key rotation started",
		slog.String("job_id", job.ID.String()),
		slog.Uint64("key_id", job.KeyID),
		slog.Uint64("previous_key_id", job.PreviousKeyID),
		slog.String("actor", actor),
	)

	return r.run(ctx, job)
}

// ResumeRotation claims the lease of an abandoned sweep and continues it from its
// checkpoint. The original actor stays on the rotation record.
func (r *rotationUseCase) ResumeRotation(ctx context.Context, actor string) (*cryptoDomain.RotationRecord, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, cryptoDomain.ErrRotationInProgress
	}
	defer r.running.Store(false)

	job, err := r.jobRepo.GetRunning(ctx)
	if errors.Is(err, cryptoDomain.ErrRotationJobNotFound) {
		return nil, cryptoDomain.ErrNoRotationToResume
	}
	if err != nil {
		return nil, err
	}
	if job.LeaseActive(r.now()) {
		return nil, cryptoDomain.ErrRotationInProgress
	}

	r.logger.Info("resuming key rotation", slog.String("job_id", job.ID.String()), slog.String("actor", actor))

	return r.resume(ctx, job)
}

// ListRotations returns completed rotation records newest first.
func (r *rotationUseCase) ListRotations(
	ctx context.Context,
	offset, limit int,
) ([]*cryptoDomain.RotationRecord, error) {
	return r.jobRepo.ListRecords(ctx, offset, limit)
}

func (r *rotationUseCase) resume(ctx context.Context, job *cryptoDomain.RotationJob) (*cryptoDomain.RotationRecord, error) {
	now := r.now()
	owner := uuid.Must(uuid.NewV7())
	leaseUntil := now.Add(r.config.LeaseDuration)

	claimed, err := r.jobRepo.ClaimLease(ctx, job.ID, owner, now, leaseUntil)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, cryptoDomain.ErrRotationInProgress
	}

	job.LeaseOwner = owner
	job.LeaseExpiresAt = leaseUntil
	return r.run(ctx, job)
}

// run promotes the job's key if needed, sweeps, and completes the job. The lease
// is released on any failure so another process can resume without waiting.
func (r *rotationUseCase) run(ctx context.Context, job *cryptoDomain.RotationJob) (*cryptoDomain.RotationRecord, error) {
	record, err := r.promoteAndSweep(ctx, job)
	if err != nil {
		if releaseErr := r.jobRepo.ReleaseLease(context.WithoutCancel(ctx), job, r.now()); releaseErr != nil {
			r.logger.Error("failed to release rotation lease",
				slog.String("job_id", job.ID.String()),
				slog.Any("error", releaseErr),
			)
		}
		r.logger.Error("key rotation stopped",
			slog.String("job_id", job.ID.String()),
			slog.String("checkpoint", job.Checkpoint.String()),
			slog.Int64("records_re_encrypted", job.RecordsReEncrypted),
			slog.Any("error", err),
		)
		return nil, err
	}
	return record, nil
}

func (r *rotationUseCase) promoteAndSweep(
	ctx context.Context,
	job *cryptoDomain.RotationJob,
) (*cryptoDomain.RotationRecord, error) {
	// Forward-only: once promoted the key stays ACTIVE whatever happens to the sweep.
	newKey, err := r.registry.Promote(ctx, job.KeyID)
	if err != nil {
		return nil, err
	}
	oldKey, err := r.registry.GetKey(ctx, job.PreviousKeyID)
	if err != nil {
		return nil, err
	}

	clean := false
	for pass := 1; pass <= maxSweepPasses && !clean; pass++ {
		// Only a pass over the whole key space proves nothing is left behind.
		fromStart := job.Checkpoint == uuid.Nil
		seen, err := r.sweepPass(ctx, job, oldKey, newKey)
		if err != nil {
			return nil, err
		}
		clean = seen == 0 && fromStart
		job.Checkpoint = uuid.Nil
	}
	if !clean {
		return nil, fmt.Errorf(
			"%w: key %d still referenced after %d passes",
			cryptoDomain.ErrSweepIncomplete, oldKey.ID, maxSweepPasses,
		)
	}

	now := r.now()
	record := &cryptoDomain.RotationRecord{
		ID:                 uuid.Must(uuid.NewV7()),
		KeyID:              job.KeyID,
		RotatedAt:          now,
		RotatedBy:          job.RotatedBy,
		RecordsReEncrypted: job.RecordsReEncrypted,
	}

	err = r.txManager.WithTx(ctx, func(ctx context.Context) error {
		completed := *job
		completed.CompletedAt = &now
		held, err := r.jobRepo.Complete(ctx, &completed)
		if err != nil {
			return err
		}
		if !held {
			return fmt.Errorf("rotation lease lost: %w", cryptoDomain.ErrRotationInProgress)
		}
		return r.jobRepo.CreateRecord(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	job.Status = cryptoDomain.RotationJobCompleted
	job.CompletedAt = &now

	r.logger.Info("key rotation completed",
		slog.String("job_id", job.ID.String()),
		slog.Uint64("key_id", job.KeyID),
		slog.Int64("records_re_encrypted", job.RecordsReEncrypted),
	)
	return record, nil
}

// sweepPass walks the old key's fields from job.Checkpoint to the end and returns
// how many rows it saw.
func (r *rotationUseCase) sweepPass(
	ctx context.Context,
	job *cryptoDomain.RotationJob,
	oldKey, newKey *cryptoDomain.MasterKey,
) (int, error) {
	seen := 0
	for page := 1; ; page++ {
		if err := r.limiter.Wait(ctx); err != nil {
			return seen, err
		}

		n, err := r.sweepPage(ctx, job, oldKey, newKey)
		if err != nil {
			return seen, err
		}
		seen += n

		r.logger.Debug("rotation page processed",
			slog.String("job_id", job.ID.String()),
			slog.Int("page", page),
			slog.Int("rows", n),
			slog.Int64("records_re_encrypted", job.RecordsReEncrypted),
		)

		if n < r.config.PageSize {
			return seen, nil
		}
	}
}

// sweepPage re-encrypts one page and commits the rows, checkpoint, count and lease
// extension together. Transient storage errors retry the whole page; crypto errors
// and a lost lease stop the sweep.
func (r *rotationUseCase) sweepPage(
	ctx context.Context,
	job *cryptoDomain.RotationJob,
	oldKey, newKey *cryptoDomain.MasterKey,
) (int, error) {
	var rows int
	var next cryptoDomain.RotationJob

	operation := func() error {
		rows = 0
		return r.txManager.WithTx(ctx, func(ctx context.Context) error {
			fields, err := r.fieldRepo.ListByKey(ctx, oldKey.ID, job.Checkpoint, r.config.PageSize)
			if err != nil {
				return err
			}
			rows = len(fields)
			if rows == 0 {
				return nil
			}

			now := r.now()
			var migrated int64
			for _, field := range fields {
				ok, err := r.reEncrypt(ctx, field, oldKey, newKey, now)
				if err != nil {
					return err
				}
				if ok {
					migrated++
				}
			}

			next = *job
			next.Checkpoint = fields[len(fields)-1].ID
			next.RecordsReEncrypted += migrated
			next.LeaseExpiresAt = now.Add(r.config.LeaseDuration)

			held, err := r.jobRepo.UpdateProgress(ctx, &next)
			if err != nil {
				return err
			}
			if !held {
				return backoff.Permanent(fmt.Errorf("rotation lease lost: %w", cryptoDomain.ErrRotationInProgress))
			}
			return nil
		})
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(r.newBackOff(), uint64(r.config.MaxPageRetries)), ctx)
	notify := func(err error, wait time.Duration) {
		r.logger.Warn("retrying rotation page",
			slog.String("job_id", job.ID.String()),
			slog.Duration("wait", wait),
			slog.Any("error", err),
		)
	}
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return 0, err
	}

	if rows > 0 {
		*job = next
	}
	return rows, nil
}

func (r *rotationUseCase) reEncrypt(
	ctx context.Context,
	field *cryptoDomain.EncryptedField,
	oldKey, newKey *cryptoDomain.MasterKey,
	now time.Time,
) (bool, error) {
	aad := cryptoDomain.FieldAAD(field.TenantID, field.ID)

	plaintext, err := r.engine.DecryptWithKey(oldKey, field.Ciphertext, aad)
	if err != nil {
		return false, backoff.Permanent(fmt.Errorf("field %s: %w", field.ID, err))
	}
	defer cryptoDomain.Zero(plaintext)

	ciphertext, err := r.engine.EncryptWithKey(newKey, plaintext, aad)
	if err != nil {
		return false, backoff.Permanent(fmt.Errorf("field %s: %w", field.ID, err))
	}

	return r.fieldRepo.ReEncrypt(ctx, field, newKey.ID, ciphertext, now)
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// NewRotationUseCase creates a rotation use case. A non-positive PagesPerSecond
// disables pacing.
func NewRotationUseCase(
	config RotationConfig,
	txManager database.TxManager,
	registry KeyRegistry,
	fieldRepo EncryptedFieldRepository,
	jobRepo RotationJobRepository,
	engine *cryptoService.Engine,
	logger *slog.Logger,
) RotationUseCase {
	if config.PageSize <= 0 {
		config.PageSize = defaultPageSize
	}

	limit := rate.Inf
	if config.PagesPerSecond > 0 {
		limit = rate.Limit(config.PagesPerSecond)
	}

	return &rotationUseCase{
		config:     config,
		txManager:  txManager,
		registry:   registry,
		fieldRepo:  fieldRepo,
		jobRepo:    jobRepo,
		engine:     engine,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		newBackOff: defaultBackOff,
	}
}
