package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/sobebarali/useHely-sub006/internal/crypto/domain"
	"github.com/sobebarali/useHely-sub006/internal/metrics"
)

// rotationUseCaseWithMetrics decorates RotationUseCase with metrics instrumentation.
type rotationUseCaseWithMetrics struct {
	next    RotationUseCase
	metrics metrics.BusinessMetrics
}

// NewRotationUseCaseWithMetrics wraps a RotationUseCase with metrics recording.
func NewRotationUseCaseWithMetrics(useCase RotationUseCase, m metrics.BusinessMetrics) RotationUseCase {
	return &rotationUseCaseWithMetrics{next: useCase, metrics: m}
}

// Rotate records the rotation outcome and the number of re-encrypted fields.
func (r *rotationUseCaseWithMetrics) Rotate(
	ctx context.Context,
	newKeyMaterial []byte,
	actor string,
) (*cryptoDomain.RotationRecord, error) {
	start := time.Now()
	record, err := r.next.Rotate(ctx, newKeyMaterial, actor)
	metrics.Observe(ctx, r.metrics, metrics.DomainKeys, "rotate", start, err)
	if record != nil {
		r.metrics.RecordItems(ctx, metrics.DomainKeys, "field_re_encrypted", record.RecordsReEncrypted)
	}
	return record, err
}

// ResumeRotation records the resumed rotation outcome.
func (r *rotationUseCaseWithMetrics) ResumeRotation(
	ctx context.Context,
	actor string,
) (*cryptoDomain.RotationRecord, error) {
	start := time.Now()
	record, err := r.next.ResumeRotation(ctx, actor)
	metrics.Observe(ctx, r.metrics, metrics.DomainKeys, "rotate_resume", start, err)
	if record != nil {
		r.metrics.RecordItems(ctx, metrics.DomainKeys, "field_re_encrypted", record.RecordsReEncrypted)
	}
	return record, err
}

// ListRotations is not instrumented.
func (r *rotationUseCaseWithMetrics) ListRotations(
	ctx context.Context,
	offset, limit int,
) ([]*cryptoDomain.RotationRecord, error) {
	return r.next.ListRotations(ctx, offset, limit)
}

// fieldUseCaseWithMetrics decorates FieldUseCase with metrics instrumentation.
type fieldUseCaseWithMetrics struct {
	next    FieldUseCase
	metrics metrics.BusinessMetrics
}

// NewFieldUseCaseWithMetrics wraps a FieldUseCase with metrics recording.
func NewFieldUseCaseWithMetrics(useCase FieldUseCase, m metrics.BusinessMetrics) FieldUseCase {
	return &fieldUseCaseWithMetrics{next: useCase, metrics: m}
}

func (f *fieldUseCaseWithMetrics) Protect(
	ctx context.Context,
	tenantID string,
	ref cryptoDomain.FieldRef,
	plaintext []byte,
) (*cryptoDomain.EncryptedField, error) {
	start := time.Now()
	field, err := f.next.Protect(ctx, tenantID, ref, plaintext)
	metrics.Observe(ctx, f.metrics, metrics.DomainFields, "protect", start, err)
	return field, err
}

func (f *fieldUseCaseWithMetrics) Reveal(
	ctx context.Context,
	tenantID string,
	id uuid.UUID,
) ([]byte, *cryptoDomain.EncryptedField, error) {
	start := time.Now()
	plaintext, field, err := f.next.Reveal(ctx, tenantID, id)
	metrics.Observe(ctx, f.metrics, metrics.DomainFields, "reveal", start, err)
	return plaintext, field, err
}

func (f *fieldUseCaseWithMetrics) Replace(
	ctx context.Context,
	tenantID string,
	id uuid.UUID,
	plaintext []byte,
) (*cryptoDomain.EncryptedField, error) {
	start := time.Now()
	field, err := f.next.Replace(ctx, tenantID, id, plaintext)
	metrics.Observe(ctx, f.metrics, metrics.DomainFields, "replace", start, err)
	return field, err
}

func (f *fieldUseCaseWithMetrics) CountByKey(ctx context.Context, keyID uint64) (int64, error) {
	return f.next.CountByKey(ctx, keyID)
}
