package usecase

import (
	"context"
	"time"

	auditDomain "github.com/sobebarali/useHely-sub006/internal/audit/domain"
	"github.com/sobebarali/useHely-sub006/internal/metrics"
)

// writerUseCaseWithMetrics decorates WriterUseCase with metrics instrumentation.
type writerUseCaseWithMetrics struct {
	next    WriterUseCase
	metrics metrics.BusinessMetrics
}

// NewWriterUseCaseWithMetrics wraps a WriterUseCase with metrics recording.
func NewWriterUseCaseWithMetrics(useCase WriterUseCase, m metrics.BusinessMetrics) WriterUseCase {
	return &writerUseCaseWithMetrics{next: useCase, metrics: m}
}

// Append records append outcomes and duration.
func (w *writerUseCaseWithMetrics) Append(
	ctx context.Context,
	tenantID string,
	input *auditDomain.AppendInput,
) (*auditDomain.AuditEntry, error) {
	start := time.Now()
	entry, err := w.next.Append(ctx, tenantID, input)
	metrics.Observe(ctx, w.metrics, metrics.DomainAudit, "append", start, err)
	return entry, err
}

// verifierUseCaseWithMetrics decorates VerifierUseCase with metrics instrumentation.
type verifierUseCaseWithMetrics struct {
	next    VerifierUseCase
	metrics metrics.BusinessMetrics
}

// NewVerifierUseCaseWithMetrics wraps a VerifierUseCase with metrics recording.
func NewVerifierUseCaseWithMetrics(useCase VerifierUseCase, m metrics.BusinessMetrics) VerifierUseCase {
	return &verifierUseCaseWithMetrics{next: useCase, metrics: m}
}

// Verify records the verification outcome, verified entries and detected breaks.
func (v *verifierUseCaseWithMetrics) Verify(
	ctx context.Context,
	tenantID string,
	fromSeq, toSeq uint64,
) (*auditDomain.VerificationResult, error) {
	start := time.Now()
	result, err := v.next.Verify(ctx, tenantID, fromSeq, toSeq)
	metrics.Observe(ctx, v.metrics, metrics.DomainAudit, "verify", start, err)
	v.recordResults(ctx, result)
	return result, err
}

// VerifyAll records the combined outcome of verifying every tenant.
func (v *verifierUseCaseWithMetrics) VerifyAll(ctx context.Context) ([]*auditDomain.VerificationResult, error) {
	start := time.Now()
	results, err := v.next.VerifyAll(ctx)
	metrics.Observe(ctx, v.metrics, metrics.DomainAudit, "verify_all", start, err)
	v.recordResults(ctx, results...)
	return results, err
}

func (v *verifierUseCaseWithMetrics) recordResults(ctx context.Context, results ...*auditDomain.VerificationResult) {
	for _, result := range results {
		if result == nil {
			continue
		}
		v.metrics.RecordItems(ctx, metrics.DomainAudit, "entry_verified", int64(result.EntriesVerified))
		if !result.Valid {
			v.metrics.RecordItems(ctx, metrics.DomainAudit, "chain_break", 1)
		}
	}
}

// exportUseCaseWithMetrics decorates ExportUseCase with metrics instrumentation.
type exportUseCaseWithMetrics struct {
	next    ExportUseCase
	metrics metrics.BusinessMetrics
}

// NewExportUseCaseWithMetrics wraps an ExportUseCase with metrics recording.
func NewExportUseCaseWithMetrics(useCase ExportUseCase, m metrics.BusinessMetrics) ExportUseCase {
	return &exportUseCaseWithMetrics{next: useCase, metrics: m}
}

func (e *exportUseCaseWithMetrics) Export(
	ctx context.Context,
	tenantID string,
	fromSeq, toSeq uint64,
) (*ExportResult, error) {
	start := time.Now()
	result, err := e.next.Export(ctx, tenantID, fromSeq, toSeq)
	metrics.Observe(ctx, e.metrics, metrics.DomainAudit, "export", start, err)
	if result != nil {
		e.metrics.RecordItems(ctx, metrics.DomainAudit, "entry_exported", int64(result.EntryCount))
	}
	return result, err
}
