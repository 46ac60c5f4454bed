// Package usecase implements the audit chain writer, verifier, query service and
// archive exporter.
package usecase

import (
	"context"
	"io"

	auditDomain "github.com/sobebarali/useHely-sub006/internal/audit/domain"
)

// AuditRepository persists chain tails and entries. Entries are insert-only; no
// update or delete exists.
//
// Implementations:
//   - PostgreSQLAuditRepository
//   - MySQLAuditRepository
type AuditRepository interface {
	// GetTail returns the tenant's chain tail, or a genesis tail if nothing was appended.
	GetTail(ctx context.Context, tenantID string) (*auditDomain.ChainTail, error)

	// AdvanceTail moves the tail from expected to next in one conditional write.
	// Returns ErrTailChanged if the stored tail is no longer expected.
	AdvanceTail(ctx context.Context, expected, next *auditDomain.ChainTail) error

	// InsertEntry stores a new entry. Returns ErrTailChanged if the sequence number is taken.
	InsertEntry(ctx context.Context, entry *auditDomain.AuditEntry) error

	// Get returns the entry at sequenceNo. Returns ErrEntryNotFound if absent.
	Get(ctx context.Context, tenantID string, sequenceNo uint64) (*auditDomain.AuditEntry, error)

	// List returns entries matching filter, newest first.
	List(ctx context.Context, tenantID string, filter auditDomain.EntryFilter) ([]*auditDomain.AuditEntry, error)

	// Stream calls fn for each entry in [fromSeq, toSeq] in sequence order without
	// buffering the range. fn returning an error stops the stream with that error.
	Stream(ctx context.Context, tenantID string, fromSeq, toSeq uint64, fn func(*auditDomain.AuditEntry) error) error

	// ListTenants returns every tenant with a chain tail.
	ListTenants(ctx context.Context) ([]string, error)

	// CountByKey returns how many entries carry payloads sealed under keyID.
	CountByKey(ctx context.Context, keyID uint64) (int64, error)
}

// ObjectUploader stores archive objects.
type ObjectUploader interface {
	PutObject(ctx context.Context, key string, body io.ReadSeeker, metadata map[string]string) error
}

// WriterUseCase appends entries to tenant chains.
type WriterUseCase interface {
	// Append assigns the next sequence number, links the entry to the tail and
	// persists both under a compare-and-swap on the tail.
	Append(ctx context.Context, tenantID string, input *auditDomain.AppendInput) (*auditDomain.AuditEntry, error)
}

// VerifierUseCase recomputes chains and reports the first divergence.
type VerifierUseCase interface {
	// Verify checks [fromSeq, toSeq] of a tenant chain. fromSeq 0 means 1 and
	// toSeq 0 means the current tail.
	Verify(ctx context.Context, tenantID string, fromSeq, toSeq uint64) (*auditDomain.VerificationResult, error)

	// VerifyAll verifies the full chain of every tenant.
	VerifyAll(ctx context.Context) ([]*auditDomain.VerificationResult, error)
}

// QueryUseCase is the read-only audit query surface.
type QueryUseCase interface {
	List(ctx context.Context, tenantID string, filter auditDomain.EntryFilter) ([]*auditDomain.AuditEntry, error)
	Get(ctx context.Context, tenantID string, sequenceNo uint64) (*auditDomain.AuditEntry, error)

	// Reveal returns the entry with sealed payloads decrypted.
	Reveal(ctx context.Context, tenantID string, sequenceNo uint64) (*auditDomain.AuditEntry, error)
}

// ExportResult describes an archived chain range.
type ExportResult struct {
	ObjectKey  string
	TenantID   string
	FromSeq    uint64
	ToSeq      uint64
	EntryCount uint64
	HeadHash   string
}

// ExportUseCase copies verified chain ranges to object storage.
type ExportUseCase interface {
	Export(ctx context.Context, tenantID string, fromSeq, toSeq uint64) (*ExportResult, error)
}
