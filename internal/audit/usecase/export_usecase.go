package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	auditDomain "github.com/sobebarali/useHely-sub006/internal/audit/domain"
	auditService "github.com/sobebarali/useHely-sub006/internal/audit/service"
	apperrors "github.com/sobebarali/useHely-sub006/internal/errors"
)

// Archive object metadata keys.
const (
	MetadataHeadHash   = "head-hash"
	MetadataEntryCount = "entry-count"
	MetadataTenantID   = "tenant-id"
)

// archiveLine is one JSON Lines record of an exported range. Payloads are carried
// as JSON strings holding the stored bytes verbatim, so every line can be rehashed
// against its own hash and sealed entries stay sealed.
type archiveLine struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenant_id"`
	SequenceNo   uint64    `json:"sequence_no"`
	EventType    string    `json:"event_type"`
	Category     string    `json:"category"`
	Severity     string    `json:"severity"`
	ActorID      string    `json:"actor_id"`
	ActorName    string    `json:"actor_name"`
	ResourceType string    `json:"resource_type,omitempty"`
	ResourceID   string    `json:"resource_id,omitempty"`
	Action       string    `json:"action,omitempty"`
	IP           string    `json:"ip,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
	SessionID    string    `json:"session_id,omitempty"`
	Details      string    `json:"details,omitempty"`
	Before       string    `json:"before,omitempty"`
	After        string    `json:"after,omitempty"`
	PayloadKeyID *uint64   `json:"payload_key_id,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	Hash         string    `json:"hash"`
	PreviousHash string    `json:"previous_hash"`
}

func newArchiveLine(entry *auditDomain.AuditEntry) archiveLine {
	return archiveLine{
		ID:           entry.ID.String(),
		TenantID:     entry.TenantID,
		SequenceNo:   entry.SequenceNo,
		EventType:    entry.EventType,
		Category:     string(entry.Category),
		Severity:     string(entry.Severity),
		ActorID:      entry.ActorID,
		ActorName:    entry.ActorName,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		Action:       string(entry.Action),
		IP:           entry.IP,
		UserAgent:    entry.UserAgent,
		SessionID:    entry.SessionID,
		Details:      string(entry.Details),
		Before:       string(entry.Before),
		After:        string(entry.After),
		PayloadKeyID: entry.PayloadKeyID,
		Timestamp:    entry.Timestamp,
		Hash:         entry.Hash,
		PreviousHash: entry.PreviousHash,
	}
}

// exportUseCase implements ExportUseCase.
type exportUseCase struct {
	repo     AuditRepository
	verifier VerifierUseCase
	uploader ObjectUploader
	logger   *slog.Logger
}

// Export verifies [fromSeq, toSeq] and uploads it as one JSON Lines object. A
// broken range is never archived.
func (e *exportUseCase) Export(
	ctx context.Context,
	tenantID string,
	fromSeq, toSeq uint64,
) (*ExportResult, error) {
	if e.uploader == nil {
		return nil, auditDomain.ErrArchiveNotConfigured
	}

	verification, err := e.verifier.Verify(ctx, tenantID, fromSeq, toSeq)
	if err != nil {
		return nil, err
	}
	if !verification.Valid {
		return nil, fmt.Errorf(
			"%w at sequence %d (%s)",
			auditDomain.ErrChainBroken,
			verification.Break.BrokenAtSequence,
			verification.Break.Kind,
		)
	}
	if verification.EntriesVerified == 0 {
		return nil, apperrors.Wrap(auditDomain.ErrInvalidRange, "no entries in range")
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)

	var count uint64
	headHash := ""
	err = e.repo.Stream(ctx, tenantID, verification.FromSeq, verification.ToSeq, func(entry *auditDomain.AuditEntry) error {
		if auditService.ComputeHash(entry) != entry.Hash {
			return fmt.Errorf("%w at sequence %d (%s)",
				auditDomain.ErrChainBroken, entry.SequenceNo, auditDomain.BreakHashMismatch)
		}
		if err := encoder.Encode(newArchiveLine(entry)); err != nil {
			return apperrors.Wrap(err, "failed to encode audit entry")
		}
		count++
		headHash = entry.Hash
		return nil
	})
	if err != nil {
		return nil, err
	}
	if count != verification.EntriesVerified || headHash != verification.HeadHash {
		return nil, fmt.Errorf("%w: range changed during export", auditDomain.ErrChainBroken)
	}

	result := &ExportResult{
		ObjectKey:  archiveObjectKey(tenantID, verification.FromSeq, verification.ToSeq),
		TenantID:   tenantID,
		FromSeq:    verification.FromSeq,
		ToSeq:      verification.ToSeq,
		EntryCount: count,
		HeadHash:   headHash,
	}

	metadata := map[string]string{
		MetadataHeadHash:   result.HeadHash,
		MetadataEntryCount: strconv.FormatUint(result.EntryCount, 10),
		MetadataTenantID:   tenantID,
	}
	if err := e.uploader.PutObject(ctx, result.ObjectKey, bytes.NewReader(buf.Bytes()), metadata); err != nil {
		return nil, err
	}

	e.logger.Info("audit chain range exported",
		slog.String("tenant_id", tenantID),
		slog.Uint64("from_seq", result.FromSeq),
		slog.Uint64("to_seq", result.ToSeq),
		slog.String("object_key", result.ObjectKey),
	)
	return result, nil
}

// archiveObjectKey zero-pads sequence numbers so keys sort in chain order.
func archiveObjectKey(tenantID string, fromSeq, toSeq uint64) string {
	return fmt.Sprintf("%s/%020d-%020d.jsonl", tenantID, fromSeq, toSeq)
}

// NewExportUseCase creates the archive exporter. A nil uploader disables export.
func NewExportUseCase(
	repo AuditRepository,
	verifier VerifierUseCase,
	uploader ObjectUploader,
	logger *slog.Logger,
) ExportUseCase {
	return &exportUseCase{repo: repo, verifier: verifier, uploader: uploader, logger: logger}
}
