package usecase

import (
	"context"
	"encoding/json"

	auditDomain "github.com/sobebarali/useHely-sub006/internal/audit/domain"
	auditService "github.com/sobebarali/useHely-sub006/internal/audit/service"
	cryptoUseCase "github.com/sobebarali/useHely-sub006/internal/crypto/usecase"
)

const defaultQueryLimit = 50

// queryUseCase implements QueryUseCase. It never writes.
type queryUseCase struct {
	repo     AuditRepository
	registry cryptoUseCase.KeyRegistry
	sealer   *auditService.PayloadSealer
}

// List returns entries matching filter, newest first.
func (q *queryUseCase) List(
	ctx context.Context,
	tenantID string,
	filter auditDomain.EntryFilter,
) ([]*auditDomain.AuditEntry, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultQueryLimit
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, auditDomain.ErrInvalidRange
	}
	return q.repo.List(ctx, tenantID, filter)
}

// Get returns the stored form of one entry.
func (q *queryUseCase) Get(ctx context.Context, tenantID string, sequenceNo uint64) (*auditDomain.AuditEntry, error) {
	return q.repo.Get(ctx, tenantID, sequenceNo)
}

// Reveal returns a copy of the entry with sealed payloads opened. Unsealed entries
// are returned unchanged. The returned copy no longer matches its stored hash.
func (q *queryUseCase) Reveal(
	ctx context.Context,
	tenantID string,
	sequenceNo uint64,
) (*auditDomain.AuditEntry, error) {
	entry, err := q.repo.Get(ctx, tenantID, sequenceNo)
	if err != nil {
		return nil, err
	}
	if !entry.Sealed() {
		return entry, nil
	}

	key, err := q.registry.GetKey(ctx, *entry.PayloadKeyID)
	if err != nil {
		return nil, err
	}

	revealed := *entry
	for _, payload := range []*json.RawMessage{&revealed.Details, &revealed.Before, &revealed.After} {
		opened, err := q.sealer.Open(key, tenantID, *payload)
		if err != nil {
			return nil, err
		}
		*payload = opened
	}
	return &revealed, nil
}

// NewQueryUseCase creates the audit query service.
func NewQueryUseCase(
	repo AuditRepository,
	registry cryptoUseCase.KeyRegistry,
	sealer *auditService.PayloadSealer,
) QueryUseCase {
	return &queryUseCase{repo: repo, registry: registry, sealer: sealer}
}
