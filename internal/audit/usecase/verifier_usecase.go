package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	auditDomain "github.com/sobebarali/useHely-sub006/internal/audit/domain"
	auditService "github.com/sobebarali/useHely-sub006/internal/audit/service"
)

// errStopStream ends a stream once the first break is recorded.
var errStopStream = errors.New("stop stream")

// VerifierConfig holds verification configuration.
type VerifierConfig struct {
	// Concurrency bounds how many tenant chains VerifyAll checks at once.
	Concurrency int
}

// verifierUseCase implements VerifierUseCase.
type verifierUseCase struct {
	config VerifierConfig
	repo   AuditRepository
	logger *slog.Logger
	now    func() time.Time
}

// Verify streams [fromSeq, toSeq] and stops at the first divergence. The range is
// bounded by the tail read before streaming, so concurrent appends past it are
// not observed.
func (v *verifierUseCase) Verify(
	ctx context.Context,
	tenantID string,
	fromSeq, toSeq uint64,
) (*auditDomain.VerificationResult, error) {
	if fromSeq == 0 {
		fromSeq = 1
	}
	if toSeq != 0 && fromSeq > toSeq {
		return nil, auditDomain.ErrInvalidRange
	}

	tail, err := v.repo.GetTail(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	upper := tail.SequenceNo
	if toSeq != 0 && toSeq < upper {
		upper = toSeq
	}

	result := &auditDomain.VerificationResult{
		TenantID:   tenantID,
		FromSeq:    fromSeq,
		ToSeq:      upper,
		Valid:      true,
		VerifiedAt: v.now(),
	}
	if fromSeq > upper {
		result.ToSeq = fromSeq - 1
		return result, nil
	}

	prevHash, brk, err := v.anchor(ctx, tenantID, fromSeq)
	if err != nil {
		return nil, err
	}
	if brk != nil {
		return v.broken(result, brk), nil
	}

	expected := fromSeq
	err = v.repo.Stream(ctx, tenantID, fromSeq, upper, func(entry *auditDomain.AuditEntry) error {
		if entry.SequenceNo != expected {
			brk = &auditDomain.ChainBreak{BrokenAtSequence: expected, Kind: auditDomain.BreakMissingSequence}
			return errStopStream
		}

		recomputed := auditService.ComputeHash(entry)
		if recomputed != entry.Hash {
			brk = &auditDomain.ChainBreak{
				BrokenAtSequence: entry.SequenceNo,
				Kind:             auditDomain.BreakHashMismatch,
				Expected:         recomputed,
				Actual:           entry.Hash,
			}
			return errStopStream
		}
		if entry.PreviousHash != prevHash {
			brk = &auditDomain.ChainBreak{
				BrokenAtSequence: entry.SequenceNo,
				Kind:             auditDomain.BreakChainLinkMismatch,
				Expected:         prevHash,
				Actual:           entry.PreviousHash,
			}
			return errStopStream
		}

		prevHash = recomputed
		result.EntriesVerified++
		expected++
		return nil
	})
	if err != nil && !errors.Is(err, errStopStream) {
		return nil, err
	}
	if brk != nil {
		return v.broken(result, brk), nil
	}

	if expected <= upper {
		return v.broken(result, &auditDomain.ChainBreak{
			BrokenAtSequence: expected,
			Kind:             auditDomain.BreakMissingSequence,
		}), nil
	}

	if upper == tail.SequenceNo && prevHash != tail.Hash {
		return v.broken(result, &auditDomain.ChainBreak{
			BrokenAtSequence: upper,
			Kind:             auditDomain.BreakChainLinkMismatch,
			Expected:         prevHash,
			Actual:           tail.Hash,
		}), nil
	}

	result.HeadHash = prevHash
	return result, nil
}

// VerifyAll verifies every tenant chain with bounded concurrency. A broken chain
// is a result, not an error; errors are storage failures.
func (v *verifierUseCase) VerifyAll(ctx context.Context) ([]*auditDomain.VerificationResult, error) {
	tenants, err := v.repo.ListTenants(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]*auditDomain.VerificationResult, len(tenants))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(v.config.Concurrency, 1))

	for i, tenantID := range tenants {
		g.Go(func() error {
			result, err := v.Verify(ctx, tenantID, 1, 0)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// anchor returns the hash the entry at fromSeq must link to.
func (v *verifierUseCase) anchor(
	ctx context.Context,
	tenantID string,
	fromSeq uint64,
) (string, *auditDomain.ChainBreak, error) {
	if fromSeq == 1 {
		return auditDomain.GenesisHash, nil, nil
	}

	prev, err := v.repo.Get(ctx, tenantID, fromSeq-1)
	if errors.Is(err, auditDomain.ErrEntryNotFound) {
		return "", &auditDomain.ChainBreak{BrokenAtSequence: fromSeq - 1, Kind: auditDomain.BreakMissingSequence}, nil
	}
	if err != nil {
		return "", nil, err
	}

	recomputed := auditService.ComputeHash(prev)
	if recomputed != prev.Hash {
		return "", &auditDomain.ChainBreak{
			BrokenAtSequence: prev.SequenceNo,
			Kind:             auditDomain.BreakHashMismatch,
			Expected:         recomputed,
			Actual:           prev.Hash,
		}, nil
	}
	return recomputed, nil, nil
}

func (v *verifierUseCase) broken(
	result *auditDomain.VerificationResult,
	brk *auditDomain.ChainBreak,
) *auditDomain.VerificationResult {
	result.Valid = false
	result.Break = brk

	v.logger.Error("audit chain break detected",
		slog.String("tenant_id", result.TenantID),
		slog.Uint64("sequence_no", brk.BrokenAtSequence),
		slog.String("kind", string(brk.Kind)),
	)
	return result
}

// NewVerifierUseCase creates an audit chain verifier.
func NewVerifierUseCase(config VerifierConfig, repo AuditRepository, logger *slog.Logger) VerifierUseCase {
	return &verifierUseCase{
		config: config,
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}
