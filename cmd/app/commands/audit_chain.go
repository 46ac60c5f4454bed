package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	auditDomain "github.com/sobebarali/useHely-sub006/internal/audit/domain"
	auditUseCase "github.com/sobebarali/useHely-sub006/internal/audit/usecase"
)

// RunVerifyAuditChain recomputes one tenant chain, or every chain when all is
// set, and fails if any chain is broken.
func RunVerifyAuditChain(
	ctx context.Context,
	verifier auditUseCase.VerifierUseCase,
	logger *slog.Logger,
	writer io.Writer,
	tenantID string,
	all bool,
	fromSeq, toSeq uint64,
	format string,
) error {
	if all == (tenantID != "") {
		return fmt.Errorf("exactly one of --tenant or --all is required")
	}

	var results []*auditDomain.VerificationResult
	if all {
		verified, err := verifier.VerifyAll(ctx)
		if err != nil {
			return fmt.Errorf("failed to verify audit chains: %w", err)
		}
		results = verified
	} else {
		result, err := verifier.Verify(ctx, tenantID, fromSeq, toSeq)
		if err != nil {
			return fmt.Errorf("failed to verify audit chain: %w", err)
		}
		results = []*auditDomain.VerificationResult{result}
	}

	if format == "json" {
		if err := outputVerifyJSON(writer, results); err != nil {
			return err
		}
	} else {
		outputVerifyText(writer, results)
	}

	broken := 0
	for _, result := range results {
		if !result.Valid {
			broken++
		}
	}

	logger.Info("audit chain verification completed",
		slog.Int("chains", len(results)),
		slog.Int("broken", broken),
	)

	if broken > 0 {
		return fmt.Errorf("integrity check failed: %d broken chain(s)", broken)
	}
	return nil
}

// RunExportAuditChain archives a verified chain range to object storage.
func RunExportAuditChain(
	ctx context.Context,
	exporter auditUseCase.ExportUseCase,
	logger *slog.Logger,
	writer io.Writer,
	tenantID string,
	fromSeq, toSeq uint64,
	format string,
) error {
	if tenantID == "" {
		return fmt.Errorf("tenant is required")
	}

	result, err := exporter.Export(ctx, tenantID, fromSeq, toSeq)
	if err != nil {
		return fmt.Errorf("failed to export audit chain: %w", err)
	}

	logger.Info("audit chain exported",
		slog.String("tenant_id", result.TenantID),
		slog.String("object_key", result.ObjectKey),
	)

	if format == "json" {
		return writeJSON(writer, map[string]any{
			"tenant_id":   result.TenantID,
			"object_key":  result.ObjectKey,
			"from_seq":    result.FromSeq,
			"to_seq":      result.ToSeq,
			"entry_count": result.EntryCount,
			"head_hash":   result.HeadHash,
		})
	}

	_, _ = fmt.Fprintf(writer, "Exported %d entries (%d-%d) of %s to %s\n",
		result.EntryCount, result.FromSeq, result.ToSeq, result.TenantID, result.ObjectKey)
	_, _ = fmt.Fprintf(writer, "Head hash: %s\n", result.HeadHash)
	return nil
}

func outputVerifyText(writer io.Writer, results []*auditDomain.VerificationResult) {
	_, _ = fmt.Fprintf(writer, "Audit Chain Verification\n")
	_, _ = fmt.Fprintf(writer, "========================\n\n")

	if len(results) == 0 {
		_, _ = fmt.Fprintf(writer, "Status: No audit chains found\n")
		return
	}

	for _, result := range results {
		_, _ = fmt.Fprintf(writer, "Tenant:   %s\n", result.TenantID)
		_, _ = fmt.Fprintf(writer, "Range:    %d-%d\n", result.FromSeq, result.ToSeq)
		_, _ = fmt.Fprintf(writer, "Verified: %d\n", result.EntriesVerified)
		if result.Valid {
			_, _ = fmt.Fprintf(writer, "Status:   PASSED\n\n")
			continue
		}
		_, _ = fmt.Fprintf(writer, "Status:   FAILED (%s at sequence %d)\n", result.Break.Kind, result.Break.BrokenAtSequence)
		_, _ = fmt.Fprintf(writer, "Expected: %s\n", result.Break.Expected)
		_, _ = fmt.Fprintf(writer, "Actual:   %s\n\n", result.Break.Actual)
	}
}

func outputVerifyJSON(writer io.Writer, results []*auditDomain.VerificationResult) error {
	out := make([]map[string]any, 0, len(results))
	for _, result := range results {
		entry := map[string]any{
			"tenant_id":        result.TenantID,
			"from_seq":         result.FromSeq,
			"to_seq":           result.ToSeq,
			"entries_verified": result.EntriesVerified,
			"valid":            result.Valid,
			"head_hash":        result.HeadHash,
		}
		if result.Break != nil {
			entry["break"] = map[string]any{
				"broken_at_sequence": result.Break.BrokenAtSequence,
				"kind":               result.Break.Kind,
				"expected":           result.Break.Expected,
				"actual":             result.Break.Actual,
			}
		}
		out = append(out, entry)
	}
	return writeJSON(writer, out)
}
