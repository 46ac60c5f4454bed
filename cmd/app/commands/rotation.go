package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	cryptoDomain "github.com/sobebarali/useHely-sub006/internal/crypto/domain"
	cryptoUseCase "github.com/sobebarali/useHely-sub006/internal/crypto/usecase"
)

// RunRotateKey promotes new key material and re-encrypts every field sealed
// under the previous key. An interrupted sweep is continued with resume-rotation.
func RunRotateKey(
	ctx context.Context,
	rotation cryptoUseCase.RotationUseCase,
	logger *slog.Logger,
	writer io.Writer,
	keyHex, actor, format string,
) error {
	if actor == "" {
		return fmt.Errorf("actor is required")
	}

	material, err := parseKeyHex(keyHex)
	if err != nil {
		return err
	}
	defer cryptoDomain.Zero(material)

	logger.Info("rotating master key", slog.String("actor", actor))

	record, err := rotation.Rotate(ctx, material, actor)
	if err != nil {
		return fmt.Errorf("failed to rotate master key: %w", err)
	}

	return outputRotationRecord(writer, record, format)
}

// RunResumeRotation continues the RUNNING sweep from its last checkpoint.
func RunResumeRotation(
	ctx context.Context,
	rotation cryptoUseCase.RotationUseCase,
	logger *slog.Logger,
	writer io.Writer,
	actor, format string,
) error {
	if actor == "" {
		return fmt.Errorf("actor is required")
	}

	logger.Info("resuming key rotation", slog.String("actor", actor))

	record, err := rotation.ResumeRotation(ctx, actor)
	if err != nil {
		return fmt.Errorf("failed to resume rotation: %w", err)
	}

	return outputRotationRecord(writer, record, format)
}

// RunListRotations prints completed rotations newest first.
func RunListRotations(
	ctx context.Context,
	rotation cryptoUseCase.RotationUseCase,
	writer io.Writer,
	offset, limit int,
	format string,
) error {
	if offset < 0 || limit <= 0 {
		return fmt.Errorf("offset must not be negative and limit must be positive")
	}

	records, err := rotation.ListRotations(ctx, offset, limit)
	if err != nil {
		return fmt.Errorf("failed to list rotations: %w", err)
	}

	if format == "json" {
		out := make([]map[string]any, 0, len(records))
		for _, record := range records {
			out = append(out, rotationOutput(record))
		}
		return writeJSON(writer, out)
	}

	if len(records) == 0 {
		_, _ = fmt.Fprintln(writer, "No rotations recorded")
		return nil
	}
	_, _ = fmt.Fprintf(writer, "%-8s %-25s %-20s %s\n", "KEY", "ROTATED AT", "ROTATED BY", "RE-ENCRYPTED")
	for _, record := range records {
		_, _ = fmt.Fprintf(writer, "%-8d %-25s %-20s %d\n",
			record.KeyID,
			record.RotatedAt.Format(time.RFC3339),
			record.RotatedBy,
			record.RecordsReEncrypted,
		)
	}
	return nil
}

func outputRotationRecord(writer io.Writer, record *cryptoDomain.RotationRecord, format string) error {
	if format == "json" {
		return writeJSON(writer, rotationOutput(record))
	}

	_, _ = fmt.Fprintf(writer, "Rotation to key %d completed\n", record.KeyID)
	_, _ = fmt.Fprintf(writer, "Records re-encrypted: %d\n", record.RecordsReEncrypted)
	_, _ = fmt.Fprintf(writer, "Rotated by:           %s\n", record.RotatedBy)
	_, _ = fmt.Fprintf(writer, "Rotated at:           %s\n", record.RotatedAt.Format(time.RFC3339))
	return nil
}

func rotationOutput(record *cryptoDomain.RotationRecord) map[string]any {
	return map[string]any{
		"id":                  record.ID.String(),
		"key_id":              record.KeyID,
		"rotated_at":          record.RotatedAt,
		"rotated_by":          record.RotatedBy,
		"records_reencrypted": record.RecordsReEncrypted,
	}
}
