// Package commands implements the CLI subcommands. Each Run function takes its
// dependencies and an output writer so it can be exercised without a container.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"

	"github.com/sobebarali/useHely-sub006/internal/app"
	cryptoDomain "github.com/sobebarali/useHely-sub006/internal/crypto/domain"
)

// closeContainer closes all resources in the container and logs any errors.
func closeContainer(container *app.Container, logger *slog.Logger) {
	if err := container.Shutdown(context.Background()); err != nil {
		logger.Error("failed to shutdown container", slog.Any("error", err))
	}
}

// closeMigrate closes the migration instance and logs any errors.
func closeMigrate(migrate *migrate.Migrate, logger *slog.Logger) {
	sourceError, databaseError := migrate.Close()
	if sourceError != nil || databaseError != nil {
		logger.Error(
			"failed to close the migrate",
			slog.Any("source_error", sourceError),
			slog.Any("database_error", databaseError),
		)
	}
}

// parseAlgorithm converts an algorithm flag to cryptoDomain.Algorithm.
func parseAlgorithm(algorithm string) (cryptoDomain.Algorithm, error) {
	switch algorithm {
	case "aes-gcm":
		return cryptoDomain.AESGCM, nil
	case "chacha20-poly1305":
		return cryptoDomain.ChaCha20, nil
	default:
		return "", fmt.Errorf(
			"invalid algorithm: %s (valid options: aes-gcm, chacha20-poly1305)",
			algorithm,
		)
	}
}

// parseKeyHex decodes hex encoded master key material. The caller must zero the
// returned slice.
func parseKeyHex(keyHex string) ([]byte, error) {
	if keyHex == "" {
		return nil, fmt.Errorf("key material is required (generate one with create-master-key)")
	}
	return cryptoDomain.ParseKeyHex(keyHex)
}

// writeJSON writes v as indented JSON.
func writeJSON(writer io.Writer, v any) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	_, _ = fmt.Fprintln(writer, string(jsonBytes))
	return nil
}
