package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	cryptoDomain "github.com/sobebarali/useHely-sub006/internal/crypto/domain"
	cryptoUseCase "github.com/sobebarali/useHely-sub006/internal/crypto/usecase"
)

// RunBootstrapKey installs key 1 as the ACTIVE master key of an empty registry.
// The material is wrapped by the configured KMS keeper before it is stored.
func RunBootstrapKey(
	ctx context.Context,
	registry cryptoUseCase.KeyRegistry,
	logger *slog.Logger,
	writer io.Writer,
	keyHex, algorithm, format string,
) error {
	alg, err := parseAlgorithm(algorithm)
	if err != nil {
		return err
	}

	material, err := parseKeyHex(keyHex)
	if err != nil {
		return err
	}
	defer cryptoDomain.Zero(material)

	key, err := registry.Bootstrap(ctx, material, alg)
	if err != nil {
		return fmt.Errorf("failed to bootstrap master key: %w", err)
	}

	logger.Info("master key bootstrapped",
		slog.Uint64("key_id", key.ID),
		slog.String("algorithm", string(key.Algorithm)),
	)

	if format == "json" {
		return writeJSON(writer, keyOutput(key))
	}
	_, _ = fmt.Fprintf(writer, "Master key %d is ACTIVE (%s)\n", key.ID, key.Algorithm)
	return nil
}

// RunDecommissionKey erases the material of a RETIRED key that no stored value
// references.
func RunDecommissionKey(
	ctx context.Context,
	registry cryptoUseCase.KeyRegistry,
	logger *slog.Logger,
	writer io.Writer,
	keyID uint64,
) error {
	if keyID == 0 {
		return fmt.Errorf("key id must be a positive number")
	}

	if err := registry.Decommission(ctx, keyID); err != nil {
		return fmt.Errorf("failed to decommission master key %d: %w", keyID, err)
	}

	logger.Info("master key decommissioned", slog.Uint64("key_id", keyID))
	_, _ = fmt.Fprintf(writer, "Master key %d decommissioned\n", keyID)
	return nil
}

func keyOutput(key *cryptoDomain.MasterKey) map[string]any {
	return map[string]any{
		"key_id":     key.ID,
		"algorithm":  key.Algorithm,
		"status":     key.Status,
		"created_at": key.CreatedAt,
	}
}
