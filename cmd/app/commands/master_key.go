package commands

import (
	"fmt"
	"io"
	"log/slog"

	cryptoDomain "github.com/sobebarali/useHely-sub006/internal/crypto/domain"
)

// RunCreateMasterKey generates 32 bytes of key material and prints them hex
// encoded. Nothing is stored; the output feeds bootstrap-key or rotate-key.
func RunCreateMasterKey(logger *slog.Logger, writer io.Writer, format string) error {
	material, err := cryptoDomain.NewKeyMaterial()
	if err != nil {
		return fmt.Errorf("failed to generate master key: %w", err)
	}
	defer cryptoDomain.Zero(material)

	encoded := cryptoDomain.KeyHex(material)

	if format == "json" {
		if err := writeJSON(writer, map[string]any{"key_hex": encoded, "size": len(material)}); err != nil {
			return err
		}
	} else {
		_, _ = fmt.Fprintln(writer, "# Master key material (hex). Store it in your secrets manager.")
		_, _ = fmt.Fprintln(writer, "# Pass it to bootstrap-key or rotate-key with --key-hex or MASTER_KEY_HEX.")
		_, _ = fmt.Fprintf(writer, "MASTER_KEY_HEX=\"%s\"\n", encoded)
	}

	logger.Info("master key material generated")
	return nil
}
