package service

import (
	"context"
	"fmt"

	cryptoDomain "github.com/sobebarali/useHely-sub006/internal/crypto/domain"
)

// KeeperKeyWrapper wraps master key material with a KMS keeper so the key store
// never holds cleartext material.
type KeeperKeyWrapper struct {
	keeper KMSKeeper
}

// NewKeyWrapper creates a KeyWrapper backed by keeper.
func NewKeyWrapper(keeper KMSKeeper) *KeeperKeyWrapper {
	return &KeeperKeyWrapper{keeper: keeper}
}

// Wrap encrypts key.Material into key.WrappedMaterial.
func (w *KeeperKeyWrapper) Wrap(ctx context.Context, key *cryptoDomain.MasterKey) error {
	if len(key.Material) != cryptoDomain.KeySize {
		return cryptoDomain.ErrInvalidKey
	}

	wrapped, err := w.keeper.Encrypt(ctx, key.Material)
	if err != nil {
		return fmt.Errorf("failed to wrap master key %d: %w", key.ID, err)
	}

	key.WrappedMaterial = wrapped
	return nil
}

// Unwrap decrypts key.WrappedMaterial into key.Material.
func (w *KeeperKeyWrapper) Unwrap(ctx context.Context, key *cryptoDomain.MasterKey) error {
	material, err := w.keeper.Decrypt(ctx, key.WrappedMaterial)
	if err != nil {
		return fmt.Errorf("failed to unwrap master key %d: %w", key.ID, err)
	}

	if len(material) != cryptoDomain.KeySize {
		cryptoDomain.Zero(material)
		return fmt.Errorf("unwrapped master key %d: %w", key.ID, cryptoDomain.ErrInvalidKey)
	}

	key.Material = material
	return nil
}
