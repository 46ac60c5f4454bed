// Package service provides the cryptographic primitives behind field encryption:
// AEAD ciphers (AES-256-GCM, ChaCha20-Poly1305), the EncryptedValue wire codec and
// KMS wrapping of master key material.
package service

import (
	"context"

	cryptoDomain "github.com/sobebarali/useHely-sub006/internal/crypto/domain"
)

// AEAD seals and opens nonce-prefixed buffers.
type AEAD interface {
	// Seal returns nonce || ciphertext || tag for plaintext bound to aad.
	Seal(plaintext, aad []byte) ([]byte, error)

	// Open authenticates packed against aad and returns the plaintext.
	Open(packed, aad []byte) ([]byte, error)
}

// AEADManager defines the interface for creating AEAD cipher instances.
type AEADManager interface {
	// CreateCipher creates an AEAD cipher instance for the specified algorithm.
	CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error)
}

// KMSKeeper is the subset of *secrets.Keeper used to wrap master key material.
type KMSKeeper interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}

// KMSService opens keepers for a gocloud.dev secrets URI.
type KMSService interface {
	// OpenKeeper opens a keeper for the configured KMS provider.
	// Returns an error if the KMS provider URI is invalid or connection fails.
	OpenKeeper(ctx context.Context, keyURI string) (KMSKeeper, error)
}

// KeyWrapper moves master key material in and out of its KMS-wrapped form.
type KeyWrapper interface {
	// Wrap sets key.WrappedMaterial from key.Material.
	Wrap(ctx context.Context, key *cryptoDomain.MasterKey) error

	// Unwrap sets key.Material from key.WrappedMaterial.
	Unwrap(ctx context.Context, key *cryptoDomain.MasterKey) error
}
