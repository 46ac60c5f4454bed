package service

import (
	"encoding/base64"
	"fmt"

	cryptoDomain "github.com/sobebarali/useHely-sub006/internal/crypto/domain"
)

// Engine encrypts and decrypts EncryptedValue blobs.
//
// Wire format: base64(nonce[12] || ciphertext || tag[16]), standard padded
// alphabet. The blob carries no key identifier; callers persist the key id
// alongside it. Engine holds no state and is safe for concurrent use.
type Engine struct {
	aeadManager AEADManager
}

// NewEngine creates an Engine that builds ciphers through aeadManager.
func NewEngine(aeadManager AEADManager) *Engine {
	return &Engine{aeadManager: aeadManager}
}

// Encrypt seals plaintext with AES-256-GCM under key.
func (e *Engine) Encrypt(plaintext, key []byte) (string, error) {
	return e.Seal(cryptoDomain.AESGCM, key, plaintext, nil)
}

// Decrypt opens an AES-256-GCM blob under key.
func (e *Engine) Decrypt(blob string, key []byte) ([]byte, error) {
	return e.Open(cryptoDomain.AESGCM, key, blob, nil)
}

// EncryptWithKey seals plaintext with the master key's algorithm and material.
func (e *Engine) EncryptWithKey(key *cryptoDomain.MasterKey, plaintext, aad []byte) (string, error) {
	return e.Seal(key.Algorithm, key.Material, plaintext, aad)
}

// DecryptWithKey opens blob with the master key's algorithm and material.
func (e *Engine) DecryptWithKey(key *cryptoDomain.MasterKey, blob string, aad []byte) ([]byte, error) {
	return e.Open(key.Algorithm, key.Material, blob, aad)
}

// Seal encrypts plaintext under a fresh random nonce and returns the wire blob.
func (e *Engine) Seal(alg cryptoDomain.Algorithm, key, plaintext, aad []byte) (string, error) {
	cipher, err := e.aeadManager.CreateCipher(key, alg)
	if err != nil {
		return "", err
	}

	packed, err := cipher.Seal(plaintext, aad)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt value: %w", err)
	}

	return base64.StdEncoding.EncodeToString(packed), nil
}

// Open decodes and authenticates blob, returning the plaintext only if the tag verifies.
//
// Malformed input is rejected with ErrMalformedCiphertext before a cipher is built.
// A tag mismatch returns ErrDecryptionFailed and never any plaintext.
func (e *Engine) Open(alg cryptoDomain.Algorithm, key []byte, blob string, aad []byte) ([]byte, error) {
	if len(key) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrInvalidKey
	}

	packed, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, cryptoDomain.ErrMalformedCiphertext
	}
	if len(packed) < cryptoDomain.MinCiphertextSize {
		return nil, cryptoDomain.ErrMalformedCiphertext
	}

	cipher, err := e.aeadManager.CreateCipher(key, alg)
	if err != nil {
		return nil, err
	}

	plaintext, err := cipher.Open(packed, aad)
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}

	return plaintext, nil
}
