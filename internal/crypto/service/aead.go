package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	cryptoDomain "github.com/sobebarali/useHely-sub006/internal/crypto/domain"
)

// sealer wraps a cipher.AEAD and keeps the nonce in front of the sealed output,
// so every algorithm shares the nonce[12] || ciphertext || tag[16] layout.
type sealer struct {
	aead cipher.AEAD
}

func newAESGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// Seal draws a random nonce and returns it prefixed to the sealed plaintext.
func (s *sealer) Seal(plaintext, aad []byte) ([]byte, error) {
	nonceSize := s.aead.NonceSize()
	out := make([]byte, nonceSize, nonceSize+len(plaintext)+s.aead.Overhead())
	if _, err := rand.Read(out); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return s.aead.Seal(out, out[:nonceSize], plaintext, aad), nil
}

// Open splits the nonce off packed and authenticates the remainder.
func (s *sealer) Open(packed, aad []byte) ([]byte, error) {
	nonceSize := s.aead.NonceSize()
	if len(packed) < nonceSize+s.aead.Overhead() {
		return nil, cryptoDomain.ErrMalformedCiphertext
	}
	plaintext, err := s.aead.Open(nil, packed[:nonceSize], packed[nonceSize:], aad)
	if err != nil {
		return nil, fmt.Errorf("failed to open: %w", err)
	}
	return plaintext, nil
}
