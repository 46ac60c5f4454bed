package service

import (
	"crypto/cipher"

	"golang.org/x/crypto/chacha20poly1305"

	cryptoDomain "github.com/sobebarali/useHely-sub006/internal/crypto/domain"
)

var cipherFactories = map[cryptoDomain.Algorithm]func(key []byte) (cipher.AEAD, error){
	cryptoDomain.AESGCM:   newAESGCM,
	cryptoDomain.ChaCha20: chacha20poly1305.New,
}

// AEADManagerService builds AEAD ciphers for the algorithms a master key may carry.
type AEADManagerService struct{}

// NewAEADManager creates a new AEADManagerService.
func NewAEADManager() *AEADManagerService {
	return &AEADManagerService{}
}

// CreateCipher returns ErrInvalidKey for keys that are not 32 bytes and
// ErrUnsupportedAlgorithm for algorithms outside the registry.
func (am *AEADManagerService) CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error) {
	if len(key) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrInvalidKey
	}
	factory, ok := cipherFactories[alg]
	if !ok {
		return nil, cryptoDomain.ErrUnsupportedAlgorithm
	}
	aead, err := factory(key)
	if err != nil {
		return nil, err
	}
	return &sealer{aead: aead}, nil
}
