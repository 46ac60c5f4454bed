package domain

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// KeyStatus is the lifecycle state of a MasterKey.
type KeyStatus string

const (
	// KeyStatusPending marks a registered key that is not yet used for new writes.
	KeyStatusPending KeyStatus = "PENDING"
	// KeyStatusActive marks the single key used for new writes.
	KeyStatusActive KeyStatus = "ACTIVE"
	// KeyStatusRetired marks a former active key kept for historical decryption.
	KeyStatusRetired KeyStatus = "RETIRED"
	// KeyStatusDecommissioned marks a retired key whose material has been erased.
	KeyStatusDecommissioned KeyStatus = "DECOMMISSIONED"
)

// MasterKey is a versioned symmetric key used to encrypt field values.
//
// Material is only ever held in memory. The store persists WrappedMaterial, which
// is Material encrypted by the KMS keeper.
type MasterKey struct {
	ID              uint64
	Algorithm       Algorithm
	Status          KeyStatus
	Material        []byte
	WrappedMaterial []byte
	CreatedAt       time.Time
	RetiredAt       *time.Time
}

// CanDecrypt reports whether the key may still be used to open stored values.
func (k *MasterKey) CanDecrypt() bool {
	return k.Status != KeyStatusDecommissioned && len(k.Material) == KeySize
}

// String never includes key material.
func (k *MasterKey) String() string {
	return fmt.Sprintf("MasterKey{id=%d, algorithm=%s, status=%s}", k.ID, k.Algorithm, k.Status)
}

// ActiveKeyPointer is the single row naming the current ACTIVE key.
type ActiveKeyPointer struct {
	KeyID     uint64
	UpdatedAt time.Time
}

// NewKeyMaterial returns 32 bytes from the system CSPRNG.
func NewKeyMaterial() ([]byte, error) {
	material := make([]byte, KeySize)
	if _, err := rand.Read(material); err != nil {
		return nil, fmt.Errorf("failed to generate key material: %w", err)
	}
	return material, nil
}

// ParseKeyHex decodes the 64 character lowercase hex form of a master key.
func ParseKeyHex(s string) ([]byte, error) {
	if len(s) != 2*KeySize {
		return nil, ErrInvalidKeyHex
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return nil, ErrInvalidKeyHex
		}
	}
	material, err := hex.DecodeString(s)
	if err != nil {
		return nil, ErrInvalidKeyHex
	}
	return material, nil
}

// KeyHex encodes key material in its external 64 character lowercase hex form.
func KeyHex(material []byte) string {
	return hex.EncodeToString(material)
}

// Zero overwrites plaintext or key material once the caller is done with it.
func Zero(b []byte) {
	clear(b)
}
