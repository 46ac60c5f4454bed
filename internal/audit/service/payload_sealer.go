package service

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	auditDomain "github.com/sobebarali/useHely-sub006/internal/audit/domain"
	cryptoDomain "github.com/sobebarali/useHely-sub006/internal/crypto/domain"
	cryptoService "github.com/sobebarali/useHely-sub006/internal/crypto/service"
)

const (
	payloadEnvelopeVersion = 1
	payloadSubkeyInfo      = "audit-payload:v1"
)

// PayloadEnvelope is the stored form of a sealed audit payload.
type PayloadEnvelope struct {
	Version    int    `json:"v"`
	KeyID      uint64 `json:"key_id"`
	Ciphertext string `json:"ciphertext"`
}

// PayloadSealer encrypts audit details with a subkey derived from a master key, so
// audit payloads and field values never share a key.
type PayloadSealer struct {
	engine *cryptoService.Engine
}

// NewPayloadSealer creates a PayloadSealer.
func NewPayloadSealer(engine *cryptoService.Engine) *PayloadSealer {
	return &PayloadSealer{engine: engine}
}

// Seal encrypts payload for tenantID. Empty payloads stay empty.
func (s *PayloadSealer) Seal(key *cryptoDomain.MasterKey, tenantID string, payload json.RawMessage) (json.RawMessage, error) {
	if len(payload) == 0 {
		return nil, nil
	}

	subkey, err := deriveSubkey(key.Material)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(subkey)

	ciphertext, err := s.engine.Seal(key.Algorithm, subkey, payload, payloadAAD(tenantID))
	if err != nil {
		return nil, err
	}

	sealed, err := json.Marshal(PayloadEnvelope{
		Version:    payloadEnvelopeVersion,
		KeyID:      key.ID,
		Ciphertext: ciphertext,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload envelope: %w", err)
	}
	return sealed, nil
}

// Open decrypts a sealed payload. key must be the key named by the envelope.
func (s *PayloadSealer) Open(key *cryptoDomain.MasterKey, tenantID string, sealed json.RawMessage) (json.RawMessage, error) {
	if len(sealed) == 0 {
		return nil, nil
	}

	envelope, err := ParseEnvelope(sealed)
	if err != nil {
		return nil, err
	}
	if envelope.KeyID != key.ID {
		return nil, fmt.Errorf("envelope names key %d, got key %d: %w", envelope.KeyID, key.ID, auditDomain.ErrMalformedPayload)
	}

	subkey, err := deriveSubkey(key.Material)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(subkey)

	return s.engine.Open(key.Algorithm, subkey, envelope.Ciphertext, payloadAAD(tenantID))
}

// ParseEnvelope decodes and checks the version of a sealed payload.
func ParseEnvelope(sealed json.RawMessage) (*PayloadEnvelope, error) {
	var envelope PayloadEnvelope
	if err := json.Unmarshal(sealed, &envelope); err != nil {
		return nil, auditDomain.ErrMalformedPayload
	}
	if envelope.Version != payloadEnvelopeVersion || envelope.Ciphertext == "" {
		return nil, auditDomain.ErrMalformedPayload
	}
	return &envelope, nil
}

// deriveSubkey uses HKDF-SHA256 to derive the 32-byte payload key from master key material.
func deriveSubkey(material []byte) ([]byte, error) {
	if len(material) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrInvalidKey
	}

	reader := hkdf.New(sha256.New, material, nil, []byte(payloadSubkeyInfo))
	subkey := make([]byte, cryptoDomain.KeySize)
	if _, err := io.ReadFull(reader, subkey); err != nil {
		return nil, fmt.Errorf("failed to derive payload key: %w", err)
	}
	return subkey, nil
}

func payloadAAD(tenantID string) []byte {
	return []byte(payloadSubkeyInfo + "/" + tenantID)
}
