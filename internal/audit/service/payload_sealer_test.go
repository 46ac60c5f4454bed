package service

import (
	"crypto/rand"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/sobebarali/useHely-sub006/internal/audit/domain"
	cryptoDomain "github.com/sobebarali/useHely-sub006/internal/crypto/domain"
	cryptoService "github.com/sobebarali/useHely-sub006/internal/crypto/service"
)

func newMasterKey(t *testing.T, id uint64) *cryptoDomain.MasterKey {
	t.Helper()
	material := make([]byte, cryptoDomain.KeySize)
	_, err := rand.Read(material)
	require.NoError(t, err)
	return &cryptoDomain.MasterKey{
		ID:        id,
		Algorithm: cryptoDomain.AESGCM,
		Status:    cryptoDomain.KeyStatusActive,
		Material:  material,
	}
}

func newSealer() *PayloadSealer {
	return NewPayloadSealer(cryptoService.NewEngine(cryptoService.NewAEADManager()))
}

func TestPayloadSealer_RoundTrip(t *testing.T) {
	sealer := newSealer()
	key := newMasterKey(t, 4)
	payload := json.RawMessage(`{"diagnosis":"confidential"}`)

	sealed, err := sealer.Seal(key, "hospital-1", payload)
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "confidential")

	envelope, err := ParseEnvelope(sealed)
	require.NoError(t, err)
	assert.Equal(t, 1, envelope.Version)
	assert.Equal(t, uint64(4), envelope.KeyID)

	opened, err := sealer.Open(key, "hospital-1", sealed)
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(opened))
}

func TestPayloadSealer_EmptyPayload(t *testing.T) {
	sealer := newSealer()
	key := newMasterKey(t, 1)

	sealed, err := sealer.Seal(key, "hospital-1", nil)
	require.NoError(t, err)
	assert.Nil(t, sealed)

	opened, err := sealer.Open(key, "hospital-1", nil)
	require.NoError(t, err)
	assert.Nil(t, opened)
}

func TestPayloadSealer_Errors(t *testing.T) {
	sealer := newSealer()
	key := newMasterKey(t, 1)

	sealed, err := sealer.Seal(key, "hospital-1", json.RawMessage(`{"a":1}`))
	require.NoError(t, err)

	t.Run("Error_OtherTenant", func(t *testing.T) {
		_, err := sealer.Open(key, "hospital-2", sealed)
		assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
	})

	t.Run("Error_KeyIDMismatch", func(t *testing.T) {
		other := newMasterKey(t, 2)
		_, err := sealer.Open(other, "hospital-1", sealed)
		assert.ErrorIs(t, err, auditDomain.ErrMalformedPayload)
	})

	t.Run("Error_WrongMaterial", func(t *testing.T) {
		other := newMasterKey(t, 1)
		_, err := sealer.Open(other, "hospital-1", sealed)
		assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
	})

	t.Run("Error_MasterKeyIsNotThePayloadKey", func(t *testing.T) {
		envelope, err := ParseEnvelope(sealed)
		require.NoError(t, err)

		engine := cryptoService.NewEngine(cryptoService.NewAEADManager())
		_, err = engine.Open(key.Algorithm, key.Material, envelope.Ciphertext, payloadAAD("hospital-1"))
		assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)
	})

	t.Run("Error_MalformedEnvelope", func(t *testing.T) {
		_, err := sealer.Open(key, "hospital-1", json.RawMessage(`{"v":2,"key_id":1,"ciphertext":"x"}`))
		assert.ErrorIs(t, err, auditDomain.ErrMalformedPayload)

		_, err = sealer.Open(key, "hospital-1", json.RawMessage(`not json`))
		assert.ErrorIs(t, err, auditDomain.ErrMalformedPayload)
	})
}
