package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKeyMaterial(t *testing.T) {
	a, err := NewKeyMaterial()
	require.NoError(t, err)
	b, err := NewKeyMaterial()
	require.NoError(t, err)

	assert.Len(t, a, KeySize)
	assert.Len(t, b, KeySize)
	assert.NotEqual(t, a, b)
}

func TestKeyHex(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		material, err := NewKeyMaterial()
		require.NoError(t, err)

		encoded := KeyHex(material)
		assert.Len(t, encoded, 64)
		assert.Equal(t, strings.ToLower(encoded), encoded)

		decoded, err := ParseKeyHex(encoded)
		require.NoError(t, err)
		assert.Equal(t, material, decoded)
	})

	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "too short", input: strings.Repeat("a", 62)},
		{name: "too long", input: strings.Repeat("a", 66)},
		{name: "uppercase", input: strings.Repeat("A", 64)},
		{name: "non hex", input: strings.Repeat("g", 64)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseKeyHex(tt.input)
			assert.ErrorIs(t, err, ErrInvalidKeyHex)
		})
	}
}

func TestMasterKey_CanDecrypt(t *testing.T) {
	material := make([]byte, KeySize)

	assert.True(t, (&MasterKey{Status: KeyStatusActive, Material: material}).CanDecrypt())
	assert.True(t, (&MasterKey{Status: KeyStatusRetired, Material: material}).CanDecrypt())
	assert.False(t, (&MasterKey{Status: KeyStatusDecommissioned, Material: material}).CanDecrypt())
	assert.False(t, (&MasterKey{Status: KeyStatusRetired}).CanDecrypt())
}

func TestMasterKey_StringOmitsMaterial(t *testing.T) {
	key := &MasterKey{
		ID:        3,
		Algorithm: AESGCM,
		Status:    KeyStatusActive,
		Material:  []byte(strings.Repeat("s", KeySize)),
		CreatedAt: time.Now(),
	}

	s := key.String()
	assert.Equal(t, "MasterKey{id=3, algorithm=aes-gcm, status=ACTIVE}", s)
	assert.NotContains(t, s, "sss")
}

func TestAlgorithm_Valid(t *testing.T) {
	assert.True(t, AESGCM.Valid())
	assert.True(t, ChaCha20.Valid())
	assert.False(t, Algorithm("des").Valid())
}

func TestRotationJob_LeaseActive(t *testing.T) {
	now := time.Now()

	running := &RotationJob{Status: RotationJobRunning, LeaseExpiresAt: now.Add(time.Minute)}
	assert.True(t, running.LeaseActive(now))

	expired := &RotationJob{Status: RotationJobRunning, LeaseExpiresAt: now.Add(-time.Second)}
	assert.False(t, expired.LeaseActive(now))

	completed := &RotationJob{Status: RotationJobCompleted, LeaseExpiresAt: now.Add(time.Minute)}
	assert.False(t, completed.LeaseActive(now))
}

func TestFieldAAD(t *testing.T) {
	id := uuid.MustParse("0190d3f4-8a2b-7c3d-9e4f-5a6b7c8d9e0f")
	assert.Equal(t, []byte("hospital-a/0190d3f4-8a2b-7c3d-9e4f-5a6b7c8d9e0f"), FieldAAD("hospital-a", id))
	assert.NotEqual(t, FieldAAD("hospital-a", id), FieldAAD("hospital-b", id))
}

func TestZero(t *testing.T) {
	material, err := NewKeyMaterial()
	require.NoError(t, err)

	Zero(material)
	assert.Equal(t, make([]byte, KeySize), material)
	assert.NotPanics(t, func() { Zero(nil) })
}
