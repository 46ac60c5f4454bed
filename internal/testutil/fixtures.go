package testutil

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/sobebarali/useHely-sub006/internal/crypto/domain"
	cryptoService "github.com/sobebarali/useHely-sub006/internal/crypto/service"
)

// NewTestLogger returns a logger that discards output.
func NewTestLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// NewTestKeyMaterial returns fresh 32 byte master key material.
func NewTestKeyMaterial(t *testing.T) []byte {
	t.Helper()
	material, err := cryptoDomain.NewKeyMaterial()
	require.NoError(t, err)
	return material
}

// NewLocalSecretsURI returns a base64key:// keeper URI with a random key.
func NewLocalSecretsURI(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return "base64key://" + base64.URLEncoding.EncodeToString(key)
}

// NewTestKeyWrapper returns a key wrapper backed by a local secrets keeper that
// is closed when the test ends.
func NewTestKeyWrapper(t *testing.T) *cryptoService.KeeperKeyWrapper {
	t.Helper()
	keeper, err := cryptoService.NewKMSService().OpenKeeper(context.Background(), NewLocalSecretsURI(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = keeper.Close() })
	return cryptoService.NewKeyWrapper(keeper)
}
