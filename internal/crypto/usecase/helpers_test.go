package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/sobebarali/useHely-sub006/internal/crypto/domain"
	cryptoService "github.com/sobebarali/useHely-sub006/internal/crypto/service"
	"github.com/sobebarali/useHely-sub006/internal/testutil"
)

// testEnv wires the crypto use cases to one in-memory store.
type testEnv struct {
	store    *testutil.MemoryStore
	wrapper  cryptoService.KeyWrapper
	registry KeyRegistry
	engine   *cryptoService.Engine
	fields   FieldUseCase
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := testutil.NewMemoryStore()
	wrapper := testutil.NewTestKeyWrapper(t)
	engine := cryptoService.NewEngine(cryptoService.NewAEADManager())

	env := &testEnv{store: store, wrapper: wrapper, engine: engine}
	env.registry = env.newRegistry()
	env.fields = NewFieldUseCase(env.registry, store.Fields(), engine)
	return env
}

// newRegistry returns another registry over the same store, as a second process would hold.
func (e *testEnv) newRegistry() KeyRegistry {
	return NewKeyRegistryUseCase(
		e.store,
		e.store.MasterKeys(),
		e.store.RotationJobs(),
		e.wrapper,
		testutil.NewTestLogger(),
		e.store.Fields(),
		e.store.Audit(),
	)
}

func (e *testEnv) bootstrap(t *testing.T) *cryptoDomain.MasterKey {
	t.Helper()
	key, err := e.registry.Bootstrap(context.Background(), testutil.NewTestKeyMaterial(t), cryptoDomain.AESGCM)
	require.NoError(t, err)
	return key
}

func (e *testEnv) protect(t *testing.T, tenantID, value string) *cryptoDomain.EncryptedField {
	t.Helper()
	field, err := e.fields.Protect(context.Background(), tenantID, cryptoDomain.FieldRef{
		ResourceType: "patient",
		ResourceID:   "p-1",
		FieldName:    "ssn",
	}, []byte(value))
	require.NoError(t, err)
	return field
}
