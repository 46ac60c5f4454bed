package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/sobebarali/useHely-sub006/internal/audit/domain"
	auditService "github.com/sobebarali/useHely-sub006/internal/audit/service"
	cryptoDomain "github.com/sobebarali/useHely-sub006/internal/crypto/domain"
	cryptoService "github.com/sobebarali/useHely-sub006/internal/crypto/service"
	cryptoUseCase "github.com/sobebarali/useHely-sub006/internal/crypto/usecase"
	"github.com/sobebarali/useHely-sub006/internal/testutil"
)

// testEnv wires the audit use cases to one in-memory store.
type testEnv struct {
	store    *testutil.MemoryStore
	wrapper  cryptoService.KeyWrapper
	registry cryptoUseCase.KeyRegistry
	sealer   *auditService.PayloadSealer
	writer   *writerUseCase
	verifier VerifierUseCase
	query    QueryUseCase
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := testutil.NewMemoryStore()
	engine := cryptoService.NewEngine(cryptoService.NewAEADManager())
	sealer := auditService.NewPayloadSealer(engine)

	env := &testEnv{store: store, wrapper: testutil.NewTestKeyWrapper(t), sealer: sealer}
	env.registry = env.newRegistry()
	env.writer = env.newWriter(store.Audit(), 5)
	env.verifier = NewVerifierUseCase(VerifierConfig{Concurrency: 2}, store.Audit(), testutil.NewTestLogger())
	env.query = NewQueryUseCase(store.Audit(), env.registry, sealer)
	return env
}

// newRegistry returns another registry over the same store, as a second process would hold.
func (e *testEnv) newRegistry() cryptoUseCase.KeyRegistry {
	return cryptoUseCase.NewKeyRegistryUseCase(
		e.store,
		e.store.MasterKeys(),
		e.store.RotationJobs(),
		e.wrapper,
		testutil.NewTestLogger(),
		e.store.Fields(),
		e.store.Audit(),
	)
}

// newWriter returns a writer with its own tenant locks, as another process would hold.
func (e *testEnv) newWriter(repo AuditRepository, maxAttempts int) *writerUseCase {
	w := NewWriterUseCase(
		WriterConfig{MaxAttempts: maxAttempts},
		e.store,
		repo,
		e.registry,
		e.sealer,
		testutil.NewTestLogger(),
	).(*writerUseCase)
	w.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return w
}

func (e *testEnv) bootstrap(t *testing.T) *cryptoDomain.MasterKey {
	t.Helper()
	key, err := e.registry.Bootstrap(context.Background(), testutil.NewTestKeyMaterial(t), cryptoDomain.AESGCM)
	require.NoError(t, err)
	return key
}

func newInput(eventType string) *auditDomain.AppendInput {
	return &auditDomain.AppendInput{
		EventType:    eventType,
		Category:     auditDomain.CategoryPHI,
		ActorID:      "user-1",
		ActorName:    "Dr. Grey",
		ResourceType: "patient",
		ResourceID:   "p-1",
		Action:       auditDomain.ActionRead,
		IP:           "10.0.0.1",
		UserAgent:    "test-agent",
		SessionID:    "s-1",
		Details:      json.RawMessage(`{"field":"diagnosis"}`),
	}
}

// appendN appends n entries to tenantID and returns them in order.
func (e *testEnv) appendN(t *testing.T, tenantID string, n int) []*auditDomain.AuditEntry {
	t.Helper()
	entries := make([]*auditDomain.AuditEntry, 0, n)
	for i := range n {
		entry, err := e.writer.Append(context.Background(), tenantID, newInput(fmt.Sprintf("patient.viewed.%d", i)))
		require.NoError(t, err)
		entries = append(entries, entry)
	}
	return entries
}
