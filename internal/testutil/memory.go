package testutil

import (
	"bytes"
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/sobebarali/useHely-sub006/internal/audit/domain"
	cryptoDomain "github.com/sobebarali/useHely-sub006/internal/crypto/domain"
	apperrors "github.com/sobebarali/useHely-sub006/internal/errors"
)

// memoryTx marks a context that already holds the store lock.
type memoryTx struct{}

// memoryState is every table of the store. Rows are held by value so a shallow
// map copy is a consistent snapshot.
type memoryState struct {
	keys      map[uint64]cryptoDomain.MasterKey
	nextKeyID uint64
	pointer   *cryptoDomain.ActiveKeyPointer
	fields    map[uuid.UUID]cryptoDomain.EncryptedField
	jobs      map[uuid.UUID]cryptoDomain.RotationJob
	records   []cryptoDomain.RotationRecord
	tails     map[string]auditDomain.ChainTail
	entries   map[string]map[uint64]auditDomain.AuditEntry
}

func newMemoryState() *memoryState {
	return &memoryState{
		keys:      make(map[uint64]cryptoDomain.MasterKey),
		nextKeyID: 1,
		fields:    make(map[uuid.UUID]cryptoDomain.EncryptedField),
		jobs:      make(map[uuid.UUID]cryptoDomain.RotationJob),
		tails:     make(map[string]auditDomain.ChainTail),
		entries:   make(map[string]map[uint64]auditDomain.AuditEntry),
	}
}

func (s *memoryState) clone() *memoryState {
	next := &memoryState{
		keys:      maps.Clone(s.keys),
		nextKeyID: s.nextKeyID,
		fields:    maps.Clone(s.fields),
		jobs:      maps.Clone(s.jobs),
		records:   slices.Clone(s.records),
		tails:     maps.Clone(s.tails),
		entries:   make(map[string]map[uint64]auditDomain.AuditEntry, len(s.entries)),
	}
	if s.pointer != nil {
		pointer := *s.pointer
		next.pointer = &pointer
	}
	for tenantID, chain := range s.entries {
		next.entries[tenantID] = maps.Clone(chain)
	}
	return next
}

// MemoryStore is an in-memory stand-in for the SQL stores used by use case tests.
// It honors the same conditional writes as the SQL repositories: the active key
// pointer swap, the chain tail compare-and-swap, lease-owned rotation progress and
// key-conditional re-encryption.
//
// WithTx serializes transactions and rolls every table back when fn fails.
// Nested WithTx calls join the outer transaction.
type MemoryStore struct {
	mu    sync.Mutex
	state *memoryState
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemoryState()}
}

// WithTx implements database.TxManager.
func (s *MemoryStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	saved := s.state.clone()
	if err := fn(context.WithValue(ctx, memoryTx{}, s)); err != nil {
		s.state = saved
		return err
	}
	return nil
}

func (s *MemoryStore) inTx(ctx context.Context) bool {
	store, _ := ctx.Value(memoryTx{}).(*MemoryStore)
	return store == s
}

// lock takes the store lock unless ctx runs inside one of its transactions.
func (s *MemoryStore) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// MasterKeys returns the master key repository view.
func (s *MemoryStore) MasterKeys() *MemoryMasterKeyRepository {
	return &MemoryMasterKeyRepository{store: s}
}

// Fields returns the encrypted field repository view.
func (s *MemoryStore) Fields() *MemoryEncryptedFieldRepository {
	return &MemoryEncryptedFieldRepository{store: s}
}

// RotationJobs returns the rotation job repository view.
func (s *MemoryStore) RotationJobs() *MemoryRotationJobRepository {
	return &MemoryRotationJobRepository{store: s}
}

// Audit returns the audit chain repository view.
func (s *MemoryStore) Audit() *MemoryAuditRepository {
	return &MemoryAuditRepository{store: s}
}

// UpdateAuditEntry rewrites a stored entry in place, bypassing the writer. It
// reports whether the entry existed.
func (s *MemoryStore) UpdateAuditEntry(tenantID string, sequenceNo uint64, mutate func(*auditDomain.AuditEntry)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.state.entries[tenantID][sequenceNo]
	if !ok {
		return false
	}
	mutate(&entry)
	s.state.entries[tenantID][sequenceNo] = entry
	return true
}

// DeleteAuditEntry removes a stored entry, bypassing the writer.
func (s *MemoryStore) DeleteAuditEntry(tenantID string, sequenceNo uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.state.entries[tenantID], sequenceNo)
}

// SetAuditTail overwrites a tenant's tail row.
func (s *MemoryStore) SetAuditTail(tail auditDomain.ChainTail) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.tails[tail.TenantID] = tail
}

// AuditEntryCount returns how many entries the tenant's chain holds.
func (s *MemoryStore) AuditEntryCount(tenantID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.state.entries[tenantID])
}

// UpdateField rewrites a stored field in place.
func (s *MemoryStore) UpdateField(id uuid.UUID, mutate func(*cryptoDomain.EncryptedField)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	field, ok := s.state.fields[id]
	if !ok {
		return false
	}
	mutate(&field)
	s.state.fields[id] = field
	return true
}

// MemoryMasterKeyRepository stores master keys. Material is never persisted.
type MemoryMasterKeyRepository struct {
	store *MemoryStore
}

func copyKey(key cryptoDomain.MasterKey) *cryptoDomain.MasterKey {
	key.Material = nil
	key.WrappedMaterial = bytes.Clone(key.WrappedMaterial)
	return &key
}

// Create assigns the next key id.
func (r *MemoryMasterKeyRepository) Create(ctx context.Context, key *cryptoDomain.MasterKey) error {
	defer r.store.lock(ctx)()

	state := r.store.state
	key.ID = state.nextKeyID
	state.nextKeyID++
	state.keys[key.ID] = *copyKey(*key)
	return nil
}

func (r *MemoryMasterKeyRepository) Get(ctx context.Context, id uint64) (*cryptoDomain.MasterKey, error) {
	defer r.store.lock(ctx)()

	key, ok := r.store.state.keys[id]
	if !ok {
		return nil, cryptoDomain.ErrUnknownKey
	}
	return copyKey(key), nil
}

// GetForUpdate is Get; the store lock already serializes transactions.
func (r *MemoryMasterKeyRepository) GetForUpdate(ctx context.Context, id uint64) (*cryptoDomain.MasterKey, error) {
	return r.Get(ctx, id)
}

func (r *MemoryMasterKeyRepository) List(ctx context.Context) ([]*cryptoDomain.MasterKey, error) {
	defer r.store.lock(ctx)()

	ids := slices.Sorted(maps.Keys(r.store.state.keys))
	keys := make([]*cryptoDomain.MasterKey, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, copyKey(r.store.state.keys[id]))
	}
	return keys, nil
}

func (r *MemoryMasterKeyRepository) UpdateStatus(ctx context.Context, key *cryptoDomain.MasterKey) error {
	defer r.store.lock(ctx)()

	stored, ok := r.store.state.keys[key.ID]
	if !ok {
		return cryptoDomain.ErrUnknownKey
	}
	stored.Status = key.Status
	stored.RetiredAt = key.RetiredAt
	stored.WrappedMaterial = bytes.Clone(key.WrappedMaterial)
	r.store.state.keys[key.ID] = stored
	return nil
}

func (r *MemoryMasterKeyRepository) GetActivePointer(ctx context.Context) (*cryptoDomain.ActiveKeyPointer, error) {
	defer r.store.lock(ctx)()

	if r.store.state.pointer == nil {
		return nil, cryptoDomain.ErrNoActiveKey
	}
	pointer := *r.store.state.pointer
	return &pointer, nil
}

// LockActivePointer is GetActivePointer; the store lock already serializes transactions.
func (r *MemoryMasterKeyRepository) LockActivePointer(ctx context.Context) (*cryptoDomain.ActiveKeyPointer, error) {
	return r.GetActivePointer(ctx)
}

func (r *MemoryMasterKeyRepository) InitActivePointer(ctx context.Context, keyID uint64, now time.Time) error {
	defer r.store.lock(ctx)()

	if r.store.state.pointer != nil {
		return cryptoDomain.ErrActivePointerChanged
	}
	r.store.state.pointer = &cryptoDomain.ActiveKeyPointer{KeyID: keyID, UpdatedAt: now}
	return nil
}

func (r *MemoryMasterKeyRepository) SwapActivePointer(ctx context.Context, expected, next uint64, now time.Time) error {
	defer r.store.lock(ctx)()

	pointer := r.store.state.pointer
	if pointer == nil || pointer.KeyID != expected {
		return cryptoDomain.ErrActivePointerChanged
	}
	r.store.state.pointer = &cryptoDomain.ActiveKeyPointer{KeyID: next, UpdatedAt: now}
	return nil
}

// MemoryEncryptedFieldRepository stores encrypted fields ordered by id.
type MemoryEncryptedFieldRepository struct {
	store *MemoryStore
}

func (r *MemoryEncryptedFieldRepository) Create(ctx context.Context, field *cryptoDomain.EncryptedField) error {
	defer r.store.lock(ctx)()

	if _, ok := r.store.state.fields[field.ID]; ok {
		return apperrors.Wrap(apperrors.ErrConflict, "encrypted field already exists")
	}
	r.store.state.fields[field.ID] = *field
	return nil
}

func (r *MemoryEncryptedFieldRepository) Get(
	ctx context.Context,
	tenantID string,
	id uuid.UUID,
) (*cryptoDomain.EncryptedField, error) {
	defer r.store.lock(ctx)()

	field, ok := r.store.state.fields[id]
	if !ok || field.TenantID != tenantID {
		return nil, cryptoDomain.ErrFieldNotFound
	}
	return &field, nil
}

func (r *MemoryEncryptedFieldRepository) Update(ctx context.Context, field *cryptoDomain.EncryptedField) error {
	defer r.store.lock(ctx)()

	stored, ok := r.store.state.fields[field.ID]
	if !ok || stored.TenantID != field.TenantID {
		return cryptoDomain.ErrFieldNotFound
	}
	stored.KeyID = field.KeyID
	stored.Ciphertext = field.Ciphertext
	stored.UpdatedAt = field.UpdatedAt
	r.store.state.fields[field.ID] = stored
	return nil
}

func (r *MemoryEncryptedFieldRepository) ListByKey(
	ctx context.Context,
	keyID uint64,
	after uuid.UUID,
	limit int,
) ([]*cryptoDomain.EncryptedField, error) {
	defer r.store.lock(ctx)()

	ids := slices.SortedFunc(maps.Keys(r.store.state.fields), func(a, b uuid.UUID) int {
		return bytes.Compare(a[:], b[:])
	})

	fields := make([]*cryptoDomain.EncryptedField, 0, limit)
	for _, id := range ids {
		if len(fields) == limit {
			break
		}
		field := r.store.state.fields[id]
		if field.KeyID != keyID || bytes.Compare(id[:], after[:]) <= 0 {
			continue
		}
		fields = append(fields, &field)
	}
	return fields, nil
}

func (r *MemoryEncryptedFieldRepository) ReEncrypt(
	ctx context.Context,
	field *cryptoDomain.EncryptedField,
	toKeyID uint64,
	ciphertext string,
	now time.Time,
) (bool, error) {
	defer r.store.lock(ctx)()

	stored, ok := r.store.state.fields[field.ID]
	if !ok || stored.KeyID != field.KeyID || stored.Ciphertext != field.Ciphertext {
		return false, nil
	}
	stored.KeyID = toKeyID
	stored.Ciphertext = ciphertext
	stored.UpdatedAt = now
	r.store.state.fields[field.ID] = stored
	return true, nil
}

func (r *MemoryEncryptedFieldRepository) CountByKey(ctx context.Context, keyID uint64) (int64, error) {
	defer r.store.lock(ctx)()

	var count int64
	for _, field := range r.store.state.fields {
		if field.KeyID == keyID {
			count++
		}
	}
	return count, nil
}

// MemoryRotationJobRepository stores rotation jobs and the rotation ledger.
type MemoryRotationJobRepository struct {
	store *MemoryStore
}

func (r *MemoryRotationJobRepository) running() (cryptoDomain.RotationJob, bool) {
	for _, job := range r.store.state.jobs {
		if job.Status == cryptoDomain.RotationJobRunning {
			return job, true
		}
	}
	return cryptoDomain.RotationJob{}, false
}

func (r *MemoryRotationJobRepository) Create(ctx context.Context, job *cryptoDomain.RotationJob) error {
	defer r.store.lock(ctx)()

	if _, ok := r.running(); ok {
		return cryptoDomain.ErrRotationInProgress
	}
	r.store.state.jobs[job.ID] = *job
	return nil
}

func (r *MemoryRotationJobRepository) GetRunning(ctx context.Context) (*cryptoDomain.RotationJob, error) {
	defer r.store.lock(ctx)()

	job, ok := r.running()
	if !ok {
		return nil, cryptoDomain.ErrRotationJobNotFound
	}
	return &job, nil
}

func (r *MemoryRotationJobRepository) ClaimLease(
	ctx context.Context,
	id, owner uuid.UUID,
	now, leaseUntil time.Time,
) (bool, error) {
	defer r.store.lock(ctx)()

	job, ok := r.store.state.jobs[id]
	if !ok || job.Status != cryptoDomain.RotationJobRunning || job.LeaseExpiresAt.After(now) {
		return false, nil
	}
	job.LeaseOwner = owner
	job.LeaseExpiresAt = leaseUntil
	r.store.state.jobs[id] = job
	return true, nil
}

func (r *MemoryRotationJobRepository) owned(job *cryptoDomain.RotationJob) (cryptoDomain.RotationJob, bool) {
	stored, ok := r.store.state.jobs[job.ID]
	if !ok || stored.Status != cryptoDomain.RotationJobRunning || stored.LeaseOwner != job.LeaseOwner {
		return cryptoDomain.RotationJob{}, false
	}
	return stored, true
}

func (r *MemoryRotationJobRepository) UpdateProgress(ctx context.Context, job *cryptoDomain.RotationJob) (bool, error) {
	defer r.store.lock(ctx)()

	stored, ok := r.owned(job)
	if !ok {
		return false, nil
	}
	stored.Checkpoint = job.Checkpoint
	stored.RecordsReEncrypted = job.RecordsReEncrypted
	stored.LeaseExpiresAt = job.LeaseExpiresAt
	r.store.state.jobs[job.ID] = stored
	return true, nil
}

func (r *MemoryRotationJobRepository) ReleaseLease(
	ctx context.Context,
	job *cryptoDomain.RotationJob,
	now time.Time,
) error {
	defer r.store.lock(ctx)()

	stored, ok := r.owned(job)
	if !ok {
		return nil
	}
	stored.LeaseExpiresAt = now
	r.store.state.jobs[job.ID] = stored
	return nil
}

func (r *MemoryRotationJobRepository) Complete(ctx context.Context, job *cryptoDomain.RotationJob) (bool, error) {
	defer r.store.lock(ctx)()

	stored, ok := r.owned(job)
	if !ok {
		return false, nil
	}
	stored.Status = cryptoDomain.RotationJobCompleted
	stored.Checkpoint = job.Checkpoint
	stored.RecordsReEncrypted = job.RecordsReEncrypted
	stored.CompletedAt = job.CompletedAt
	r.store.state.jobs[job.ID] = stored
	return true, nil
}

func (r *MemoryRotationJobRepository) CreateRecord(ctx context.Context, record *cryptoDomain.RotationRecord) error {
	defer r.store.lock(ctx)()

	r.store.state.records = append(r.store.state.records, *record)
	return nil
}

// ListRecords returns records newest first.
func (r *MemoryRotationJobRepository) ListRecords(
	ctx context.Context,
	offset, limit int,
) ([]*cryptoDomain.RotationRecord, error) {
	defer r.store.lock(ctx)()

	records := make([]*cryptoDomain.RotationRecord, 0)
	for i := len(r.store.state.records) - 1 - offset; i >= 0 && len(records) < limit; i-- {
		record := r.store.state.records[i]
		records = append(records, &record)
	}
	return records, nil
}

// MemoryAuditRepository stores chain tails and entries.
type MemoryAuditRepository struct {
	store *MemoryStore
}

func (r *MemoryAuditRepository) GetTail(ctx context.Context, tenantID string) (*auditDomain.ChainTail, error) {
	defer r.store.lock(ctx)()

	tail, ok := r.store.state.tails[tenantID]
	if !ok {
		return auditDomain.NewGenesisTail(tenantID), nil
	}
	return &tail, nil
}

func (r *MemoryAuditRepository) AdvanceTail(ctx context.Context, expected, next *auditDomain.ChainTail) error {
	defer r.store.lock(ctx)()

	stored, ok := r.store.state.tails[expected.TenantID]
	switch {
	case expected.IsGenesis() && ok:
		return auditDomain.ErrTailChanged
	case !expected.IsGenesis() && (!ok || stored.SequenceNo != expected.SequenceNo || stored.Hash != expected.Hash):
		return auditDomain.ErrTailChanged
	}
	r.store.state.tails[next.TenantID] = *next
	return nil
}

func (r *MemoryAuditRepository) InsertEntry(ctx context.Context, entry *auditDomain.AuditEntry) error {
	defer r.store.lock(ctx)()

	chain, ok := r.store.state.entries[entry.TenantID]
	if !ok {
		chain = make(map[uint64]auditDomain.AuditEntry)
		r.store.state.entries[entry.TenantID] = chain
	}
	if _, taken := chain[entry.SequenceNo]; taken {
		return auditDomain.ErrTailChanged
	}
	chain[entry.SequenceNo] = *entry
	return nil
}

func (r *MemoryAuditRepository) Get(
	ctx context.Context,
	tenantID string,
	sequenceNo uint64,
) (*auditDomain.AuditEntry, error) {
	defer r.store.lock(ctx)()

	entry, ok := r.store.state.entries[tenantID][sequenceNo]
	if !ok {
		return nil, auditDomain.ErrEntryNotFound
	}
	return &entry, nil
}

// List applies filter newest first.
func (r *MemoryAuditRepository) List(
	ctx context.Context,
	tenantID string,
	filter auditDomain.EntryFilter,
) ([]*auditDomain.AuditEntry, error) {
	defer r.store.lock(ctx)()

	chain := r.store.state.entries[tenantID]
	seqs := slices.Sorted(maps.Keys(chain))
	slices.Reverse(seqs)

	entries := make([]*auditDomain.AuditEntry, 0)
	skipped := 0
	for _, seq := range seqs {
		if len(entries) == filter.Limit {
			break
		}
		entry := chain[seq]
		if !matches(&entry, filter) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		entries = append(entries, &entry)
	}
	return entries, nil
}

func matches(entry *auditDomain.AuditEntry, filter auditDomain.EntryFilter) bool {
	switch {
	case filter.Category != "" && entry.Category != filter.Category:
		return false
	case filter.EventType != "" && entry.EventType != filter.EventType:
		return false
	case filter.Severity != "" && entry.Severity != filter.Severity:
		return false
	case filter.From != nil && entry.Timestamp.Before(*filter.From):
		return false
	case filter.To != nil && entry.Timestamp.After(*filter.To):
		return false
	}
	return true
}

// Stream copies the range under the lock and calls fn without holding it.
func (r *MemoryAuditRepository) Stream(
	ctx context.Context,
	tenantID string,
	fromSeq, toSeq uint64,
	fn func(*auditDomain.AuditEntry) error,
) error {
	unlock := r.store.lock(ctx)
	chain := r.store.state.entries[tenantID]
	entries := make([]auditDomain.AuditEntry, 0)
	for _, seq := range slices.Sorted(maps.Keys(chain)) {
		if seq >= fromSeq && seq <= toSeq {
			entries = append(entries, chain[seq])
		}
	}
	unlock()

	for i := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(&entries[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *MemoryAuditRepository) ListTenants(ctx context.Context) ([]string, error) {
	defer r.store.lock(ctx)()

	return slices.Sorted(maps.Keys(r.store.state.tails)), nil
}

func (r *MemoryAuditRepository) CountByKey(ctx context.Context, keyID uint64) (int64, error) {
	defer r.store.lock(ctx)()

	var count int64
	for _, chain := range r.store.state.entries {
		for _, entry := range chain {
			if entry.PayloadKeyID != nil && *entry.PayloadKeyID == keyID {
				count++
			}
		}
	}
	return count, nil
}
