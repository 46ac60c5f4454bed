package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	cryptoDomain "github.com/sobebarali/useHely-sub006/internal/crypto/domain"
	cryptoService "github.com/sobebarali/useHely-sub006/internal/crypto/service"
	"github.com/sobebarali/useHely-sub006/internal/database"
)

// keySnapshot is an immutable view of the registry. Readers load it through an
// atomic pointer and never observe a half-applied promotion.
type keySnapshot struct {
	active *cryptoDomain.MasterKey
	keys   map[uint64]*cryptoDomain.MasterKey
}

// keyRegistryUseCase resolves master keys from an in-memory snapshot backed by the
// key store. Writes go to the store first; the snapshot is swapped after commit.
type keyRegistryUseCase struct {
	txManager database.TxManager
	keyRepo   MasterKeyRepository
	jobRepo   RotationJobRepository
	wrapper   cryptoService.KeyWrapper
	counters  []KeyReferenceCounter
	logger    *slog.Logger

	snapshot  atomic.Pointer[keySnapshot]
	refreshMu sync.Mutex
	now       func() time.Time
}

// GetActiveKey returns the key named by the durable active pointer. The snapshot
// is refreshed when it disagrees, so a promotion committed by another process is
// seen on the next call.
func (r *keyRegistryUseCase) GetActiveKey(ctx context.Context) (*cryptoDomain.MasterKey, error) {
	pointer, err := r.keyRepo.GetActivePointer(ctx)
	if err != nil {
		return nil, err
	}
	return r.resolveActive(ctx, pointer.KeyID)
}

// WithActiveKey runs fn inside a transaction holding the active pointer under a
// shared lock. A concurrent Promote blocks on its pointer swap until fn commits.
func (r *keyRegistryUseCase) WithActiveKey(
	ctx context.Context,
	fn func(ctx context.Context, key *cryptoDomain.MasterKey) error,
) error {
	return r.txManager.WithTx(ctx, func(ctx context.Context) error {
		pointer, err := r.keyRepo.LockActivePointer(ctx)
		if err != nil {
			return err
		}
		key, err := r.resolveActive(ctx, pointer.KeyID)
		if err != nil {
			return err
		}
		if key.ID != pointer.KeyID {
			return fmt.Errorf("snapshot names key %d: %w", key.ID, cryptoDomain.ErrActivePointerChanged)
		}
		return fn(ctx, key)
	})
}

// resolveActive returns the snapshot's ACTIVE key if it is keyID, refreshing once
// otherwise. After a refresh the snapshot may already name a newer key.
func (r *keyRegistryUseCase) resolveActive(ctx context.Context, keyID uint64) (*cryptoDomain.MasterKey, error) {
	if snap := r.snapshot.Load(); snap != nil && snap.active != nil && snap.active.ID == keyID {
		return snap.active, nil
	}

	if err := r.Refresh(ctx); err != nil {
		return nil, err
	}

	snap := r.snapshot.Load()
	if snap == nil || snap.active == nil {
		return nil, cryptoDomain.ErrNoActiveKey
	}
	return snap.active, nil
}

// GetKey resolves a key by id, refreshing once on a miss so promotions made by
// other processes become visible.
func (r *keyRegistryUseCase) GetKey(ctx context.Context, id uint64) (*cryptoDomain.MasterKey, error) {
	if snap := r.snapshot.Load(); snap != nil {
		if key, ok := snap.keys[id]; ok {
			return key, nil
		}
	}

	if err := r.Refresh(ctx); err != nil {
		return nil, err
	}

	if snap := r.snapshot.Load(); snap != nil {
		if key, ok := snap.keys[id]; ok {
			return key, nil
		}
	}
	return nil, cryptoDomain.ErrUnknownKey
}

// Bootstrap creates the first ACTIVE key on an empty registry.
func (r *keyRegistryUseCase) Bootstrap(
	ctx context.Context,
	material []byte,
	alg cryptoDomain.Algorithm,
) (*cryptoDomain.MasterKey, error) {
	key, err := r.newKey(ctx, material, alg, cryptoDomain.KeyStatusActive)
	if err != nil {
		return nil, err
	}

	err = r.txManager.WithTx(ctx, func(ctx context.Context) error {
		existing, err := r.keyRepo.List(ctx)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return cryptoDomain.ErrRegistryAlreadyBootstrapped
		}

		if err := r.keyRepo.Create(ctx, key); err != nil {
			return err
		}
		return r.keyRepo.InitActivePointer(ctx, key.ID, key.CreatedAt)
	})
	if errors.Is(err, cryptoDomain.ErrActivePointerChanged) {
		return nil, cryptoDomain.ErrRegistryAlreadyBootstrapped
	}
	if err != nil {
		return nil, err
	}

	r.logger.Info("key registry bootstrapped", slog.Uint64("key_id", key.ID), slog.String("algorithm", string(key.Algorithm)))

	if err := r.Refresh(ctx); err != nil {
		return nil, err
	}
	return r.GetKey(ctx, key.ID)
}

// Register stores material as a PENDING key. It joins the caller's transaction
// when ctx carries one.
func (r *keyRegistryUseCase) Register(
	ctx context.Context,
	material []byte,
	alg cryptoDomain.Algorithm,
) (*cryptoDomain.MasterKey, error) {
	key, err := r.newKey(ctx, material, alg, cryptoDomain.KeyStatusPending)
	if err != nil {
		return nil, err
	}

	if err := r.keyRepo.Create(ctx, key); err != nil {
		return nil, err
	}

	r.logger.Info("master key registered", slog.Uint64("key_id", key.ID))
	return key, nil
}

// Promote makes a PENDING key ACTIVE. The pointer swap and both status flips
// commit in one transaction; promoting the ACTIVE key again is a no-op.
func (r *keyRegistryUseCase) Promote(ctx context.Context, id uint64) (*cryptoDomain.MasterKey, error) {
	var previous uint64

	err := r.txManager.WithTx(ctx, func(ctx context.Context) error {
		key, err := r.keyRepo.Get(ctx, id)
		if err != nil {
			return err
		}
		if key.Status == cryptoDomain.KeyStatusActive {
			return nil
		}
		if key.Status != cryptoDomain.KeyStatusPending {
			return cryptoDomain.ErrKeyNotPending
		}

		now := r.now()

		pointer, err := r.keyRepo.GetActivePointer(ctx)
		switch {
		case errors.Is(err, cryptoDomain.ErrNoActiveKey):
			if err := r.keyRepo.InitActivePointer(ctx, id, now); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			// The pointer row is written first so concurrent promotions serialize on it.
			if err := r.keyRepo.SwapActivePointer(ctx, pointer.KeyID, id, now); err != nil {
				return err
			}

			prev, err := r.keyRepo.Get(ctx, pointer.KeyID)
			if err != nil {
				return err
			}
			prev.Status = cryptoDomain.KeyStatusRetired
			prev.RetiredAt = &now
			if err := r.keyRepo.UpdateStatus(ctx, prev); err != nil {
				return err
			}
			previous = prev.ID
		}

		key.Status = cryptoDomain.KeyStatusActive
		return r.keyRepo.UpdateStatus(ctx, key)
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("master key promoted", slog.Uint64("key_id", id), slog.Uint64("retired_key_id", previous))

	if err := r.Refresh(ctx); err != nil {
		return nil, err
	}
	return r.GetActiveKey(ctx)
}

// Decommission erases the wrapped material of a RETIRED key once no stored value
// references it. The reference counts and the status change commit together with
// the key row locked. The key is then unknown to every lookup.
func (r *keyRegistryUseCase) Decommission(ctx context.Context, id uint64) error {
	err := r.txManager.WithTx(ctx, func(ctx context.Context) error {
		key, err := r.keyRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if key.Status != cryptoDomain.KeyStatusRetired {
			return cryptoDomain.ErrKeyNotRetired
		}

		job, err := r.jobRepo.GetRunning(ctx)
		switch {
		case err == nil:
			if job.PreviousKeyID == id || job.KeyID == id {
				return cryptoDomain.ErrRotationInProgress
			}
		case !errors.Is(err, cryptoDomain.ErrRotationJobNotFound):
			return err
		}

		for _, counter := range r.counters {
			count, err := counter.CountByKey(ctx, id)
			if err != nil {
				return err
			}
			if count > 0 {
				return fmt.Errorf("%w: %d stored values", cryptoDomain.ErrKeyStillReferenced, count)
			}
		}

		key.Status = cryptoDomain.KeyStatusDecommissioned
		key.WrappedMaterial = nil
		return r.keyRepo.UpdateStatus(ctx, key)
	})
	if err != nil {
		return err
	}

	r.logger.Warn("master key decommissioned", slog.Uint64("key_id", id))

	return r.Refresh(ctx)
}

// List returns every key in the store. Material is never included.
func (r *keyRegistryUseCase) List(ctx context.Context) ([]*cryptoDomain.MasterKey, error) {
	keys, err := r.keyRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, key := range keys {
		key.WrappedMaterial = nil
	}
	return keys, nil
}

// Refresh rebuilds the snapshot from the store. Material already unwrapped for an
// unchanged key is reused instead of calling the KMS again.
func (r *keyRegistryUseCase) Refresh(ctx context.Context) error {
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	pointer, err := r.keyRepo.GetActivePointer(ctx)
	if err != nil && !errors.Is(err, cryptoDomain.ErrNoActiveKey) {
		return err
	}

	stored, err := r.keyRepo.List(ctx)
	if err != nil {
		return err
	}

	prev := r.snapshot.Load()
	next := &keySnapshot{keys: make(map[uint64]*cryptoDomain.MasterKey, len(stored))}

	for _, key := range stored {
		if key.Status == cryptoDomain.KeyStatusDecommissioned {
			continue
		}

		if prev != nil {
			if cached, ok := prev.keys[key.ID]; ok && bytes.Equal(cached.WrappedMaterial, key.WrappedMaterial) {
				key.Material = cached.Material
			}
		}
		if key.Material == nil {
			if err := r.wrapper.Unwrap(ctx, key); err != nil {
				return err
			}
		}

		// The pointer is authoritative; a status column read in a separate
		// statement may lag a concurrent promotion.
		if pointer != nil {
			switch {
			case key.ID == pointer.KeyID:
				key.Status = cryptoDomain.KeyStatusActive
			case key.Status == cryptoDomain.KeyStatusActive:
				key.Status = cryptoDomain.KeyStatusRetired
			}
		}

		next.keys[key.ID] = key
	}

	if pointer != nil {
		active, ok := next.keys[pointer.KeyID]
		if !ok {
			return fmt.Errorf("active key pointer names key %d: %w", pointer.KeyID, cryptoDomain.ErrUnknownKey)
		}
		next.active = active
	}

	r.snapshot.Store(next)
	return nil
}

// Run refreshes the snapshot every interval until ctx is cancelled.
func (r *keyRegistryUseCase) Run(ctx context.Context, interval time.Duration) error {
	r.logger.Info("starting key registry refresher", slog.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("stopping key registry refresher")
			return ctx.Err()
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil {
				r.logger.Error("failed to refresh key registry", slog.Any("error", err))
			}
		}
	}
}

func (r *keyRegistryUseCase) newKey(
	ctx context.Context,
	material []byte,
	alg cryptoDomain.Algorithm,
	status cryptoDomain.KeyStatus,
) (*cryptoDomain.MasterKey, error) {
	if len(material) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrInvalidKey
	}
	if alg == "" {
		alg = cryptoDomain.AESGCM
	}
	if !alg.Valid() {
		return nil, cryptoDomain.ErrUnsupportedAlgorithm
	}

	key := &cryptoDomain.MasterKey{
		Algorithm: alg,
		Status:    status,
		Material:  bytes.Clone(material),
		CreatedAt: r.now(),
	}
	if err := r.wrapper.Wrap(ctx, key); err != nil {
		return nil, err
	}
	return key, nil
}

// NewKeyRegistryUseCase creates a key registry. counters are consulted before a
// key is decommissioned.
func NewKeyRegistryUseCase(
	txManager database.TxManager,
	keyRepo MasterKeyRepository,
	jobRepo RotationJobRepository,
	wrapper cryptoService.KeyWrapper,
	logger *slog.Logger,
	counters ...KeyReferenceCounter,
) KeyRegistry {
	return &keyRegistryUseCase{
		txManager: txManager,
		keyRepo:   keyRepo,
		jobRepo:   jobRepo,
		wrapper:   wrapper,
		counters:  counters,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}
