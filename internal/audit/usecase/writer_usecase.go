package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	auditDomain "github.com/sobebarali/useHely-sub006/internal/audit/domain"
	auditService "github.com/sobebarali/useHely-sub006/internal/audit/service"
	cryptoDomain "github.com/sobebarali/useHely-sub006/internal/crypto/domain"
	cryptoUseCase "github.com/sobebarali/useHely-sub006/internal/crypto/usecase"
	"github.com/sobebarali/useHely-sub006/internal/database"
	customValidation "github.com/sobebarali/useHely-sub006/internal/validation"
)

// WriterConfig holds append configuration.
type WriterConfig struct {
	// MaxAttempts bounds the compare-and-swap attempts of one append.
	MaxAttempts int
}

// writerUseCase implements WriterUseCase.
//
// Appends to one tenant are serialized twice: a per-process lock queues local
// callers, and the conditional tail write rejects appenders in other processes.
type writerUseCase struct {
	config    WriterConfig
	txManager database.TxManager
	repo      AuditRepository
	registry  cryptoUseCase.KeyRegistry
	sealer    *auditService.PayloadSealer
	locks     *tenantLocks
	logger    *slog.Logger

	now        func() time.Time
	newBackOff func() backoff.BackOff
}

// Append links a new entry to the tenant's tail.
func (w *writerUseCase) Append(
	ctx context.Context,
	tenantID string,
	input *auditDomain.AppendInput,
) (*auditDomain.AuditEntry, error) {
	if err := validateAppendInput(tenantID, input); err != nil {
		return nil, err
	}

	entry := &auditDomain.AuditEntry{
		TenantID:     tenantID,
		EventType:    input.EventType,
		Category:     input.Category,
		Severity:     input.Severity,
		ActorID:      input.ActorID,
		ActorName:    input.ActorName,
		ResourceType: input.ResourceType,
		ResourceID:   input.ResourceID,
		Action:       input.Action,
		IP:           input.IP,
		UserAgent:    input.UserAgent,
		SessionID:    input.SessionID,
		Details:      input.Details,
		Before:       input.Before,
		After:        input.After,
	}
	if entry.Severity == "" {
		entry.Severity = auditDomain.SeverityInfo
	}

	release, err := w.locks.acquire(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	defer release()

	attempt := 0
	operation := func() error {
		attempt++
		return w.tryAppend(ctx, entry, input)
	}
	notify := func(err error, wait time.Duration) {
		w.logger.Warn("audit chain tail moved, retrying append",
			slog.String("tenant_id", tenantID),
			slog.Int("attempt", attempt),
			slog.Duration("wait", wait),
		)
	}

	retries := uint64(max(w.config.MaxAttempts-1, 0))
	policy := backoff.WithContext(backoff.WithMaxRetries(w.newBackOff(), retries), ctx)

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		if errors.Is(err, auditDomain.ErrTailChanged) {
			w.logger.Error("audit append gave up after tail conflicts",
				slog.String("tenant_id", tenantID),
				slog.Int("attempts", attempt),
			)
			return nil, fmt.Errorf("%w after %d attempts", auditDomain.ErrConcurrentAppendConflict, attempt)
		}
		return nil, err
	}

	return entry, nil
}

// tryAppend reads the tail, computes the linked entry and commits it with the
// tail advance. Sensitive payloads are sealed inside the same transaction, under
// the active key pointer lock. Only ErrTailChanged is retried.
func (w *writerUseCase) tryAppend(
	ctx context.Context,
	entry *auditDomain.AuditEntry,
	input *auditDomain.AppendInput,
) error {
	tail, err := w.repo.GetTail(ctx, entry.TenantID)
	if err != nil {
		return backoff.Permanent(err)
	}

	entry.ID = uuid.Must(uuid.NewV7())
	entry.SequenceNo = tail.SequenceNo + 1
	entry.PreviousHash = tail.Hash
	entry.Timestamp = w.now()

	commit := func(ctx context.Context) error {
		entry.Hash = auditService.ComputeHash(entry)
		next := &auditDomain.ChainTail{
			TenantID:   entry.TenantID,
			SequenceNo: entry.SequenceNo,
			Hash:       entry.Hash,
			UpdatedAt:  entry.Timestamp,
		}
		if err := w.repo.AdvanceTail(ctx, tail, next); err != nil {
			return err
		}
		return w.repo.InsertEntry(ctx, entry)
	}

	if input.Sensitive {
		err = w.registry.WithActiveKey(ctx, func(ctx context.Context, key *cryptoDomain.MasterKey) error {
			if err := w.seal(key, entry, input); err != nil {
				return err
			}
			return commit(ctx)
		})
	} else {
		err = w.txManager.WithTx(ctx, commit)
	}
	if err != nil && !errors.Is(err, auditDomain.ErrTailChanged) {
		return backoff.Permanent(err)
	}
	return err
}

// seal encrypts the input payloads into entry under key. It starts from the
// plaintext on every attempt so a retry never seals twice.
func (w *writerUseCase) seal(key *cryptoDomain.MasterKey, entry *auditDomain.AuditEntry, input *auditDomain.AppendInput) error {
	payloads := []struct {
		dst *json.RawMessage
		src json.RawMessage
	}{
		{&entry.Details, input.Details},
		{&entry.Before, input.Before},
		{&entry.After, input.After},
	}
	for _, p := range payloads {
		sealed, err := w.sealer.Seal(key, entry.TenantID, p.src)
		if err != nil {
			return err
		}
		*p.dst = sealed
	}

	keyID := key.ID
	entry.PayloadKeyID = &keyID
	return nil
}

func validateAppendInput(tenantID string, input *auditDomain.AppendInput) error {
	if err := validation.Validate(tenantID, validation.Required, customValidation.Identifier); err != nil {
		return customValidation.WrapValidationError(fmt.Errorf("tenant_id: %w", err))
	}
	if input == nil {
		return customValidation.WrapValidationError(errors.New("entry is required"))
	}

	err := validation.ValidateStruct(input,
		validation.Field(&input.EventType, validation.Required, customValidation.EventType),
		validation.Field(&input.Category, validation.Required, validation.In(
			auditDomain.CategoryAuth,
			auditDomain.CategoryPHI,
			auditDomain.CategoryAdmin,
			auditDomain.CategorySecurity,
			auditDomain.CategoryData,
		)),
		validation.Field(&input.Severity, validation.In(
			auditDomain.SeverityInfo,
			auditDomain.SeverityWarning,
			auditDomain.SeverityCritical,
		)),
		validation.Field(&input.ActorID, validation.Required, customValidation.Identifier),
		validation.Field(&input.ActorName, validation.Required, customValidation.NotBlank, validation.Length(1, 255)),
		validation.Field(&input.ResourceType, validation.Length(0, 128)),
		validation.Field(&input.ResourceID, validation.Length(0, 128)),
		validation.Field(&input.Action, validation.In(
			auditDomain.ActionCreate,
			auditDomain.ActionRead,
			auditDomain.ActionUpdate,
			auditDomain.ActionDelete,
		)),
		validation.Field(&input.IP, validation.Length(0, 64)),
		validation.Field(&input.SessionID, validation.Length(0, 128)),
		validation.Field(&input.Details, customValidation.JSONObject),
		validation.Field(&input.Before, customValidation.JSONObject),
		validation.Field(&input.After, customValidation.JSONObject),
	)
	return customValidation.WrapValidationError(err)
}

func defaultAppendBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = 250 * time.Millisecond
	b.MaxElapsedTime = 0
	return b
}

// NewWriterUseCase creates an audit chain writer. registry and sealer are only
// used for sensitive appends.
func NewWriterUseCase(
	config WriterConfig,
	txManager database.TxManager,
	repo AuditRepository,
	registry cryptoUseCase.KeyRegistry,
	sealer *auditService.PayloadSealer,
	logger *slog.Logger,
) WriterUseCase {
	return &writerUseCase{
		config:     config,
		txManager:  txManager,
		repo:       repo,
		registry:   registry,
		sealer:     sealer,
		locks:      newTenantLocks(),
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		newBackOff: defaultAppendBackOff,
	}
}
