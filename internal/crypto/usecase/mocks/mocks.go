// Package mocks provides mock implementations of the crypto use cases for testing
// decorators, handlers and commands.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	cryptoDomain "github.com/sobebarali/useHely-sub006/internal/crypto/domain"
)

// MockFieldUseCase is a mock implementation of FieldUseCase.
type MockFieldUseCase struct {
	mock.Mock
}

// Protect mocks the Protect method of FieldUseCase.
func (m *MockFieldUseCase) Protect(
	ctx context.Context,
	tenantID string,
	ref cryptoDomain.FieldRef,
	plaintext []byte,
) (*cryptoDomain.EncryptedField, error) {
	args := m.Called(ctx, tenantID, ref, plaintext)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.EncryptedField), args.Error(1)
}

// Reveal mocks the Reveal method of FieldUseCase.
func (m *MockFieldUseCase) Reveal(
	ctx context.Context,
	tenantID string,
	id uuid.UUID,
) ([]byte, *cryptoDomain.EncryptedField, error) {
	args := m.Called(ctx, tenantID, id)
	var plaintext []byte
	if args.Get(0) != nil {
		plaintext = args.Get(0).([]byte)
	}
	var field *cryptoDomain.EncryptedField
	if args.Get(1) != nil {
		field = args.Get(1).(*cryptoDomain.EncryptedField)
	}
	return plaintext, field, args.Error(2)
}

// Replace mocks the Replace method of FieldUseCase.
func (m *MockFieldUseCase) Replace(
	ctx context.Context,
	tenantID string,
	id uuid.UUID,
	plaintext []byte,
) (*cryptoDomain.EncryptedField, error) {
	args := m.Called(ctx, tenantID, id, plaintext)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.EncryptedField), args.Error(1)
}

// CountByKey mocks the CountByKey method of FieldUseCase.
func (m *MockFieldUseCase) CountByKey(ctx context.Context, keyID uint64) (int64, error) {
	args := m.Called(ctx, keyID)
	return args.Get(0).(int64), args.Error(1)
}

// MockRotationUseCase is a mock implementation of RotationUseCase.
type MockRotationUseCase struct {
	mock.Mock
}

// Rotate mocks the Rotate method of RotationUseCase.
func (m *MockRotationUseCase) Rotate(
	ctx context.Context,
	newKeyMaterial []byte,
	actor string,
) (*cryptoDomain.RotationRecord, error) {
	args := m.Called(ctx, newKeyMaterial, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.RotationRecord), args.Error(1)
}

// ResumeRotation mocks the ResumeRotation method of RotationUseCase.
func (m *MockRotationUseCase) ResumeRotation(ctx context.Context, actor string) (*cryptoDomain.RotationRecord, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.RotationRecord), args.Error(1)
}

// ListRotations mocks the ListRotations method of RotationUseCase.
func (m *MockRotationUseCase) ListRotations(
	ctx context.Context,
	offset, limit int,
) ([]*cryptoDomain.RotationRecord, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*cryptoDomain.RotationRecord), args.Error(1)
}

// MockKeyRegistry is a mock implementation of KeyRegistry.
type MockKeyRegistry struct {
	mock.Mock
}

func (m *MockKeyRegistry) key(args mock.Arguments) (*cryptoDomain.MasterKey, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cryptoDomain.MasterKey), args.Error(1)
}

// GetActiveKey mocks the GetActiveKey method of KeyRegistry.
func (m *MockKeyRegistry) GetActiveKey(ctx context.Context) (*cryptoDomain.MasterKey, error) {
	return m.key(m.Called(ctx))
}

// WithActiveKey mocks the WithActiveKey method of KeyRegistry. When the mock
// returns a key, fn is invoked with it.
func (m *MockKeyRegistry) WithActiveKey(
	ctx context.Context,
	fn func(ctx context.Context, key *cryptoDomain.MasterKey) error,
) error {
	key, err := m.key(m.Called(ctx))
	if err != nil {
		return err
	}
	return fn(ctx, key)
}

// GetKey mocks the GetKey method of KeyRegistry.
func (m *MockKeyRegistry) GetKey(ctx context.Context, id uint64) (*cryptoDomain.MasterKey, error) {
	return m.key(m.Called(ctx, id))
}

// Bootstrap mocks the Bootstrap method of KeyRegistry.
func (m *MockKeyRegistry) Bootstrap(
	ctx context.Context,
	material []byte,
	alg cryptoDomain.Algorithm,
) (*cryptoDomain.MasterKey, error) {
	return m.key(m.Called(ctx, material, alg))
}

// Register mocks the Register method of KeyRegistry.
func (m *MockKeyRegistry) Register(
	ctx context.Context,
	material []byte,
	alg cryptoDomain.Algorithm,
) (*cryptoDomain.MasterKey, error) {
	return m.key(m.Called(ctx, material, alg))
}

// Promote mocks the Promote method of KeyRegistry.
func (m *MockKeyRegistry) Promote(ctx context.Context, id uint64) (*cryptoDomain.MasterKey, error) {
	return m.key(m.Called(ctx, id))
}

// Decommission mocks the Decommission method of KeyRegistry.
func (m *MockKeyRegistry) Decommission(ctx context.Context, id uint64) error {
	return m.Called(ctx, id).Error(0)
}

// List mocks the List method of KeyRegistry.
func (m *MockKeyRegistry) List(ctx context.Context) ([]*cryptoDomain.MasterKey, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*cryptoDomain.MasterKey), args.Error(1)
}

// Refresh mocks the Refresh method of KeyRegistry.
func (m *MockKeyRegistry) Refresh(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// Run mocks the Run method of KeyRegistry.
func (m *MockKeyRegistry) Run(ctx context.Context, interval time.Duration) error {
	return m.Called(ctx, interval).Error(0)
}
