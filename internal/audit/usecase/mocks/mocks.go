// Package mocks provides mock implementations of the audit use cases for testing
// decorators, handlers and commands.
package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	auditDomain "github.com/sobebarali/useHely-sub006/internal/audit/domain"
	auditUseCase "github.com/sobebarali/useHely-sub006/internal/audit/usecase"
)

// MockWriterUseCase is a mock implementation of WriterUseCase.
type MockWriterUseCase struct {
	mock.Mock
}

// Append mocks the Append method of WriterUseCase.
func (m *MockWriterUseCase) Append(
	ctx context.Context,
	tenantID string,
	input *auditDomain.AppendInput,
) (*auditDomain.AuditEntry, error) {
	args := m.Called(ctx, tenantID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auditDomain.AuditEntry), args.Error(1)
}

// MockVerifierUseCase is a mock implementation of VerifierUseCase.
type MockVerifierUseCase struct {
	mock.Mock
}

// Verify mocks the Verify method of VerifierUseCase.
func (m *MockVerifierUseCase) Verify(
	ctx context.Context,
	tenantID string,
	fromSeq, toSeq uint64,
) (*auditDomain.VerificationResult, error) {
	args := m.Called(ctx, tenantID, fromSeq, toSeq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auditDomain.VerificationResult), args.Error(1)
}

// VerifyAll mocks the VerifyAll method of VerifierUseCase.
func (m *MockVerifierUseCase) VerifyAll(ctx context.Context) ([]*auditDomain.VerificationResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*auditDomain.VerificationResult), args.Error(1)
}

// MockQueryUseCase is a mock implementation of QueryUseCase.
type MockQueryUseCase struct {
	mock.Mock
}

// List mocks the List method of QueryUseCase.
func (m *MockQueryUseCase) List(
	ctx context.Context,
	tenantID string,
	filter auditDomain.EntryFilter,
) ([]*auditDomain.AuditEntry, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*auditDomain.AuditEntry), args.Error(1)
}

// Get mocks the Get method of QueryUseCase.
func (m *MockQueryUseCase) Get(
	ctx context.Context,
	tenantID string,
	sequenceNo uint64,
) (*auditDomain.AuditEntry, error) {
	args := m.Called(ctx, tenantID, sequenceNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auditDomain.AuditEntry), args.Error(1)
}

// Reveal mocks the Reveal method of QueryUseCase.
func (m *MockQueryUseCase) Reveal(
	ctx context.Context,
	tenantID string,
	sequenceNo uint64,
) (*auditDomain.AuditEntry, error) {
	args := m.Called(ctx, tenantID, sequenceNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auditDomain.AuditEntry), args.Error(1)
}

// MockExportUseCase is a mock implementation of ExportUseCase.
type MockExportUseCase struct {
	mock.Mock
}

// Export mocks the Export method of ExportUseCase.
func (m *MockExportUseCase) Export(
	ctx context.Context,
	tenantID string,
	fromSeq, toSeq uint64,
) (*auditUseCase.ExportResult, error) {
	args := m.Called(ctx, tenantID, fromSeq, toSeq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auditUseCase.ExportResult), args.Error(1)
}

// MockObjectUploader is a mock implementation of ObjectUploader.
type MockObjectUploader struct {
	mock.Mock
}

// PutObject mocks the PutObject method of ObjectUploader.
func (m *MockObjectUploader) PutObject(
	ctx context.Context,
	key string,
	body io.ReadSeeker,
	metadata map[string]string,
) error {
	return m.Called(ctx, key, body, metadata).Error(0)
}
