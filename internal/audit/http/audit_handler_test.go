package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/sobebarali/useHely-sub006/internal/audit/domain"
	"github.com/sobebarali/useHely-sub006/internal/audit/http/dto"
	"github.com/sobebarali/useHely-sub006/internal/audit/usecase/mocks"
	cryptoDomain "github.com/sobebarali/useHely-sub006/internal/crypto/domain"
)

type handlerMocks struct {
	writer   *mocks.MockWriterUseCase
	query    *mocks.MockQueryUseCase
	verifier *mocks.MockVerifierUseCase
}

func setupTestHandler(t *testing.T) (*AuditHandler, *handlerMocks) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	m := &handlerMocks{
		writer:   &mocks.MockWriterUseCase{},
		query:    &mocks.MockQueryUseCase{},
		verifier: &mocks.MockVerifierUseCase{},
	}
	t.Cleanup(func() {
		m.writer.AssertExpectations(t)
		m.query.AssertExpectations(t)
		m.verifier.AssertExpectations(t)
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAuditHandler(m.writer, m.query, m.verifier, logger), m
}

func createTestContext(method, path string, body any) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req := httptest.NewRequest(method, path, bodyReader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "ward-terminal/2.1")
	c.Request = req

	return c, w
}

func newEntry(seq uint64) *auditDomain.AuditEntry {
	return &auditDomain.AuditEntry{
		ID:           uuid.Must(uuid.NewV7()),
		TenantID:     "tenant-a",
		SequenceNo:   seq,
		EventType:    "patient.record_viewed",
		Category:     auditDomain.CategoryPHI,
		Severity:     auditDomain.SeverityInfo,
		ActorID:      "user-1",
		ActorName:    "Dr. Grey",
		Details:      json.RawMessage(`{"field":"diagnosis"}`),
		Timestamp:    time.Now().UTC(),
		Hash:         "hash",
		PreviousHash: auditDomain.GenesisHash,
	}
}

func TestAuditHandler_AppendHandler(t *testing.T) {
	t.Run("Success_ValidRequest", func(t *testing.T) {
		handler, m := setupTestHandler(t)
		entry := newEntry(1)

		request := dto.AppendEntryRequest{
			EventType: "patient.record_viewed",
			Category:  "PHI",
			ActorID:   "user-1",
			ActorName: "Dr. Grey",
			Details:   json.RawMessage(`{"field":"diagnosis"}`),
		}

		m.writer.On("Append", mock.Anything, "tenant-a", mock.MatchedBy(func(in *auditDomain.AppendInput) bool {
			return in.EventType == "patient.record_viewed" &&
				in.Category == auditDomain.CategoryPHI &&
				in.UserAgent == "ward-terminal/2.1" &&
				in.IP != ""
		})).Return(entry, nil).Once()

		c, w := createTestContext(http.MethodPost, "/v1/tenants/tenant-a/audit-entries", request)
		c.Params = gin.Params{{Key: "tenant_id", Value: "tenant-a"}}

		handler.AppendHandler(c)

		assert.Equal(t, http.StatusCreated, w.Code)

		var response dto.AuditEntryResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, entry.ID.String(), response.ID)
		assert.Equal(t, uint64(1), response.SequenceNo)
		assert.Equal(t, auditDomain.GenesisHash, response.PreviousHash)
		assert.False(t, response.Sealed)
	})

	t.Run("Error_ConflictReturnsRetryAfter", func(t *testing.T) {
		handler, m := setupTestHandler(t)

		m.writer.On("Append", mock.Anything, "tenant-a", mock.Anything).
			Return(nil, auditDomain.ErrConcurrentAppendConflict).Once()

		c, w := createTestContext(http.MethodPost, "/v1/tenants/tenant-a/audit-entries", dto.AppendEntryRequest{
			EventType: "login",
			Category:  "AUTH",
			ActorID:   "user-1",
			ActorName: "Dr. Grey",
		})
		c.Params = gin.Params{{Key: "tenant_id", Value: "tenant-a"}}

		handler.AppendHandler(c)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "1", w.Header().Get("Retry-After"))
	})

	t.Run("Error_MissingFields", func(t *testing.T) {
		handler, _ := setupTestHandler(t)

		c, w := createTestContext(http.MethodPost, "/v1/tenants/tenant-a/audit-entries", dto.AppendEntryRequest{
			EventType: "login",
		})
		c.Params = gin.Params{{Key: "tenant_id", Value: "tenant-a"}}

		handler.AppendHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Error_InvalidTenant", func(t *testing.T) {
		handler, _ := setupTestHandler(t)

		c, w := createTestContext(http.MethodPost, "/v1/tenants/x/audit-entries", nil)
		c.Params = gin.Params{{Key: "tenant_id", Value: "bad tenant"}}

		handler.AppendHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Error_MalformedJSON", func(t *testing.T) {
		handler, _ := setupTestHandler(t)

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/v1/tenants/tenant-a/audit-entries", bytes.NewBufferString("{"))
		c.Request.Header.Set("Content-Type", "application/json")
		c.Params = gin.Params{{Key: "tenant_id", Value: "tenant-a"}}

		handler.AppendHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAuditHandler_ListHandler(t *testing.T) {
	t.Run("Success_WithFilters", func(t *testing.T) {
		handler, m := setupTestHandler(t)
		entries := []*auditDomain.AuditEntry{newEntry(2), newEntry(1)}

		m.query.On("List", mock.Anything, "tenant-a", mock.MatchedBy(func(f auditDomain.EntryFilter) bool {
			return f.Category == auditDomain.CategoryPHI &&
				f.Severity == auditDomain.SeverityInfo &&
				f.Offset == 10 && f.Limit == 5 &&
				f.From != nil && f.To == nil
		})).Return(entries, nil).Once()

		c, w := createTestContext(http.MethodGet,
			"/v1/tenants/tenant-a/audit-entries?category=PHI&severity=INFO&offset=10&limit=5&from=2026-01-01T00:00:00Z", nil)
		c.Params = gin.Params{{Key: "tenant_id", Value: "tenant-a"}}

		handler.ListHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var response dto.ListAuditEntriesResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		require.Len(t, response.Data, 2)
		assert.Equal(t, uint64(2), response.Data[0].SequenceNo)
	})

	t.Run("Success_EmptyListIsArray", func(t *testing.T) {
		handler, m := setupTestHandler(t)
		m.query.On("List", mock.Anything, "tenant-a", mock.Anything).Return([]*auditDomain.AuditEntry{}, nil).Once()

		c, w := createTestContext(http.MethodGet, "/v1/tenants/tenant-a/audit-entries", nil)
		c.Params = gin.Params{{Key: "tenant_id", Value: "tenant-a"}}

		handler.ListHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"data":[]}`, w.Body.String())
	})

	t.Run("Error_InvalidTimestamp", func(t *testing.T) {
		handler, _ := setupTestHandler(t)

		c, w := createTestContext(http.MethodGet, "/v1/tenants/tenant-a/audit-entries?to=yesterday", nil)
		c.Params = gin.Params{{Key: "tenant_id", Value: "tenant-a"}}

		handler.ListHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Error_InvertedWindow", func(t *testing.T) {
		handler, m := setupTestHandler(t)
		m.query.On("List", mock.Anything, "tenant-a", mock.Anything).Return(nil, auditDomain.ErrInvalidRange).Once()

		c, w := createTestContext(http.MethodGet,
			"/v1/tenants/tenant-a/audit-entries?from=2026-02-01T00:00:00Z&to=2026-01-01T00:00:00Z", nil)
		c.Params = gin.Params{{Key: "tenant_id", Value: "tenant-a"}}

		handler.ListHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestAuditHandler_GetHandler(t *testing.T) {
	t.Run("Success_StoredForm", func(t *testing.T) {
		handler, m := setupTestHandler(t)
		m.query.On("Get", mock.Anything, "tenant-a", uint64(7)).Return(newEntry(7), nil).Once()

		c, w := createTestContext(http.MethodGet, "/v1/tenants/tenant-a/audit-entries/7", nil)
		c.Params = gin.Params{{Key: "tenant_id", Value: "tenant-a"}, {Key: "sequence_no", Value: "7"}}

		handler.GetHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Success_Reveal", func(t *testing.T) {
		handler, m := setupTestHandler(t)
		m.query.On("Reveal", mock.Anything, "tenant-a", uint64(7)).Return(newEntry(7), nil).Once()

		c, w := createTestContext(http.MethodGet, "/v1/tenants/tenant-a/audit-entries/7?reveal=true", nil)
		c.Params = gin.Params{{Key: "tenant_id", Value: "tenant-a"}, {Key: "sequence_no", Value: "7"}}

		handler.GetHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		handler, m := setupTestHandler(t)
		m.query.On("Get", mock.Anything, "tenant-a", uint64(9)).Return(nil, auditDomain.ErrEntryNotFound).Once()

		c, w := createTestContext(http.MethodGet, "/v1/tenants/tenant-a/audit-entries/9", nil)
		c.Params = gin.Params{{Key: "tenant_id", Value: "tenant-a"}, {Key: "sequence_no", Value: "9"}}

		handler.GetHandler(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Error_RevealDecryptionFailed", func(t *testing.T) {
		handler, m := setupTestHandler(t)
		m.query.On("Reveal", mock.Anything, "tenant-a", uint64(3)).Return(nil, cryptoDomain.ErrDecryptionFailed).Once()

		c, w := createTestContext(http.MethodGet, "/v1/tenants/tenant-a/audit-entries/3?reveal=1", nil)
		c.Params = gin.Params{{Key: "tenant_id", Value: "tenant-a"}, {Key: "sequence_no", Value: "3"}}

		handler.GetHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.NotContains(t, w.Body.String(), "tag")
	})

	t.Run("Error_InvalidSequence", func(t *testing.T) {
		handler, _ := setupTestHandler(t)

		c, w := createTestContext(http.MethodGet, "/v1/tenants/tenant-a/audit-entries/0", nil)
		c.Params = gin.Params{{Key: "tenant_id", Value: "tenant-a"}, {Key: "sequence_no", Value: "0"}}

		handler.GetHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Error_InvalidRevealFlag", func(t *testing.T) {
		handler, _ := setupTestHandler(t)

		c, w := createTestContext(http.MethodGet, "/v1/tenants/tenant-a/audit-entries/1?reveal=maybe", nil)
		c.Params = gin.Params{{Key: "tenant_id", Value: "tenant-a"}, {Key: "sequence_no", Value: "1"}}

		handler.GetHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestAuditHandler_VerifyHandler(t *testing.T) {
	t.Run("Success_ValidChain", func(t *testing.T) {
		handler, m := setupTestHandler(t)
		m.verifier.On("Verify", mock.Anything, "tenant-a", uint64(1), uint64(0)).Return(&auditDomain.VerificationResult{
			TenantID:        "tenant-a",
			FromSeq:         1,
			ToSeq:           4,
			EntriesVerified: 4,
			Valid:           true,
			HeadHash:        "head",
		}, nil).Once()

		c, w := createTestContext(http.MethodGet, "/v1/tenants/tenant-a/audit-chain/verify", nil)
		c.Params = gin.Params{{Key: "tenant_id", Value: "tenant-a"}}

		handler.VerifyHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var response dto.VerificationResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.True(t, response.Valid)
		assert.Nil(t, response.Break)
		assert.Equal(t, "head", response.HeadHash)
	})

	t.Run("Success_BrokenChainIsReportedInBody", func(t *testing.T) {
		handler, m := setupTestHandler(t)
		m.verifier.On("Verify", mock.Anything, "tenant-a", uint64(2), uint64(9)).Return(&auditDomain.VerificationResult{
			TenantID: "tenant-a",
			FromSeq:  2,
			ToSeq:    9,
			Break: &auditDomain.ChainBreak{
				BrokenAtSequence: 5,
				Kind:             auditDomain.BreakMissingSequence,
			},
		}, nil).Once()

		c, w := createTestContext(http.MethodGet, "/v1/tenants/tenant-a/audit-chain/verify?from_seq=2&to_seq=9", nil)
		c.Params = gin.Params{{Key: "tenant_id", Value: "tenant-a"}}

		handler.VerifyHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var response dto.VerificationResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.False(t, response.Valid)
		require.NotNil(t, response.Break)
		assert.Equal(t, uint64(5), response.Break.BrokenAtSequence)
		assert.Equal(t, "MISSING_SEQUENCE", response.Break.Kind)
	})

	t.Run("Error_InvalidRange", func(t *testing.T) {
		handler, m := setupTestHandler(t)
		m.verifier.On("Verify", mock.Anything, "tenant-a", uint64(9), uint64(2)).
			Return(nil, auditDomain.ErrInvalidRange).Once()

		c, w := createTestContext(http.MethodGet, "/v1/tenants/tenant-a/audit-chain/verify?from_seq=9&to_seq=2", nil)
		c.Params = gin.Params{{Key: "tenant_id", Value: "tenant-a"}}

		handler.VerifyHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Error_NonNumericSequence", func(t *testing.T) {
		handler, _ := setupTestHandler(t)

		c, w := createTestContext(http.MethodGet, "/v1/tenants/tenant-a/audit-chain/verify?from_seq=abc", nil)
		c.Params = gin.Params{{Key: "tenant_id", Value: "tenant-a"}}

		handler.VerifyHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}
