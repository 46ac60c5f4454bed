// Package http provides HTTP handlers for encrypting, revealing and replacing
// protected field values.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	auditDomain "github.com/sobebarali/useHely-sub006/internal/audit/domain"
	auditUseCase "github.com/sobebarali/useHely-sub006/internal/audit/usecase"
	cryptoDomain "github.com/sobebarali/useHely-sub006/internal/crypto/domain"
	"github.com/sobebarali/useHely-sub006/internal/crypto/http/dto"
	cryptoUseCase "github.com/sobebarali/useHely-sub006/internal/crypto/usecase"
	"github.com/sobebarali/useHely-sub006/internal/httputil"
	customValidation "github.com/sobebarali/useHely-sub006/internal/validation"
)

// Caller identity headers recorded on security events.
const (
	HeaderActorID   = "X-Actor-Id"
	HeaderActorName = "X-Actor-Name"

	anonymousActorID   = "anonymous"
	anonymousActorName = "anonymous caller"

	// EventDecryptionFailed is appended to the tenant chain when a stored field fails
	// authentication.
	EventDecryptionFailed = "field.decryption_failed"
)

// FieldHandler handles HTTP requests for encrypted field values.
type FieldHandler struct {
	fieldUseCase cryptoUseCase.FieldUseCase
	auditWriter  auditUseCase.WriterUseCase
	logger       *slog.Logger
}

// NewFieldHandler creates a new field handler with required dependencies.
func NewFieldHandler(
	fieldUseCase cryptoUseCase.FieldUseCase,
	auditWriter auditUseCase.WriterUseCase,
	logger *slog.Logger,
) *FieldHandler {
	return &FieldHandler{
		fieldUseCase: fieldUseCase,
		auditWriter:  auditWriter,
		logger:       logger,
	}
}

// ProtectHandler encrypts and stores a value under the active key.
// POST /v1/tenants/:tenant_id/fields
// Returns 201 Created with field metadata (no plaintext).
func (h *FieldHandler) ProtectHandler(c *gin.Context) {
	tenantID, err := httputil.TenantParam(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	var req dto.ProtectFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	defer cryptoDomain.Zero(req.Value)

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	field, err := h.fieldUseCase.Protect(c.Request.Context(), tenantID, req.Ref(), req.Value)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapFieldToResponse(field))
}

// RevealHandler decrypts a stored value with the key recorded beside it.
// GET /v1/tenants/:tenant_id/fields/:id
// A value that fails authentication is recorded as a SECURITY audit event and
// answered with 422.
func (h *FieldHandler) RevealHandler(c *gin.Context) {
	tenantID, id, ok := h.parseFieldPath(c)
	if !ok {
		return
	}

	plaintext, field, err := h.fieldUseCase.Reveal(c.Request.Context(), tenantID, id)
	if err != nil {
		if errors.Is(err, cryptoDomain.ErrDecryptionFailed) && field != nil {
			h.recordDecryptionFailure(c, field)
		}
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	defer cryptoDomain.Zero(plaintext)

	c.JSON(http.StatusOK, dto.MapFieldToRevealResponse(field, plaintext))
}

// ReplaceHandler re-encrypts a stored value with new plaintext.
// PUT /v1/tenants/:tenant_id/fields/:id
func (h *FieldHandler) ReplaceHandler(c *gin.Context) {
	tenantID, id, ok := h.parseFieldPath(c)
	if !ok {
		return
	}

	var req dto.ReplaceFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	defer cryptoDomain.Zero(req.Value)

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	field, err := h.fieldUseCase.Replace(c.Request.Context(), tenantID, id, req.Value)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapFieldToResponse(field))
}

func (h *FieldHandler) parseFieldPath(c *gin.Context) (string, uuid.UUID, bool) {
	tenantID, err := httputil.TenantParam(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return "", uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid id: must be a UUID"), h.logger)
		return "", uuid.Nil, false
	}
	return tenantID, id, true
}

// recordDecryptionFailure appends the security event. A failed append is logged
// and does not change the response.
func (h *FieldHandler) recordDecryptionFailure(c *gin.Context, field *cryptoDomain.EncryptedField) {
	details, err := json.Marshal(map[string]any{
		"field_id":   field.ID.String(),
		"field_name": field.FieldName,
		"key_id":     field.KeyID,
	})
	if err != nil {
		h.logger.Error("failed to encode decryption failure details", slog.Any("error", err))
		return
	}

	actorID, actorName := c.GetHeader(HeaderActorID), c.GetHeader(HeaderActorName)
	if actorID == "" {
		actorID = anonymousActorID
	}
	if actorName == "" {
		actorName = anonymousActorName
	}

	input := &auditDomain.AppendInput{
		EventType:    EventDecryptionFailed,
		Category:     auditDomain.CategorySecurity,
		Severity:     auditDomain.SeverityCritical,
		ActorID:      actorID,
		ActorName:    actorName,
		ResourceType: field.ResourceType,
		ResourceID:   field.ResourceID,
		Action:       auditDomain.ActionRead,
		IP:           c.ClientIP(),
		UserAgent:    c.Request.UserAgent(),
		Details:      details,
	}

	// The security event must be recorded even if the client disconnects.
	ctx := context.WithoutCancel(c.Request.Context())
	if _, err := h.auditWriter.Append(ctx, field.TenantID, input); err != nil {
		h.logger.Error("failed to record decryption failure",
			slog.String("tenant_id", field.TenantID),
			slog.String("field_id", field.ID.String()),
			slog.Any("error", err),
		)
	}
}
