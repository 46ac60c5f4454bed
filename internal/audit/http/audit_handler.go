// Package http provides HTTP handlers for appending to, querying and verifying
// tenant audit chains. No route updates or deletes an entry.
package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	auditDomain "github.com/sobebarali/useHely-sub006/internal/audit/domain"
	"github.com/sobebarali/useHely-sub006/internal/audit/http/dto"
	auditUseCase "github.com/sobebarali/useHely-sub006/internal/audit/usecase"
	"github.com/sobebarali/useHely-sub006/internal/httputil"
	customValidation "github.com/sobebarali/useHely-sub006/internal/validation"
)

// AuditHandler handles HTTP requests for tenant audit chains.
type AuditHandler struct {
	writer   auditUseCase.WriterUseCase
	query    auditUseCase.QueryUseCase
	verifier auditUseCase.VerifierUseCase
	logger   *slog.Logger
}

// NewAuditHandler creates a new audit handler with required dependencies.
func NewAuditHandler(
	writer auditUseCase.WriterUseCase,
	query auditUseCase.QueryUseCase,
	verifier auditUseCase.VerifierUseCase,
	logger *slog.Logger,
) *AuditHandler {
	return &AuditHandler{
		writer:   writer,
		query:    query,
		verifier: verifier,
		logger:   logger,
	}
}

// AppendHandler appends an entry to the tenant chain.
// POST /v1/tenants/:tenant_id/audit-entries
// Returns 201 Created with the linked entry, or 503 with Retry-After when the tail
// stayed contended.
func (h *AuditHandler) AppendHandler(c *gin.Context) {
	tenantID, err := httputil.TenantParam(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	var req dto.AppendEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	entry, err := h.writer.Append(c.Request.Context(), tenantID, req.ToInput(c.ClientIP(), c.Request.UserAgent()))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapAuditEntryToResponse(entry))
}

// ListHandler returns entries newest first.
// GET /v1/tenants/:tenant_id/audit-entries?category=&event_type=&severity=&from=&to=&offset=&limit=
func (h *AuditHandler) ListHandler(c *gin.Context) {
	tenantID, err := httputil.TenantParam(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	from, err := httputil.ParseTimeQuery(c, "from")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	to, err := httputil.ParseTimeQuery(c, "to")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	filter := auditDomain.EntryFilter{
		Category:  auditDomain.Category(c.Query("category")),
		EventType: c.Query("event_type"),
		Severity:  auditDomain.Severity(c.Query("severity")),
		From:      from,
		To:        to,
		Offset:    offset,
		Limit:     limit,
	}

	entries, err := h.query.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapAuditEntriesToListResponse(entries))
}

// GetHandler returns one entry. With ?reveal=true sealed payloads are decrypted.
// GET /v1/tenants/:tenant_id/audit-entries/:sequence_no
func (h *AuditHandler) GetHandler(c *gin.Context) {
	tenantID, err := httputil.TenantParam(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	sequenceNo, err := httputil.ParseUint64Param(c, "sequence_no")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	reveal := false
	if raw := c.Query("reveal"); raw != "" {
		if reveal, err = strconv.ParseBool(raw); err != nil {
			httputil.HandleValidationErrorGin(c, err, h.logger)
			return
		}
	}

	var entry *auditDomain.AuditEntry
	if reveal {
		entry, err = h.query.Reveal(c.Request.Context(), tenantID, sequenceNo)
	} else {
		entry, err = h.query.Get(c.Request.Context(), tenantID, sequenceNo)
	}
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapAuditEntryToResponse(entry))
}

// VerifyHandler verifies a range of the tenant chain. A broken chain is reported
// in the body with 200 OK.
// GET /v1/tenants/:tenant_id/audit-chain/verify?from_seq=&to_seq=
func (h *AuditHandler) VerifyHandler(c *gin.Context) {
	tenantID, err := httputil.TenantParam(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	fromSeq, err := httputil.ParseUint64Query(c, "from_seq", 1)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}
	toSeq, err := httputil.ParseUint64Query(c, "to_seq", 0)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	result, err := h.verifier.Verify(c.Request.Context(), tenantID, fromSeq, toSeq)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapVerificationToResponse(result))
}
