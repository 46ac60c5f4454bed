// Package httputil holds the request parsing and error rendering shared by the
// gin handlers.
package httputil

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/sobebarali/useHely-sub006/internal/errors"
)

// retryAfterSeconds is advertised on 503 responses caused by tail contention.
const retryAfterSeconds = "1"

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// errorMapping ties an error kind to its status. A fixed message hides the
// underlying error text from the client.
type errorMapping struct {
	kind         error
	status       int
	code         string
	fixedMessage string
}

var errorMappings = []errorMapping{
	{kind: apperrors.ErrNotFound, status: http.StatusNotFound, code: "not_found",
		fixedMessage: "The requested resource was not found"},
	{kind: apperrors.ErrConflict, status: http.StatusConflict, code: "conflict"},
	{kind: apperrors.ErrIntegrity, status: http.StatusUnprocessableEntity, code: "integrity_error",
		fixedMessage: "The stored value failed authentication"},
	{kind: apperrors.ErrInvalidInput, status: http.StatusUnprocessableEntity, code: "invalid_input"},
	{kind: apperrors.ErrUnavailable, status: http.StatusServiceUnavailable, code: "unavailable"},
}

var internalError = errorMapping{
	status:       http.StatusInternalServerError,
	code:         "internal_error",
	fixedMessage: "An internal error occurred",
}

func lookupMapping(err error) errorMapping {
	for _, m := range errorMappings {
		if apperrors.Is(err, m.kind) {
			return m
		}
	}
	return internalError
}

// HandleErrorGin renders err with the status of its error kind. Errors without
// a kind become a 500 with a generic message.
func HandleErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if err == nil {
		return
	}

	m := lookupMapping(err)
	message := m.fixedMessage
	if message == "" {
		message = err.Error()
	}
	if m.status == http.StatusServiceUnavailable {
		c.Header("Retry-After", retryAfterSeconds)
	}

	if logger != nil {
		logger.Error("request failed",
			slog.Int("status_code", m.status),
			slog.String("error_code", m.code),
			slog.Any("error", err),
		)
	}

	c.JSON(m.status, ErrorResponse{Error: m.code, Message: message})
}

// HandleBadRequestGin renders a 400 for bodies or parameters that could not be parsed.
func HandleBadRequestGin(c *gin.Context, err error, logger *slog.Logger) {
	writeClientError(c, http.StatusBadRequest, "bad_request", "bad request", err, logger)
}

// HandleValidationErrorGin renders a 422 for requests that parsed but failed validation.
func HandleValidationErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	writeClientError(c, http.StatusUnprocessableEntity, "validation_error", "validation failed", err, logger)
}

func writeClientError(c *gin.Context, status int, code, logMsg string, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn(logMsg, slog.Any("error", err))
	}
	c.JSON(status, ErrorResponse{Error: code, Message: err.Error()})
}
