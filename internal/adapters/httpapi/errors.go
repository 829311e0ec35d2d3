package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"invoicedesk/internal/blob"
	"invoicedesk/internal/core"
	"invoicedesk/internal/documents"
	"invoicedesk/internal/session"
	"invoicedesk/pkg/domain"
)

type errorBody struct {
	Error      string              `json:"error"`
	Fields     []domain.FieldError `json:"fields,omitempty"`
	Violations []domain.Violation  `json:"violations,omitempty"`
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var (
		verr *domain.ValidationError
		rerr domain.RuleViolationError
		berr *http.MaxBytesError
	)
	switch {
	case errors.As(err, &berr):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &verr), errors.Is(err, core.ErrDocumentRequired):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNoActiveSession):
		return http.StatusUnauthorized
	case errors.As(err, &rerr):
		return http.StatusConflict
	case errors.Is(err, documents.ErrNotPDF):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, documents.ErrInvalidRef), errors.Is(err, session.ErrEmptyUser):
		return http.StatusBadRequest
	case errors.Is(err, blob.ErrNotFound):
		return http.StatusNotFound
	default:
		// CorruptStateError, StorageError and anything unexpected.
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error()}
	var (
		verr *domain.ValidationError
		rerr domain.RuleViolationError
	)
	if errors.As(err, &verr) {
		body.Fields = verr.Fields
	}
	if errors.As(err, &rerr) {
		body.Violations = rerr.Result.Violations
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: err.Error()})
}
