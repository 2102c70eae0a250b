package handlers

import (
	"errors"
	"net/http"

	"github.com/quotagate/gateway/services"
	"github.com/quotagate/gateway/utils"
	"go.uber.org/zap"
)

// HandleServiceError maps domain errors to HTTP responses. The envelope
// always carries the stable wire code so clients can branch without parsing
// messages.
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	var domainErr *services.DomainError
	if !errors.As(err, &domainErr) {
		logger.Error("unclassified error reached the handler layer", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "An unexpected error occurred")
		return
	}

	code := domainErr.Code
	message := domainErr.Message

	switch {
	case services.IsUnauthorizedError(err):
		_ = utils.WriteUnauthorized(w, message, code)

	case services.IsForbiddenError(err):
		_ = utils.WriteForbidden(w, message, code)

	case services.IsNotFoundError(err):
		_ = utils.WriteError(w, http.StatusNotFound, message, code)

	case services.IsValidationError(err):
		_ = utils.WriteError(w, http.StatusBadRequest, message, code)

	case services.IsUnavailableError(err):
		_ = utils.WriteServiceUnavailable(w, message, code)

	case services.IsUpstreamError(err):
		if errors.Is(err, services.ErrUpstreamTimeout) {
			_ = utils.WriteError(w, http.StatusRequestTimeout, message, code)
			return
		}
		_ = utils.WriteServiceUnavailable(w, message, code)

	default:
		// internal errors get a generic message, details stay in the log
		logger.Error("internal server error", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "An internal error occurred")
	}
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if utils.IsValidationError(err) {
		fields := utils.GetValidationFields(err)
		details := make(map[string]interface{}, len(fields))
		for k, v := range fields {
			details[k] = v
		}
		if werr := utils.WriteBadRequest(w, "Validation failed", details); werr != nil {
			logger.Error("failed to write validation error response", zap.Error(werr))
		}
		return
	}

	if werr := utils.WriteBadRequest(w, err.Error(), nil); werr != nil {
		logger.Error("failed to write validation error response", zap.Error(werr))
	}
}
