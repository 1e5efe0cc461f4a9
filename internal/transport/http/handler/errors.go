package handler

import (
	"errors"
	"net/http"

	"github.com/storefront-api/internal/domain"
	"go.uber.org/zap"
)

// httpError maps a service error to its status and writes the error envelope.
// Errors without a stable code are logged and reported as INTERNAL_ERROR.
func httpError(w http.ResponseWriter, log *zap.Logger, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		log.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, domain.CodeInternal, "An unexpected error occurred")
		return
	}

	status := http.StatusBadRequest
	if errors.Is(err, domain.ErrNotFound) {
		status = http.StatusNotFound
	}
	writeJSON(w, status, ErrorEnvelope{
		Error:             de.Code,
		Message:           de.Message,
		RemainingAttempts: de.RemainingAttempts,
	})
}
