package utils

import (
	"errors"
	"ms-events/internal/models"
	"net/http"
)

// RetryAfterSeconds is sent with every upstream failure.
const RetryAfterSeconds = "5"

// StatusFor maps a service error onto an HTTP status code.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, models.ErrInvalidEventID), errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrUnauthorized), errors.Is(err, models.ErrUserNotFound):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrEventNotFound), errors.Is(err, models.ErrRegistrationNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrAlreadyRegistered), errors.Is(err, models.ErrRegistrationBusy):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvalidPass):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrUpstream):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// WriteServiceError writes err with the status StatusFor picks. Upstream failures
// are marked retryable.
func WriteServiceError(w http.ResponseWriter, message string, err error) {
	status := StatusFor(err)
	resp := ErrorResponse(message, err.Error())
	if status == http.StatusBadGateway {
		w.Header().Set("Retry-After", RetryAfterSeconds)
		resp.Data = map[string]bool{"retryable": true}
	}
	if status == http.StatusInternalServerError {
		// Internal details stay in the log.
		resp.Error = "internal server error"
	}
	WriteJSON(w, status, resp)
}
