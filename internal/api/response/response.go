// Package response provides utilities for sending consistent HTTP responses.
// It includes helpers for JSON responses and standardized error responses.
package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/ndewijer/portfolio-service/internal/apperrors"
)

// ErrorResponse represents a structured error response returned by the API.
// Kind names the failure in the error taxonomy; Details is optional context.
type ErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind"`
	Details any    `json:"details,omitempty"`
}

// RespondJSON sends a JSON response with the given status code.
// Sets the Content-Type header to application/json and writes the status code.
// If data is nil, only the status code is sent.
// Logs encoding errors but does not fail the response.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Error().Err(err).Msg("failed to encode JSON response")
		}
	}
}

// RespondError sends a structured error response with the given status code.
// The message should be a user-friendly error description.
//
// Example:
//
//	response.RespondError(w, http.StatusBadRequest, "InvalidInput", "invalid request body", err.Error())
func RespondError(w http.ResponseWriter, status int, kind, message string, details any) {
	RespondJSON(w, status, ErrorResponse{
		Error:   message,
		Kind:    kind,
		Details: details,
	})
}

// StatusFor maps an error to its HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrInvalidInput),
		errors.Is(err, apperrors.ErrInsufficientFunds),
		errors.Is(err, apperrors.ErrInsufficientShares):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrPositionNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// RespondAppError writes err using the taxonomy. Business errors carry their own
// message; anything else is reported under fallback with the error text as details.
func RespondAppError(w http.ResponseWriter, err error, fallback error) {
	status := StatusFor(err)
	kind := apperrors.Kind(err)

	if status == http.StatusInternalServerError {
		RespondError(w, status, kind, fallback.Error(), err.Error())
		return
	}
	RespondError(w, status, kind, err.Error(), nil)
}
