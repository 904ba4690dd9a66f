package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ndewijer/portfolio-service/internal/api/response"
	"github.com/ndewijer/portfolio-service/internal/apperrors"
	"github.com/ndewijer/portfolio-service/internal/auth"
	"github.com/ndewijer/portfolio-service/internal/validation"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// parseJSON decodes the request body into T. Unknown fields are rejected.
// Decoding failures wrap apperrors.ErrInvalidInput.
func parseJSON[T any](w http.ResponseWriter, r *http.Request) (T, error) {
	var out T

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		if errors.Is(err, io.EOF) {
			return out, fmt.Errorf("%w: request body is empty", apperrors.ErrInvalidInput)
		}
		return out, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	return out, nil
}

// requireUser returns the authenticated user or writes a 401.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := auth.UserID(r.Context())
	if !ok {
		response.RespondError(w, http.StatusUnauthorized, apperrors.Kind(apperrors.ErrUnauthorized), "authentication required", nil)
	}
	return id, ok
}

// respondError maps err onto the error taxonomy. Validation errors carry
// their per-field messages as details.
func respondError(w http.ResponseWriter, err error, fallback error) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		response.RespondError(w, http.StatusBadRequest, apperrors.Kind(err), "validation failed", verr.Fields)
		return
	}
	response.RespondAppError(w, err, fallback)
}
