// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/b2bmarket/marketplace/internal/shared"
)

// Re-exported error kinds so handlers need a single import for classification.
var (
	ErrNotFound     = shared.ErrNotFound
	ErrValidation   = shared.ErrValidation
	ErrForbidden    = shared.ErrForbidden
	ErrUnauthorized = shared.ErrUnauthorized
	ErrConflict     = shared.ErrConflict
)

// StatusOf maps an error to its HTTP status.
func StatusOf(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrUnauthorized), errors.Is(err, shared.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// RespondError maps domain errors to HTTP responses using RFC7807.
// Internal error detail is only written when exposeInternal is set.
func RespondError(w http.ResponseWriter, err error, exposeInternal bool) {
	status := StatusOf(err)
	switch status {
	case http.StatusNotFound:
		Problem(w, status, "Not Found", err.Error())
	case http.StatusBadRequest:
		Problem(w, status, "Validation Failed", err.Error())
	case http.StatusForbidden:
		Problem(w, status, "Forbidden", err.Error())
	case http.StatusUnauthorized:
		Problem(w, status, "Unauthorized", err.Error())
	case http.StatusConflict:
		Problem(w, status, "Conflict", err.Error())
	default:
		detail := "Internal server error"
		if exposeInternal && err != nil {
			detail = err.Error()
		}
		Problem(w, http.StatusInternalServerError, "Internal Error", detail)
	}
}
