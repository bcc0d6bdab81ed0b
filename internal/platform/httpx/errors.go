package httpx

import (
	"errors"
	"net/http"

	"github.com/novelforge/novelforge/internal/shared"
)

// ErrMalformedBody indicates a request body that is not valid JSON for the
// target type.
var ErrMalformedBody = errors.New("malformed request body")

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var verr *shared.ValidationError
	switch {
	case errors.As(err, &verr):
		writeProblem(w, ProblemDetail{
			Title:  "Validation Failed",
			Status: http.StatusUnprocessableEntity,
			Errors: verr.Fields,
		})
	case errors.Is(err, ErrMalformedBody):
		Problem(w, http.StatusBadRequest, "Bad Request", "request body could not be decoded")
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", shared.UserSafeMessage(err))
	case errors.Is(err, shared.ErrConflict), errors.Is(err, shared.ErrIdempotencyConflict):
		Problem(w, http.StatusConflict, "Conflict", shared.UserSafeMessage(err))
	case errors.Is(err, shared.ErrForbidden), errors.Is(err, shared.ErrCSRFTokenMissing), errors.Is(err, shared.ErrCSRFTokenMismatch):
		Problem(w, http.StatusForbidden, "Forbidden", "")
	case errors.Is(err, shared.ErrUnauthorized), errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Unauthorized", shared.UserSafeMessage(err))
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// IsInternal reports whether err maps to a 500 response and should be logged.
func IsInternal(err error) bool {
	var verr *shared.ValidationError
	switch {
	case err == nil, errors.As(err, &verr), errors.Is(err, ErrMalformedBody):
		return false
	case errors.Is(err, shared.ErrNotFound), errors.Is(err, shared.ErrConflict),
		errors.Is(err, shared.ErrIdempotencyConflict), errors.Is(err, shared.ErrForbidden),
		errors.Is(err, shared.ErrUnauthorized), errors.Is(err, shared.ErrInvalidCredentials),
		errors.Is(err, shared.ErrCSRFTokenMissing), errors.Is(err, shared.ErrCSRFTokenMismatch):
		return false
	}
	return true
}
