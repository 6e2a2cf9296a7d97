// Package apperr defines the error taxonomy shared by all domain services.
// Services wrap these sentinels with fmt.Errorf("%w: ...") so handlers can
// map any error to an HTTP status with errors.Is.
package apperr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

var (
	// ErrValidation marks malformed or semantically invalid input,
	// including disallowed state transitions.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized marks a request with no resolvable actor.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden marks a role or ownership violation.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound marks a reference that does not resolve.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks a storage-layer uniqueness or concurrency conflict.
	ErrConflict = errors.New("conflict")
)

// Status maps an error to its HTTP status code. Unknown errors are 500.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ToHTTP converts a service error into an echo HTTPError. Internal errors
// are surfaced with an opaque message; the original error stays attached
// for the request logger.
func ToHTTP(err error) *echo.HTTPError {
	status := Status(err)
	if status == http.StatusInternalServerError {
		return echo.NewHTTPError(status, "internal server error").SetInternal(err)
	}
	return echo.NewHTTPError(status, err.Error())
}
