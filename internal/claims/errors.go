package claims

import (
	"errors"
	"net/http"
)

// Domain errors for claim operations.
var (
	ErrNotFound       = errors.New("claim not found")
	ErrDuplicate      = errors.New("claim already exists")
	ErrDetailNotFound = errors.New("claim detail not found")
	ErrInvalidStatus  = errors.New("invalid claim status")
	ErrInvalidID      = errors.New("invalid claim id")
	ErrInvalidRequest = errors.New("invalid request")
)

// MapHTTPStatus maps claim domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrDetailNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrInvalidID), errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
