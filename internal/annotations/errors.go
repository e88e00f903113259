package annotations

import (
	"errors"
	"net/http"
)

// Domain errors for annotation operations.
var (
	ErrClaimNotFound   = errors.New("claim not found")
	ErrInvalidClaimID  = errors.New("invalid claim id")
	ErrDuplicate       = errors.New("you have already flagged this claim for that reason")
	ErrEmptyNote       = errors.New("note content cannot be empty")
	ErrInvalidKind     = errors.New("invalid annotation kind")
	ErrUnauthenticated = errors.New("authentication required")
)

// MapHTTPStatus maps annotation domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrClaimNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrEmptyNote), errors.Is(err, ErrInvalidKind), errors.Is(err, ErrInvalidClaimID):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
