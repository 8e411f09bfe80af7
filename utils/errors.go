package utils

import (
	"errors"
	"net/http"
)

// Error classes surfaced at the HTTP boundary.
var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrItemCreation    = errors.New("order item creation failed")
	ErrPriceResolution = errors.New("order item price resolution failed")
	ErrOrderCreation   = errors.New("order creation failed")
	ErrInternal        = errors.New("internal error")
)

// StatusFor maps an error to its HTTP status code.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
