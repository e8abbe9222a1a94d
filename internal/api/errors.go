package api

import (
	"errors"
	"fmt"
)

// Sentinel errors mapped from server responses. Callers branch on these with
// errors.Is; the wrapped *APIError keeps the raw status and message.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionExpired     = errors.New("session expired")
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("conflict")
	ErrNotFound           = errors.New("not found")
)

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps well-known status codes to sentinel errors so callers can use
// errors.Is without inspecting status codes. 401 is not mapped here because
// its meaning depends on the operation (bad login vs expired refresh); the
// auth methods wrap it themselves.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case 404:
		return ErrNotFound
	case 409:
		return ErrConflict
	case 422:
		return ErrValidation
	}
	return nil
}
