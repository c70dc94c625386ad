package wordpress

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnreachable wraps transport failures: DNS, refused connections, timeouts.
var ErrUnreachable = errors.New("wordpress: remote unreachable")

// authCodes are WordPress error codes that mean the credentials were rejected.
var authCodes = map[string]bool{
	"rest_not_logged_in": true,
	"rest_forbidden":     true,
	"incorrect_password": true,
	"invalid_username":   true,
	"invalid_email":      true,
}

// Error is a non-2xx answer from the WordPress REST API. Code and Message
// come from the remote error body when it has one.
type Error struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("wordpress: HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("wordpress: HTTP %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// ValidationError rejects a payload before any request is sent.
type ValidationError struct {
	Field string
	Rule  string
}

func (e *ValidationError) Error() string {
	if e.Rule == "required" {
		return fmt.Sprintf("missing required field: %s", e.Field)
	}
	return fmt.Sprintf("invalid field %s: failed %s", e.Field, e.Rule)
}

// IsAuthError reports whether err means the credentials must be re-entered.
// A 403 with a business code such as rest_cannot_create is a permission
// problem of the account, not an authentication failure.
func IsAuthError(err error) bool {
	var wpErr *Error
	if !errors.As(err, &wpErr) {
		return false
	}
	switch wpErr.StatusCode {
	case http.StatusUnauthorized:
		return true
	case http.StatusForbidden:
		return wpErr.Code == "" || authCodes[wpErr.Code]
	}
	return authCodes[wpErr.Code]
}

// IsValidationError reports whether err was raised by local payload validation.
func IsValidationError(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

// IsNotFound reports whether the remote answered 404.
func IsNotFound(err error) bool {
	var wpErr *Error
	return errors.As(err, &wpErr) && wpErr.StatusCode == http.StatusNotFound
}
