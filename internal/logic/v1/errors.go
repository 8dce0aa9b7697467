// Package v1 provides authentication business logic for API version 1.
//
// Error Handling:
// This package defines sentinel errors that represent common authentication
// failures. They should be wrapped with context using fmt.Errorf("%w") when
// returned from business logic methods, and checked in handlers with
// errors.Is. Validation failures carry field-level detail instead, via
// *ValidationError, and are checked with errors.As.
package v1

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors for authentication operations.
var (
	// ErrInvalidCredentials indicates the email/password pair is wrong.
	// Deliberately covers both "no such user" and "wrong password" so the
	// response never reveals whether an account exists.
	// HTTP Status: 401 Unauthorized
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrTokenMissing indicates the request carried no bearer token.
	// HTTP Status: 401 Unauthorized
	ErrTokenMissing = errors.New("token missing")

	// ErrTokenInvalid indicates the bearer token matches no live session.
	// Covers both never-issued and already-revoked tokens.
	// HTTP Status: 401 Unauthorized
	ErrTokenInvalid = errors.New("invalid token")
)

// ValidationError reports per-field input violations.
// HTTP Status: 422 Unprocessable Entity
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(parts)
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewFieldError builds a ValidationError for a single field.
func NewFieldError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}
