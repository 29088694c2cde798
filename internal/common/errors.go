package common

import (
	"errors"
	"fmt"
	"net/http"
)

// Request-path error taxonomy. Handlers map these to HTTP at the boundary;
// internal detail (SQL errors, provider responses) never crosses it.
var (
	// ErrUnauthenticated covers missing, malformed and expired credentials.
	// Surfaced as a generic 401 that never reveals whether the principal exists.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrAmbiguousTenant means the principal belongs to multiple tenants and
	// neither the token nor the request selected one.
	ErrAmbiguousTenant = errors.New("ambiguous tenant")

	// ErrNoTenantContext means the principal has no tenant memberships at all.
	ErrNoTenantContext = errors.New("no tenant context")

	// ErrTenantSuspended means the resolved tenant is not active.
	ErrTenantSuspended = errors.New("tenant suspended")

	// ErrInvalidSignature is a permanent webhook rejection, never retried.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrTransientStore marks storage/identity-provider timeouts and connection
	// failures. Retryable by the caller, never conflated with denials.
	ErrTransientStore = errors.New("transient store error")
)

// PermissionError is returned when a role lacks a capability. The operation is
// kept for server-side audit; clients only ever see a generic message.
type PermissionError struct {
	Operation string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: %s", e.Operation)
}

// NewPermissionError creates a denial for the given operation name
func NewPermissionError(operation string) *PermissionError {
	return &PermissionError{Operation: operation}
}

// IsPermissionDenied reports whether err is a permission denial
func IsPermissionDenied(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}

// HTTPStatusFor maps taxonomy errors to the status codes the boundary returns.
// Cross-tenant reads intentionally never reach this path as errors; they come
// back as empty results so the response is indistinguishable from not-found.
func HTTPStatusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrAmbiguousTenant), errors.Is(err, ErrNoTenantContext), errors.Is(err, ErrTenantSuspended):
		return http.StatusForbidden
	case IsPermissionDenied(err):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidSignature):
		return http.StatusUnauthorized
	case errors.Is(err, ErrTransientStore):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
