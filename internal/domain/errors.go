package domain

import "errors"

// ErrorKind is the machine-readable error code surfaced to API clients.
type ErrorKind string

const (
	KindUnauthorized    ErrorKind = "UNAUTHORIZED"
	KindSessionExpired  ErrorKind = "SESSION_EXPIRED"
	KindProfileNotFound ErrorKind = "PROFILE_NOT_FOUND"
	KindValidation      ErrorKind = "VALIDATION_ERROR"
	KindImmutableState  ErrorKind = "IMMUTABLE_STATE"
	KindNotFound        ErrorKind = "NOT_FOUND"
	KindRateLimit       ErrorKind = "RATE_LIMIT_ERROR"
	KindInternal        ErrorKind = "INTERNAL_ERROR"
)

// Error is a structured domain error: kind + message + optional details.
// Services return these instead of bare errors so the HTTP layer can map
// them to statuses in one place without string matching.
type Error struct {
	Kind    ErrorKind
	Message string
	Details map[string]any
}

func (e *Error) Error() string { return e.Message }

// NewError creates a domain error with no details.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// NewErrorWithDetails creates a domain error carrying a details payload.
func NewErrorWithDetails(kind ErrorKind, message string, details map[string]any) *Error {
	return &Error{Kind: kind, Message: message, Details: details}
}

// AsError unwraps err into a *Error if it carries one.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// KindOf returns the domain kind of err, or KindInternal for plain errors.
func KindOf(err error) ErrorKind {
	if de, ok := AsError(err); ok {
		return de.Kind
	}
	return KindInternal
}
