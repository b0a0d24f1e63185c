package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Field   string `json:"field,omitempty"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target carries the same code, so clones match their sentinel.
func (e *Error) Is(target error) bool {
	var t *Error
	if e == nil || !errors.As(target, &t) || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound     = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden    = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict     = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation   = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal     = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss    = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// Grievance engine failures.
var (
	ErrUnknownCategory      = New("UNKNOWN_CATEGORY", http.StatusBadRequest, "unknown category")
	ErrUnknownSubCategory   = New("UNKNOWN_SUB_CATEGORY", http.StatusBadRequest, "unknown sub-category")
	ErrMissingRequiredField = New("MISSING_REQUIRED_FIELD", http.StatusBadRequest, "required field missing")
	ErrInvalidFieldValue    = New("INVALID_FIELD_VALUE", http.StatusBadRequest, "invalid field value")
	ErrInvalidTransition    = New("INVALID_TRANSITION", http.StatusConflict, "invalid status transition")
	ErrMissingResolution    = New("MISSING_RESOLUTION", http.StatusBadRequest, "resolution comments are required")
	ErrUnauthorizedAction   = New("UNAUTHORIZED_ACTION", http.StatusForbidden, "role not permitted to perform action")
	ErrIdentifierConflict   = New("IDENTIFIER_CONFLICT", http.StatusServiceUnavailable, "could not assign a unique grievance identifier")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// WithField clones err and names the offending input field.
func WithField(err *Error, field, message string) *Error {
	clone := Clone(err, message)
	if clone != nil {
		clone.Field = field
	}
	return clone
}
