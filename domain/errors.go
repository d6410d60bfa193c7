package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a semantic classification shared across transport layers.
type ErrorCode string

const (
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeInvalid      ErrorCode = "INVALID"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeUnavailable  ErrorCode = "UNAVAILABLE"
	ErrCodeInternal     ErrorCode = "INTERNAL"
)

// Error represents a domain-level error.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches domain errors by code and message so wrapped sentinels compare equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain errors.
var (
	ErrUserNotFound          = NewError(ErrCodeNotFound, "user not found")
	ErrTaskNotFound          = NewError(ErrCodeNotFound, "task not found")
	ErrNoDraft               = NewError(ErrCodeNotFound, "no task is waiting for a time")
	ErrUnauthorized          = NewError(ErrCodeUnauthorized, "unauthorized")
	ErrInvalidPayload        = NewError(ErrCodeInvalid, "invalid payload")
	ErrInvalidTime           = NewError(ErrCodeInvalid, "invalid time of day")
	ErrInvalidTimezone       = NewError(ErrCodeInvalid, "invalid timezone")
	ErrMalformedIntent       = NewError(ErrCodeInvalid, "malformed classification")
	ErrClassifierUnavailable = NewError(ErrCodeUnavailable, "classifier unavailable")
	ErrUnknownAction         = NewError(ErrCodeInvalid, "unknown action")
)

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}
