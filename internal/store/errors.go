package store

import (
	"fmt"
	"net/http"
)

// Error is a persistence error with an HTTP status code.
type Error struct {
	Code    int    // HTTP status code
	Message string // User-facing message
	Err     error  // Underlying error (optional)
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error carrying the same status code, so entity sentinels
// like ErrTagNotFound also satisfy errors.Is(err, ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t == e {
		return true
	}
	if isGeneric(t) {
		return t.Code == e.Code
	}
	return t.Code == e.Code && t.Message == e.Message
}

// HTTPCode returns the HTTP status code associated with this error.
func (e *Error) HTTPCode() int { return e.Code }

// WithMessage returns a new error with a custom message.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{Code: e.Code, Message: msg, Err: e.Err}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Err: err}
}

// Sentinel errors.
var (
	ErrNotFound = &Error{
		Code:    http.StatusNotFound,
		Message: "resource not found",
	}

	ErrAlreadyExists = &Error{
		Code:    http.StatusConflict,
		Message: "resource already exists",
	}

	ErrInvalidInput = &Error{
		Code:    http.StatusBadRequest,
		Message: "invalid input",
	}
)

// Entity sentinels. Each also matches its generic counterpart.
var (
	ErrTagNotFound   = &Error{Code: http.StatusNotFound, Message: "tag not found"}
	ErrItemNotFound  = &Error{Code: http.StatusNotFound, Message: "item not found"}
	ErrUserNotFound  = &Error{Code: http.StatusNotFound, Message: "user not found"}
	ErrResetNotFound = &Error{Code: http.StatusNotFound, Message: "password reset not found"}
	ErrEmailTaken    = &Error{Code: http.StatusConflict, Message: "email already registered"}
)

func isGeneric(e *Error) bool {
	return e == ErrNotFound || e == ErrAlreadyExists || e == ErrInvalidInput
}
