// Package errors provides coded domain errors for the TagReturn API.
//
// Services return *Error values; the API layer maps the Code to an HTTP
// status. Infrastructure errors (storage, network) are returned as-is and
// surface as internal errors at the boundary.
//
//	if tag.IsOwned {
//	    return errors.TagAlreadyOwnedf("tag %s is already registered", tag.ID)
//	}
//
//	if errors.Is(err, errors.ErrTagNotFound) { ... }
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeNotFound           Code = "NOT_FOUND"
	CodeAlreadyExists      Code = "ALREADY_EXISTS"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeValidation         Code = "VALIDATION"
	CodeConflict           Code = "CONFLICT"
	CodeInternal           Code = "INTERNAL"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeTokenExpired       Code = "TOKEN_EXPIRED"

	CodeTagNotFound       Code = "TAG_NOT_FOUND"
	CodeTagAlreadyOwned   Code = "TAG_ALREADY_OWNED"
	CodeInvalidTransition Code = "INVALID_TRANSITION"
	CodePartialWrite      Code = "PARTIAL_WRITE"
	CodeInvalidSignature  Code = "INVALID_SIGNATURE"
	CodeMalformedEvent    Code = "MALFORMED_EVENT"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound, CodeTagNotFound:
		return http.StatusNotFound
	case CodeAlreadyExists, CodeConflict, CodeTagAlreadyOwned, CodeInvalidTransition:
		return http.StatusConflict
	case CodeUnauthorized, CodeInvalidCredentials, CodeTokenExpired, CodeInvalidSignature:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeValidation, CodeMalformedEvent:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithCause returns a copy of the error wrapping err.
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: e.Details, cause: err}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound           = &Error{Code: CodeNotFound, Message: "not found"}
	ErrAlreadyExists      = &Error{Code: CodeAlreadyExists, Message: "already exists"}
	ErrUnauthorized       = &Error{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrForbidden          = &Error{Code: CodeForbidden, Message: "forbidden"}
	ErrValidation         = &Error{Code: CodeValidation, Message: "validation error"}
	ErrConflict           = &Error{Code: CodeConflict, Message: "conflict"}
	ErrInternal           = &Error{Code: CodeInternal, Message: "internal error"}
	ErrInvalidCredentials = &Error{Code: CodeInvalidCredentials, Message: "invalid credentials"}
	ErrTokenExpired       = &Error{Code: CodeTokenExpired, Message: "token expired"}

	ErrTagNotFound       = &Error{Code: CodeTagNotFound, Message: "tag not found"}
	ErrTagAlreadyOwned   = &Error{Code: CodeTagAlreadyOwned, Message: "tag already owned"}
	ErrInvalidTransition = &Error{Code: CodeInvalidTransition, Message: "invalid status transition"}
	ErrPartialWrite      = &Error{Code: CodePartialWrite, Message: "partial write"}
	ErrInvalidSignature  = &Error{Code: CodeInvalidSignature, Message: "invalid signature"}
	ErrMalformedEvent    = &Error{Code: CodeMalformedEvent, Message: "malformed event"}
)

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// AlreadyExists creates an already exists error.
func AlreadyExists(msg string) *Error {
	return &Error{Code: CodeAlreadyExists, Message: msg}
}

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *Error {
	return &Error{Code: CodeUnauthorized, Message: msg}
}

// Forbidden creates a forbidden error.
func Forbidden(msg string) *Error {
	return &Error{Code: CodeForbidden, Message: msg}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// InvalidCredentials creates an invalid credentials error.
func InvalidCredentials(msg string) *Error {
	return &Error{Code: CodeInvalidCredentials, Message: msg}
}

// TokenExpired creates a token expired error.
func TokenExpired(msg string) *Error {
	return &Error{Code: CodeTokenExpired, Message: msg}
}

// TagNotFoundf creates a tag not found error.
func TagNotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeTagNotFound, Message: fmt.Sprintf(format, args...)}
}

// TagAlreadyOwnedf creates a tag already owned error.
func TagAlreadyOwnedf(format string, args ...any) *Error {
	return &Error{Code: CodeTagAlreadyOwned, Message: fmt.Sprintf(format, args...)}
}

// InvalidTransitionf creates an invalid status transition error.
func InvalidTransitionf(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidTransition, Message: fmt.Sprintf(format, args...)}
}

// PartialWrite reports that one leg of a multi-document write failed.
// The joined causes stay reachable through errors.Is / errors.As.
func PartialWrite(msg string, causes ...error) *Error {
	return &Error{Code: CodePartialWrite, Message: msg, cause: errors.Join(causes...)}
}

// InvalidSignature creates an invalid signature error.
func InvalidSignature(msg string) *Error {
	return &Error{Code: CodeInvalidSignature, Message: msg}
}

// MalformedEvent creates a malformed event error wrapping the parse cause.
func MalformedEvent(msg string, cause error) *Error {
	return &Error{Code: CodeMalformedEvent, Message: msg, cause: cause}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
