package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode string

// Error codes used across all packages
const (
	// Generic errors
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// Authentication errors. These all collapse to 401 at the HTTP
	// boundary; the distinct codes exist for internal logging only.
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid       ErrorCode = "TOKEN_INVALID"
	ErrCodeChallengeNotFound  ErrorCode = "CHALLENGE_NOT_FOUND"
	ErrCodeChallengeExpired   ErrorCode = "CHALLENGE_EXPIRED"
	ErrCodeChallengeInvalid   ErrorCode = "CHALLENGE_INVALID"
	ErrCodeChallengeConsumed  ErrorCode = "CHALLENGE_CONSUMED"
	ErrCode2FAInvalid         ErrorCode = "TWO_FA_INVALID"
)

// Error represents a structured error with code, message, and a wrapped cause
type Error struct {
	Code    ErrorCode // Unique error code
	Message string    // Human-readable error message
	Err     error     // Wrapped underlying error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Is and errors.As
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatusCode returns the appropriate HTTP status code for this error
func (e *Error) HTTPStatusCode() int {
	return MapErrorCodeToHTTPStatus(e.Code)
}

// New creates a new Error with the given code and message
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new Error with formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with code and message
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Wrapf wraps an existing error with code and formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// IsCode checks if an error has a specific error code
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error.
// Returns ErrCodeInternal if the error is not a structured Error.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// MapErrorCodeToHTTPStatus maps error codes to HTTP status codes
func MapErrorCodeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidInput:
		return http.StatusBadRequest

	case ErrCodeUnauthorized, ErrCodeInvalidCredentials,
		ErrCodeTokenExpired, ErrCodeTokenInvalid,
		ErrCodeChallengeNotFound, ErrCodeChallengeExpired,
		ErrCodeChallengeInvalid, ErrCodeChallengeConsumed,
		ErrCode2FAInvalid:
		return http.StatusUnauthorized

	case ErrCodeNotFound:
		return http.StatusNotFound

	case ErrCodeConflict:
		return http.StatusConflict

	case ErrCodeInternal:
		fallthrough
	default:
		return http.StatusInternalServerError
	}
}

// Common error constructors for frequently used errors

// NotFound creates a "not found" error
func NotFound(resourceType, identifier string) *Error {
	return Newf(ErrCodeNotFound, "%s not found: %s", resourceType, identifier)
}

// Conflict creates a "conflict" error
func Conflict(message string) *Error {
	return New(ErrCodeConflict, message)
}

// InvalidInput creates an "invalid input" error
func InvalidInput(field, reason string) *Error {
	return New(ErrCodeInvalidInput, fmt.Sprintf("invalid %s: %s", field, reason))
}

// Unauthorized creates an "unauthorized" error
func Unauthorized(message string) *Error {
	return New(ErrCodeUnauthorized, message)
}

// Internal creates an "internal error"
func Internal(message string) *Error {
	return New(ErrCodeInternal, message)
}

// InternalWrap wraps an internal error
func InternalWrap(err error, message string) *Error {
	return Wrap(err, ErrCodeInternal, message)
}

// IsAuthFailure reports whether an error belongs to the family of
// authentication failures that are collapsed to a single generic
// unauthorized response externally.
func IsAuthFailure(err error) bool {
	switch GetCode(err) {
	case ErrCodeUnauthorized, ErrCodeInvalidCredentials,
		ErrCodeTokenExpired, ErrCodeTokenInvalid,
		ErrCodeChallengeNotFound, ErrCodeChallengeExpired,
		ErrCodeChallengeInvalid, ErrCodeChallengeConsumed,
		ErrCode2FAInvalid:
		return true
	}
	return false
}
