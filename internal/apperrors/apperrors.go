package apperrors

import (
	"errors"
	"fmt"
)

// Code classifies a failure so the request layer can report it without inspecting messages.
type Code string

const (
	CodeValidation            Code = "VALIDATION"
	CodeAuthenticationFailed  Code = "AUTHENTICATION_FAILED"
	CodeAuthorizationDenied   Code = "AUTHORIZATION_DENIED"
	CodeTokenReplayed         Code = "TOKEN_REPLAYED"
	CodeTokenExpired          Code = "TOKEN_EXPIRED"
	CodeTokenInvalidSignature Code = "TOKEN_INVALID_SIGNATURE"
	CodeTokenWrongKind        Code = "TOKEN_WRONG_KIND"
	CodeNotFound              Code = "NOT_FOUND"
	CodeConflict              Code = "CONFLICT"
	CodeDependency            Code = "DEPENDENCY_FAILURE"
	CodeInternal              Code = "INTERNAL_ERROR"
)

// AppError is a tagged application failure.
type AppError struct {
	Code    Code
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates an AppError without an underlying cause.
func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap tags err with a code and message.
func Wrap(err error, code Code, message string) *AppError {
	return &AppError{Code: code, Message: message, Cause: err}
}

// Validation is shorthand for a VALIDATION failure.
func Validation(message string) *AppError {
	return New(CodeValidation, message)
}

// Dependency tags a storage or upstream failure.
func Dependency(err error, message string) *AppError {
	return Wrap(err, CodeDependency, message)
}

// CodeOf returns the code of the outermost AppError in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// MessageOf returns a caller-safe message for err.
func MessageOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal error"
}

// IsRetryable reports whether err is a dependency failure.
func IsRetryable(err error) bool {
	return CodeOf(err) == CodeDependency
}
