package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents an error code
type ErrorCode string

const (
	ErrCodeValidation      ErrorCode = "VALIDATION_ERROR"
	ErrCodeRateLimited     ErrorCode = "RATE_LIMITED"
	ErrCodeAlreadyVerified ErrorCode = "ALREADY_VERIFIED"
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized    ErrorCode = "UNAUTHORIZED"
	ErrCodeDelivery        ErrorCode = "DELIVERY_ERROR"
	ErrCodePersistence     ErrorCode = "PERSISTENCE_ERROR"
	ErrCodeInternalError   ErrorCode = "INTERNAL_ERROR"
)

// AppError represents an application error
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the status code a route answers with for this error.
func (e *AppError) HTTPStatus() int {
	return StatusFor(e.Code)
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with an AppError
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Validation creates a VALIDATION_ERROR.
func Validation(message string) *AppError {
	return New(ErrCodeValidation, message)
}

// RateLimited creates a RATE_LIMITED error.
func RateLimited(message string) *AppError {
	return New(ErrCodeRateLimited, message)
}

// AlreadyVerified creates an ALREADY_VERIFIED error.
func AlreadyVerified(message string) *AppError {
	return New(ErrCodeAlreadyVerified, message)
}

// NotFound creates a NOT_FOUND error.
func NotFound(message string) *AppError {
	return New(ErrCodeNotFound, message)
}

// Unauthorized creates an UNAUTHORIZED error.
func Unauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message)
}

// Delivery wraps a notification failure.
func Delivery(message string, err error) *AppError {
	return Wrap(ErrCodeDelivery, message, err)
}

// Persistence wraps a store failure.
func Persistence(message string, err error) *AppError {
	return Wrap(ErrCodePersistence, message, err)
}

// Internal wraps an unexpected failure.
func Internal(message string, err error) *AppError {
	return Wrap(ErrCodeInternalError, message, err)
}

// CodeOf returns the code of the first AppError in err's chain, or
// INTERNAL_ERROR when there is none.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternalError
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr) && appErr.Code == code
}

// IsNotFound checks if error is NotFound
func IsNotFound(err error) bool {
	return Is(err, ErrCodeNotFound)
}

// IsValidation checks if error is a validation error
func IsValidation(err error) bool {
	return Is(err, ErrCodeValidation)
}

// IsRateLimited checks if error is a rate limit conflict
func IsRateLimited(err error) bool {
	return Is(err, ErrCodeRateLimited)
}

// IsAlreadyVerified checks if error is an already-verified conflict
func IsAlreadyVerified(err error) bool {
	return Is(err, ErrCodeAlreadyVerified)
}

// IsUnauthorized checks if error is Unauthorized
func IsUnauthorized(err error) bool {
	return Is(err, ErrCodeUnauthorized)
}

// StatusFor maps an error code to an HTTP status.
func StatusFor(code ErrorCode) int {
	switch code {
	case ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeAlreadyVerified:
		return http.StatusConflict
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
