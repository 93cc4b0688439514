package utils

import (
	"errors"
	"fmt"
)

// AppError is an application error carrying the HTTP status the API layer
// should answer with plus the underlying cause.
type AppError struct {
	Code    int
	Message string
	Err     error
}

// NewAppError creates an AppError.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the cause to errors.Is/As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status for err, defaulting to 500.
func StatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return 500
}

// IsNotFound reports whether err is a not-found AppError.
func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == 404
}

// IsQuotaExceeded reports whether err is the quota-exceeded condition.
func IsQuotaExceeded(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == 413
}

func BadRequestError(message string, err error) *AppError {
	return NewAppError(400, message, err)
}

func UnauthorizedError(message string, err error) *AppError {
	return NewAppError(401, message, err)
}

func ForbiddenError(message string, err error) *AppError {
	return NewAppError(403, message, err)
}

func NotFoundError(message string, err error) *AppError {
	return NewAppError(404, message, err)
}

func ConflictError(message string, err error) *AppError {
	return NewAppError(409, message, err)
}

// QuotaExceededError is the fail-fast condition raised before any message
// is persisted when the ledger would overflow.
func QuotaExceededError(message string) *AppError {
	return NewAppError(413, message, nil)
}

func InternalServerError(message string, err error) *AppError {
	return NewAppError(500, message, err)
}
