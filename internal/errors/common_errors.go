package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeInvalidParameter ErrorType = "INVALID_PARAMETER"
	ErrTypeUnparseable      ErrorType = "UNPARSEABLE"
	ErrTypeTransientLoad    ErrorType = "TRANSIENT_LOAD"
	ErrTypeRetriesExhausted ErrorType = "RETRIES_EXHAUSTED"
	ErrTypeStorage          ErrorType = "STORAGE"
	ErrTypeValidation       ErrorType = "VALIDATION"
	ErrTypeNotFound         ErrorType = "NOT_FOUND"
	ErrTypeConfig           ErrorType = "CONFIG"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches another *AppError of the same type, so typed sentinels such
// as ErrRetriesExhausted work with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Type == e.Type && (t.Message == "" || t.Message == e.Message)
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// Sentinels for errors.Is checks. Only the type is compared.
var (
	ErrInvalidParameter = &AppError{Type: ErrTypeInvalidParameter}
	ErrTransientLoad    = &AppError{Type: ErrTypeTransientLoad}
	ErrRetriesExhausted = &AppError{Type: ErrTypeRetriesExhausted}
	ErrNotFound         = &AppError{Type: ErrTypeNotFound}
)

// TypeOf returns the type of the outermost AppError in err's chain, or ""
// when there is none.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsType reports whether err's chain contains an AppError of type t.
func IsType(err error, t ErrorType) bool {
	for err != nil {
		var appErr *AppError
		if !errors.As(err, &appErr) {
			return false
		}
		if appErr.Type == t {
			return true
		}
		err = appErr.Cause
	}
	return false
}

// Helper functions for common error types

// NewInvalidParameterError reports a caller programming error such as a
// non-positive bin count.
func NewInvalidParameterError(param, message string) *AppError {
	return NewAppError(ErrTypeInvalidParameter, message, nil).WithContext("parameter", param)
}

// NewUnparseableError reports input that could not be decoded.
func NewUnparseableError(message string, cause error) *AppError {
	return NewAppError(ErrTypeUnparseable, message, cause)
}

// NewTransientLoadError reports a load failure that may succeed when retried.
func NewTransientLoadError(message string, cause error) *AppError {
	return NewAppError(ErrTypeTransientLoad, message, cause)
}

// NewRetriesExhaustedError reports that a retry budget has been used up.
func NewRetriesExhaustedError(key string, retries int) *AppError {
	return NewAppError(ErrTypeRetriesExhausted,
		fmt.Sprintf("max retries exceeded for %s after %d attempts", key, retries), nil).
		WithContext("key", key).
		WithContext("retries", retries)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewAppValidationError creates a validation error for AppError type
func NewAppValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s not found", resource), nil)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}
