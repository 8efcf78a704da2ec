package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different types of errors in the system
type ErrorType string

const (
	// ErrorTypeNotFound indicates a resource was not found
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeValidation indicates a validation error
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeConflict indicates a conflict with existing data or state
	ErrorTypeConflict ErrorType = "CONFLICT"

	// ErrorTypeUnauthorized indicates the caller is not entitled to act on the resource
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"

	// ErrorTypeInternal indicates an internal server error
	ErrorTypeInternal ErrorType = "INTERNAL"

	// ErrorTypeProviderTransient indicates a retryable failure from the signing provider
	// (timeout, 5xx, rate limit)
	ErrorTypeProviderTransient ErrorType = "PROVIDER_TRANSIENT"

	// ErrorTypeProviderPermanent indicates a non-retryable failure from the signing
	// provider (4xx validation, malformed payload)
	ErrorTypeProviderPermanent ErrorType = "PROVIDER_PERMANENT"

	// ErrorTypeFallback indicates the manual-delivery fallback itself failed and a
	// human has to complete the process out of band
	ErrorTypeFallback ErrorType = "FALLBACK"

	// ErrorTypeReconciliation indicates a malformed or untrusted status update that
	// was logged and ignored without touching the record
	ErrorTypeReconciliation ErrorType = "RECONCILIATION"
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// TypeOf returns the ErrorType of err if it is (or wraps) an AppError,
// and ErrorTypeInternal otherwise.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// IsType reports whether err is an AppError of the given type.
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == t
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeConflict,
		Message: message,
	}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeUnauthorized,
		Message: message,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// NewProviderTransientError creates a retryable signing-provider error
func NewProviderTransientError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeProviderTransient,
		Message: message,
		Err:     err,
	}
}

// NewProviderPermanentError creates a non-retryable signing-provider error
func NewProviderPermanentError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeProviderPermanent,
		Message: message,
		Err:     err,
	}
}

// NewFallbackError creates an error for a failed manual-delivery fallback
func NewFallbackError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeFallback,
		Message: message,
		Err:     err,
	}
}

// NewReconciliationError creates an error for an ignored status update
func NewReconciliationError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeReconciliation,
		Message: message,
		Err:     err,
	}
}
