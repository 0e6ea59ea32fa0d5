// Package errors provides the structured error type shared by the simulator,
// its samplers and the I/O wrappers around them. Every error carries a
// category, a code, a message and a retryable flag.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by the layer that raised them.
type ErrorCategory string

const (
	ErrCategoryConfig   ErrorCategory = "CONFIG"
	ErrCategoryArgument ErrorCategory = "ARGUMENT"
	ErrCategoryOutput   ErrorCategory = "OUTPUT"
	ErrCategoryStorage  ErrorCategory = "STORAGE"
	ErrCategoryInternal ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Config codes
	CodeInvalidConfiguration = "INVALID_CONFIGURATION"
	CodeUnreadableParams     = "UNREADABLE_PARAMS"

	// Argument codes
	CodeInvalidArgument = "INVALID_ARGUMENT"

	// Output codes
	CodeWriteFailed       = "WRITE_FAILED"
	CodeUnsupportedFormat = "UNSUPPORTED_FORMAT"

	// Storage codes
	CodeUploadFailed   = "UPLOAD_FAILED"
	CodeObjectNotFound = "OBJECT_NOT_FOUND"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// SimError is the structured error type used throughout the module.
type SimError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Details   map[string]interface{}
	Cause     error
	Retryable bool
}

// Error returns a formatted error string.
func (e *SimError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *SimError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *SimError) Is(target error) bool {
	var t *SimError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new SimError.
func New(category ErrorCategory, code, message string) *SimError {
	return &SimError{
		Category:  category,
		Code:      code,
		Message:   message,
		Retryable: isRetryable(category, code),
	}
}

// Wrap creates a new SimError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *SimError {
	return &SimError{
		Category:  category,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryable(category, code),
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *SimError) WithDetails(details map[string]interface{}) *SimError {
	cp := *e
	cp.Details = details
	return &cp
}

// IsRetryable checks whether an error (or its chain) is retryable.
func IsRetryable(err error) bool {
	var se *SimError
	if errors.As(err, &se) {
		return se.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a SimError.
func GetCategory(err error) ErrorCategory {
	var se *SimError
	if errors.As(err, &se) {
		return se.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
func GetCode(err error) string {
	var se *SimError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// Sampling is deterministic, so only storage transfers are worth retrying.
func isRetryable(category ErrorCategory, code string) bool {
	return category == ErrCategoryStorage && code == CodeUploadFailed
}

// Sentinels for errors.Is comparisons; only category and code are compared.
var (
	ErrInvalidConfiguration = New(ErrCategoryConfig, CodeInvalidConfiguration, "")
	ErrInvalidArgument      = New(ErrCategoryArgument, CodeInvalidArgument, "")
)

// Convenience constructors for common errors.

func NewConfigError(message string) *SimError {
	return New(ErrCategoryConfig, CodeInvalidConfiguration, message)
}

func NewArgumentError(format string, args ...interface{}) *SimError {
	return New(ErrCategoryArgument, CodeInvalidArgument, fmt.Sprintf(format, args...))
}

func NewOutputError(code, message string, cause error) *SimError {
	return Wrap(ErrCategoryOutput, code, message, cause)
}

func NewStorageError(code, message string, cause error) *SimError {
	return Wrap(ErrCategoryStorage, code, message, cause)
}

func NewInternalError(message string, cause error) *SimError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
