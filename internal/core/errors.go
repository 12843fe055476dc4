package core

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors for handling decisions.
type ErrorCategory string

const (
	ErrCatValidation ErrorCategory = "validation" // Invalid input
	ErrCatExecution  ErrorCategory = "execution"  // Runtime failure
	ErrCatTimeout    ErrorCategory = "timeout"    // Operation timed out
	ErrCatState      ErrorCategory = "state"      // State corruption/conflict
	ErrCatNotFound   ErrorCategory = "not_found"  // Resource not found
	ErrCatInternal   ErrorCategory = "internal"   // Unexpected internal error
)

// DomainError represents a structured error from the domain layer.
type DomainError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Retryable bool
	Cause     error
	Details   map[string]interface{}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds contextual information.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ErrValidation creates a validation error.
func ErrValidation(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatValidation,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrExecution creates an execution error.
func ErrExecution(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatExecution,
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// ErrTimeout creates a timeout error.
func ErrTimeout(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatTimeout,
		Code:      "TIMEOUT",
		Message:   message,
		Retryable: true,
	}
}

// ErrState creates a state error.
func ErrState(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatState,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrNotFound creates a not found error.
func ErrNotFound(resource, id string) *DomainError {
	return &DomainError{
		Category:  ErrCatNotFound,
		Code:      "NOT_FOUND",
		Message:   fmt.Sprintf("%s not found: %s", resource, id),
		Retryable: false,
	}
}

// ErrInternal creates an internal error.
func ErrInternal(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatInternal,
		Code:      "INTERNAL",
		Message:   message,
		Retryable: false,
	}
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Retryable
	}
	return false
}

// GetCategory extracts the error category.
func GetCategory(err error) ErrorCategory {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	return ErrCatInternal
}

// IsCategory checks if an error belongs to a category.
func IsCategory(err error, cat ErrorCategory) bool {
	return GetCategory(err) == cat
}

// IsNotFound checks if an error is a not-found error.
func IsNotFound(err error) bool {
	return IsCategory(err, ErrCatNotFound)
}

// Predefined error codes
const (
	CodeInvalidState   = "INVALID_STATE"
	CodeStateCorrupted = "STATE_CORRUPTED"
	CodePendingGate    = "PENDING_GATE_EXISTS"
	CodeNoPendingGate  = "NO_PENDING_GATE"
	CodeProjectActive  = "PROJECT_ACTIVE"

	// Validation error codes
	CodeEmptyProjectID   = "EMPTY_PROJECT_ID"
	CodeUnknownMode      = "UNKNOWN_MODE"
	CodeInvalidInput     = "INVALID_INPUT"
	CodeInvalidTimeout   = "INVALID_TIMEOUT"
	CodeInvalidStatus    = "INVALID_STATUS"
	CodeFeedbackTooShort = "FEEDBACK_TOO_SHORT"
	CodeBadDefinition    = "BAD_DEFINITION"

	// Execution error codes
	CodeAgentFailed      = "AGENT_FAILED"
	CodeDependencyCycle  = "DEPENDENCY_CYCLE"
	CodeUnknownExecModel = "UNKNOWN_EXECUTION_MODEL"
)
