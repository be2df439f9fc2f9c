// Package utils provides logging, structured errors and rate limiting
// shared by the extraction, filtering and scan packages.
package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity int

const (
	SeverityInfo ErrorSeverity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

// String returns string representation of error severity
func (s ErrorSeverity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ErrorCode represents predefined error codes for categorization
type ErrorCode string

const (
	// Extraction errors are recovered locally and degrade fields to absent
	ErrCodeExtractionFailed ErrorCode = "EXTRACTION_FAILED"
	ErrCodeMalformedData    ErrorCode = "MALFORMED_DATA"

	// Structural lookup failures turn a scan or setup step into a no-op
	ErrCodeStructureNotFound ErrorCode = "STRUCTURE_NOT_FOUND"

	// Persistence errors are logged, never retried or rolled back
	ErrCodePersistenceFailed ErrorCode = "PERSISTENCE_FAILED"

	// Configuration related errors
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
	ErrCodeMissingConfig ErrorCode = "MISSING_CONFIG"

	// Browser automation
	ErrCodeBrowserFailed ErrorCode = "BROWSER_FAILED"

	// Lifecycle misuse
	ErrCodeNotInitialized ErrorCode = "NOT_INITIALIZED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StructuredError provides rich error information for logs and the API
type StructuredError struct {
	Code        ErrorCode              `json:"code"`
	Message     string                 `json:"message"`
	Severity    ErrorSeverity          `json:"severity"`
	Context     map[string]interface{} `json:"context,omitempty"`
	Cause       error                  `json:"-"`
	Timestamp   time.Time              `json:"timestamp"`
	UserMessage string                 `json:"user_message,omitempty"`
}

// Error implements the error interface
func (e *StructuredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error unwrapping
func (e *StructuredError) Unwrap() error {
	return e.Cause
}

// Is matches another StructuredError with the same code
func (e *StructuredError) Is(target error) bool {
	if se, ok := target.(*StructuredError); ok {
		return e.Code == se.Code
	}
	return false
}

// WithContext adds contextual information to the error
func (e *StructuredError) WithContext(key string, value interface{}) *StructuredError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSeverity sets the error severity
func (e *StructuredError) WithSeverity(severity ErrorSeverity) *StructuredError {
	e.Severity = severity
	return e
}

// WithUserMessage sets a user-friendly error message
func (e *StructuredError) WithUserMessage(message string) *StructuredError {
	e.UserMessage = message
	return e
}

// NewError creates a structured error with error severity
func NewError(code ErrorCode, message string) *StructuredError {
	return &StructuredError{
		Code:      code,
		Message:   message,
		Severity:  SeverityError,
		Timestamp: time.Now(),
	}
}

// WrapError wraps an existing error in a structured error
func WrapError(err error, code ErrorCode, message string) *StructuredError {
	se := NewError(code, message)
	se.Cause = err
	return se
}

// CodeOf returns the code of the first StructuredError in err's chain
func CodeOf(err error) ErrorCode {
	var se *StructuredError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// HasCode reports whether err carries the given code anywhere in its chain
func HasCode(err error, code ErrorCode) bool {
	return errors.Is(err, &StructuredError{Code: code})
}

// GetUserFriendlyMessage extracts a user-friendly message from an error
func GetUserFriendlyMessage(err error) string {
	var se *StructuredError
	if !errors.As(err, &se) {
		return "An error occurred. Please try again."
	}
	if se.UserMessage != "" {
		return se.UserMessage
	}

	switch se.Code {
	case ErrCodeStructureNotFound:
		return "No video feed was found on the page. Filtering resumes once the feed renders."
	case ErrCodePersistenceFailed:
		return "Filter history could not be saved. Hidden videos stay hidden."
	case ErrCodeInvalidConfig, ErrCodeMissingConfig:
		return "The configuration is invalid: " + strings.TrimSpace(se.Message)
	case ErrCodeBrowserFailed:
		return "The browser session failed. Check that Chrome is installed and reachable."
	default:
		return "An unexpected error occurred."
	}
}
