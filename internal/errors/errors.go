// Package errors provides a lightweight structured error type (HotbuildError)
// for category-based classification and retry semantics across the build
// pipeline, watcher, and control-plane surfaces.
package errors

import (
	"fmt"
)

// ErrorCategory represents the category of a hotbuild error for classification
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"
	CategoryAuth       ErrorCategory = "auth"

	// External system integration errors
	CategoryNetwork ErrorCategory = "network"
	CategoryReload  ErrorCategory = "reload"

	// Build and processing errors
	CategoryBuild      ErrorCategory = "build"
	CategoryCompile    ErrorCategory = "compile"
	CategoryDeploy     ErrorCategory = "deploy"
	CategoryFileSystem ErrorCategory = "filesystem"

	// Runtime and infrastructure errors
	CategoryWatch    ErrorCategory = "watch"
	CategoryRuntime  ErrorCategory = "runtime"
	CategoryDaemon   ErrorCategory = "daemon"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
	SeverityInfo    ErrorSeverity = "info"    // Informational, no impact
)

// HotbuildError is a structured error with category, retryability, and context
type HotbuildError struct {
	Category  ErrorCategory `json:"category"`
	Severity  ErrorSeverity `json:"severity"`
	Message   string        `json:"message"`
	Cause     error         `json:"cause,omitempty"`
	Retryable bool          `json:"retryable"`
	Context   ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for HotbuildError
type ContextFields map[string]any

// Error implements the error interface
func (e *HotbuildError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *HotbuildError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *HotbuildError) WithContext(key string, value any) *HotbuildError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new HotbuildError
func New(category ErrorCategory, severity ErrorSeverity, message string) *HotbuildError {
	return &HotbuildError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Retryable: false,
	}
}

// Wrap creates a new HotbuildError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *HotbuildError {
	return &HotbuildError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Cause:     err,
		Retryable: false,
	}
}

// WrapRetryable creates a new retryable HotbuildError that wraps an existing error
func WrapRetryable(err error, category ErrorCategory, severity ErrorSeverity, message string) *HotbuildError {
	return &HotbuildError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Cause:     err,
		Retryable: true,
	}
}

// IsCategory checks if an error belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	if hbe, ok := err.(*HotbuildError); ok {
		return hbe.Category == category
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	if hbe, ok := err.(*HotbuildError); ok {
		return hbe.Retryable
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal if not a HotbuildError
func GetCategory(err error) ErrorCategory {
	if hbe, ok := err.(*HotbuildError); ok {
		return hbe.Category
	}
	return CategoryInternal
}
