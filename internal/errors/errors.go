// Package errors classifies application failures by code and severity and
// reports the ones nobody up the stack can handle.
package errors

import "fmt"

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

const (
	CodeValidation    = "E100"
	CodeDatabase      = "E200"
	CodeTaskFailure   = "E400"
	CodeHookFailure   = "E600"
	CodeResourceClose = "E610"
)

// AppError is a classified failure. Code groups failures for metrics and
// alerting; Retryable tells WithRetry whether another attempt may succeed.
type AppError struct {
	Code      string
	Message   string
	Severity  Severity
	Retryable bool
	cause     error
}

func newAppError(code string, severity Severity, retryable bool, cause error, format string, args ...any) *AppError {
	return &AppError{
		Code:      code,
		Message:   fmt.Sprintf(format, args...),
		Severity:  severity,
		Retryable: retryable,
		cause:     cause,
	}
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func NewValidationError(msg string) *AppError {
	return newAppError(CodeValidation, SeverityLow, false, nil, "invalid input: %s", msg)
}

// NewDatabaseError marks a database failure as transient.
func NewDatabaseError(cause error) *AppError {
	return newAppError(CodeDatabase, SeverityHigh, true, cause, "database error: %v", cause)
}

// NewTaskError wraps a background task that failed its final attempt.
func NewTaskError(taskType string, cause error) *AppError {
	return newAppError(CodeTaskFailure, SeverityMedium, false, cause, "task %s failed: %v", taskType, cause)
}

// NewHookError wraps the failure of a shutdown hook.
func NewHookError(hook string, cause error) *AppError {
	return newAppError(CodeHookFailure, SeverityHigh, false, cause, "shutdown hook %s failed: %v", hook, cause)
}

// NewResourceCloseError wraps the failure to close a core resource during shutdown.
func NewResourceCloseError(resource string, cause error) *AppError {
	return newAppError(CodeResourceClose, SeverityHigh, false, cause, "closing resource %s failed: %v", resource, cause)
}
