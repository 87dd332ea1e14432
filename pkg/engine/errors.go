package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorClass represents the classification of an error for retry and recovery logic.
type ErrorClass string

const (
	// ErrorClassTransient indicates a temporary failure that may succeed on retry.
	// Examples: session timeouts, a device busy with another login.
	ErrorClassTransient ErrorClass = "transient"

	// ErrorClassPermanent indicates a non-recoverable error.
	// Examples: malformed configuration, authentication failure, policy denial.
	ErrorClassPermanent ErrorClass = "permanent"

	// ErrorClassSoft indicates an operation that ran to completion without
	// reaching the requested outcome.
	ErrorClassSoft ErrorClass = "soft"
)

// EngineError represents a classified error with context.
// nolint:revive // EngineError is intentionally named to distinguish from standard errors
type EngineError struct {
	// Class is the error classification for retry logic.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Code is an error code for programmatic handling.
	Code string `json:"code,omitempty"`

	// Host is the device the error occurred on, if applicable.
	Host string `json:"host,omitempty"`

	// Operation is the operation being performed when the error occurred.
	Operation string `json:"operation,omitempty"`

	// Err is the underlying error that caused this error.
	Err error `json:"-"`

	// Details contains additional context-specific information.
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Host != "" && e.Operation != "" {
		return fmt.Sprintf("[%s] %s (host=%s, operation=%s): %s",
			e.Class, e.Message, e.Host, e.Operation, e.unwrapMessage())
	}
	if e.Host != "" {
		return fmt.Sprintf("[%s] %s (host=%s): %s",
			e.Class, e.Message, e.Host, e.unwrapMessage())
	}
	return fmt.Sprintf("[%s] %s: %s", e.Class, e.Message, e.unwrapMessage())
}

// Unwrap returns the underlying error for error chain inspection.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// unwrapMessage returns the error message from the underlying error chain.
func (e *EngineError) unwrapMessage() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return ""
}

// Is implements error equality checking for errors.Is.
func (e *EngineError) Is(target error) bool {
	t, ok := target.(*EngineError)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

// NewTransientError creates a new transient error.
func NewTransientError(message string, err error) *EngineError {
	return &EngineError{
		Class:   ErrorClassTransient,
		Message: message,
		Err:     err,
	}
}

// NewPermanentError creates a new permanent error.
func NewPermanentError(message string, err error) *EngineError {
	return &EngineError{
		Class:   ErrorClassPermanent,
		Message: message,
		Err:     err,
	}
}

// NewSoftError creates a new soft error.
func NewSoftError(message string, err error) *EngineError {
	return &EngineError{
		Class:   ErrorClassSoft,
		Message: message,
		Err:     err,
	}
}

// WithHost adds device context to an error.
func (e *EngineError) WithHost(host string) *EngineError {
	e.Host = host
	return e
}

// WithOperation adds operation context to an error.
func (e *EngineError) WithOperation(operation string) *EngineError {
	e.Operation = operation
	return e
}

// WithCode adds an error code to an error.
func (e *EngineError) WithCode(code string) *EngineError {
	e.Code = code
	return e
}

// WithDetail adds a detail field to the error context.
func (e *EngineError) WithDetail(key string, value interface{}) *EngineError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsTransient returns true if the error is classified as transient.
func IsTransient(err error) bool {
	var e *EngineError
	if errors.As(err, &e) {
		return e.Class == ErrorClassTransient
	}
	return false
}

// IsPermanent returns true if the error is classified as permanent.
func IsPermanent(err error) bool {
	var e *EngineError
	if errors.As(err, &e) {
		return e.Class == ErrorClassPermanent
	}
	return false
}

// IsSoft returns true if the error is classified as soft.
func IsSoft(err error) bool {
	var e *EngineError
	if errors.As(err, &e) {
		return e.Class == ErrorClassSoft
	}
	return false
}

// IsRetryable returns true if the error can be retried.
func IsRetryable(err error) bool {
	return IsTransient(err)
}

// CodeOf returns the code of the outermost EngineError in err's chain.
func CodeOf(err error) string {
	var e *EngineError
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Error codes.
const (
	ErrCodeTransport    = "TRANSPORT_ERROR"
	ErrCodeParse        = "PARSE_ERROR"
	ErrCodeCondition    = "CONDITION_SYNTAX"
	ErrCodeUnsatisfied  = "UNSATISFIED_CONDITIONS"
	ErrCodePolicyDenied = "POLICY_DENIED"
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeBackupFailed = "BACKUP_FAILED"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// UnsatisfiedConditionsError reports wait_for conditions still unsatisfied
// when the retry budget ran out. Outputs holds the results of the last
// attempt.
type UnsatisfiedConditionsError struct {
	Failed  []string
	Outputs []string
}

// Error implements the error interface.
func (e *UnsatisfiedConditionsError) Error() string {
	return fmt.Sprintf("one or more conditional statements have not been satisfied: %s",
		strings.Join(e.Failed, "; "))
}

// PolicyDeniedError lists the violations that blocked a command batch.
type PolicyDeniedError struct {
	Violations []PolicyViolation
}

// Error implements the error interface.
func (e *PolicyDeniedError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, fmt.Sprintf("%s: %s", v.Policy, v.Message))
	}
	return "command batch denied by policy: " + strings.Join(msgs, "; ")
}
