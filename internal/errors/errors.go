// Package errors provides custom error types for the domsync application.
//
// Every failure in the session core is local and non-fatal. The types here
// let the controller decide how a failure reaches the operator:
//   - TimeoutError: persistent status notice in the overlay
//   - PreconditionError / WriteFault: blocking acknowledgment prompt
//   - ValidationError: the action is disabled before it can run
//   - BrowserError: logged, the affected read resolves to empty data
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// TimeoutError indicates that a bounded wait elapsed without success.
//
// This error is returned when:
//   - No lead number appeared within the detection ceiling
//   - The status dialog did not open within the dialog wait
//   - No next lead appeared after the operator submitted the dialog
//
// Recovery strategy: show a persistent notice, wait for the next re-sync
type TimeoutError struct {
	Operation string
	After     time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout: %s did not complete within %v", e.Operation, e.After)
}

// NewTimeoutError creates a new timeout error for the named operation
func NewTimeoutError(operation string, after time.Duration) *TimeoutError {
	return &TimeoutError{Operation: operation, After: after}
}

// WriteFault indicates that the framework-bridge write into a foreign
// field could not be performed.
//
// Reasons reported by the bridge:
//   - "element-missing": no element matched the selector
//   - "handler-missing": the element carries no framework change handler
//   - "evaluate": the script itself could not be evaluated
type WriteFault struct {
	Selector string
	Reason   string
	Err      error
}

func (e *WriteFault) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("write fault on %s: %s: %v", e.Selector, e.Reason, e.Err)
	}
	return fmt.Sprintf("write fault on %s: %s", e.Selector, e.Reason)
}

// Unwrap returns the wrapped error for error chain inspection
func (e *WriteFault) Unwrap() error {
	return e.Err
}

// NewWriteFault creates a new write fault
func NewWriteFault(selector, reason string, err error) *WriteFault {
	return &WriteFault{Selector: selector, Reason: reason, Err: err}
}

// PreconditionError indicates that an automation step could not start
// because the page is not in the expected shape.
//
// Step names the step that halted. Message is shown to the operator and
// describes the manual action to take instead.
type PreconditionError struct {
	Step    string
	Message string
	Err     error
}

func (e *PreconditionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("precondition failed at %s: %s: %v", e.Step, e.Message, e.Err)
	}
	return fmt.Sprintf("precondition failed at %s: %s", e.Step, e.Message)
}

// Unwrap returns the wrapped error for error chain inspection
func (e *PreconditionError) Unwrap() error {
	return e.Err
}

// NewPreconditionError creates a new precondition error with context
func NewPreconditionError(step, msg string, err error) *PreconditionError {
	return &PreconditionError{Step: step, Message: msg, Err: err}
}

// ValidationError lists the required operator selections that are missing
// or malformed.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: missing or invalid %v", e.Fields)
}

// NewValidationError creates a new validation error for the given fields
func NewValidationError(fields ...string) *ValidationError {
	return &ValidationError{Fields: fields}
}

// BrowserError wraps DevTools failures (snapshot, click, evaluate).
type BrowserError struct {
	Message string
	Err     error
}

func (e *BrowserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("browser error: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("browser error: %s", e.Message)
}

// Unwrap returns the wrapped error for error chain inspection
func (e *BrowserError) Unwrap() error {
	return e.Err
}

// NewBrowserError creates a new browser error with context
func NewBrowserError(msg string, err error) *BrowserError {
	return &BrowserError{Message: msg, Err: err}
}

// IsTimeout checks if the error chain contains a TimeoutError
func IsTimeout(err error) bool {
	var target *TimeoutError
	return stderrors.As(err, &target)
}

// IsWriteFault checks if the error chain contains a WriteFault
func IsWriteFault(err error) bool {
	var target *WriteFault
	return stderrors.As(err, &target)
}

// IsPrecondition checks if the error chain contains a PreconditionError
func IsPrecondition(err error) bool {
	var target *PreconditionError
	return stderrors.As(err, &target)
}

// IsValidation checks if the error chain contains a ValidationError
func IsValidation(err error) bool {
	var target *ValidationError
	return stderrors.As(err, &target)
}
