// SPDX-License-Identifier: Apache-2.0
// Package errors provides typed error handling with rich context for Cadenza.
package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode classifies Cadenza errors for monitoring and HTTP mapping.
type ErrorCode string

const (
	// CodeInternal indicates an internal system error.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeInvalidInput indicates a parameter or request body was invalid.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeNotFound indicates a skill or template was not found.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeConflict indicates a registration collided with an existing entry.
	CodeConflict ErrorCode = "CONFLICT"

	// CodeSkillFailure indicates a skill implementation failed during a
	// running execution. Never surfaced as an HTTP error; folded into the
	// execution's step details instead.
	CodeSkillFailure ErrorCode = "SKILL_FAILURE"

	// CodeTimeout indicates an operation exceeded its time limit.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeLLMError indicates an LLM provider error.
	CodeLLMError ErrorCode = "LLM_ERROR"

	// CodeMemoryError indicates a session or vector store error.
	CodeMemoryError ErrorCode = "MEMORY_ERROR"
)

// CadenzaError is a typed error with rich context for observability.
// It implements the error interface and can be unwrapped with errors.As().
type CadenzaError struct {
	Code        ErrorCode
	Message     string
	Err         error
	Context     map[string]interface{}
	Recoverable bool
	StatusCode  int // For HTTP responses
}

// Error implements the error interface.
func (e *CadenzaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap for error chain traversal.
func (e *CadenzaError) Unwrap() error {
	return e.Err
}

// MarshalJSON implements json.Marshaler for structured logging.
func (e *CadenzaError) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Message     string `json:"message"`
		Code        string `json:"code"`
		Err         string `json:"error,omitempty"`
		Recoverable bool   `json:"recoverable"`
	}{
		Message:     e.Message,
		Code:        string(e.Code),
		Err:         errString(e.Err),
		Recoverable: e.Recoverable,
	})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// New creates a new CadenzaError with the given code, message, and cause.
func New(code ErrorCode, msg string, cause error) *CadenzaError {
	return &CadenzaError{
		Code:       code,
		Message:    msg,
		Err:        cause,
		Context:    make(map[string]interface{}),
		StatusCode: codeToStatusCode(code),
	}
}

// NotFound creates a NOT_FOUND error for a named resource.
func NotFound(msg string) *CadenzaError {
	return New(CodeNotFound, msg, nil)
}

// Invalid creates an INVALID_INPUT error.
func Invalid(msg string) *CadenzaError {
	return New(CodeInvalidInput, msg, nil)
}

// Conflict creates a CONFLICT error.
func Conflict(msg string) *CadenzaError {
	return New(CodeConflict, msg, nil)
}

// WithContext adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *CadenzaError) WithContext(key string, value interface{}) *CadenzaError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithRecoverable sets whether the error can be recovered from.
// Returns the error for method chaining.
func (e *CadenzaError) WithRecoverable(recoverable bool) *CadenzaError {
	e.Recoverable = recoverable
	return e
}

// AsCadenzaError attempts to convert an error to a CadenzaError.
// Returns the error as CadenzaError if it is one, or wraps it otherwise.
func AsCadenzaError(err error) *CadenzaError {
	if err == nil {
		return nil
	}
	if ce, ok := err.(*CadenzaError); ok {
		return ce
	}
	return New(CodeInternal, "wrapped error", err)
}

// IsCode reports whether err is a CadenzaError with the given code.
func IsCode(err error, code ErrorCode) bool {
	ce, ok := err.(*CadenzaError)
	return ok && ce.Code == code
}

// codeToStatusCode maps error codes to HTTP status codes.
func codeToStatusCode(code ErrorCode) int {
	switch code {
	case CodeNotFound:
		return 404
	case CodeInvalidInput:
		return 400
	case CodeConflict:
		return 409
	case CodeTimeout:
		return 408
	default:
		return 500
	}
}
