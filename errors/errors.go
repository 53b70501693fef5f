// Package errors defines the error taxonomy for the Transfer Connect SDK.
//
// All SDK errors are represented as TransferConnectError, which provides:
//   - Code: Machine-readable error identifier
//   - Message: Human-readable error description
//   - Layer: Which component layer produced the error (core, provider, webauth)
//   - Cause: Underlying error, if any
//   - Context: Additional error details (asset code, call site, etc.)
//
// Use the provided constructor functions (NewCoreError, NewProviderError,
// NewWebAuthError) to create properly typed errors with automatic layer
// assignment.
package errors

import "fmt"

// Code is a machine-readable error identifier.
type Code string

// Error codes - Core Layer
const (
	NETWORK_ERROR     Code = "NETWORK_ERROR"
	TOML_FETCH_FAILED Code = "TOML_FETCH_FAILED"
	TOML_INVALID      Code = "TOML_INVALID"
)

// Error codes - Provider Layer
const (
	VALIDATION_FAILED   Code = "VALIDATION_FAILED"
	INFO_NOT_FETCHED    Code = "INFO_NOT_FETCHED"
	ASSET_UNSUPPORTED   Code = "ASSET_UNSUPPORTED"
	AUTH_REQUIRED       Code = "AUTH_REQUIRED"
	FEE_TYPE_INVALID    Code = "FEE_TYPE_INVALID"
	SERVER_DATA_INVALID Code = "SERVER_DATA_INVALID"
)

// Error codes - WebAuth Layer
const (
	AUTH_UNSUPPORTED       Code = "AUTH_UNSUPPORTED"
	CHALLENGE_FETCH_FAILED Code = "CHALLENGE_FETCH_FAILED"
	CHALLENGE_INVALID      Code = "CHALLENGE_INVALID"
	AUTH_REJECTED          Code = "AUTH_REJECTED"
	SIGNER_ERROR           Code = "SIGNER_ERROR"
)

// TransferConnectError is the base error type for all SDK errors.
type TransferConnectError struct {
	Code    Code
	Message string
	Layer   string // "core", "provider", "webauth"
	Cause   error
	Context map[string]any
}

// Error returns a formatted error string.
func (e *TransferConnectError) Error() string {
	msg := fmt.Sprintf("[%s] %s: %s", e.Layer, e.Code, e.Message)
	if e.Cause != nil {
		msg += fmt.Sprintf(" (caused by: %v)", e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause error, enabling error chain inspection.
func (e *TransferConnectError) Unwrap() error {
	return e.Cause
}

// WithContext attaches a key/value detail to the error and returns it.
func (e *TransferConnectError) WithContext(key string, value any) *TransferConnectError {
	e.Context[key] = value
	return e
}

// NewCoreError creates a core layer error.
func NewCoreError(code Code, message string, cause error) *TransferConnectError {
	return &TransferConnectError{
		Code:    code,
		Message: message,
		Layer:   "core",
		Cause:   cause,
		Context: make(map[string]any),
	}
}

// NewProviderError creates a provider layer error.
func NewProviderError(code Code, message string, cause error) *TransferConnectError {
	return &TransferConnectError{
		Code:    code,
		Message: message,
		Layer:   "provider",
		Cause:   cause,
		Context: make(map[string]any),
	}
}

// NewWebAuthError creates a web authentication layer error.
func NewWebAuthError(code Code, message string, cause error) *TransferConnectError {
	return &TransferConnectError{
		Code:    code,
		Message: message,
		Layer:   "webauth",
		Cause:   cause,
		Context: make(map[string]any),
	}
}

// Is checks if the target error is a TransferConnectError with the same code.
func (e *TransferConnectError) Is(target error) bool {
	if target == nil {
		return false
	}
	other, ok := target.(*TransferConnectError)
	if !ok {
		return false
	}
	return e.Code == other.Code
}

// As checks if err is a TransferConnectError and assigns it to target.
func As(err error, target **TransferConnectError) bool {
	if err == nil {
		return false
	}
	if v, ok := err.(*TransferConnectError); ok {
		*target = v
		return true
	}
	return false
}

// IsCode reports whether err is a TransferConnectError carrying the given code.
func IsCode(err error, code Code) bool {
	var tce *TransferConnectError
	if !As(err, &tce) {
		return false
	}
	return tce.Code == code
}
