// Package errors provides standardized error handling for the workspace engine.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Local validation, never reaches the network layer.
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeMissingToken     ErrorCode = "MISSING_AUTH_TOKEN"

	// Backend request failures.
	ErrCodeNetworkFailure  ErrorCode = "NETWORK_FAILURE"
	ErrCodeBackendRejected ErrorCode = "BACKEND_REJECTED"
	ErrCodeRecordNotFound  ErrorCode = "RECORD_NOT_FOUND"
	ErrCodePayloadInvalid  ErrorCode = "PAYLOAD_INVALID"

	// Local infrastructure.
	ErrCodeCacheUnavailable   ErrorCode = "CACHE_UNAVAILABLE"
	ErrCodeJournalWriteFailed ErrorCode = "JOURNAL_WRITE_FAILED"
	ErrCodeDigestSendFailed   ErrorCode = "DIGEST_SEND_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewValidationFailedError creates a non-retryable local validation error.
// No network call may be issued for a mutation that produced one.
func NewValidationFailedError(field, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   fmt.Sprintf("Required field missing or invalid: %s", field),
		Details:   details,
		Retryable: false,
		Metadata:  map[string]interface{}{"field": field},
		Timestamp: time.Now().UTC(),
	}
}

// NewMissingTokenError creates a non-retryable error for mutations attempted
// without a session token.
func NewMissingTokenError() *StandardError {
	return &StandardError{
		Code:      ErrCodeMissingToken,
		Message:   "No auth token in request context",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNetworkFailureError creates a retryable transport-level error.
func NewNetworkFailureError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNetworkFailure,
		Message:   "Backend request failed to complete",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewBackendRejectedError creates an error for a non-2xx backend response.
func NewBackendRejectedError(status int, body string) *StandardError {
	return &StandardError{
		Code:      ErrCodeBackendRejected,
		Message:   fmt.Sprintf("Backend rejected request with status %d", status),
		Details:   body,
		Retryable: status >= 500,
		Metadata:  map[string]interface{}{"status": status},
		Timestamp: time.Now().UTC(),
	}
}

// NewRecordNotFoundError creates a recoverable missing-record error. Callers
// fall back to minimal defaults instead of surfacing a hard failure.
func NewRecordNotFoundError(id string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRecordNotFound,
		Message:   "Record not found on backend",
		Details:   fmt.Sprintf("recordId: %s", id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPayloadInvalidError creates a non-retryable error for a backend response
// that failed schema validation.
func NewPayloadInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodePayloadInvalid,
		Message:   "Backend payload failed schema validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCacheUnavailableError creates a retryable snapshot cache error.
func NewCacheUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCacheUnavailable,
		Message:   "Snapshot cache unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewJournalWriteFailedError creates a retryable audit journal error.
func NewJournalWriteFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeJournalWriteFailed,
		Message:   "Audit journal insert failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDigestSendFailedError creates a retryable notification error.
func NewDigestSendFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDigestSendFailed,
		Message:   "Overdue digest delivery failed",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Classification Helpers
// ==========================

// IsValidation reports whether err is a local validation failure.
func IsValidation(err error) bool {
	return hasCode(err, ErrCodeValidationFailed) || hasCode(err, ErrCodeMissingToken)
}

// IsNotFound reports whether err is the recoverable missing-record case.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeRecordNotFound)
}

// IsRetryable reports whether the operation may be retried.
func IsRetryable(err error) bool {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Retryable
	}
	return false
}

func hasCode(err error, code ErrorCode) bool {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code == code
	}
	return false
}
