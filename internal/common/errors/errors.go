// Package errors provides the standardized error taxonomy for the matching engine.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// ErrCodeSourceUnavailable covers an unreachable preference or catalog
	// store. Fatal to the current cycle; retried on the next scheduled trigger.
	ErrCodeSourceUnavailable ErrorCode = "SOURCE_UNAVAILABLE"

	// ErrCodeMalformedPreference marks a single preference that fails
	// validation. The preference is skipped; the cycle continues.
	ErrCodeMalformedPreference ErrorCode = "MALFORMED_PREFERENCE"

	// ErrCodeMalformedListing marks a catalog row that fails validation at
	// the retrieval boundary. The listing is skipped; the cycle continues.
	ErrCodeMalformedListing ErrorCode = "MALFORMED_LISTING"

	// ErrCodePublishFailed covers a broker rejection; the failed lead is
	// recorded and the cycle continues with remaining candidates.
	ErrCodePublishFailed ErrorCode = "PUBLISH_FAILED"

	// ErrCodePublishTimeout covers a missing broker acknowledgment within
	// the publish timeout.
	ErrCodePublishTimeout ErrorCode = "PUBLISH_TIMEOUT"

	// ErrCodeStartupFailed covers a resource that cannot be constructed at
	// process start. The scheduler must not start.
	ErrCodeStartupFailed ErrorCode = "STARTUP_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// NewSourceUnavailableError creates a retryable source error for the named store.
func NewSourceUnavailableError(source string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSourceUnavailable,
		Message:   fmt.Sprintf("Source '%s' unavailable", source),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewMalformedPreferenceError creates a non-retryable preference validation error.
func NewMalformedPreferenceError(preferenceID, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMalformedPreference,
		Message:   "Preference failed validation",
		Details:   fmt.Sprintf("preferenceId: %s, %s", preferenceID, details),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMalformedListingError creates a non-retryable listing validation error.
func NewMalformedListingError(propertyID, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMalformedListing,
		Message:   "Listing failed validation",
		Details:   fmt.Sprintf("propertyId: %s, %s", propertyID, details),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPublishFailedError creates a retryable broker publish error.
func NewPublishFailedError(leadID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePublishFailed,
		Message:   "Lead publish failed",
		Details:   fmt.Sprintf("leadId: %s, error: %s", leadID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewPublishTimeoutError creates a retryable broker acknowledgment timeout error.
func NewPublishTimeoutError(leadID string) *StandardError {
	return &StandardError{
		Code:      ErrCodePublishTimeout,
		Message:   "Lead publish acknowledgment timeout",
		Details:   fmt.Sprintf("leadId: %s", leadID),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewStartupFailedError creates a fatal startup error for the named resource.
func NewStartupFailedError(resource string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStartupFailed,
		Message:   fmt.Sprintf("Failed to construct resource '%s'", resource),
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// CodeOf extracts the ErrorCode from err, or empty string if err is not a
// StandardError.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
