package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors_CodesAndRetryability(t *testing.T) {
	cause := fmt.Errorf("connection refused")

	tests := []struct {
		name      string
		err       *StandardError
		code      ErrorCode
		retryable bool
	}{
		{"source unavailable", NewSourceUnavailableError("catalog", cause), ErrCodeSourceUnavailable, true},
		{"malformed preference", NewMalformedPreferenceError("pref-1", "negative beds"), ErrCodeMalformedPreference, false},
		{"malformed listing", NewMalformedListingError("prop-1", "negative price"), ErrCodeMalformedListing, false},
		{"publish failed", NewPublishFailedError("lead-1", cause), ErrCodePublishFailed, true},
		{"publish timeout", NewPublishTimeoutError("lead-1"), ErrCodePublishTimeout, true},
		{"startup failed", NewStartupFailedError("users database", cause), ErrCodeStartupFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.retryable, tt.err.Retryable)
			assert.False(t, tt.err.Timestamp.IsZero())
			assert.Equal(t, tt.code, CodeOf(tt.err))
			assert.True(t, IsCode(tt.err, tt.code))
		})
	}
}

func TestStartupFailedError_WrapsCause(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	err := NewStartupFailedError("kafka producer", cause)

	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Details, "connection refused")
	assert.Contains(t, err.Message, "kafka producer")
}

func TestCodeOf_NonStandardError(t *testing.T) {
	assert.Equal(t, ErrorCode(""), CodeOf(fmt.Errorf("plain error")))
	assert.False(t, IsCode(fmt.Errorf("plain error"), ErrCodePublishFailed))
}

func TestCodeOf_WrappedStandardError(t *testing.T) {
	inner := NewSourceUnavailableError("preferences", fmt.Errorf("timeout"))
	wrapped := fmt.Errorf("load preferences: %w", inner)

	assert.Equal(t, ErrCodeSourceUnavailable, CodeOf(wrapped))
	assert.True(t, IsCode(wrapped, ErrCodeSourceUnavailable))
}
