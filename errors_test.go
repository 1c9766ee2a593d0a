package chatcore

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewBackendError(t *testing.T) {
	tests := []struct {
		status    int
		sentinel  error
		retryable bool
		auth      bool
	}{
		{401, ErrInvalidAPIKey, false, true},
		{403, ErrInvalidAPIKey, false, true},
		{429, ErrRateLimited, true, false},
		{400, ErrInvalidRequest, false, false},
		{503, ErrBackendUnavailable, true, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status %d", tt.status), func(t *testing.T) {
			err := NewBackendError(BackendOpenAICompatible, tt.status, "boom")
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, tt.retryable, IsRetryable(err))
			assert.Equal(t, tt.auth, IsAuthError(err))
			assert.Contains(t, err.Error(), "openai_compatible")
		})
	}
}

func TestErrorClassifiers(t *testing.T) {
	wrapped := fmt.Errorf("generate: %w", ErrRateLimited)
	assert.True(t, IsRetryable(wrapped))
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsInvalidRequest(nil))
	assert.False(t, IsAuthError(nil))

	vErr := &ValidationError{Field: "top_p", Value: 3.0, Reason: "too big"}
	assert.True(t, IsInvalidRequest(vErr))
	assert.Contains(t, vErr.Error(), "top_p")

	assert.True(t, IsInvalidRequest(ErrInvalidModel))
	assert.False(t, IsRetryable(ErrInvalidModel))
}
