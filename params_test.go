package chatcore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateParams_Temperature(t *testing.T) {
	tests := []struct {
		name        string
		temperature *float64
		wantErr     bool
	}{
		{"nil temperature is valid", nil, false},
		{"temperature 0.0", float64Ptr(0.0), false},
		{"temperature 1.0", float64Ptr(1.0), false},
		{"temperature 2.0", float64Ptr(2.0), false},
		{"temperature -0.1 is invalid", float64Ptr(-0.1), true},
		{"temperature 2.1 is invalid", float64Ptr(2.1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateParams(&GenerationParams{Temperature: tt.temperature})
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, IsInvalidRequest(err), "validation error should be classified as invalid request")
		})
	}
}

func TestValidateParams_Ranges(t *testing.T) {
	tests := []struct {
		name    string
		params  GenerationParams
		field   string
		wantErr bool
	}{
		{"top_p 0.5", GenerationParams{TopP: float64Ptr(0.5)}, "", false},
		{"top_p 1.1", GenerationParams{TopP: float64Ptr(1.1)}, "top_p", true},
		{"frequency_penalty -2", GenerationParams{FrequencyPenalty: float64Ptr(-2)}, "", false},
		{"frequency_penalty 2.5", GenerationParams{FrequencyPenalty: float64Ptr(2.5)}, "frequency_penalty", true},
		{"max_tokens 1", GenerationParams{MaxTokens: intPtr(1)}, "", false},
		{"max_tokens 0", GenerationParams{MaxTokens: intPtr(0)}, "max_tokens", true},
		{"thinking_budget 2048", GenerationParams{ThinkingBudget: intPtr(2048)}, "", false},
		{"thinking_budget -1", GenerationParams{ThinkingBudget: intPtr(-1)}, "thinking_budget", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateParams(&tt.params)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.field, vErr.Field)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestParseParams_MapsJobNames(t *testing.T) {
	params, err := ParseParams(map[string]any{
		"temperature":    0.7,
		"top_p":          0.9,
		"repeat_penalty": 1.1,
		"n_predict":      256,
		"mirostat":       2,
	})
	require.NoError(t, err)

	require.NotNil(t, params.Temperature)
	assert.Equal(t, 0.7, *params.Temperature)
	require.NotNil(t, params.TopP)
	assert.Equal(t, 0.9, *params.TopP)
	require.NotNil(t, params.FrequencyPenalty)
	assert.Equal(t, 1.1, *params.FrequencyPenalty)
	assert.Equal(t, 256, params.GetMaxTokens(0))
}

func TestParseParams_Empty(t *testing.T) {
	params, err := ParseParams(nil)
	require.NoError(t, err)
	assert.Equal(t, 4096, params.GetMaxTokens(4096))
	assert.Equal(t, 1.0, params.GetTemperature(1.0))
}

func TestParseParams_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
	}{
		{"wrong type", map[string]any{"temperature": "hot"}},
		{"fractional n_predict", map[string]any{"n_predict": 1.5}},
		{"out of range", map[string]any{"top_p": 3.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseParams(tt.params)
			require.Error(t, err)
			assert.True(t, IsInvalidRequest(err))
		})
	}
}

func TestGenerationParams_NilReceiver(t *testing.T) {
	var params *GenerationParams
	assert.Equal(t, 10, params.GetMaxTokens(10))
	assert.Equal(t, 0.5, params.GetTemperature(0.5))
}
