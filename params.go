package chatcore

import (
	"encoding/json"
	"fmt"
)

// GenerationParams are the sampling parameters forwarded to a backend.
// All fields are optional pointers to distinguish "not set" from "set to zero value".
type GenerationParams struct {
	// Temperature controls randomness (0.0-2.0)
	Temperature *float64 `json:"temperature,omitempty"`

	// TopP (nucleus sampling) - cumulative probability cutoff (0.0-1.0)
	TopP *float64 `json:"top_p,omitempty"`

	// FrequencyPenalty reduces repetition of token sequences (-2.0 to 2.0).
	// Job params supply it as "repeat_penalty".
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`

	// MaxTokens sets the maximum number of tokens to generate.
	// Job params supply it as "n_predict".
	MaxTokens *int `json:"max_tokens,omitempty"`

	// System prompt, prepended as a system message when the job has none
	System *string `json:"system,omitempty"`

	// ThinkingBudget enables extended thinking on backends that support it,
	// capping the reasoning tokens.
	ThinkingBudget *int `json:"thinking_budget,omitempty"`
}

// paramAliases maps the job-level parameter names onto GenerationParams
// field names. Names already in canonical form map to themselves.
var paramAliases = map[string]string{
	"temperature":       "temperature",
	"top_p":             "top_p",
	"repeat_penalty":    "frequency_penalty",
	"frequency_penalty": "frequency_penalty",
	"n_predict":         "max_tokens",
	"max_tokens":        "max_tokens",
	"system":            "system",
	"thinking_budget":   "thinking_budget",
}

// ParseParams converts a free-form job parameter map into GenerationParams.
// Unknown keys are ignored. The result is validated before it is returned.
func ParseParams(params map[string]any) (*GenerationParams, error) {
	if len(params) == 0 {
		return &GenerationParams{}, nil
	}

	mapped := make(map[string]any, len(params))
	for name, value := range params {
		if canonical, ok := paramAliases[name]; ok {
			mapped[canonical] = value
		}
	}

	jsonBytes, err := json.Marshal(mapped)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal params: %w", err)
	}

	var gp GenerationParams
	if err := json.Unmarshal(jsonBytes, &gp); err != nil {
		return nil, &ValidationError{
			Field:  "params",
			Value:  params,
			Reason: err.Error(),
			Err:    ErrInvalidRequest,
		}
	}

	if err := ValidateParams(&gp); err != nil {
		return nil, err
	}

	return &gp, nil
}

// ValidateParams validates parameter ranges.
func ValidateParams(params *GenerationParams) error {
	if params == nil {
		return nil // nil params is valid
	}

	if params.Temperature != nil {
		if *params.Temperature < 0.0 || *params.Temperature > 2.0 {
			return rangeError("temperature", *params.Temperature, "must be between 0.0 and 2.0")
		}
	}

	if params.TopP != nil {
		if *params.TopP < 0.0 || *params.TopP > 1.0 {
			return rangeError("top_p", *params.TopP, "must be between 0.0 and 1.0")
		}
	}

	if params.FrequencyPenalty != nil {
		if *params.FrequencyPenalty < -2.0 || *params.FrequencyPenalty > 2.0 {
			return rangeError("frequency_penalty", *params.FrequencyPenalty, "must be between -2.0 and 2.0")
		}
	}

	if params.MaxTokens != nil {
		if *params.MaxTokens < 1 {
			return rangeError("max_tokens", *params.MaxTokens, "must be positive")
		}
	}

	if params.ThinkingBudget != nil {
		if *params.ThinkingBudget < 1 {
			return rangeError("thinking_budget", *params.ThinkingBudget, "must be positive")
		}
	}

	return nil
}

func rangeError(field string, value any, reason string) error {
	return &ValidationError{
		Field:  field,
		Value:  value,
		Reason: reason,
		Err:    ErrInvalidRequest,
	}
}

// GetMaxTokens returns max_tokens with default fallback
func (gp *GenerationParams) GetMaxTokens(defaultValue int) int {
	if gp != nil && gp.MaxTokens != nil {
		return *gp.MaxTokens
	}
	return defaultValue
}

// GetTemperature returns temperature with default fallback
func (gp *GenerationParams) GetTemperature(defaultValue float64) float64 {
	if gp != nil && gp.Temperature != nil {
		return *gp.Temperature
	}
	return defaultValue
}
