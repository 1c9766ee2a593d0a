package chatcore

import (
	"fmt"
	"slices"
	"strings"
)

// backendParams lists the generation parameters each built-in backend
// honors. Backends missing from the map are not checked.
var backendParams = map[BackendID][]string{
	BackendDummy:            {},
	BackendDummyCoder:       {},
	BackendLorem:            {"max_tokens"},
	BackendOpenAICompatible: {"temperature", "top_p", "frequency_penalty", "max_tokens", "system"},
	BackendAnthropic:        {"temperature", "top_p", "max_tokens", "system", "thinking_budget"},
}

// ModelValidationRule checks model and server related warnings
type ModelValidationRule struct{}

func (r *ModelValidationRule) Name() string {
	return "Model Validation"
}

func (r *ModelValidationRule) Check(backend BackendID, job *Job) []ValidationWarning {
	var warnings []ValidationWarning

	switch backend {
	case BackendAnthropic:
		if !strings.HasPrefix(job.Model, "claude-") {
			warnings = append(warnings, ValidationWarning{
				Code:     WarningCodeModelUnknown,
				Category: "model",
				Field:    "model",
				Value:    job.Model,
				Message:  fmt.Sprintf("Model %q is not a Claude model", job.Model),
				Severity: SeverityError,
			})
		}
		if job.BaseURL != "" {
			warnings = append(warnings, baseURLIgnored(backend, job.BaseURL))
		}

	case BackendOpenAICompatible:
		if job.Model == "" {
			warnings = append(warnings, ValidationWarning{
				Code:     WarningCodeModelMissing,
				Category: "model",
				Field:    "model",
				Value:    job.Model,
				Message:  "No model set; servers hosting several models may reject the request",
				Severity: SeverityWarning,
			})
		}

	case BackendDummy, BackendDummyCoder, BackendLorem:
		if job.BaseURL != "" {
			warnings = append(warnings, baseURLIgnored(backend, job.BaseURL))
		}
	}

	return warnings
}

func baseURLIgnored(backend BackendID, url string) ValidationWarning {
	return ValidationWarning{
		Code:     WarningCodeBaseURLIgnored,
		Category: "model",
		Field:    "base_url",
		Value:    url,
		Message:  fmt.Sprintf("Backend %s does not use a per-job server URL", backend),
		Severity: SeverityInfo,
	}
}

// ParameterValidationRule reports parameters the backend ignores
type ParameterValidationRule struct{}

func (r *ParameterValidationRule) Name() string {
	return "Parameter Validation"
}

func (r *ParameterValidationRule) Check(backend BackendID, job *Job) []ValidationWarning {
	var warnings []ValidationWarning

	supported, known := backendParams[backend]
	if !known {
		return warnings
	}

	params, err := job.GenerationParams()
	if err != nil {
		// Invalid params fail the job itself
		return warnings
	}

	for _, p := range setParams(params) {
		if slices.Contains(supported, p.name) {
			continue
		}
		warnings = append(warnings, ValidationWarning{
			Code:     WarningCodeParamIgnored,
			Category: "parameter",
			Field:    p.name,
			Value:    p.value,
			Message:  fmt.Sprintf("Backend %s ignores %s", backend, p.name),
			Severity: SeverityInfo,
		})
	}

	return warnings
}

type setParam struct {
	name  string
	value any
}

func setParams(gp *GenerationParams) []setParam {
	var set []setParam
	if gp.Temperature != nil {
		set = append(set, setParam{"temperature", *gp.Temperature})
	}
	if gp.TopP != nil {
		set = append(set, setParam{"top_p", *gp.TopP})
	}
	if gp.FrequencyPenalty != nil {
		set = append(set, setParam{"frequency_penalty", *gp.FrequencyPenalty})
	}
	if gp.MaxTokens != nil {
		set = append(set, setParam{"max_tokens", *gp.MaxTokens})
	}
	if gp.System != nil {
		set = append(set, setParam{"system", *gp.System})
	}
	if gp.ThinkingBudget != nil {
		set = append(set, setParam{"thinking_budget", *gp.ThinkingBudget})
	}
	return set
}

// ConversationValidationRule checks the shape of the message history
type ConversationValidationRule struct{}

func (r *ConversationValidationRule) Name() string {
	return "Conversation Validation"
}

func (r *ConversationValidationRule) Check(_ BackendID, job *Job) []ValidationWarning {
	var warnings []ValidationWarning

	for i, msg := range job.Messages {
		field := fmt.Sprintf("messages[%d]", i)
		if strings.TrimSpace(msg.Content) == "" {
			warnings = append(warnings, ValidationWarning{
				Code:     WarningCodeEmptyMessage,
				Category: "conversation",
				Field:    field,
				Value:    msg.Role,
				Message:  fmt.Sprintf("Message %d (%s) has no content", i, msg.Role),
				Severity: SeverityWarning,
			})
		}
		if msg.Role == RoleSystem && i > 0 {
			warnings = append(warnings, ValidationWarning{
				Code:     WarningCodeSystemNotFirst,
				Category: "conversation",
				Field:    field,
				Value:    msg.Role,
				Message:  fmt.Sprintf("System message at position %d; most models expect it first", i),
				Severity: SeverityInfo,
			})
		}
	}

	if n := len(job.Messages); n > 0 && job.Messages[n-1].Role != RoleUser {
		warnings = append(warnings, ValidationWarning{
			Code:     WarningCodeLastNotUser,
			Category: "conversation",
			Field:    fmt.Sprintf("messages[%d]", n-1),
			Value:    job.Messages[n-1].Role,
			Message:  "The conversation does not end with a user message",
			Severity: SeverityWarning,
		})
	}

	return warnings
}
