package anthropic

import (
	"github.com/anthropics/anthropic-sdk-go"

	chatcore "github.com/haowjy/meridian-chat-core"
)

const (
	defaultMaxTokens = 4096

	// minThinkingBudget is the smallest budget the API accepts.
	minThinkingBudget = 1024
)

// buildMessageParams constructs Anthropic API parameters from a job.
// System messages move to the system field; adjacent turns from the same
// role are merged because the API requires alternation.
func buildMessageParams(job *chatcore.Job) (anthropic.MessageNewParams, error) {
	params, err := job.GenerationParams()
	if err != nil {
		return anthropic.MessageNewParams{}, err
	}

	system := ""
	if params.System != nil {
		system = *params.System
	}
	system, turns := chatcore.SplitSystem(system, job.Messages)
	turns = chatcore.MergeConsecutiveRoles(turns)

	messages := make([]anthropic.MessageParam, 0, len(turns))
	for _, m := range turns {
		switch m.Role {
		case chatcore.RoleUser:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case chatcore.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			return anthropic.MessageNewParams{}, &chatcore.ValidationError{
				Field:  "messages.role",
				Value:  m.Role,
				Reason: "must be system, user or assistant",
				Err:    chatcore.ErrInvalidRequest,
			}
		}
	}
	if len(messages) == 0 {
		return anthropic.MessageNewParams{}, &chatcore.ValidationError{
			Field:  "messages",
			Value:  len(job.Messages),
			Reason: "at least one user or assistant message is required",
			Err:    chatcore.ErrInvalidRequest,
		}
	}

	maxTokens := params.GetMaxTokens(defaultMaxTokens)
	apiParams := anthropic.MessageNewParams{
		Model:     anthropic.Model(job.Model),
		Messages:  messages,
		MaxTokens: int64(maxTokens),
	}

	if params.Temperature != nil {
		apiParams.Temperature = anthropic.Float(*params.Temperature)
	}
	if params.TopP != nil {
		apiParams.TopP = anthropic.Float(*params.TopP)
	}

	if system != "" {
		apiParams.System = []anthropic.TextBlockParam{
			{
				Type: "text",
				Text: system,
			},
		}
	}

	// Thinking mode - the budget must leave room for the answer
	if params.ThinkingBudget != nil {
		budget := *params.ThinkingBudget
		if budget < minThinkingBudget || budget >= maxTokens {
			return anthropic.MessageNewParams{}, &chatcore.ValidationError{
				Field:  "thinking_budget",
				Value:  budget,
				Reason: "must be at least 1024 and below max_tokens",
				Err:    chatcore.ErrInvalidRequest,
			}
		}
		apiParams.Thinking = anthropic.ThinkingConfigParamOfEnabled(int64(budget))
	}

	return apiParams, nil
}
