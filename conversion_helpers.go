package chatcore

import (
	"strings"
)

// SplitSystem separates system messages from the conversation.
// Backends that take the system prompt out of band (Anthropic) send the
// joined system text separately and the remaining turns as messages.
//
// The system parameter, when set, comes first. System messages keep their
// relative order and are joined with a blank line.
func SplitSystem(system string, messages []Message) (string, []Message) {
	var parts []string
	if system != "" {
		parts = append(parts, system)
	}

	rest := make([]Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == RoleSystem {
			if msg.Content != "" {
				parts = append(parts, msg.Content)
			}
			continue
		}
		rest = append(rest, msg)
	}

	return strings.Join(parts, "\n\n"), rest
}

// MergeConsecutiveRoles joins adjacent messages with the same role.
// Some backends reject conversations that do not alternate between user
// and assistant; replayed history (a code message followed by a prose
// message from the same author) often breaks that.
//
// Contents are joined with a blank line. The input is not modified.
func MergeConsecutiveRoles(messages []Message) []Message {
	if len(messages) < 2 {
		return messages
	}

	result := make([]Message, 0, len(messages))
	for _, msg := range messages {
		last := len(result) - 1
		if last >= 0 && result[last].Role == msg.Role {
			result[last].Content = joinContent(result[last].Content, msg.Content)
			continue
		}
		result = append(result, msg)
	}
	return result
}

func joinContent(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + "\n\n" + b
	}
}
