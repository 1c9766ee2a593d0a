package chatcore

import (
	"fmt"
	"strings"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation turn sent to a backend.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Job describes one generation request.
type Job struct {
	// Model is the backend specific model identifier
	Model string `json:"model"`

	// BaseURL is the server root for network backends (without the /v1 suffix)
	BaseURL string `json:"base_url,omitempty"`

	// Messages is the full conversation, oldest first
	Messages []Message `json:"messages"`

	// Params is the free-form parameter mapping, see ParseParams
	Params map[string]any `json:"params,omitempty"`
}

// Validate checks the parts of a job every backend relies on.
func (j *Job) Validate() error {
	if j == nil {
		return fmt.Errorf("%w: nil job", ErrInvalidRequest)
	}
	if len(j.Messages) == 0 {
		return &ValidationError{
			Field:  "messages",
			Value:  0,
			Reason: "at least one message is required",
			Err:    ErrInvalidRequest,
		}
	}
	return nil
}

// GenerationParams parses the job's parameter mapping.
func (j *Job) GenerationParams() (*GenerationParams, error) {
	return ParseParams(j.Params)
}

// WithSystem returns the messages with a system message prepended.
// An empty system prompt leaves the messages unchanged.
func WithSystem(system string, messages []Message) []Message {
	if system == "" {
		return messages
	}
	out := make([]Message, 0, len(messages)+1)
	out = append(out, Message{Role: RoleSystem, Content: system})
	return append(out, messages...)
}

// CodeMessage renders the source file at path as a fenced block so earlier
// generated code can be replayed as conversation history.
func CodeMessage(role Role, path string, sources []SourceEntry) (Message, error) {
	for _, entry := range sources {
		if entry.FilePath == path {
			return Message{Role: role, Content: fence(entry.Content)}, nil
		}
	}
	return Message{}, fmt.Errorf("%w: no source entry for %q", ErrInvalidRequest, path)
}

// SegmentsMessage rebuilds a message from extracted segments. Code segments
// are rendered from the source tree when their file path is known.
func SegmentsMessage(role Role, segments []Segment, sources []SourceEntry) Message {
	byPath := make(map[string]string, len(sources))
	for _, entry := range sources {
		byPath[entry.FilePath] = entry.Content
	}

	var b strings.Builder
	for _, seg := range segments {
		if seg.Kind == SegmentText {
			b.WriteString(seg.Content)
			continue
		}
		content := seg.Content
		if seg.Metadata != nil {
			if src, ok := byPath[seg.Metadata.FilePath]; ok {
				content = src
			}
		}
		b.WriteString(fence(content))
	}

	return Message{Role: role, Content: b.String()}
}

func fence(code string) string {
	return "```\n" + code + "\n```"
}
