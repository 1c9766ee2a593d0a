package anthropic

import (
	"github.com/anthropics/anthropic-sdk-go"
)

const (
	openThinking  = "<think>"
	closeThinking = "</think>"
)

// thinkingEncoder flattens Anthropic stream events into text fragments.
//
// Anthropic stream events include:
// - ContentBlockStart: a text or thinking block begins
// - ContentBlockDelta: text_delta, thinking_delta or signature_delta
// - ContentBlockStop: the block at index finished
// Everything else carries metadata only and produces no fragment.
type thinkingEncoder struct {
	thinking bool
	index    int64
}

// encode returns the fragment for event, or "" when it carries no text.
func (e *thinkingEncoder) encode(event anthropic.MessageStreamEventUnion) string {
	switch ev := event.AsAny().(type) {
	case anthropic.ContentBlockStartEvent:
		if ev.ContentBlock.Type == "thinking" && !e.thinking {
			e.thinking = true
			e.index = ev.Index
			return openThinking
		}

	case anthropic.ContentBlockDeltaEvent:
		switch ev.Delta.Type {
		case "text_delta":
			return ev.Delta.Text
		case "thinking_delta":
			return ev.Delta.Thinking
		}

	case anthropic.ContentBlockStopEvent:
		if e.thinking && ev.Index == e.index {
			e.thinking = false
			return closeThinking
		}
	}

	return ""
}

// finish closes a thinking block the stream never stopped.
func (e *thinkingEncoder) finish() string {
	if !e.thinking {
		return ""
	}
	e.thinking = false
	return closeThinking
}
