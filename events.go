package chatcore

// EventType is the "type" field of a stream event.
type EventType string

// Stream event types, named after the Responses API events they mirror.
const (
	EventOutputItemAdded    EventType = "response.output_item.added"
	EventContentPartAdded   EventType = "response.content_part.added"
	EventReasoningTextDelta EventType = "response.reasoning_text.delta"
	EventReasoningTextDone  EventType = "response.reasoning_text.done"
	EventOutputTextDelta    EventType = "response.output_text.delta"
	EventOutputTextDone     EventType = "response.output_text.done"
	EventContentPartDone    EventType = "response.content_part.done"
	EventOutputItemDone     EventType = "response.output_item.done"
	EventResponseCompleted  EventType = "response.completed"
)

// ItemType distinguishes visible answers from reasoning blocks.
type ItemType string

const (
	ItemMessage   ItemType = "message"
	ItemReasoning ItemType = "reasoning"
)

// ItemStatus is the lifecycle state of an output item.
type ItemStatus string

const (
	StatusInProgress ItemStatus = "in_progress"
	StatusComplete   ItemStatus = "complete"
)

// PartType is the type of a content part inside an output item.
type PartType string

const (
	PartOutputText    PartType = "output_text"
	PartReasoningText PartType = "reasoning_text"
)

// PartTypeFor returns the content part type carried by items of type t.
func PartTypeFor(t ItemType) PartType {
	if t == ItemReasoning {
		return PartReasoningText
	}
	return PartOutputText
}

// ContentPart is one typed text run of an output item.
type ContentPart struct {
	Type        PartType `json:"type"`
	Text        string   `json:"text"`
	Annotations []any    `json:"annotations"`
}

// NewContentPart returns a part with an empty, non-nil annotation list.
func NewContentPart(partType PartType, text string) ContentPart {
	return ContentPart{Type: partType, Text: text, Annotations: []any{}}
}

// OutputItem is one top-level unit of a streamed response.
type OutputItem struct {
	ID      string        `json:"id"`
	Status  ItemStatus    `json:"status"`
	Type    ItemType      `json:"type"`
	Role    Role          `json:"role"`
	Content []ContentPart `json:"content"`
}

// Text returns the concatenated text of every content part.
func (i OutputItem) Text() string {
	var text string
	for _, part := range i.Content {
		text += part.Text
	}
	return text
}

// StreamEvent is a single protocol event. It marshals to a flat JSON object
// with the fields relevant to its Type.
type StreamEvent struct {
	Type           EventType `json:"type"`
	OutputIndex    int       `json:"output_index"`
	SequenceNumber int       `json:"sequence_number"`

	ItemID       string `json:"item_id,omitempty"`
	ContentIndex *int   `json:"content_index,omitempty"`

	// Item is set on output_item.added and output_item.done
	Item *OutputItem `json:"item,omitempty"`

	// Part is set on content_part.added and content_part.done
	Part *ContentPart `json:"part,omitempty"`

	// Delta is set on the two delta events
	Delta string `json:"delta,omitempty"`

	// Text is set on reasoning_text.done and output_text.done
	Text *string `json:"text,omitempty"`

	// Response is set on response.completed
	Response *Response `json:"response,omitempty"`
}

// IsDelta reports whether the event carries incremental text.
func (e StreamEvent) IsDelta() bool {
	return e.Type == EventOutputTextDelta || e.Type == EventReasoningTextDelta
}
