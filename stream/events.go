package stream

import (
	"strings"

	chatcore "github.com/haowjy/meridian-chat-core"
)

// eventFactory stamps sequence numbers and output indexes onto events.
// Sequence numbers start at 1; the output index moves to the next item after
// each output_item.done.
type eventFactory struct {
	seq         int
	outputIndex int
}

func (f *eventFactory) make(eventType chatcore.EventType) chatcore.StreamEvent {
	f.seq++
	return chatcore.StreamEvent{
		Type:           eventType,
		OutputIndex:    f.outputIndex,
		SequenceNumber: f.seq,
	}
}

func (f *eventFactory) outputItemAdded(item *itemBuilder) chatcore.StreamEvent {
	e := f.make(chatcore.EventOutputItemAdded)
	initial := item.initial()
	e.Item = &initial
	return e
}

func (f *eventFactory) contentPartAdded(item *itemBuilder) chatcore.StreamEvent {
	e := f.make(chatcore.EventContentPartAdded)
	e.ItemID = item.id
	e.ContentIndex = contentIndex(0)
	part := chatcore.NewContentPart(item.partType(), "")
	e.Part = &part
	return e
}

func (f *eventFactory) textDelta(item *itemBuilder, delta string) chatcore.StreamEvent {
	eventType := chatcore.EventOutputTextDelta
	if item.itemType == chatcore.ItemReasoning {
		eventType = chatcore.EventReasoningTextDelta
	}
	e := f.make(eventType)
	e.ItemID = item.id
	e.ContentIndex = contentIndex(0)
	e.Delta = delta
	return e
}

func (f *eventFactory) textDone(item *itemBuilder) chatcore.StreamEvent {
	eventType := chatcore.EventOutputTextDone
	if item.itemType == chatcore.ItemReasoning {
		eventType = chatcore.EventReasoningTextDone
	}
	e := f.make(eventType)
	e.ItemID = item.id
	e.ContentIndex = contentIndex(0)
	text := item.String()
	e.Text = &text
	return e
}

func (f *eventFactory) contentPartDone(item *itemBuilder) chatcore.StreamEvent {
	e := f.make(chatcore.EventContentPartDone)
	e.ItemID = item.id
	e.ContentIndex = contentIndex(0)
	part := chatcore.NewContentPart(item.partType(), item.String())
	e.Part = &part
	return e
}

func (f *eventFactory) outputItemDone(complete chatcore.OutputItem) chatcore.StreamEvent {
	e := f.make(chatcore.EventOutputItemDone)
	e.Item = &complete
	f.outputIndex++
	return e
}

func (f *eventFactory) responseCompleted(resp *chatcore.Response) chatcore.StreamEvent {
	e := f.make(chatcore.EventResponseCompleted)
	e.Response = resp
	return e
}

func contentIndex(i int) *int {
	return &i
}

// itemBuilder accumulates the text of one output item.
type itemBuilder struct {
	id       string
	itemType chatcore.ItemType
	text     strings.Builder
}

func (b *itemBuilder) partType() chatcore.PartType {
	return chatcore.PartTypeFor(b.itemType)
}

func (b *itemBuilder) String() string {
	return b.text.String()
}

func (b *itemBuilder) initial() chatcore.OutputItem {
	return chatcore.OutputItem{
		ID:      b.id,
		Status:  chatcore.StatusInProgress,
		Type:    b.itemType,
		Role:    chatcore.RoleAssistant,
		Content: []chatcore.ContentPart{},
	}
}

func (b *itemBuilder) complete() chatcore.OutputItem {
	return chatcore.OutputItem{
		ID:      b.id,
		Status:  chatcore.StatusComplete,
		Type:    b.itemType,
		Role:    chatcore.RoleAssistant,
		Content: []chatcore.ContentPart{chatcore.NewContentPart(b.partType(), b.String())},
	}
}
