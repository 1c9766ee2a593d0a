package stream

import (
	"context"
	"log/slog"

	chatcore "github.com/haowjy/meridian-chat-core"
	"github.com/haowjy/meridian-chat-core/reasoning"
)

type state int

const (
	stateStart state = iota
	stateReasoning
	stateOutput
	stateDone
)

func (s state) String() string {
	switch s {
	case stateStart:
		return "start"
	case stateReasoning:
		return "reasoning"
	case stateOutput:
		return "output"
	default:
		return "done"
	}
}

// EventStream is a pull iterator over the events of one generation.
//
// The backend is only read from inside Next, one buffer or token at a time,
// and every event that read produces is queued before the next read. Dropping
// the stream (or calling Close) stops the generation without emitting any
// completion events for the open item.
//
//	events, err := adapter.Generate(ctx, job)
//	if err != nil { return err }
//	defer events.Close()
//	for events.Next() {
//		publish(events.Current())
//	}
//	if err := events.Err(); err != nil { handle error }
type EventStream struct {
	ctx      context.Context
	tokens   chatcore.TokenStream
	buf      *reasoning.ChunkBuffer
	detector *reasoning.Detector
	newID    IDFunc
	logger   *slog.Logger
	events   *eventFactory
	model    string

	state   state
	pending []chatcore.StreamEvent
	current chatcore.StreamEvent
	err     error
	closed  bool

	// reasoning state
	thinking *itemBuilder
	held     string // trailing text that may begin a close tag

	// output state
	replay   []string // fragments already pulled by the first buffer
	leftover string   // text after the close tag, prefixed onto the first delta
	message  *itemBuilder

	completed []chatcore.OutputItem
	response  *chatcore.Response
}

// Next advances to the next event. It returns false once the response is
// complete, the stream was closed, or the backend failed.
func (s *EventStream) Next() bool {
	for len(s.pending) == 0 {
		if s.state == stateDone || s.closed {
			return false
		}
		if err := s.ctx.Err(); err != nil {
			s.fail(err)
			return false
		}
		s.step()
	}

	s.current = s.pending[0]
	s.pending = s.pending[1:]
	return true
}

// Current returns the event Next advanced to.
func (s *EventStream) Current() chatcore.StreamEvent {
	return s.current
}

// Err returns the backend or context error that ended the stream, if any.
func (s *EventStream) Err() error {
	return s.err
}

// Close abandons the generation and closes the backend stream.
func (s *EventStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.pending = nil
	return s.tokens.Close()
}

// Text returns the raw backend text pulled so far. After the stream is
// exhausted it is the full response text, tags included.
func (s *EventStream) Text() string {
	return s.tokens.Text()
}

// Response returns the completed items. It is nil until response.completed
// has been produced.
func (s *EventStream) Response() *chatcore.Response {
	return s.response
}

// Completed returns the items finished so far, in output order.
func (s *EventStream) Completed() []chatcore.OutputItem {
	return append([]chatcore.OutputItem(nil), s.completed...)
}

func (s *EventStream) step() {
	switch s.state {
	case stateStart:
		s.stepStart()
	case stateReasoning:
		s.stepReasoning()
	case stateOutput:
		s.stepOutput()
	}
}

// stepStart reads the first buffer, which is long enough to hold any open tag
// that begins the response.
func (s *EventStream) stepStart() {
	chunk, ok := s.buf.Read(s.detector.MaxOpenTagLen())
	if !ok {
		// an empty response produces no events at all
		s.finishWithoutEvents()
		return
	}

	before, after, found := s.detector.SplitOpen(chunk.Text)
	if !found {
		s.transition(stateOutput)
		s.replay = chunk.Fragments
		return
	}

	s.thinking = &itemBuilder{id: s.newID("rs"), itemType: chatcore.ItemReasoning}
	s.emit(s.events.outputItemAdded(s.thinking))
	s.emit(s.events.contentPartAdded(s.thinking))
	s.transition(stateReasoning)
	s.consumeReasoning(before + after)
}

// stepReasoning reads one buffer sized to hold a whole close tag.
func (s *EventStream) stepReasoning() {
	chunk, ok := s.buf.Read(s.detector.MaxCloseTagLen())
	if !ok {
		if s.tokens.Err() != nil {
			s.fail(s.tokens.Err())
			return
		}
		// unterminated reasoning: what was held back is reasoning after all
		s.reasoningDelta(s.held)
		s.held = ""
		s.finishReasoning()
		return
	}
	s.consumeReasoning(chunk.Text)
}

func (s *EventStream) consumeReasoning(text string) {
	window := s.held + text
	s.held = ""

	if before, after, found := s.detector.SplitClose(window); found {
		s.reasoningDelta(before)
		s.finishReasoning()
		s.leftover = after
		return
	}

	keep := s.detector.PartialCloseSuffix(window)
	s.reasoningDelta(window[:len(window)-keep])
	s.held = window[len(window)-keep:]
}

func (s *EventStream) reasoningDelta(delta string) {
	if delta == "" {
		return
	}
	s.thinking.text.WriteString(delta)
	s.emit(s.events.textDelta(s.thinking, delta))
}

func (s *EventStream) finishReasoning() {
	s.emit(s.events.textDone(s.thinking))
	s.emit(s.events.contentPartDone(s.thinking))
	s.completeItem(s.thinking)
	s.transition(stateOutput)
}

// stepOutput forwards one token verbatim. Fragments consumed by the first
// buffer are replayed before new tokens are pulled, so every backend token
// maps to exactly one delta.
func (s *EventStream) stepOutput() {
	if len(s.replay) > 0 {
		token := s.replay[0]
		s.replay = s.replay[1:]
		s.outputDelta(token)
		return
	}

	if s.tokens.Next() {
		s.outputDelta(s.tokens.Current())
		return
	}
	if err := s.tokens.Err(); err != nil {
		s.fail(err)
		return
	}

	// leftover with no token after it becomes a delta of its own
	s.outputDelta("")

	if s.message != nil {
		s.emit(s.events.textDone(s.message))
		s.emit(s.events.contentPartDone(s.message))
		s.completeItem(s.message)
	}

	s.response = &chatcore.Response{
		ID:     s.newID("resp"),
		Status: chatcore.ResponseCompleted,
		Model:  s.model,
		Output: s.Completed(),
	}
	s.emit(s.events.responseCompleted(s.response))
	s.transition(stateDone)
}

func (s *EventStream) outputDelta(token string) {
	delta := s.leftover + token
	s.leftover = ""
	if delta == "" {
		return
	}

	if s.message == nil {
		s.message = &itemBuilder{id: s.newID("msg"), itemType: chatcore.ItemMessage}
		s.emit(s.events.outputItemAdded(s.message))
		s.emit(s.events.contentPartAdded(s.message))
	}

	s.message.text.WriteString(delta)
	s.emit(s.events.textDelta(s.message, delta))
}

func (s *EventStream) completeItem(item *itemBuilder) {
	complete := item.complete()
	s.emit(s.events.outputItemDone(complete))
	s.completed = append(s.completed, complete)
}

func (s *EventStream) emit(e chatcore.StreamEvent) {
	s.pending = append(s.pending, e)
}

func (s *EventStream) transition(next state) {
	s.logger.Debug("adapter state", "from", s.state.String(), "to", next.String())
	s.state = next
}

func (s *EventStream) finishWithoutEvents() {
	if err := s.tokens.Err(); err != nil {
		s.fail(err)
		return
	}
	s.transition(stateDone)
}

func (s *EventStream) fail(err error) {
	s.logger.Warn("generation stopped", "state", s.state.String(), "error", err)
	s.err = err
	s.pending = nil
	s.state = stateDone
}
