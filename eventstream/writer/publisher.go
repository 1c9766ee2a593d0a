// Package writer prints stream events as JSON lines. The CLI uses it to show
// a generation on stdout.
package writer

import (
	"context"
	"fmt"
	"io"
	"sync"

	chatcore "github.com/haowjy/meridian-chat-core"
	"github.com/haowjy/meridian-chat-core/eventstream"
)

// Option configures a Publisher.
type Option func(*Publisher)

// WithDeltasOnly prints only the raw delta text, without JSON framing or
// newlines, so the output reads as the generated text.
func WithDeltasOnly(deltasOnly bool) Option {
	return func(p *Publisher) {
		p.deltasOnly = deltasOnly
	}
}

// Publisher writes one encoded event per line to w.
type Publisher struct {
	mu         sync.Mutex
	w          io.Writer
	deltasOnly bool
	closed     bool
}

// NewPublisher creates a publisher writing to w.
func NewPublisher(w io.Writer, opts ...Option) *Publisher {
	p := &Publisher{w: w}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish writes event. The channel is not printed.
func (p *Publisher) Publish(_ context.Context, channel string, event *chatcore.StreamEvent) error {
	if err := eventstream.Check(channel, event); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return eventstream.ErrPublisherClosed
	}

	if p.deltasOnly {
		if event.Type != chatcore.EventOutputTextDelta {
			return nil
		}
		_, err := io.WriteString(p.w, event.Delta)
		return err
	}

	data, err := eventstream.Encode(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(p.w, "%s\n", data); err != nil {
		return fmt.Errorf("write %s event: %w", event.Type, err)
	}
	return nil
}

// Close rejects further publishes. The writer is left open.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
