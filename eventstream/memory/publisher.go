// Package memory records published events in process, for tests and
// embedders that read events back after a run.
package memory

import (
	"context"
	"sync"

	chatcore "github.com/haowjy/meridian-chat-core"
	"github.com/haowjy/meridian-chat-core/eventstream"
)

// Publisher keeps every published event, grouped by channel.
type Publisher struct {
	mu       sync.Mutex
	channels map[string][]chatcore.StreamEvent
	closed   bool
}

// NewPublisher creates an empty in-memory publisher.
func NewPublisher() *Publisher {
	return &Publisher{channels: make(map[string][]chatcore.StreamEvent)}
}

// Publish stores a copy of event under channel.
func (p *Publisher) Publish(ctx context.Context, channel string, event *chatcore.StreamEvent) error {
	if err := eventstream.Check(channel, event); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return eventstream.ErrPublisherClosed
	}
	p.channels[channel] = append(p.channels[channel], *event)
	return nil
}

// Events returns the events published to channel, in publish order.
func (p *Publisher) Events(channel string) []chatcore.StreamEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]chatcore.StreamEvent(nil), p.channels[channel]...)
}

// Channels returns how many channels received at least one event.
func (p *Publisher) Channels() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.channels)
}

// Close rejects further publishes. Recorded events stay readable.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
