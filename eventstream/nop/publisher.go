package nop

import (
	"context"

	chatcore "github.com/haowjy/meridian-chat-core"
	"github.com/haowjy/meridian-chat-core/eventstream"
)

// Publisher is a no-op eventstream publisher used for tests and disabled mode.
type Publisher struct{}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// Publish validates input and otherwise does nothing.
func (p *Publisher) Publish(_ context.Context, channel string, event *chatcore.StreamEvent) error {
	return eventstream.Check(channel, event)
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}
