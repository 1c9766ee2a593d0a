// Package nats publishes stream events as NATS messages, one subject per
// session channel.
package nats

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	chatcore "github.com/haowjy/meridian-chat-core"
	"github.com/haowjy/meridian-chat-core/eventstream"
)

// Config configures the NATS connection.
type Config struct {
	// URL is the NATS server URL
	URL string

	// ConnectTimeout is the connection timeout
	ConnectTimeout time.Duration
}

// conn is the part of *nats.Conn the publisher uses.
type conn interface {
	Publish(subject string, data []byte) error
	Flush() error
	Close()
}

// Publisher publishes events to NATS. The channel is used as the subject.
type Publisher struct {
	conn   conn
	mu     sync.RWMutex
	closed bool
}

// NewPublisher connects to NATS.
func NewPublisher(cfg Config) (*Publisher, error) {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name("chatcore"),
		nats.Timeout(cfg.ConnectTimeout),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return newPublisher(nc), nil
}

func newPublisher(c conn) *Publisher {
	return &Publisher{conn: c}
}

// Publish publishes the JSON encoded event on subject channel.
func (p *Publisher) Publish(ctx context.Context, channel string, event *chatcore.StreamEvent) error {
	if err := eventstream.Check(channel, event); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := eventstream.Encode(event)
	if err != nil {
		return err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return eventstream.ErrPublisherClosed
	}
	if err := p.conn.Publish(channel, data); err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}
	return nil
}

// Close flushes buffered messages and closes the NATS connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	err := p.conn.Flush()
	p.conn.Close()
	if err != nil {
		return fmt.Errorf("flush NATS: %w", err)
	}
	return nil
}
