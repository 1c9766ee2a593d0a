// Package kafka publishes stream events to a Kafka topic. Messages are keyed
// by channel so every event of a session lands on the same partition, in
// order.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	chatcore "github.com/haowjy/meridian-chat-core"
	"github.com/haowjy/meridian-chat-core/eventstream"
)

// DefaultTopic receives events when Config.Topic is empty.
const DefaultTopic = "chatcore.events"

// Config configures the Kafka writer.
type Config struct {
	// Brokers are the bootstrap broker addresses
	Brokers []string

	// Topic receives every event
	Topic string

	// BatchTimeout bounds how long events wait for a batch to fill.
	// Streaming deltas want this low.
	BatchTimeout time.Duration
}

// writer is the part of *kafka.Writer the publisher uses.
type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes events to Kafka.
type Publisher struct {
	writer writer
	mu     sync.RWMutex
	closed bool
}

// NewPublisher creates a publisher writing to cfg.Topic.
func NewPublisher(cfg Config) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: at least one broker is required")
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = 10 * time.Millisecond
	}

	return newPublisher(&kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           cfg.BatchTimeout,
		AllowAutoTopicCreation: true,
	}), nil
}

func newPublisher(w writer) *Publisher {
	return &Publisher{writer: w}
}

// Publish writes event keyed by channel. The event type travels as a header
// so consumers can filter without decoding.
func (p *Publisher) Publish(ctx context.Context, channel string, event *chatcore.StreamEvent) error {
	if err := eventstream.Check(channel, event); err != nil {
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

	msg := kafka.Message{
		Key:   []byte(channel),
		Value: data,
		Headers: []kafka.Header{
			{Key: "channel", Value: []byte(channel)},
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s event to kafka: %w", event.Type, err)
	}
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.writer.Close()
}
