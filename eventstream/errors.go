package eventstream

import "errors"

var (
	// ErrNilEvent indicates a nil event payload was provided to a publisher.
	ErrNilEvent = errors.New("nil stream event")

	// ErrEmptyChannel indicates an event was published without a channel.
	ErrEmptyChannel = errors.New("empty event channel")

	// ErrPublisherClosed indicates Publish was called after Close.
	ErrPublisherClosed = errors.New("publisher closed")
)
