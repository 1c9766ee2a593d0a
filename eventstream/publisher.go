// Package eventstream forwards stream events to the pub/sub channel a
// session's subscribers listen on.
package eventstream

import (
	"context"
	"encoding/json"
	"fmt"

	chatcore "github.com/haowjy/meridian-chat-core"
)

// ChannelPrefix namespaces the per-session event channels.
const ChannelPrefix = "main_events_stream"

// Publisher publishes stream events to an event stream backend.
type Publisher interface {
	Publish(ctx context.Context, channel string, event *chatcore.StreamEvent) error
	Close() error
}

// ChannelFor returns the channel carrying the events of one session.
func ChannelFor(sessionID string) string {
	return ChannelPrefix + ":" + sessionID
}

// Check validates the arguments every publisher receives.
func Check(channel string, event *chatcore.StreamEvent) error {
	if event == nil {
		return ErrNilEvent
	}
	if channel == "" {
		return ErrEmptyChannel
	}
	return nil
}

// Encode returns the wire form of event.
func Encode(event *chatcore.StreamEvent) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", event.Type, err)
	}
	return data, nil
}
