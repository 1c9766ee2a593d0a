package nats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chatcore "github.com/haowjy/meridian-chat-core"
	"github.com/haowjy/meridian-chat-core/eventstream"
)

var _ eventstream.Publisher = (*Publisher)(nil)

type message struct {
	subject string
	data    []byte
}

type fakeConn struct {
	published  []message
	publishErr error
	flushed    int
	closed     int
}

func (c *fakeConn) Publish(subject string, data []byte) error {
	if c.publishErr != nil {
		return c.publishErr
	}
	c.published = append(c.published, message{subject: subject, data: data})
	return nil
}

func (c *fakeConn) Flush() error {
	c.flushed++
	return nil
}

func (c *fakeConn) Close() {
	c.closed++
}

func TestPublisher_Publish(t *testing.T) {
	fc := &fakeConn{}
	p := newPublisher(fc)

	channel := eventstream.ChannelFor("s1")
	err := p.Publish(context.Background(), channel, &chatcore.StreamEvent{
		Type:           chatcore.EventOutputTextDelta,
		SequenceNumber: 3,
		Delta:          "hi",
	})
	require.NoError(t, err)

	require.Len(t, fc.published, 1)
	assert.Equal(t, "main_events_stream:s1", fc.published[0].subject)

	var decoded chatcore.StreamEvent
	require.NoError(t, json.Unmarshal(fc.published[0].data, &decoded))
	assert.Equal(t, "hi", decoded.Delta)
	assert.Equal(t, 3, decoded.SequenceNumber)
}

func TestPublisher_Errors(t *testing.T) {
	fc := &fakeConn{publishErr: errors.New("nats: connection closed")}
	p := newPublisher(fc)

	assert.ErrorIs(t, p.Publish(context.Background(), "c", nil), eventstream.ErrNilEvent)
	assert.ErrorIs(t, p.Publish(context.Background(), "", &chatcore.StreamEvent{}), eventstream.ErrEmptyChannel)

	err := p.Publish(context.Background(), "c", &chatcore.StreamEvent{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish to c")
}

func TestPublisher_Close(t *testing.T) {
	fc := &fakeConn{}
	p := newPublisher(fc)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, 1, fc.flushed)
	assert.Equal(t, 1, fc.closed)

	err := p.Publish(context.Background(), "c", &chatcore.StreamEvent{})
	assert.ErrorIs(t, err, eventstream.ErrPublisherClosed)
}
