package nop_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	chatcore "github.com/haowjy/meridian-chat-core"
	"github.com/haowjy/meridian-chat-core/eventstream"
	"github.com/haowjy/meridian-chat-core/eventstream/nop"
)

var _ eventstream.Publisher = (*nop.Publisher)(nil)

func TestPublisher(t *testing.T) {
	p := nop.NewPublisher()
	assert.NotNil(t, p)

	assert.ErrorIs(t, p.Publish(context.Background(), "c", nil), eventstream.ErrNilEvent)
	assert.ErrorIs(t, p.Publish(context.Background(), "", &chatcore.StreamEvent{}), eventstream.ErrEmptyChannel)
	assert.NoError(t, p.Publish(context.Background(), "c", &chatcore.StreamEvent{}))
	assert.NoError(t, p.Close())
}
