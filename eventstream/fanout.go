package eventstream

import (
	"context"
	"errors"

	chatcore "github.com/haowjy/meridian-chat-core"
)

// Fanout publishes every event to each of its publishers in order. Publish
// stops at the first failure.
type Fanout struct {
	publishers []Publisher
}

// NewFanout combines publishers. Nil entries are skipped.
func NewFanout(publishers ...Publisher) *Fanout {
	f := &Fanout{}
	for _, p := range publishers {
		if p != nil {
			f.publishers = append(f.publishers, p)
		}
	}
	return f
}

// Publish forwards event to every publisher.
func (f *Fanout) Publish(ctx context.Context, channel string, event *chatcore.StreamEvent) error {
	if err := Check(channel, event); err != nil {
		return err
	}
	for _, p := range f.publishers {
		if err := p.Publish(ctx, channel, event); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every publisher and joins their errors.
func (f *Fanout) Close() error {
	var errs []error
	for _, p := range f.publishers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
