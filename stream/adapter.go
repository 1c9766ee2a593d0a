// Package stream converts a raw backend token stream into Responses API style
// events. A reasoning region at the start of the response becomes its own
// output item, ahead of the visible message.
package stream

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	chatcore "github.com/haowjy/meridian-chat-core"
	"github.com/haowjy/meridian-chat-core/internal/logger"
	"github.com/haowjy/meridian-chat-core/reasoning"
)

// IDFunc returns a fresh identifier with the given prefix ("rs", "msg", "resp").
type IDFunc func(prefix string) string

// NewID is the default IDFunc: the prefix, an underscore and a dashless UUID.
func NewID(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithDetector overrides the reasoning tag detector.
func WithDetector(d *reasoning.Detector) Option {
	return func(a *Adapter) {
		a.detector = d
	}
}

// WithIDFunc overrides item id generation. Tests use it for stable ids.
func WithIDFunc(fn IDFunc) Option {
	return func(a *Adapter) {
		a.newID = fn
	}
}

// WithLogger sets the logger used for state transitions.
func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) {
		a.logger = l
	}
}

// Adapter wraps a backend and exposes its output as an event stream.
// An Adapter holds no per-generation state; each Generate call gets its own
// EventStream, so one Adapter may serve concurrent generations.
type Adapter struct {
	backend  chatcore.Backend
	detector *reasoning.Detector
	newID    IDFunc
	logger   *slog.Logger
}

// NewAdapter returns an adapter over backend.
func NewAdapter(backend chatcore.Backend, opts ...Option) *Adapter {
	a := &Adapter{
		backend:  backend,
		detector: reasoning.Default(),
		newID:    NewID,
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Generate starts job on the backend and returns the event stream. No tokens
// are pulled until the first call to Next.
func (a *Adapter) Generate(ctx context.Context, job *chatcore.Job) (*EventStream, error) {
	if a.backend == nil {
		return nil, fmt.Errorf("%w: adapter has no backend", chatcore.ErrInvalidRequest)
	}

	tokens, err := a.backend.Generate(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("%s generate: %w", a.backend.Name(), err)
	}

	s := a.Stream(ctx, tokens)
	if job != nil {
		s.model = job.Model
	}
	return s, nil
}

// Stream adapts an already open token stream.
func (a *Adapter) Stream(ctx context.Context, tokens chatcore.TokenStream) *EventStream {
	if ctx == nil {
		ctx = context.Background()
	}
	return &EventStream{
		ctx:      ctx,
		tokens:   tokens,
		buf:      reasoning.NewChunkBuffer(tokens),
		detector: a.detector,
		newID:    a.newID,
		logger:   a.logger,
		events:   &eventFactory{},
	}
}
