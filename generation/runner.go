// Package generation runs one chat completion end to end: it streams the
// backend through the adapter, forwards every event to the session's
// channel and extracts the source tree from the finished text.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	chatcore "github.com/haowjy/meridian-chat-core"
	"github.com/haowjy/meridian-chat-core/eventstream"
	"github.com/haowjy/meridian-chat-core/eventstream/nop"
	"github.com/haowjy/meridian-chat-core/extract"
	"github.com/haowjy/meridian-chat-core/internal/logger"
	"github.com/haowjy/meridian-chat-core/stream"
)

// Request is one generation to run.
type Request struct {
	// SessionID selects the event channel. A random id is used when empty.
	SessionID string

	// Job is forwarded to the backend.
	Job *chatcore.Job

	// System is prepended to the job's messages as a system message.
	System string
}

// Result is the outcome of a completed generation.
type Result struct {
	SessionID string
	Response  *chatcore.Response

	// Text is the raw backend text, reasoning tags included.
	Text     string
	Segments []chatcore.Segment
	Sources  []chatcore.SourceEntry

	// Role is the author of the new message: the conversation alternates,
	// starting with the user.
	Role chatcore.Role

	Warnings []chatcore.ValidationWarning
	Events   int
}

// Option configures a Runner.
type Option func(*Runner)

// WithPublisher sets where stream events go. The default drops them.
func WithPublisher(p eventstream.Publisher) Option {
	return func(r *Runner) {
		r.publisher = p
	}
}

// WithExtractor replaces the default source extractor.
func WithExtractor(e *extract.Extractor) Option {
	return func(r *Runner) {
		r.extractor = e
	}
}

// WithMetrics enables prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithLogger sets the logger for the runner and its adapter.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger.OrNop(l)
	}
}

// WithAdapterOptions passes options through to the stream adapter.
func WithAdapterOptions(opts ...stream.Option) Option {
	return func(r *Runner) {
		r.adapterOpts = append(r.adapterOpts, opts...)
	}
}

// WithValidationEngine replaces the global validation engine.
func WithValidationEngine(v *chatcore.ValidationEngine) Option {
	return func(r *Runner) {
		r.validator = v
	}
}

// Runner drives generations for one backend. It is safe for concurrent use
// when its publisher is.
type Runner struct {
	backend     chatcore.Backend
	adapter     *stream.Adapter
	adapterOpts []stream.Option
	publisher   eventstream.Publisher
	extractor   *extract.Extractor
	validator   *chatcore.ValidationEngine
	metrics     *Metrics
	logger      *slog.Logger
}

// NewRunner returns a runner for backend.
func NewRunner(backend chatcore.Backend, opts ...Option) *Runner {
	r := &Runner{
		backend:   backend,
		publisher: nop.NewPublisher(),
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.extractor == nil {
		r.extractor = extract.Default()
	}
	if r.validator == nil {
		r.validator = chatcore.GetValidationEngine()
	}

	adapterOpts := append([]stream.Option{stream.WithLogger(r.logger)}, r.adapterOpts...)
	r.adapter = stream.NewAdapter(backend, adapterOpts...)
	return r
}

// Run streams req to completion. Every event is published before the next
// one is pulled from the backend; a publish failure stops the generation.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	if r.backend == nil {
		return nil, fmt.Errorf("%w: runner has no backend", chatcore.ErrInvalidRequest)
	}
	if req.Job == nil {
		return nil, fmt.Errorf("%w: nil job", chatcore.ErrInvalidRequest)
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	job := *req.Job
	job.Messages = chatcore.WithSystem(req.System, req.Job.Messages)

	backend := r.backend.Name()
	log := r.logger.With("session", sessionID, "backend", backend.String(), "model", job.Model)

	warnings := r.validator.Validate(backend, &job)
	r.metrics.observeWarnings(warnings)
	for _, w := range warnings {
		log.Log(ctx, warningLevel(w.Severity), w.Message, "code", w.Code, "field", w.Field)
	}

	started := time.Now()
	events, err := r.adapter.Generate(ctx, &job)
	if err != nil {
		r.metrics.observeDone(backend, outcome(ctx, err), started, 0)
		log.Error("generation failed to start", "error", err)
		return nil, fmt.Errorf("start generation: %w", err)
	}
	defer events.Close()

	channel := eventstream.ChannelFor(sessionID)
	count := 0
	for events.Next() {
		event := events.Current()
		if err := r.publisher.Publish(ctx, channel, &event); err != nil {
			r.metrics.observeDone(backend, outcome(ctx, err), started, 0)
			log.Error("publish failed", "type", event.Type, "sequence", event.SequenceNumber, "error", err)
			return nil, fmt.Errorf("publish %s: %w", event.Type, err)
		}
		r.metrics.observeEvent(event)
		count++
	}
	if err := events.Err(); err != nil {
		r.metrics.observeDone(backend, outcome(ctx, err), started, 0)
		log.Warn("generation stopped", "events", count, "error", err)
		return nil, fmt.Errorf("generation: %w", err)
	}

	text := events.Text()
	segments, sources := r.extractor.Extract(text)
	r.metrics.observeDone(backend, outcomeCompleted, started, len(sources))

	log.Info("generation completed",
		"events", count,
		"segments", len(segments),
		"sources", len(sources),
		"duration", time.Since(started),
	)

	return &Result{
		SessionID: sessionID,
		Response:  events.Response(),
		Text:      text,
		Segments:  segments,
		Sources:   sources,
		Role:      nextRole(req.Job.Messages),
		Warnings:  warnings,
		Events:    count,
	}, nil
}

// nextRole returns who authors the message following history.
func nextRole(history []chatcore.Message) chatcore.Role {
	n := 0
	for _, m := range history {
		if m.Role != chatcore.RoleSystem {
			n++
		}
	}
	if n%2 == 0 {
		return chatcore.RoleUser
	}
	return chatcore.RoleAssistant
}

func outcome(ctx context.Context, err error) string {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return outcomeCanceled
	}
	return outcomeFailed
}

func warningLevel(s chatcore.Severity) slog.Level {
	switch s {
	case chatcore.SeverityError:
		return slog.LevelError
	case chatcore.SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
