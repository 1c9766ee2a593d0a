// Package anthropic streams Claude messages. Extended thinking is re-encoded
// in-band as <think>...</think> so the adapter treats it like any other
// reasoning model.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	chatcore "github.com/haowjy/meridian-chat-core"
	"github.com/haowjy/meridian-chat-core/internal/logger"
	"github.com/haowjy/meridian-chat-core/internal/transport"
)

// Backend implements chatcore.Backend for Anthropic (Claude) models.
type Backend struct {
	client *anthropic.Client
	logger *slog.Logger
}

// Option configures the underlying SDK client.
type Option = option.RequestOption

// NewBackend is the registry factory for the anthropic backend.
func NewBackend(cfg chatcore.BackendConfig) (chatcore.Backend, error) {
	return New(cfg)
}

// New creates a backend with the API key from cfg. Extra SDK options are
// applied after the ones derived from cfg.
func New(cfg chatcore.BackendConfig, opts ...Option) (*Backend, error) {
	if cfg.APIKey == "" {
		return nil, chatcore.ErrInvalidAPIKey
	}

	httpClient, err := transport.ProxyClient(cfg.HTTPProxy, cfg.HTTPSProxy)
	if err != nil {
		return nil, err
	}

	options := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
	}
	if cfg.BaseURL != "" {
		options = append(options, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		options = append(options, option.WithRequestTimeout(cfg.Timeout))
	}
	options = append(options, opts...)

	client := anthropic.NewClient(options...)

	return &Backend{
		client: &client,
		logger: logger.OrNop(cfg.Logger).With("backend", chatcore.BackendAnthropic.String()),
	}, nil
}

// Name returns the backend identifier.
func (b *Backend) Name() chatcore.BackendID {
	return chatcore.BackendAnthropic
}

// SupportsModel returns true if this backend serves the given model.
// Anthropic models start with "claude-"
func (b *Backend) SupportsModel(model string) bool {
	return strings.HasPrefix(model, "claude-")
}

// Generate opens a streaming Messages request for job.
func (b *Backend) Generate(ctx context.Context, job *chatcore.Job) (chatcore.TokenStream, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}
	if !b.SupportsModel(job.Model) {
		return nil, &chatcore.ValidationError{
			Field:  "model",
			Value:  job.Model,
			Reason: "model not supported by Anthropic (must start with 'claude-')",
			Err:    chatcore.ErrInvalidModel,
		}
	}

	apiParams, err := buildMessageParams(job)
	if err != nil {
		return nil, err
	}

	b.logger.Debug("opening stream", "model", job.Model, "messages", len(apiParams.Messages))
	stream := b.client.Messages.NewStreaming(ctx, apiParams)
	if err := stream.Err(); err != nil {
		_ = stream.Close()
		return nil, toBackendError(err)
	}

	enc := &thinkingEncoder{}
	pull := func() (string, bool, error) {
		for stream.Next() {
			if fragment := enc.encode(stream.Current()); fragment != "" {
				return fragment, true, nil
			}
		}
		if err := stream.Err(); err != nil {
			b.logger.Warn("stream failed", "model", job.Model, "error", err)
			return "", false, toBackendError(err)
		}
		// a stream cut off inside a thinking block still closes the tag
		if closing := enc.finish(); closing != "" {
			return closing, true, nil
		}
		return "", false, nil
	}

	return chatcore.NewTokenStream(pull, stream.Close), nil
}

// toBackendError classifies SDK errors by HTTP status. Context errors pass
// through unchanged.
func toBackendError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		e := chatcore.NewBackendError(chatcore.BackendAnthropic, apiErr.StatusCode, apiErr.Error())
		if e.Err == nil {
			e.Err = err
		}
		return e
	}

	return &chatcore.BackendError{
		Backend:   chatcore.BackendAnthropic,
		Message:   err.Error(),
		Retryable: true,
		Err:       fmt.Errorf("%w: %w", chatcore.ErrBackendUnavailable, err),
	}
}
