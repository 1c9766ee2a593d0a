// Package openai streams chat completions from any server speaking the
// OpenAI chat completions protocol (llama.cpp, vLLM, OpenAI itself).
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	chatcore "github.com/haowjy/meridian-chat-core"
	"github.com/haowjy/meridian-chat-core/internal/logger"
	"github.com/haowjy/meridian-chat-core/internal/transport"
)

const (
	// DefaultAPIKey is sent when no key is configured. Local servers accept any key.
	DefaultAPIKey = "sk-no-key-required"

	// DefaultTimeout bounds one streaming request.
	DefaultTimeout = 30 * time.Minute

	defaultMaxRetries = 2
)

// Backend implements chatcore.Backend against an OpenAI compatible server.
type Backend struct {
	apiKey     string
	baseURL    string
	timeout    time.Duration
	maxRetries int
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Backend.
type Option func(*Backend)

// WithMaxRetries sets how often the client retries retryable failures.
func WithMaxRetries(n int) Option {
	return func(b *Backend) {
		b.maxRetries = n
	}
}

// WithHTTPClient replaces the HTTP client built from the proxy settings.
func WithHTTPClient(c *http.Client) Option {
	return func(b *Backend) {
		b.httpClient = c
	}
}

// NewBackend is the registry factory for the openai_compatible backend.
func NewBackend(cfg chatcore.BackendConfig) (chatcore.Backend, error) {
	return New(cfg)
}

// New creates a backend from cfg. The base URL may also be supplied per job.
func New(cfg chatcore.BackendConfig, opts ...Option) (*Backend, error) {
	httpClient, err := transport.ProxyClient(cfg.HTTPProxy, cfg.HTTPSProxy)
	if err != nil {
		return nil, err
	}

	b := &Backend{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		timeout:    cfg.Timeout,
		maxRetries: defaultMaxRetries,
		httpClient: httpClient,
		logger:     logger.OrNop(cfg.Logger).With("backend", chatcore.BackendOpenAICompatible.String()),
	}
	if b.apiKey == "" {
		b.apiKey = DefaultAPIKey
	}
	if b.timeout <= 0 {
		b.timeout = DefaultTimeout
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Name returns the backend identifier.
func (b *Backend) Name() chatcore.BackendID {
	return chatcore.BackendOpenAICompatible
}

// Generate opens a streaming chat completion for job.
// HTTP failures are returned as *chatcore.BackendError.
func (b *Backend) Generate(ctx context.Context, job *chatcore.Job) (chatcore.TokenStream, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}
	params, err := buildParams(job)
	if err != nil {
		return nil, err
	}

	baseURL := job.BaseURL
	if baseURL == "" {
		baseURL = b.baseURL
	}
	if baseURL == "" {
		return nil, &chatcore.ValidationError{
			Field:  "base_url",
			Value:  "",
			Reason: "an OpenAI compatible server URL is required",
			Err:    chatcore.ErrInvalidRequest,
		}
	}

	client := openai.NewClient(
		option.WithAPIKey(b.apiKey),
		option.WithBaseURL(apiRoot(baseURL)),
		option.WithHTTPClient(b.httpClient),
		option.WithRequestTimeout(b.timeout),
		option.WithMaxRetries(b.maxRetries),
		option.WithJSONSet("cache_prompt", true),
	)

	b.logger.Debug("opening stream", "model", job.Model, "base_url", baseURL, "messages", len(job.Messages))
	stream := client.Chat.Completions.NewStreaming(ctx, params)
	if err := stream.Err(); err != nil {
		_ = stream.Close()
		return nil, toBackendError(err)
	}

	pull := func() (string, bool, error) {
		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}
			return chunk.Choices[0].Delta.Content, true, nil
		}
		if err := stream.Err(); err != nil {
			b.logger.Warn("stream failed", "model", job.Model, "error", err)
			return "", false, toBackendError(err)
		}
		return "", false, nil
	}

	return chatcore.NewTokenStream(pull, stream.Close), nil
}

// buildParams maps the job onto chat completion parameters.
func buildParams(job *chatcore.Job) (openai.ChatCompletionNewParams, error) {
	gp, err := job.GenerationParams()
	if err != nil {
		return openai.ChatCompletionNewParams{}, err
	}

	messages := job.Messages
	if gp.System != nil {
		messages = chatcore.WithSystem(*gp.System, messages)
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(job.Model),
		Messages: make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)),
	}
	for _, m := range messages {
		switch m.Role {
		case chatcore.RoleSystem:
			params.Messages = append(params.Messages, openai.SystemMessage(m.Content))
		case chatcore.RoleAssistant:
			params.Messages = append(params.Messages, openai.AssistantMessage(m.Content))
		case chatcore.RoleUser:
			params.Messages = append(params.Messages, openai.UserMessage(m.Content))
		default:
			return openai.ChatCompletionNewParams{}, &chatcore.ValidationError{
				Field:  "messages.role",
				Value:  m.Role,
				Reason: "must be system, user or assistant",
				Err:    chatcore.ErrInvalidRequest,
			}
		}
	}

	if gp.Temperature != nil {
		params.Temperature = openai.Float(*gp.Temperature)
	}
	if gp.TopP != nil {
		params.TopP = openai.Float(*gp.TopP)
	}
	if gp.FrequencyPenalty != nil {
		params.FrequencyPenalty = openai.Float(*gp.FrequencyPenalty)
	}
	if gp.MaxTokens != nil {
		params.MaxTokens = openai.Int(int64(*gp.MaxTokens))
	}

	return params, nil
}

// apiRoot appends the /v1 prefix the chat completions routes live under.
func apiRoot(baseURL string) string {
	baseURL = strings.TrimRight(baseURL, "/")
	if strings.HasSuffix(baseURL, "/v1") {
		return baseURL + "/"
	}
	return baseURL + "/v1/"
}

// toBackendError classifies SDK errors by HTTP status. Context errors pass
// through unchanged.
func toBackendError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		e := chatcore.NewBackendError(chatcore.BackendOpenAICompatible, apiErr.StatusCode, apiErr.Error())
		if e.Err == nil {
			e.Err = err
		}
		return e
	}

	return &chatcore.BackendError{
		Backend:   chatcore.BackendOpenAICompatible,
		Message:   err.Error(),
		Retryable: true,
		Err:       fmt.Errorf("%w: %w", chatcore.ErrBackendUnavailable, err),
	}
}
