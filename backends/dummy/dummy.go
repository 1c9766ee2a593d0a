// Package dummy provides offline backends that stream canned or generated
// text. They exercise the adapter and the extractor without a model server.
package dummy

import (
	"context"
	"log/slog"
	"strings"
	"time"

	loremgen "github.com/bozaro/golorem"

	chatcore "github.com/haowjy/meridian-chat-core"
	"github.com/haowjy/meridian-chat-core/internal/logger"
)

// Sentence is the token list streamed by the dummy backend.
var Sentence = []string{"The", "quick", "brown", "fox", "jumps", "over", "the", "lazy", "dog", "."}

// Snippet is the token list streamed by the dummy_coder backend.
var Snippet = []string{"```", "javascript", "\n", "console", ".", "log", "(", "'", "hello, ", "world", "'", ")", "```"}

const defaultLoremWords = 50

// Backend streams a fixed or generated token list, one token per fragment.
type Backend struct {
	id        chatcore.BackendID
	separator string
	tokens    func(params *chatcore.GenerationParams) []string
	delay     time.Duration
	logger    *slog.Logger
}

// NewDummy returns the backend that streams Sentence with a space after every token.
func NewDummy(cfg chatcore.BackendConfig) (chatcore.Backend, error) {
	return newBackend(chatcore.BackendDummy, " ", cfg, func(*chatcore.GenerationParams) []string {
		return Sentence
	}), nil
}

// NewCoder returns the backend that streams Snippet as one fenced javascript block.
func NewCoder(cfg chatcore.BackendConfig) (chatcore.Backend, error) {
	return newBackend(chatcore.BackendDummyCoder, "", cfg, func(*chatcore.GenerationParams) []string {
		return Snippet
	}), nil
}

// NewLorem returns the backend that streams lorem ipsum words.
// The word count follows max_tokens (n_predict), defaulting to 50.
func NewLorem(cfg chatcore.BackendConfig) (chatcore.Backend, error) {
	generator := loremgen.New()
	return newBackend(chatcore.BackendLorem, " ", cfg, func(params *chatcore.GenerationParams) []string {
		return loremWords(generator, params.GetMaxTokens(defaultLoremWords))
	}), nil
}

func newBackend(id chatcore.BackendID, separator string, cfg chatcore.BackendConfig, tokens func(*chatcore.GenerationParams) []string) *Backend {
	return &Backend{
		id:        id,
		separator: separator,
		tokens:    tokens,
		delay:     cfg.TokenDelay,
		logger:    logger.OrNop(cfg.Logger).With("backend", id.String()),
	}
}

// Name returns the backend identifier.
func (b *Backend) Name() chatcore.BackendID {
	return b.id
}

// Generate streams the token list for job. Every fragment is a token
// followed by the backend's separator.
func (b *Backend) Generate(ctx context.Context, job *chatcore.Job) (chatcore.TokenStream, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}
	params, err := job.GenerationParams()
	if err != nil {
		return nil, err
	}

	tokens := b.tokens(params)
	delay := streamDelay(job.Model, b.delay)
	b.logger.Debug("starting stream", "model", job.Model, "tokens", len(tokens), "delay", delay)

	i := 0
	pull := func() (string, bool, error) {
		if i >= len(tokens) {
			b.logger.Debug("stream complete", "tokens", i)
			return "", false, nil
		}
		if err := wait(ctx, delay); err != nil {
			b.logger.Debug("stream cancelled", "tokens", i, "error", err)
			return "", false, err
		}
		token := tokens[i] + b.separator
		i++
		return token, true, nil
	}

	return chatcore.NewTokenStream(pull, nil), nil
}

// streamDelay returns the per-token pause. Models named lorem-slow,
// lorem-medium or lorem-fast pick a fixed pace; anything else uses the
// configured delay.
func streamDelay(model string, configured time.Duration) time.Duration {
	switch {
	case strings.HasSuffix(model, "-slow"):
		return 500 * time.Millisecond
	case strings.HasSuffix(model, "-medium"):
		return 100 * time.Millisecond
	case strings.HasSuffix(model, "-fast"):
		return 33 * time.Millisecond
	default:
		return configured
	}
}

func wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// loremWords generates exactly count words from whole lorem sentences.
func loremWords(generator *loremgen.Lorem, count int) []string {
	words := make([]string, 0, count)
	for len(words) < count {
		words = append(words, strings.Fields(generator.Sentence(5, 15))...)
	}
	return words[:count]
}
