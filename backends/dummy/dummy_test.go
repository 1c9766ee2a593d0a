package dummy

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chatcore "github.com/haowjy/meridian-chat-core"
)

func testJob(params map[string]any) *chatcore.Job {
	return &chatcore.Job{
		Model:    "test",
		Messages: []chatcore.Message{{Role: chatcore.RoleUser, Content: "Hello, test!"}},
		Params:   params,
	}
}

func drain(t *testing.T, tokens chatcore.TokenStream) []string {
	t.Helper()
	var fragments []string
	for tokens.Next() {
		fragments = append(fragments, tokens.Current())
	}
	require.NoError(t, tokens.Err())
	return fragments
}

func TestBackends(t *testing.T) {
	tests := []struct {
		name     string
		factory  chatcore.Factory
		wantID   chatcore.BackendID
		wantText string
		wantLen  int
	}{
		{"dummy", NewDummy, chatcore.BackendDummy, "The quick brown fox jumps over the lazy dog . ", 10},
		{"dummy coder", NewCoder, chatcore.BackendDummyCoder, "```javascript\nconsole.log('hello, world')```", 13},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, err := tt.factory(chatcore.BackendConfig{})
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, backend.Name())

			tokens, err := backend.Generate(context.Background(), testJob(nil))
			require.NoError(t, err)
			defer tokens.Close()

			fragments := drain(t, tokens)
			assert.Len(t, fragments, tt.wantLen)
			assert.Equal(t, tt.wantText, strings.Join(fragments, ""))
			assert.Equal(t, tt.wantText, tokens.Text())
		})
	}
}

func TestLorem_WordCount(t *testing.T) {
	backend, err := NewLorem(chatcore.BackendConfig{})
	require.NoError(t, err)

	tests := []struct {
		name   string
		params map[string]any
		want   int
	}{
		{"default", nil, defaultLoremWords},
		{"n_predict", map[string]any{"n_predict": 7}, 7},
		{"max_tokens", map[string]any{"max_tokens": 120}, 120},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := backend.Generate(context.Background(), testJob(tt.params))
			require.NoError(t, err)

			fragments := drain(t, tokens)
			assert.Len(t, fragments, tt.want)
			for _, f := range fragments {
				assert.True(t, strings.HasSuffix(f, " "), "fragment %q lacks separator", f)
			}
		})
	}
}

func TestGenerate_InvalidJob(t *testing.T) {
	backend, err := NewDummy(chatcore.BackendConfig{})
	require.NoError(t, err)

	_, err = backend.Generate(context.Background(), &chatcore.Job{})
	assert.True(t, chatcore.IsInvalidRequest(err))

	_, err = backend.Generate(context.Background(), testJob(map[string]any{"temperature": 9.0}))
	assert.True(t, chatcore.IsInvalidRequest(err))
}

func TestGenerate_ContextCanceled(t *testing.T) {
	backend, err := NewDummy(chatcore.BackendConfig{TokenDelay: time.Hour})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	tokens, err := backend.Generate(ctx, testJob(nil))
	require.NoError(t, err)

	cancel()
	assert.False(t, tokens.Next())
	assert.ErrorIs(t, tokens.Err(), context.Canceled)
}

func TestGenerate_Delay(t *testing.T) {
	backend, err := NewCoder(chatcore.BackendConfig{TokenDelay: time.Millisecond})
	require.NoError(t, err)

	start := time.Now()
	tokens, err := backend.Generate(context.Background(), testJob(nil))
	require.NoError(t, err)
	drain(t, tokens)

	assert.GreaterOrEqual(t, time.Since(start), time.Duration(len(Snippet))*time.Millisecond)
}

func TestStreamDelay(t *testing.T) {
	tests := []struct {
		model string
		want  time.Duration
	}{
		{"lorem-slow", 500 * time.Millisecond},
		{"lorem-medium", 100 * time.Millisecond},
		{"lorem-fast", 33 * time.Millisecond},
		{"anything", 5 * time.Millisecond},
		{"", 5 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, streamDelay(tt.model, 5*time.Millisecond))
		})
	}
}
