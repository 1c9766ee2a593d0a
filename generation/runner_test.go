package generation

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chatcore "github.com/haowjy/meridian-chat-core"
	"github.com/haowjy/meridian-chat-core/backends/dummy"
	"github.com/haowjy/meridian-chat-core/eventstream"
	"github.com/haowjy/meridian-chat-core/eventstream/memory"
	"github.com/haowjy/meridian-chat-core/stream"
)

// scriptedBackend replays fragments, records the job it saw and optionally
// fails once the fragments run out.
type scriptedBackend struct {
	fragments []string
	err       error
	job       *chatcore.Job
	pulled    int
}

func (b *scriptedBackend) Name() chatcore.BackendID { return "scripted" }

func (b *scriptedBackend) Generate(_ context.Context, job *chatcore.Job) (chatcore.TokenStream, error) {
	b.job = job
	i := 0
	return chatcore.NewTokenStream(func() (string, bool, error) {
		if i >= len(b.fragments) {
			return "", false, b.err
		}
		i++
		b.pulled++
		return b.fragments[i-1], true, nil
	}, nil), nil
}

type failingPublisher struct {
	after     int
	published int
}

func (p *failingPublisher) Publish(_ context.Context, _ string, _ *chatcore.StreamEvent) error {
	if p.published >= p.after {
		return errors.New("channel gone")
	}
	p.published++
	return nil
}

func (p *failingPublisher) Close() error { return nil }

func sequentialIDs() stream.IDFunc {
	n := 0
	return func(prefix string) string {
		n++
		return fmt.Sprintf("%s_%d", prefix, n)
	}
}

func userJob(params map[string]any) *chatcore.Job {
	return &chatcore.Job{
		Model:    "test-model",
		Messages: []chatcore.Message{{Role: chatcore.RoleUser, Content: "write hello world"}},
		Params:   params,
	}
}

func TestRun_DummyCoder(t *testing.T) {
	backend, err := dummy.NewCoder(chatcore.BackendConfig{})
	require.NoError(t, err)

	pub := memory.NewPublisher()
	reg := prometheus.NewRegistry()
	runner := NewRunner(backend,
		WithPublisher(pub),
		WithMetrics(NewMetrics(reg)),
		WithAdapterOptions(stream.WithIDFunc(sequentialIDs())),
	)

	result, err := runner.Run(context.Background(), Request{SessionID: "s1", Job: userJob(nil)})
	require.NoError(t, err)

	assert.Equal(t, "```javascript\nconsole.log('hello, world')```", result.Text)
	assert.Equal(t, []chatcore.SourceEntry{{FilePath: "main.js", Content: "console.log('hello, world')"}}, result.Sources)
	assert.Equal(t, result.Text, chatcore.Reassemble(result.Segments))
	assert.Equal(t, chatcore.RoleAssistant, result.Role)

	events := pub.Events(eventstream.ChannelFor("s1"))
	require.Len(t, events, result.Events)
	assert.Equal(t, chatcore.EventOutputItemAdded, events[0].Type)
	last := events[len(events)-1]
	assert.Equal(t, chatcore.EventResponseCompleted, last.Type)
	assert.Equal(t, result.Text, last.Response.OutputText())
	assert.Equal(t, result.Response, last.Response)

	for i, e := range events {
		assert.Equal(t, i+1, e.SequenceNumber)
	}

	assert.InDelta(t, 1, testutil.ToFloat64(runner.metrics.generations.WithLabelValues("dummy_coder", "completed")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(runner.metrics.events.WithLabelValues(string(chatcore.EventResponseCompleted))), 1e-9)
	assert.Equal(t, 1, testutil.CollectAndCount(runner.metrics.sources))
}

func TestRun_Reasoning(t *testing.T) {
	backend := &scriptedBackend{fragments: []string{"<think>", "plan", "</think>", "Done."}}
	pub := memory.NewPublisher()

	result, err := NewRunner(backend, WithPublisher(pub)).Run(context.Background(), Request{SessionID: "s", Job: userJob(nil)})
	require.NoError(t, err)

	assert.Equal(t, "<think>plan</think>Done.", result.Text)
	require.NotNil(t, result.Response)
	require.Len(t, result.Response.Output, 2)
	assert.Equal(t, "plan", result.Response.ReasoningText())
	assert.Equal(t, "Done.", result.Response.OutputText())
}

func TestRun_SystemPrepended(t *testing.T) {
	backend := &scriptedBackend{fragments: []string{"ok"}}
	job := userJob(nil)

	_, err := NewRunner(backend).Run(context.Background(), Request{Job: job, System: "You write code."})
	require.NoError(t, err)

	require.Len(t, backend.job.Messages, 2)
	assert.Equal(t, chatcore.Message{Role: chatcore.RoleSystem, Content: "You write code."}, backend.job.Messages[0])
	assert.Len(t, job.Messages, 1, "request job is not modified")
}

func TestRun_GeneratesSessionID(t *testing.T) {
	pub := memory.NewPublisher()
	result, err := NewRunner(&scriptedBackend{fragments: []string{"ok"}}, WithPublisher(pub)).
		Run(context.Background(), Request{Job: userJob(nil)})
	require.NoError(t, err)

	assert.NotEmpty(t, result.SessionID)
	assert.Len(t, pub.Events(eventstream.ChannelFor(result.SessionID)), result.Events)
}

func TestRun_BackendError(t *testing.T) {
	backendErr := chatcore.NewBackendError("scripted", 503, "overloaded")
	backend := &scriptedBackend{fragments: []string{"partial"}, err: backendErr}
	reg := prometheus.NewRegistry()
	runner := NewRunner(backend, WithMetrics(NewMetrics(reg)))

	_, err := runner.Run(context.Background(), Request{Job: userJob(nil)})
	require.Error(t, err)
	assert.ErrorIs(t, err, chatcore.ErrBackendUnavailable)
	assert.True(t, chatcore.IsRetryable(err))
	assert.InDelta(t, 1, testutil.ToFloat64(runner.metrics.generations.WithLabelValues("scripted", "failed")), 1e-9)
}

func TestRun_PublishFailureStopsGeneration(t *testing.T) {
	fragments := make([]string, 20)
	for i := range fragments {
		fragments[i] = "word "
	}
	backend := &scriptedBackend{fragments: fragments}
	pub := &failingPublisher{after: 2}

	_, err := NewRunner(backend, WithPublisher(pub)).Run(context.Background(), Request{Job: userJob(nil)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel gone")
	assert.Less(t, backend.pulled, len(backend.fragments))
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reg := prometheus.NewRegistry()
	runner := NewRunner(&scriptedBackend{fragments: []string{"a"}}, WithMetrics(NewMetrics(reg)))
	_, err := runner.Run(ctx, Request{Job: userJob(nil)})
	assert.ErrorIs(t, err, context.Canceled)
	assert.InDelta(t, 1, testutil.ToFloat64(runner.metrics.generations.WithLabelValues("scripted", "canceled")), 1e-9)
}

func TestRun_InvalidRequest(t *testing.T) {
	_, err := NewRunner(&scriptedBackend{}).Run(context.Background(), Request{})
	assert.True(t, chatcore.IsInvalidRequest(err))

	_, err = NewRunner(nil).Run(context.Background(), Request{Job: userJob(nil)})
	assert.True(t, chatcore.IsInvalidRequest(err))

	backend, err := dummy.NewDummy(chatcore.BackendConfig{})
	require.NoError(t, err)
	_, err = NewRunner(backend).Run(context.Background(), Request{Job: &chatcore.Job{}})
	assert.True(t, chatcore.IsInvalidRequest(err))
}

func TestRun_Warnings(t *testing.T) {
	backend, err := dummy.NewDummy(chatcore.BackendConfig{})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	runner := NewRunner(backend, WithMetrics(NewMetrics(reg)))
	result, err := runner.Run(context.Background(), Request{Job: userJob(map[string]any{"temperature": 0.3})})
	require.NoError(t, err)

	require.Len(t, result.Warnings, 1)
	assert.Equal(t, chatcore.WarningCodeParamIgnored, result.Warnings[0].Code)
	assert.InDelta(t, 1, testutil.ToFloat64(runner.metrics.warnings.WithLabelValues(string(chatcore.WarningCodeParamIgnored))), 1e-9)
	assert.Empty(t, result.Sources)
}

func TestNextRole(t *testing.T) {
	tests := []struct {
		name    string
		history []chatcore.Message
		want    chatcore.Role
	}{
		{"empty", nil, chatcore.RoleUser},
		{"after user", []chatcore.Message{{Role: chatcore.RoleUser}}, chatcore.RoleAssistant},
		{"system not counted", []chatcore.Message{{Role: chatcore.RoleSystem}, {Role: chatcore.RoleUser}, {Role: chatcore.RoleAssistant}}, chatcore.RoleUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nextRole(tt.history))
		})
	}
}
