package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chatcore "github.com/haowjy/meridian-chat-core"
)

// execute runs the CLI with args in a scratch directory and returns stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)

	err := cmd.Execute()
	return out.String(), err
}

func lastLine(t *testing.T, out string) streamResult {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	var result streamResult
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &result))
	return result
}

func TestBackendsCmd(t *testing.T) {
	out, err := execute(t, "", "backends")
	require.NoError(t, err)

	names := strings.Fields(out)
	assert.Contains(t, names, "dummy")
	assert.Contains(t, names, "dummy_coder")
	assert.Contains(t, names, "openai_compatible")
}

func TestStreamCmd_DummyCoder(t *testing.T) {
	out, err := execute(t, "", "stream", "--backend", "dummy_coder", "--session", "s1", "write hello world")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Greater(t, len(lines), 2)

	var first chatcore.StreamEvent
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, chatcore.EventOutputItemAdded, first.Type)
	assert.Equal(t, 1, first.SequenceNumber)

	result := lastLine(t, out)
	assert.Equal(t, "chatcore.result", result.Type)
	assert.Equal(t, "s1", result.SessionID)
	assert.Equal(t, chatcore.RoleAssistant, result.Role)
	assert.Equal(t, len(lines)-1, result.Events)
	assert.Equal(t, []chatcore.SourceEntry{{FilePath: "main.js", Content: "console.log('hello, world')"}}, result.Sources)
}

func TestStreamCmd_TextMode(t *testing.T) {
	out, err := execute(t, "", "stream", "-b", "dummy", "--text", "hi")
	require.NoError(t, err)
	assert.Equal(t, "The quick brown fox jumps over the lazy dog . \n", out)
}

func TestStreamCmd_PromptFromStdin(t *testing.T) {
	out, err := execute(t, "hello from stdin\n", "stream", "-b", "dummy", "-p", "temperature=0.5")
	require.NoError(t, err)

	result := lastLine(t, out)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, chatcore.WarningCodeParamIgnored, result.Warnings[0].Code)
	assert.Equal(t, "temperature", result.Warnings[0].Field)
}

func TestStreamCmd_EnvSelectsBackend(t *testing.T) {
	t.Setenv("CHATCORE_BACKEND", "dummy_coder")

	out, err := execute(t, "", "stream", "hi")
	require.NoError(t, err)
	assert.Len(t, lastLine(t, out).Sources, 1)
}

func TestStreamCmd_History(t *testing.T) {
	dir := t.TempDir()
	history := filepath.Join(dir, "history.json")
	require.NoError(t, os.WriteFile(history, []byte(`[
		{"role": "user", "content": "hi"},
		{"role": "assistant", "content": "hello"}
	]`), 0o600))

	out, err := execute(t, "", "stream", "-b", "dummy", "--history", history, "again")
	require.NoError(t, err)
	assert.Equal(t, chatcore.RoleAssistant, lastLine(t, out).Role)

	_, err = execute(t, "", "stream", "-b", "dummy", "--history", filepath.Join(dir, "missing.json"), "again")
	assert.ErrorContains(t, err, "reading history")
}

func TestStreamCmd_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"unknown backend", []string{"stream", "-b", "nope", "hi"}, "nope"},
		{"no prompt", []string{"stream", "-b", "dummy"}, "no prompt"},
		{"bad param", []string{"stream", "-b", "dummy", "-p", "temperature", "hi"}, "key=value"},
		{"unknown publisher", []string{"stream", "-b", "dummy", "--publisher", "carrier-pigeon", "hi"}, "unknown publisher"},
		{"kafka without brokers", []string{"stream", "-b", "dummy", "--publisher", "kafka", "hi"}, "broker"},
		{"missing config file", []string{"--config", "missing.yaml", "backends"}, "reading config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, "", tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestExtractCmd(t *testing.T) {
	input := "Here you go:\napp.py:\n```python\nprint('hi')\n```\n"

	out, err := execute(t, input, "extract")
	require.NoError(t, err)

	var got extractOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.NotEmpty(t, got.Segments)
	require.Len(t, got.Sources, 1)
	assert.Equal(t, "app.py", got.Sources[0].FilePath)
}

func TestExtractCmd_SourcesOnly(t *testing.T) {
	out, err := execute(t, "no code here", "extract", "--sources-only")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.NotContains(t, got, "segments")
	assert.Equal(t, []any{}, got["sources"])
}

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{"temperature=0.2", "n_predict=12", "system=be brief", "stop=true"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"temperature": 0.2,
		"n_predict":   float64(12),
		"system":      "be brief",
		"stop":        true,
	}, params)

	params, err = parseParams(nil)
	require.NoError(t, err)
	assert.Nil(t, params)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092", "c:9092"}, splitList([]string{"a:9092, b:9092", "", "c:9092"}))
	assert.Nil(t, splitList(nil))
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("CHATCORE_TEST_DOTENV=loaded\n"), 0o600))
	t.Setenv("CHATCORE_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("CHATCORE_TEST_DOTENV"))

	require.NoError(t, loadDotEnv(path))
	assert.Equal(t, "loaded", os.Getenv("CHATCORE_TEST_DOTENV"))

	assert.NoError(t, loadDotEnv(filepath.Join(dir, "missing.env")))
	assert.NoError(t, loadDotEnv(""))
}
