package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	chatcore "github.com/haowjy/meridian-chat-core"
	"github.com/haowjy/meridian-chat-core/backends"
	"github.com/haowjy/meridian-chat-core/eventstream"
	"github.com/haowjy/meridian-chat-core/eventstream/kafka"
	"github.com/haowjy/meridian-chat-core/eventstream/nats"
	"github.com/haowjy/meridian-chat-core/eventstream/writer"
	"github.com/haowjy/meridian-chat-core/extract"
	"github.com/haowjy/meridian-chat-core/generation"
	"github.com/haowjy/meridian-chat-core/reasoning"
	"github.com/haowjy/meridian-chat-core/stream"
)

type streamCommander struct {
	app       *app
	system    string
	sessionID string
	history   string
	params    []string
	text      bool
}

// streamResult is the last line printed by stream in JSON mode.
type streamResult struct {
	Type      string                       `json:"type"`
	SessionID string                       `json:"session_id"`
	Role      chatcore.Role                `json:"role"`
	Events    int                          `json:"events"`
	Sources   []chatcore.SourceEntry       `json:"sources"`
	Warnings  []chatcore.ValidationWarning `json:"warnings,omitempty"`
}

const streamLongDesc string = `Runs one generation and prints its response events as JSON lines,
followed by a result line carrying the extracted source files.

The prompt is taken from the arguments, or stdin when none are given. With
--history the prompt is appended to a JSON array of {"role","content"}
messages. Parameters are passed as key=value pairs:

  chatcore stream -b lorem -p max_tokens=20 "tell me a story"
  chatcore stream -b openai_compatible --base-url http://localhost:8080 -p temperature=0.2 "hi"
  chatcore stream -b anthropic -m claude-sonnet-4-5 -p thinking_budget=2048 "why?"`

func newStreamCmd(a *app) *cobra.Command {
	cmder := &streamCommander{app: a}

	cmd := &cobra.Command{
		Use:   "stream [prompt]",
		Short: "Stream a generation as response events",
		Long:  streamLongDesc,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args)
		},
	}

	cmd.Flags().StringVarP(&cmder.system, "system", "s", "", "System prompt")
	cmd.Flags().StringVar(&cmder.sessionID, "session", "", "Session id selecting the event channel (default random)")
	cmd.Flags().StringVar(&cmder.history, "history", "", "JSON file with earlier conversation messages")
	cmd.Flags().StringArrayVarP(&cmder.params, "param", "p", nil, "Generation parameter as key=value (repeatable)")
	cmd.Flags().BoolVar(&cmder.text, "text", false, "Print the output text and sources instead of JSON events")
	addFlags(cmd.Flags(),
		"backend", "model", "base-url", "api-key", "http-proxy", "https-proxy",
		"timeout", "token-delay", "tables", "publisher", "nats-url", "kafka-brokers", "kafka-topic",
	)

	return cmd
}

func (c *streamCommander) run(cmd *cobra.Command, args []string) error {
	v := c.app.v
	log := c.app.logger

	job, err := c.buildJob(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	cfg := backendConfig(v)
	cfg.Logger = log
	backend, err := backends.NewRegistry().New(chatcore.BackendID(v.GetString(keyBackend)), cfg)
	if err != nil {
		return err
	}

	tables, err := loadTables(v)
	if err != nil {
		return err
	}
	extractor, err := extract.New(tables, extract.WithLogger(log))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	transport, err := newTransport(v)
	if err != nil {
		return err
	}
	publisher := eventstream.NewFanout(writer.NewPublisher(out, writer.WithDeltasOnly(c.text)), transport)
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn("closing publishers", "error", err)
		}
	}()

	runner := generation.NewRunner(backend,
		generation.WithPublisher(publisher),
		generation.WithExtractor(extractor),
		generation.WithLogger(log),
		generation.WithAdapterOptions(stream.WithDetector(reasoning.NewDetector(tables.Reasoning.Tags...))),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := runner.Run(ctx, generation.Request{
		SessionID: c.sessionID,
		Job:       job,
		System:    c.system,
	})
	if err != nil {
		return err
	}

	if c.text {
		return printSources(out, result.Sources)
	}
	return json.NewEncoder(out).Encode(newStreamResult(result))
}

func (c *streamCommander) buildJob(in io.Reader, args []string) (*chatcore.Job, error) {
	var messages []chatcore.Message
	if c.history != "" {
		data, err := os.ReadFile(c.history)
		if err != nil {
			return nil, fmt.Errorf("reading history: %w", err)
		}
		if err := json.Unmarshal(data, &messages); err != nil {
			return nil, fmt.Errorf("decoding history %s: %w", c.history, err)
		}
	}

	prompt := strings.Join(args, " ")
	if prompt == "" {
		text, err := readInput(in, nil)
		if err != nil {
			return nil, err
		}
		prompt = strings.TrimSpace(text)
	}
	if prompt != "" {
		messages = append(messages, chatcore.Message{Role: chatcore.RoleUser, Content: prompt})
	}
	if len(messages) == 0 {
		return nil, fmt.Errorf("%w: no prompt given", chatcore.ErrInvalidRequest)
	}

	params, err := parseParams(c.params)
	if err != nil {
		return nil, err
	}

	return &chatcore.Job{
		Model:    c.app.v.GetString(keyModel),
		BaseURL:  c.app.v.GetString(keyBaseURL),
		Messages: messages,
		Params:   params,
	}, nil
}

// parseParams decodes key=value pairs. Values that parse as JSON keep their
// JSON type, anything else is a string.
func parseParams(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: parameter %q is not key=value", chatcore.ErrInvalidRequest, pair)
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		params[key] = value
	}
	return params, nil
}

// newTransport builds the publisher selected by the publisher key. It
// returns nil for none.
func newTransport(v *viper.Viper) (eventstream.Publisher, error) {
	switch name := strings.ToLower(v.GetString(keyPublisher)); name {
	case "", publisherNone:
		return nil, nil
	case publisherNATS:
		return nats.NewPublisher(nats.Config{URL: v.GetString(keyNATSURL)})
	case publisherKafka:
		return kafka.NewPublisher(kafka.Config{
			Brokers: splitList(v.GetStringSlice(keyKafkaBroker)),
			Topic:   v.GetString(keyKafkaTopic),
		})
	default:
		return nil, fmt.Errorf("unknown publisher %q (want %s, %s or %s)", name, publisherNone, publisherNATS, publisherKafka)
	}
}

func newStreamResult(r *generation.Result) streamResult {
	out := streamResult{
		Type:      "chatcore.result",
		SessionID: r.SessionID,
		Role:      r.Role,
		Events:    r.Events,
		Sources:   r.Sources,
		Warnings:  r.Warnings,
	}
	if out.Sources == nil {
		out.Sources = []chatcore.SourceEntry{}
	}
	return out
}

func printSources(w io.Writer, sources []chatcore.SourceEntry) error {
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	for _, src := range sources {
		if _, err := fmt.Fprintf(w, "\n--- %s ---\n%s\n", src.FilePath, src.Content); err != nil {
			return err
		}
	}
	return nil
}
