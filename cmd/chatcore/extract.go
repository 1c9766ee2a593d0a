package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	chatcore "github.com/haowjy/meridian-chat-core"
	"github.com/haowjy/meridian-chat-core/extract"
)

type extractCommander struct {
	app         *app
	sourcesOnly bool
}

// extractOutput is the JSON document printed by extract.
type extractOutput struct {
	Segments []chatcore.Segment     `json:"segments,omitempty"`
	Sources  []chatcore.SourceEntry `json:"sources"`
}

func newExtractCmd(a *app) *cobra.Command {
	cmder := &extractCommander{app: a}

	cmd := &cobra.Command{
		Use:   "extract [file]",
		Short: "Split a response into segments and extract its source files",
		Long: `Reads a model response from file, or stdin when no file is given, and
prints its segments and the named source files as JSON.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args)
		},
	}

	cmd.Flags().BoolVar(&cmder.sourcesOnly, "sources-only", false, "Print only the extracted sources")
	addFlags(cmd.Flags(), "tables")

	return cmd
}

func (c *extractCommander) run(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	tables, err := loadTables(c.app.v)
	if err != nil {
		return err
	}
	extractor, err := extract.New(tables, extract.WithLogger(c.app.logger))
	if err != nil {
		return err
	}

	segments, sources := extractor.Extract(text)
	c.app.logger.Debug("extracted", "segments", len(segments), "sources", len(sources))

	out := extractOutput{Segments: segments, Sources: sources}
	if c.sourcesOnly {
		out.Segments = nil
	}
	if out.Sources == nil {
		out.Sources = []chatcore.SourceEntry{}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// readInput returns the contents of the file named by args, or all of in.
func readInput(in io.Reader, args []string) (string, error) {
	if len(args) > 0 && args[0] != "-" {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("reading input: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return string(data), nil
}

// loadTables returns the tables named by the tables key, or the active
// defaults when it is empty.
func loadTables(v *viper.Viper) (*chatcore.Tables, error) {
	path := v.GetString(keyTables)
	if path == "" {
		return chatcore.DefaultTables(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tables: %w", err)
	}
	return chatcore.ParseTables(data)
}
