// Package extract turns a complete model response into text and code
// segments and names every code segment, producing the response's source
// tree.
//
//	segments, sources := extract.Extract(response)
//	for _, src := range sources {
//		fmt.Println(src.FilePath)
//	}
//
// Nothing here touches the file system; persisting the tree is up to the
// caller.
package extract

import (
	"fmt"
	"log/slog"
	"sync"

	chatcore "github.com/haowjy/meridian-chat-core"
	"github.com/haowjy/meridian-chat-core/internal/logger"
)

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger used to report naming decisions.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger.OrNop(l)
	}
}

// WithStrategies replaces the naming strategy chain.
func WithStrategies(strategies ...Strategy) Option {
	return func(e *Extractor) {
		e.resolver = NewResolver(strategies...)
	}
}

// Extractor runs the parser, classifier and resolver over complete
// responses. It holds no per-call state and is safe for concurrent use.
type Extractor struct {
	langs    *Languages
	parser   *Parser
	resolver *Resolver
	logger   *slog.Logger
}

// New builds an extractor from tables.
func New(tables *chatcore.Tables, opts ...Option) (*Extractor, error) {
	if tables == nil {
		tables = chatcore.DefaultTables()
	}
	langs, err := NewLanguages(tables.Languages)
	if err != nil {
		return nil, fmt.Errorf("building language table: %w", err)
	}

	e := &Extractor{
		langs:    langs,
		parser:   NewParser(langs, NewClassifier(langs)),
		resolver: NewResolver(DefaultStrategies(langs)...),
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Languages returns the compiled language table.
func (e *Extractor) Languages() *Languages {
	return e.langs
}

// Parse segments text without naming anything.
func (e *Extractor) Parse(text string) []chatcore.Segment {
	return e.parser.Parse(text)
}

// Extract segments text and builds its source tree. Code segments come back
// with their file path set; the tree lists one entry per code segment in
// response order.
func (e *Extractor) Extract(text string) ([]chatcore.Segment, []chatcore.SourceEntry) {
	segments := e.parser.Parse(text)
	return e.Name(segments)
}

// Name resolves file names for already parsed segments. The input slice is
// not modified.
func (e *Extractor) Name(segments []chatcore.Segment) ([]chatcore.Segment, []chatcore.SourceEntry) {
	segments = cloneSegments(segments)
	for i := range segments {
		seg := &segments[i]
		if seg.IsCode() && seg.Language() == "" {
			lang := e.parser.classifier.Classify(seg.Content)
			seg.Metadata = &chatcore.SegmentMetadata{Language: lang.Name}
		}
	}

	targets := Targets(e.langs, segments)
	e.resolver.Resolve(targets)
	for _, t := range targets {
		e.logger.Debug("resolved file name",
			"position", t.Position,
			"language", t.Language.Name,
			"file_path", t.Name,
			"strategy", t.Strategy,
		)
	}

	return segments, Build(segments, targets)
}

var (
	defaultMu        sync.Mutex
	defaultTables    *chatcore.Tables
	defaultExtractor *Extractor
)

// Default returns an extractor over chatcore.DefaultTables. It is rebuilt
// when the active tables are replaced.
func Default() *Extractor {
	tables := chatcore.DefaultTables()

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultExtractor == nil || defaultTables != tables {
		e, err := New(tables)
		if err != nil {
			// active tables are validated when they are loaded
			panic(fmt.Sprintf("extract: %v", err))
		}
		defaultTables, defaultExtractor = tables, e
	}
	return defaultExtractor
}

// Extract runs the default extractor over text.
func Extract(text string) ([]chatcore.Segment, []chatcore.SourceEntry) {
	return Default().Extract(text)
}

func cloneSegments(segments []chatcore.Segment) []chatcore.Segment {
	out := make([]chatcore.Segment, len(segments))
	for i, seg := range segments {
		if seg.Metadata != nil {
			md := *seg.Metadata
			seg.Metadata = &md
		}
		out[i] = seg
	}
	return out
}
