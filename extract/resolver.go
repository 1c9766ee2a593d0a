package extract

import (
	"path"
	"regexp"
	"strconv"
	"strings"

	chatcore "github.com/haowjy/meridian-chat-core"
)

// Target is one code segment being named.
type Target struct {
	// Position is the index of the segment in the response
	Position int
	Segment  chatcore.Segment
	Language *Language

	// Preceding is the text segment immediately before this one, if any
	Preceding *chatcore.Segment

	// Siblings are the code segments of the same language, this one
	// included, in response order
	Siblings []*Target

	// Name is the resolved file path; Strategy tells which strategy set it
	Name     string
	Strategy string
}

// Named reports whether a name has been resolved.
func (t *Target) Named() bool {
	return t.Name != ""
}

// Strategy proposes a file name for one target. ok is false when the
// strategy has nothing to say about it.
type Strategy interface {
	Name() string
	Resolve(t *Target, all []*Target) (name string, ok bool)
}

// Resolver names code segments by running its strategies in order. Each
// strategy is one round: it sees the names earlier rounds settled, every
// proposal of a round is applied after the round, and a target keeps the
// first name it receives.
type Resolver struct {
	strategies []Strategy
}

// NewResolver returns a resolver with the given strategies.
func NewResolver(strategies ...Strategy) *Resolver {
	return &Resolver{strategies: strategies}
}

// DefaultStrategies returns the standard chain: a marker comment on the first
// line, a path in the preceding text, import pairing, then positional names.
func DefaultStrategies(langs *Languages) []Strategy {
	return []Strategy{
		LeadingComment{},
		PrecedingText{langs: langs},
		ImportPairing{},
		Positional{},
	}
}

// Targets builds the naming targets of segments. langs resolves the language
// recorded in each code segment's metadata.
func Targets(langs *Languages, segments []chatcore.Segment) []*Target {
	var (
		targets []*Target
		groups  = make(map[string][]*Target)
	)
	for i, seg := range segments {
		if !seg.IsCode() {
			continue
		}
		t := &Target{Position: i, Segment: seg, Language: langs.Resolve(seg.Language())}
		if i > 0 && segments[i-1].Kind == chatcore.SegmentText {
			t.Preceding = &segments[i-1]
		}
		targets = append(targets, t)
		groups[t.Language.Name] = append(groups[t.Language.Name], t)
	}
	for _, t := range targets {
		t.Siblings = groups[t.Language.Name]
	}
	return targets
}

// Resolve names every target in place and makes the names unique.
func (r *Resolver) Resolve(targets []*Target) {
	for _, s := range r.strategies {
		proposals := make(map[*Target]string)
		for _, t := range targets {
			if t.Named() {
				continue
			}
			if name, ok := s.Resolve(t, targets); ok && name != "" {
				proposals[t] = name
			}
		}
		for _, t := range targets {
			if name, ok := proposals[t]; ok {
				t.Name = name
				t.Strategy = s.Name()
			}
		}
	}
	dedupe(targets)
}

// dedupe renames later targets whose path is already taken: a second
// utils.js becomes utils_1.js, a third utils_2.js.
func dedupe(targets []*Target) {
	taken := make(map[string]bool, len(targets))
	for _, t := range targets {
		if !taken[t.Name] {
			taken[t.Name] = true
			continue
		}
		ext := path.Ext(t.Name)
		stem := strings.TrimSuffix(t.Name, ext)
		for n := 1; ; n++ {
			candidate := stem + "_" + strconv.Itoa(n) + ext
			if !taken[candidate] {
				t.Name = candidate
				taken[candidate] = true
				break
			}
		}
	}
}

// LeadingComment names a segment whose first non-blank line is a file marker
// comment, e.g. "// src/app.js".
type LeadingComment struct{}

func (LeadingComment) Name() string { return "leading_comment" }

func (LeadingComment) Resolve(t *Target, _ []*Target) (string, bool) {
	for _, line := range strings.Split(t.Segment.Content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		return t.Language.MarkerPath(strings.TrimRight(line, "\r"))
	}
	return "", false
}

var urlLike = regexp.MustCompile(`(?i)\b(?:[a-z][a-z0-9+.-]*://|www\.)\S*`)

// PrecedingText names a segment after the last path mentioned in the text
// right before it. A path with the segment's extension wins over any other
// source file path; URLs are ignored.
type PrecedingText struct {
	langs *Languages
}

// NewPrecedingText returns the strategy over langs.
func NewPrecedingText(langs *Languages) PrecedingText {
	return PrecedingText{langs: langs}
}

func (PrecedingText) Name() string { return "preceding_text" }

func (p PrecedingText) Resolve(t *Target, _ []*Target) (string, bool) {
	if t.Preceding == nil {
		return "", false
	}
	candidates := PathCandidates(p.langs, t.Preceding.Content)

	var fallback string
	for i := len(candidates) - 1; i >= 0; i-- {
		ext := strings.TrimPrefix(path.Ext(candidates[i]), ".")
		if strings.EqualFold(ext, t.Language.Extension) {
			return candidates[i], true
		}
		if fallback == "" {
			fallback = candidates[i]
		}
	}
	return fallback, fallback != ""
}

// PathCandidates returns the path-like tokens of text with a recognized
// source extension, in order. URL-like substrings are skipped.
func PathCandidates(langs *Languages, text string) []string {
	text = urlLike.ReplaceAllString(text, " ")

	var out []string
	for _, token := range langs.PathPattern().FindAllString(text, -1) {
		ext := strings.TrimPrefix(path.Ext(token), ".")
		if ext == "" || !langs.KnownExtension(ext) {
			continue
		}
		out = append(out, token)
	}
	return out
}

// ImportPairing names a pair of unnamed same-language segments when exactly
// one local import connects them: the importer becomes the language main file
// and the other is named after the import. Zero imports, or imports both
// ways, leave both to the positional fallback.
type ImportPairing struct{}

func (ImportPairing) Name() string { return "import_pairing" }

func (ImportPairing) Resolve(t *Target, _ []*Target) (string, bool) {
	if len(t.Siblings) != 2 {
		return "", false
	}
	for _, s := range t.Siblings {
		if s.Named() {
			return "", false
		}
	}

	var (
		importer *Target
		module   string
		count    int
	)
	for _, s := range t.Siblings {
		imports := LocalImports(s.Language, s.Segment.Content)
		count += len(imports)
		if len(imports) > 0 {
			importer, module = s, imports[0]
		}
	}
	if count != 1 {
		return "", false
	}

	if t == importer {
		return t.Language.MainFile, true
	}
	return t.Language.FileName(module), true
}

// Positional names whatever is left. Per language, unnamed segments become
// untitled_0.ext, untitled_1.ext and so on in order; a language with exactly
// one unnamed segment gets its main file name unless another segment already
// holds it.
type Positional struct{}

func (Positional) Name() string { return "positional" }

func (Positional) Resolve(t *Target, all []*Target) (string, bool) {
	index, unnamed := 0, 0
	for _, s := range t.Siblings {
		if s.Named() {
			continue
		}
		if s == t {
			index = unnamed
		}
		unnamed++
	}

	if unnamed == 1 && !claimed(all, t.Language.MainFile) {
		return t.Language.MainFile, true
	}
	return t.Language.FileName("untitled_" + strconv.Itoa(index)), true
}

func claimed(targets []*Target, name string) bool {
	for _, t := range targets {
		if t.Name == name {
			return true
		}
	}
	return false
}
