// Package reasoning recognizes in-band reasoning regions such as
// <think>...</think> in raw model output, and regroups streamed fragments so
// a tag is never split across more than two consecutive buffers.
package reasoning

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	chatcore "github.com/haowjy/meridian-chat-core"
)

// Detector matches open and close forms of a fixed set of tag names,
// case-insensitively, anywhere in a fragment. A Detector is immutable and
// safe for concurrent use.
type Detector struct {
	names     []string
	openRe    *regexp.Regexp
	closeRe   *regexp.Regexp
	anyRe     *regexp.Regexp
	closeTags []string // lower-cased "</name>" forms
	maxOpen   int
}

// NewDetector builds a detector for the given tag names.
// With no names it falls back to the configured reasoning tags.
func NewDetector(names ...string) *Detector {
	if len(names) == 0 {
		names = chatcore.DefaultTables().Reasoning.Tags
	}

	lowered := make([]string, 0, len(names))
	for _, n := range names {
		lowered = append(lowered, strings.ToLower(n))
	}
	// longest first so "thinking" is preferred over "think" in alternations
	sort.SliceStable(lowered, func(i, j int) bool { return len(lowered[i]) > len(lowered[j]) })

	quoted := make([]string, len(lowered))
	closeTags := make([]string, len(lowered))
	maxOpen := 0
	for i, n := range lowered {
		quoted[i] = regexp.QuoteMeta(n)
		closeTags[i] = "</" + n + ">"
		if l := len(n) + 2; l > maxOpen {
			maxOpen = l
		}
	}
	alt := strings.Join(quoted, "|")

	return &Detector{
		names:     lowered,
		openRe:    regexp.MustCompile(`(?i)<(?:` + alt + `)>`),
		closeRe:   regexp.MustCompile(`(?i)</(?:` + alt + `)>`),
		anyRe:     regexp.MustCompile(`(?i)</?(?:` + alt + `)>`),
		closeTags: closeTags,
		maxOpen:   maxOpen,
	}
}

var defaultDetector = sync.OnceValue(func() *Detector { return NewDetector() })

// Default returns a detector over the configured reasoning tags.
func Default() *Detector {
	return defaultDetector()
}

// Names returns the recognized tag names, lower-cased.
func (d *Detector) Names() []string {
	return append([]string(nil), d.names...)
}

// DetectStart reports whether text contains an open tag.
func (d *Detector) DetectStart(text string) bool {
	return d.openRe.MatchString(text)
}

// DetectEnd reports whether text contains a close tag.
func (d *Detector) DetectEnd(text string) bool {
	return d.closeRe.MatchString(text)
}

// MaxOpenTagLen is the length of the longest open tag, brackets included.
func (d *Detector) MaxOpenTagLen() int {
	return d.maxOpen
}

// MaxCloseTagLen is the length of the longest close tag.
func (d *Detector) MaxCloseTagLen() int {
	return d.maxOpen + 1
}

// StripTags removes every open and close tag from text.
func (d *Detector) StripTags(text string) string {
	return d.anyRe.ReplaceAllString(text, "")
}

// SplitOpen splits text around its first open tag.
func (d *Detector) SplitOpen(text string) (before, after string, found bool) {
	return split(d.openRe, text)
}

// SplitClose splits text around its first close tag.
func (d *Detector) SplitClose(text string) (before, after string, found bool) {
	return split(d.closeRe, text)
}

// TextBeforeClose returns the text preceding the first close tag, or text
// unchanged when there is none.
func (d *Detector) TextBeforeClose(text string) string {
	before, _, _ := d.SplitClose(text)
	return before
}

// TextAfterClose returns the text following the first close tag, or "" when
// there is none.
func (d *Detector) TextAfterClose(text string) string {
	_, after, _ := d.SplitClose(text)
	return after
}

// PartialCloseSuffix returns the length of the longest suffix of text that is
// a proper prefix of some close tag. Such a suffix must be held back until the
// next buffer shows whether the tag completes.
func (d *Detector) PartialCloseSuffix(text string) int {
	best := 0
	for _, tag := range d.closeTags {
		limit := len(tag) - 1
		if limit > len(text) {
			limit = len(text)
		}
		for k := limit; k > best; k-- {
			if strings.EqualFold(text[len(text)-k:], tag[:k]) {
				best = k
				break
			}
		}
	}
	return best
}

func split(re *regexp.Regexp, text string) (string, string, bool) {
	loc := re.FindStringIndex(text)
	if loc == nil {
		return text, "", false
	}
	return text[:loc[0]], text[loc[1]:], true
}
