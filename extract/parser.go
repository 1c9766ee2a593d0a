package extract

import (
	"regexp"
	"strings"

	chatcore "github.com/haowjy/meridian-chat-core"
)

// fence matches one fenced block. Group 1 is the optional tag line, group 2
// the body. Whitespace between the tag line and the body is not content.
var fence = regexp.MustCompile("(?s)```" + `([A-Za-z][\w+#.-]*[ \t]*\r?\n)?\s*(.*?)` + "```")

// Parser splits a complete response into text and code segments.
type Parser struct {
	langs      *Languages
	classifier *Classifier
}

// NewParser returns a parser over langs.
func NewParser(langs *Languages, classifier *Classifier) *Parser {
	return &Parser{langs: langs, classifier: classifier}
}

// Parse segments text. Blank text between blocks is not a segment of its
// own; its raw span is kept on a neighbouring segment so that joining the raw
// spans of the result reproduces text. Text without any block is returned as
// a single text segment.
func (p *Parser) Parse(text string) []chatcore.Segment {
	if text == "" {
		return nil
	}

	var segments []chatcore.Segment
	rest := text
	for {
		loc := fence.FindStringSubmatchIndex(rest)
		if loc == nil {
			break
		}

		block := p.codeSegments(rest, loc)
		if before := rest[:loc[0]]; strings.TrimSpace(before) != "" {
			segments = append(segments, textSegment(before))
		} else {
			block[0].Raw = before + block[0].Raw
		}
		segments = append(segments, block...)

		rest = rest[loc[1]:]
	}

	switch {
	case strings.TrimSpace(rest) != "" || len(segments) == 0:
		segments = append(segments, textSegment(rest))
	default:
		segments[len(segments)-1].Raw += rest
	}
	return segments
}

func textSegment(text string) chatcore.Segment {
	return chatcore.Segment{Kind: chatcore.SegmentText, Content: text, Raw: text}
}

// codeSegments builds the segments of the block at loc. A block holding
// several file markers is split into one segment per file.
func (p *Parser) codeSegments(s string, loc []int) []chatcore.Segment {
	body := s[loc[4]:loc[5]]

	var lang *Language
	if loc[2] >= 0 {
		lang = p.langs.Resolve(s[loc[2]:loc[3]])
	} else {
		lang = p.classifier.Classify(body)
	}

	parts := splitMarkers(lang, body)
	segments := make([]chatcore.Segment, len(parts))
	for i, part := range parts {
		segments[i] = chatcore.Segment{
			Kind:     chatcore.SegmentCode,
			Content:  part,
			Metadata: &chatcore.SegmentMetadata{Language: lang.Name},
			Raw:      part,
		}
	}

	// the opening fence belongs to the first file, the closing one to the last
	segments[0].Raw = s[loc[0]:loc[4]] + segments[0].Raw
	segments[len(segments)-1].Raw += s[loc[5]:loc[1]]
	return segments
}

// splitMarkers cuts body at file marker lines when it holds at least two and
// starts with one. Every part keeps its marker line.
func splitMarkers(lang *Language, body string) []string {
	lines := strings.SplitAfter(body, "\n")

	var starts []int
	firstMarker := false
	seenContent := false
	for i, line := range lines {
		_, isMarker := lang.MarkerPath(strings.TrimRight(line, "\r\n"))
		if !seenContent && strings.TrimSpace(line) != "" {
			seenContent = true
			firstMarker = isMarker
		}
		if isMarker {
			starts = append(starts, i)
		}
	}
	if !firstMarker || len(starts) < 2 {
		return []string{body}
	}

	parts := make([]string, 0, len(starts))
	for i, start := range starts {
		end := len(lines)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		if i == 0 {
			start = 0
		}
		parts = append(parts, strings.Join(lines[start:end], ""))
	}
	return parts
}
