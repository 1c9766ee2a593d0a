package chatcore

import "strings"

// SegmentKind tells text runs apart from code runs.
type SegmentKind string

const (
	SegmentText SegmentKind = "text"
	SegmentCode SegmentKind = "code"
)

// SegmentMetadata is attached to code segments.
// Language is the canonical language name; FilePath is set once names are resolved.
type SegmentMetadata struct {
	Language string `json:"language"`
	FilePath string `json:"file_path,omitempty"`
}

// Segment is one run of a response, in response order.
//
// Content is what downstream code consumes: the text itself for text
// segments, the code body (fence and language tag excluded) for code
// segments. Raw is the exact span of the response the segment was cut from,
// so joining Raw across all segments reproduces the response.
type Segment struct {
	Kind     SegmentKind      `json:"type"`
	Content  string           `json:"content"`
	Metadata *SegmentMetadata `json:"metadata,omitempty"`
	Raw      string           `json:"-"`
}

// IsCode reports whether the segment is a code run.
func (s Segment) IsCode() bool {
	return s.Kind == SegmentCode
}

// Language returns the segment language, or "" for text segments.
func (s Segment) Language() string {
	if s.Metadata == nil {
		return ""
	}
	return s.Metadata.Language
}

// FilePath returns the resolved file path, or "" if none is set.
func (s Segment) FilePath() string {
	if s.Metadata == nil {
		return ""
	}
	return s.Metadata.FilePath
}

// Equal compares kind, content and metadata. Raw spans are ignored.
func (s Segment) Equal(other Segment) bool {
	if s.Kind != other.Kind || s.Content != other.Content {
		return false
	}
	if s.Metadata == nil || other.Metadata == nil {
		return s.Metadata == nil && other.Metadata == nil
	}
	return *s.Metadata == *other.Metadata
}

// NamedSegment annotates a code segment with its candidate file name while
// names are being resolved.
type NamedSegment struct {
	Index         int     `json:"index"`
	Segment       Segment `json:"segment"`
	CandidateName string  `json:"candidate_name,omitempty"`
}

// Named reports whether a candidate name has been found.
func (n NamedSegment) Named() bool {
	return n.CandidateName != ""
}

// SourceEntry is one file of the source tree.
type SourceEntry struct {
	FilePath string `json:"file_path"`
	Content  string `json:"content"`
}

// Reassemble joins the raw spans of segments back into the response text.
func Reassemble(segments []Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		b.WriteString(seg.Raw)
	}
	return b.String()
}

// SegmentsEqual compares two segment lists with Segment.Equal.
func SegmentsEqual(a, b []Segment) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
