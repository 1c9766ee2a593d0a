package extract

import chatcore "github.com/haowjy/meridian-chat-core"

// Build writes each target's name into its segment metadata and returns the
// source tree in segment order.
func Build(segments []chatcore.Segment, targets []*Target) []chatcore.SourceEntry {
	sources := make([]chatcore.SourceEntry, 0, len(targets))
	for _, t := range targets {
		seg := &segments[t.Position]
		if seg.Metadata == nil {
			seg.Metadata = &chatcore.SegmentMetadata{Language: t.Language.Name}
		}
		seg.Metadata.FilePath = t.Name
		sources = append(sources, chatcore.SourceEntry{FilePath: t.Name, Content: seg.Content})
	}
	return sources
}

// Sources returns the entries of a source tree as a path to content map.
func Sources(entries []chatcore.SourceEntry) map[string]string {
	m := make(map[string]string, len(entries))
	for _, e := range entries {
		m[e.FilePath] = e.Content
	}
	return m
}
