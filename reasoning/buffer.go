package reasoning

import (
	"iter"
	"strings"
)

// Source is the pull side of a fragment stream. chatcore.TokenStream satisfies it.
type Source interface {
	Next() bool
	Current() string
}

// Chunk is one regrouped buffer together with the fragments it was built from.
type Chunk struct {
	Text      string
	Fragments []string
}

// ChunkBuffer regroups fragments from a Source into buffers of at least a
// requested length. The minimum may change between reads, which lets a caller
// widen its lookahead once it starts searching for a close tag.
type ChunkBuffer struct {
	src  Source
	done bool
}

// NewChunkBuffer wraps src.
func NewChunkBuffer(src Source) *ChunkBuffer {
	return &ChunkBuffer{src: src}
}

// Read concatenates fragments until the buffer holds at least minLen bytes,
// then returns it. At end of stream the remaining short buffer is returned;
// once nothing is left ok is false. Empty fragments are dropped.
func (b *ChunkBuffer) Read(minLen int) (chunk Chunk, ok bool) {
	if b.done {
		return Chunk{}, false
	}

	var sb strings.Builder
	for sb.Len() < minLen || sb.Len() == 0 {
		if !b.src.Next() {
			b.done = true
			break
		}
		fragment := b.src.Current()
		if fragment == "" {
			continue
		}
		sb.WriteString(fragment)
		chunk.Fragments = append(chunk.Fragments, fragment)
	}

	if sb.Len() == 0 {
		return Chunk{}, false
	}
	chunk.Text = sb.String()
	return chunk, true
}

// Exhausted reports whether the source has ended.
func (b *ChunkBuffer) Exhausted() bool {
	return b.done
}

// Chunks regroups seq into strings of at least minLen bytes; the final short
// remainder is yielded last.
func Chunks(seq iter.Seq[string], minLen int) iter.Seq[string] {
	return func(yield func(string) bool) {
		var sb strings.Builder
		for s := range seq {
			sb.WriteString(s)
			if sb.Len() >= minLen && sb.Len() > 0 {
				if !yield(sb.String()) {
					return
				}
				sb.Reset()
			}
		}
		if sb.Len() > 0 {
			yield(sb.String())
		}
	}
}
