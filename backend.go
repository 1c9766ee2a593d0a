package chatcore

import (
	"context"
	"strings"
)

// Backend defines the capability every generation backend implements.
// A backend turns a Job into a lazy, finite stream of text fragments.
// Implementations are selected once at startup through a Registry.
type Backend interface {
	// Name returns the backend identifier (e.g., "dummy", "openai_compatible").
	Name() BackendID

	// Generate starts a generation and returns its token stream.
	// The stream is not restartable; call Generate again for a new run.
	//
	// Usage:
	//   tokens, err := backend.Generate(ctx, job)
	//   if err != nil { return err }
	//   defer tokens.Close()
	//   for tokens.Next() {
	//     fmt.Print(tokens.Current())
	//   }
	//   if err := tokens.Err(); err != nil { handle error }
	//   full := tokens.Text()
	Generate(ctx context.Context, job *Job) (TokenStream, error)
}

// TokenStream is a pull iterator over the raw text fragments of one response.
// Concatenating every fragment yields Text().
type TokenStream interface {
	// Next advances to the next fragment. It returns false when the stream
	// is exhausted or failed; check Err to tell them apart.
	Next() bool

	// Current returns the fragment Next advanced to.
	Current() string

	// Err returns the error that stopped the stream, if any.
	Err() error

	// Text returns every fragment produced so far, concatenated.
	Text() string

	// Close releases the underlying connection. It is safe to call twice.
	Close() error
}

// PullFunc produces the next fragment. ok is false once the source is exhausted.
type PullFunc func() (fragment string, ok bool, err error)

// funcStream adapts a PullFunc into a TokenStream that accumulates its text.
type funcStream struct {
	pull    PullFunc
	closeFn func() error

	current string
	text    strings.Builder
	err     error
	done    bool
	closed  bool
}

// NewTokenStream wraps pull into a TokenStream. closeFn may be nil.
func NewTokenStream(pull PullFunc, closeFn func() error) TokenStream {
	return &funcStream{pull: pull, closeFn: closeFn}
}

// NewSliceStream returns a TokenStream over a fixed list of fragments.
func NewSliceStream(fragments ...string) TokenStream {
	i := 0
	return NewTokenStream(func() (string, bool, error) {
		if i >= len(fragments) {
			return "", false, nil
		}
		i++
		return fragments[i-1], true, nil
	}, nil)
}

func (s *funcStream) Next() bool {
	if s.done {
		return false
	}
	if s.closed {
		s.err = ErrStreamClosed
		s.done = true
		return false
	}

	fragment, ok, err := s.pull()
	if err != nil {
		s.err = err
		s.done = true
		return false
	}
	if !ok {
		s.done = true
		return false
	}

	s.current = fragment
	s.text.WriteString(fragment)
	return true
}

func (s *funcStream) Current() string {
	return s.current
}

func (s *funcStream) Err() error {
	return s.err
}

func (s *funcStream) Text() string {
	return s.text.String()
}

func (s *funcStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.closeFn != nil {
		return s.closeFn()
	}
	return nil
}
