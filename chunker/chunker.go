package chunker

import (
	"errors"
	"strings"
	"unicode"
)

const (
	// DefaultMaxSize is the default upper bound of a chunk, in characters.
	DefaultMaxSize = 1000

	// DefaultOverlap is the default number of characters shared by adjacent chunks.
	DefaultOverlap = 200
)

var (
	// ErrInvalidMaxSize is returned when the maximum chunk size is not positive.
	ErrInvalidMaxSize = errors.New("chunk size must be positive")

	// ErrInvalidOverlap is returned when the overlap is negative.
	ErrInvalidOverlap = errors.New("chunk overlap cannot be negative")
)

// Segment is a chunk together with its position in the source text.
// Start and End are character (rune) offsets, End exclusive.
type Segment struct {
	Start int
	End   int
	Text  string
}

// Chunker splits text into bounded, overlapping segments.
// A Chunker holds no mutable state and is safe for concurrent use.
type Chunker struct {
	maxSize int
	overlap int
}

// Option configures a Chunker.
type Option func(*Chunker) error

// WithMaxSize sets the maximum chunk size in characters.
func WithMaxSize(size int) Option {
	return func(c *Chunker) error {
		if size < 1 {
			return ErrInvalidMaxSize
		}
		c.maxSize = size
		return nil
	}
}

// WithOverlap sets the number of characters adjacent chunks share.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) error {
		if overlap < 0 {
			return ErrInvalidOverlap
		}
		c.overlap = overlap
		return nil
	}
}

// New creates a Chunker. An overlap that is not smaller than the maximum
// size is reduced to a quarter of the maximum size.
func New(opts ...Option) (*Chunker, error) {
	c := &Chunker{
		maxSize: DefaultMaxSize,
		overlap: DefaultOverlap,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.overlap >= c.maxSize {
		c.overlap = c.maxSize / 4
	}
	return c, nil
}

// MaxSize returns the configured maximum chunk size.
func (c *Chunker) MaxSize() int {
	return c.maxSize
}

// Overlap returns the configured overlap.
func (c *Chunker) Overlap() int {
	return c.overlap
}

// Chunk splits text into an ordered sequence of chunk strings.
// Empty or whitespace-only input yields no chunks.
func (c *Chunker) Chunk(text string) []string {
	segments := c.Split(text)
	if len(segments) == 0 {
		return nil
	}
	chunks := make([]string, len(segments))
	for i, seg := range segments {
		chunks[i] = seg.Text
	}
	return chunks
}

// Split splits text into segments. Each segment's Text is an exact substring
// of text and segments are ordered by Start. Consecutive segments overlap or
// touch; the only text not covered by any segment is whitespace.
func (c *Chunker) Split(text string) []Segment {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	n := len(runes)

	var segments []Segment
	start := 0
	for start < n {
		end := start + c.maxSize
		if end >= n {
			end = n
		} else {
			end = c.boundary(runes, start, end)
		}

		segText := string(runes[start:end])
		if strings.TrimSpace(segText) != "" {
			segments = append(segments, Segment{Start: start, End: end, Text: segText})
		}
		if end == n {
			break
		}

		next := end - c.overlap
		if next <= start {
			next = start + (end-start+1)/2
		}
		start = next
	}
	return segments
}

// boundary picks the end of the window that starts at start and may extend to
// limit. Paragraph breaks are preferred over line breaks, line breaks over
// sentence ends, and sentence ends over any whitespace. Boundaries in the
// first half of the window are ignored so chunks do not degenerate; when none
// is found the window is cut at limit.
func (c *Chunker) boundary(runes []rune, start, limit int) int {
	floor := start + c.maxSize/2
	if floor <= start {
		floor = start + 1
	}

	matchers := []func(i int) bool{
		// paragraph: "\n\n" ends right before i
		func(i int) bool { return i-2 >= start && runes[i-1] == '\n' && runes[i-2] == '\n' },
		func(i int) bool { return runes[i-1] == '\n' },
		// sentence: terminal punctuation followed by whitespace at i
		func(i int) bool { return isSentenceEnd(runes[i-1]) && unicode.IsSpace(runes[i]) },
		func(i int) bool { return unicode.IsSpace(runes[i-1]) },
	}

	for _, match := range matchers {
		for i := limit; i >= floor; i-- {
			if match(i) {
				return i
			}
		}
	}
	return limit
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？':
		return true
	}
	return false
}
