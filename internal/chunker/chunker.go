// Package chunker splits long strings into semantically coherent chunks
// at paragraph, heading, sentence and word boundaries, with optional
// overlap and a minimum-size merge rule.
package chunker

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/pagelens/pagelens/internal/core/domain"
)

// Default chunking parameters.
const (
	DefaultMaxChunkChars = 4000
	DefaultOverlapChars  = 0
	DefaultMinChunkChars = 200
)

// markdownHeading matches one to six leading hashes followed by text.
var markdownHeading = regexp.MustCompile(`^#{1,6}\s+\S`)

// maxHeadingLineLen bounds how long a capitalised line may be to still
// count as a heading boundary.
const maxHeadingLineLen = 80

// Chunker splits text into chunks.
type Chunker struct {
	maxChunkChars int
	overlapChars  int
	minChunkChars int
	headings      map[string]struct{}
}

// Option configures the chunker.
type Option func(*Chunker)

// WithMaxChunkChars sets the maximum chunk size in characters.
func WithMaxChunkChars(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.maxChunkChars = n
		}
	}
}

// WithOverlapChars sets the overlap re-seeded into the next chunk after
// a forced flush.
func WithOverlapChars(n int) Option {
	return func(c *Chunker) {
		if n >= 0 {
			c.overlapChars = n
		}
	}
}

// WithMinChunkChars sets the minimum chunk size. Chunks flushed below
// this size are merged into the previous chunk.
func WithMinChunkChars(n int) Option {
	return func(c *Chunker) {
		if n >= 0 {
			c.minChunkChars = n
		}
	}
}

// WithHeadings supplies known document headings. A short capitalised
// line matching one of them is treated as a heading boundary even
// without markdown markers.
func WithHeadings(headings []string) Option {
	return func(c *Chunker) {
		for _, h := range headings {
			h = strings.TrimSpace(h)
			if h != "" {
				c.headings[h] = struct{}{}
			}
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		maxChunkChars: DefaultMaxChunkChars,
		overlapChars:  DefaultOverlapChars,
		minChunkChars: DefaultMinChunkChars,
		headings:      make(map[string]struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	// Overlap must leave room for forward progress.
	if c.overlapChars >= c.maxChunkChars {
		c.overlapChars = c.maxChunkChars / 4
	}
	if c.minChunkChars > c.maxChunkChars {
		c.minChunkChars = c.maxChunkChars
	}

	return c
}

// Split chunks text into an ordered sequence of chunks. IDs are
// "chunk-N" with N starting at 0; Index is the 1-based position.
// The caller fills in DocID and any id namespacing.
func (c *Chunker) Split(text string) []domain.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var (
		chunks  []domain.Chunk
		buf     strings.Builder
		heading string
	)

	// emit flushes raw content as a chunk, merging undersized chunks
	// into the previous one.
	emit := func(raw, h string) {
		trimmed := strings.TrimRight(raw, " \t\r\n")
		if trimmed == "" {
			return
		}
		if len(trimmed) < c.minChunkChars && len(chunks) > 0 {
			prev := &chunks[len(chunks)-1]
			prev.Content += raw
			prev.Content = strings.TrimRight(prev.Content, " \t\r\n")
			prev.Size = len(prev.Content)
			return
		}
		chunks = append(chunks, domain.Chunk{
			ID:      fmt.Sprintf("chunk-%d", len(chunks)),
			Heading: h,
			Content: trimmed,
			Size:    len(trimmed),
			Index:   len(chunks) + 1,
		})
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		trimmed := strings.TrimSpace(line)

		if c.isHeadingBoundary(trimmed) {
			if buf.Len() > c.minChunkChars {
				emit(buf.String(), heading)
				buf.Reset()
			}
			heading = trimmed
		}

		buf.WriteString(line)

		for buf.Len() >= c.maxChunkChars {
			content := buf.String()
			cut := c.chooseCut(content)
			emit(content[:cut], heading)

			rest := content[cut:]
			buf.Reset()
			if c.overlapChars > 0 {
				buf.WriteString(overlapTail(content[:cut], c.overlapChars))
			}
			buf.WriteString(rest)
		}
	}

	emit(buf.String(), heading)

	return chunks
}

// isHeadingBoundary reports whether a trimmed line starts a new section:
// either a markdown-style heading, or a short capitalised line that
// also appears in the supplied headings list.
func (c *Chunker) isHeadingBoundary(line string) bool {
	if line == "" {
		return false
	}
	if markdownHeading.MatchString(line) {
		return true
	}
	if len(line) > maxHeadingLineLen {
		return false
	}
	runes := []rune(line)
	if !unicode.IsUpper(runes[0]) {
		return false
	}
	_, known := c.headings[line]
	return known
}

// chooseCut picks the flush position when the buffer reaches the
// maximum chunk size: the last paragraph break, then the last sentence
// terminator, then the last space, each above the minimum size; if none
// is available, it cuts at maxChunkChars.
func (c *Chunker) chooseCut(content string) int {
	window := content
	if len(window) > c.maxChunkChars {
		window = window[:c.maxChunkChars]
	}

	// Never cut below the overlap, or the flush loop stops progressing.
	floor := c.minChunkChars
	if floor <= c.overlapChars {
		floor = c.overlapChars + 1
	}

	if i := strings.LastIndex(window, "\n\n"); i >= floor {
		return i + 2
	}

	sentence := -1
	for _, term := range []string{". ", "! ", "? "} {
		if i := strings.LastIndex(window, term); i >= 0 && i+len(term) > sentence {
			sentence = i + len(term)
		}
	}
	if sentence >= floor {
		return sentence
	}

	if i := strings.LastIndexByte(window, ' '); i >= floor {
		return i + 1
	}

	return len(window)
}

// overlapTail returns the last n characters of content, extended
// forward to a whitespace boundary when one exists inside the tail.
func overlapTail(content string, n int) string {
	if n <= 0 || len(content) == 0 {
		return ""
	}
	if n >= len(content) {
		return content
	}
	tail := content[len(content)-n:]
	if i := strings.IndexAny(tail, " \t\n"); i >= 0 && i+1 < len(tail) {
		return tail[i+1:]
	}
	return tail
}
