package domain

import "time"

// SourceKind identifies the corpus a document came from.
type SourceKind string

// Known corpus kinds.
const (
	SourcePage     SourceKind = "page"
	SourceNote     SourceKind = "note"
	SourceHistory  SourceKind = "history"
	SourceBookmark SourceKind = "bookmark"
	SourceDownload SourceKind = "download"
	SourceContext  SourceKind = "ctx"
)

// Valid reports whether the kind is one of the known corpus kinds.
func (k SourceKind) Valid() bool {
	switch k {
	case SourcePage, SourceNote, SourceHistory, SourceBookmark, SourceDownload, SourceContext:
		return true
	}
	return false
}

// Document is a captured, normalised text document.
// Documents are created by a corpus adapter and immutable thereafter.
// IDs are unique within a single pipeline invocation.
type Document struct {
	// ID is the unique identifier within one invocation.
	ID string

	// Title is the human-readable title.
	Title string

	// URL is the original location, when the source has one.
	URL string

	// CreatedAt is when the source document was created.
	CreatedAt time.Time

	// UpdatedAt is when the source document was last modified.
	// Zero when the source does not track modification time.
	UpdatedAt time.Time

	// Language is a BCP 47 tag when known (e.g. "en", "de").
	Language string

	// Headings lists detected headings in source order.
	Headings []string

	// Text is the full normalised text content.
	Text string

	// SizeBytes is the byte length of Text.
	SizeBytes int

	// Source identifies the corpus adapter that produced this document.
	Source SourceKind

	// Extra carries adapter-specific metadata such as "truncated" or
	// "skippedIframes".
	Extra map[string]any
}

// Truncated reports whether the adapter cut the document short to honour
// corpus limits.
func (d *Document) Truncated() bool {
	if d.Extra == nil {
		return false
	}
	t, ok := d.Extra["truncated"].(bool)
	return ok && t
}

// Chunk is a contiguous substring of a document sized for model consumption.
// Chunk IDs are unique within a document; adapters that emit composite
// "docID::chunkID" ids make them globally unique within an index.
type Chunk struct {
	// ID is the chunk identifier.
	ID string

	// DocID references the owning Document.
	DocID string

	// Heading is the heading the chunk falls under, empty if none.
	Heading string

	// Content is the chunk text.
	Content string

	// Size is the character length of Content.
	Size int

	// Index is the 1-based position within the document.
	Index int
}
