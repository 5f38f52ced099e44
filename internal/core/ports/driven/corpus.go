package driven

import (
	"context"

	"github.com/pagelens/pagelens/internal/core/domain"
)

// CorpusContext carries the parameters a corpus adapter needs to list
// documents for one invocation. Adapters read only the fields relevant
// to them.
type CorpusContext struct {
	// MaxDocs caps the number of documents returned. Zero means no cap.
	MaxDocs int

	// MaxTotalChars caps the combined character count across all
	// returned documents. Adapters returning partial results set
	// Extra["truncated"] on the affected document. Zero means no cap.
	MaxTotalChars int

	// PageURL identifies the active page for the page adapter and
	// participates in its index key.
	PageURL string

	// PageHTML is the rendered HTML of the active page.
	PageHTML string

	// CaptureDepth controls how deep the page adapter descends into
	// sub-documents. Zero means top document only.
	CaptureDepth int

	// NoteIDs restricts the notes adapter to specific notes.
	// Empty means all notes.
	NoteIDs []string

	// HistoryDays is the lookback window for the history adapter.
	HistoryDays int

	// MaxResults caps history/bookmark/download rows.
	MaxResults int

	// Snippets are the user-curated items for the pill-context adapter.
	Snippets []Snippet
}

// SnippetKind distinguishes pill-context snippet shapes.
type SnippetKind string

// Snippet kinds.
const (
	SnippetText  SnippetKind = "text"
	SnippetList  SnippetKind = "list"
	SnippetNotes SnippetKind = "notes"
)

// Snippet is one user-curated context item.
type Snippet struct {
	Kind  SnippetKind
	Title string

	// Text holds the body for text snippets.
	Text string

	// Items holds title/url pairs for list snippets and titled bodies
	// for notes snippets.
	Items []SnippetItem
}

// SnippetItem is one entry of a list or notes snippet.
type SnippetItem struct {
	Title string
	URL   string
	Body  string
}

// ChunkOptions parameterise document chunking. Zero values mean the
// adapter's defaults.
type ChunkOptions struct {
	MaxChunkChars int
	OverlapChars  int
	MinChunkChars int
}

// CorpusAdapter presents one corpus as a uniform document source.
// Every adapter exposes the same five operations; documents it produces
// are immutable for the rest of the invocation.
type CorpusAdapter interface {
	// Kind returns the corpus kind this adapter serves.
	Kind() domain.SourceKind

	// IndexKey returns a deterministic, case-preserving cache key for
	// the corpus identified by ctx.
	IndexKey(cctx CorpusContext) string

	// ListDocuments captures and returns the corpus documents in a
	// stable order, honouring the MaxDocs and MaxTotalChars limits.
	ListDocuments(ctx context.Context, cctx CorpusContext) ([]domain.Document, error)

	// ContentHash computes the document's content fingerprint.
	ContentHash(doc *domain.Document) uint64

	// FullText returns the complete text of a document. For in-memory
	// adapters this returns doc.Text unchanged.
	FullText(ctx context.Context, doc *domain.Document) (string, error)

	// ChunkDocument splits the document with adapter-specific defaults
	// overridden by opts. Returned chunks have DocID set.
	ChunkDocument(doc *domain.Document, opts ChunkOptions) ([]domain.Chunk, error)
}

// PermissionChecker gates access to privileged corpora (history,
// bookmarks, downloads). Implementations ask the surrounding
// application or the user.
type PermissionChecker interface {
	// Granted reports whether access to the corpus kind is allowed.
	Granted(ctx context.Context, kind domain.SourceKind) bool
}

// PermissionFunc adapts a function to the PermissionChecker interface.
type PermissionFunc func(ctx context.Context, kind domain.SourceKind) bool

// Granted implements PermissionChecker.
func (f PermissionFunc) Granted(ctx context.Context, kind domain.SourceKind) bool {
	return f(ctx, kind)
}
