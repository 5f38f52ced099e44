// Package pill presents user-curated snippets attached to the
// conversation ("pills") as a corpus. Snippets come in three shapes:
// plain text, lists of title/url results, and note collections.
package pill

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pagelens/pagelens/internal/chunker"
	"github.com/pagelens/pagelens/internal/core/domain"
	"github.com/pagelens/pagelens/internal/core/ports/driven"
)

// Ensure Adapter implements the interface.
var _ driven.CorpusAdapter = (*Adapter)(nil)

// Default chunking parameters for pill snippets.
const (
	defaultMaxChunkChars = 2000
	defaultMinChunkChars = 100
)

// Adapter is the pill-context corpus adapter. It is purely in-memory:
// all content arrives through the corpus context.
type Adapter struct {
	now func() time.Time
}

// New creates a pill-context adapter.
func New() *Adapter {
	return &Adapter{now: time.Now}
}

// Kind returns the corpus kind.
func (a *Adapter) Kind() domain.SourceKind {
	return domain.SourceContext
}

// IndexKey derives a deterministic key from the snippet set.
func (a *Adapter) IndexKey(cctx driven.CorpusContext) string {
	var sb strings.Builder
	sb.WriteString("ctx:")
	for i, sn := range cctx.Snippets {
		if i > 0 {
			sb.WriteString("|")
		}
		fmt.Fprintf(&sb, "%s:%s:%d", sn.Kind, sn.Title, snippetLen(sn))
	}
	return sb.String()
}

func snippetLen(sn driven.Snippet) int {
	n := len(sn.Text)
	for _, item := range sn.Items {
		n += len(item.Title) + len(item.URL) + len(item.Body)
	}
	return n
}

// ListDocuments flattens each snippet to one document.
func (a *Adapter) ListDocuments(_ context.Context, cctx driven.CorpusContext) ([]domain.Document, error) {
	var docs []domain.Document
	for i, sn := range cctx.Snippets {
		if cctx.MaxDocs > 0 && len(docs) >= cctx.MaxDocs {
			break
		}

		text, headings, truncated := flatten(sn, cctx.MaxTotalChars)
		title := sn.Title
		if title == "" {
			title = fmt.Sprintf("Snippet %d", i+1)
		}

		doc := domain.Document{
			ID:        fmt.Sprintf("pill-%d", i+1),
			Title:     title,
			CreatedAt: a.now(),
			Headings:  headings,
			Text:      text,
			SizeBytes: len(text),
			Source:    domain.SourceContext,
			Extra:     map[string]any{"kind": string(sn.Kind)},
		}
		if truncated {
			doc.Extra["truncated"] = true
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// flatten renders a snippet to text. List items become "title — url"
// lines; notes are joined with heading dividers.
func flatten(sn driven.Snippet, maxChars int) (text string, headings []string, truncated bool) {
	var sb strings.Builder

	switch sn.Kind {
	case driven.SnippetList:
		for _, item := range sn.Items {
			line := item.Title + " — " + item.URL
			if maxChars > 0 && sb.Len()+len(line)+1 > maxChars {
				truncated = true
				break
			}
			sb.WriteString(line)
			sb.WriteString("\n")
		}

	case driven.SnippetNotes:
		for _, item := range sn.Items {
			divider := "## " + item.Title + "\n"
			if maxChars > 0 && sb.Len()+len(divider)+len(item.Body)+1 > maxChars {
				truncated = true
				break
			}
			sb.WriteString(divider)
			sb.WriteString(item.Body)
			sb.WriteString("\n")
			headings = append(headings, item.Title)
		}

	default: // SnippetText
		t := sn.Text
		if maxChars > 0 && len(t) > maxChars {
			t = t[:maxChars]
			truncated = true
		}
		sb.WriteString(t)
	}

	return strings.TrimRight(sb.String(), "\n"), headings, truncated
}

// ContentHash computes the document fingerprint.
func (a *Adapter) ContentHash(doc *domain.Document) uint64 {
	return domain.Fingerprint(doc.Title, doc.Text)
}

// FullText returns the flattened snippet; the adapter is in-memory.
func (a *Adapter) FullText(_ context.Context, doc *domain.Document) (string, error) {
	return doc.Text, nil
}

// ChunkDocument splits the snippet text with namespaced chunk ids.
func (a *Adapter) ChunkDocument(doc *domain.Document, opts driven.ChunkOptions) ([]domain.Chunk, error) {
	c := chunker.New(
		chunker.WithMaxChunkChars(pick(opts.MaxChunkChars, defaultMaxChunkChars)),
		chunker.WithOverlapChars(opts.OverlapChars),
		chunker.WithMinChunkChars(pick(opts.MinChunkChars, defaultMinChunkChars)),
		chunker.WithHeadings(doc.Headings),
	)

	chunks := c.Split(doc.Text)
	for i := range chunks {
		chunks[i].DocID = doc.ID
		chunks[i].ID = doc.ID + "::" + chunks[i].ID
	}
	return chunks, nil
}

func pick(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
