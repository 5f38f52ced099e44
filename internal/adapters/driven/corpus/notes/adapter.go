// Package notes presents the persisted notes store as a corpus. Notes
// live in a SQLite database that is read-only to the core: the pipeline
// never writes corpus state.
package notes

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/pagelens/pagelens/internal/chunker"
	"github.com/pagelens/pagelens/internal/core/domain"
	"github.com/pagelens/pagelens/internal/core/ports/driven"
)

// Ensure Adapter implements the interface.
var _ driven.CorpusAdapter = (*Adapter)(nil)

// Default chunking parameters for notes.
const (
	defaultMaxChunkChars = 2000
	defaultMinChunkChars = 100
)

// Adapter is the notes corpus adapter.
type Adapter struct {
	db *sql.DB
}

// New opens the notes database read-only.
func New(dbPath string) (*Adapter, error) {
	db, err := sql.Open("sqlite", dbPath+"?mode=ro&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: open notes db: %v", domain.ErrAdapter, err)
	}
	return &Adapter{db: db}, nil
}

// NewWithDB wraps an existing database handle. Used by tests.
func NewWithDB(db *sql.DB) *Adapter {
	return &Adapter{db: db}
}

// Close releases the database handle.
func (a *Adapter) Close() error {
	return a.db.Close()
}

// Kind returns the corpus kind.
func (a *Adapter) Kind() domain.SourceKind {
	return domain.SourceNote
}

// IndexKey returns a deterministic key for the selected notes set.
func (a *Adapter) IndexKey(cctx driven.CorpusContext) string {
	if len(cctx.NoteIDs) == 0 {
		return "notes:all"
	}
	ids := append([]string(nil), cctx.NoteIDs...)
	sort.Strings(ids)
	return "notes:" + strings.Join(ids, ",")
}

// ListDocuments reads the selected notes in updated-at order, newest
// first. Document IDs equal note IDs.
func (a *Adapter) ListDocuments(ctx context.Context, cctx driven.CorpusContext) ([]domain.Document, error) {
	query := `SELECT id, name, content, created_at, updated_at FROM notes`
	args := make([]any, 0, len(cctx.NoteIDs))
	if len(cctx.NoteIDs) > 0 {
		query += ` WHERE id IN (?` + strings.Repeat(",?", len(cctx.NoteIDs)-1) + `)`
		for _, id := range cctx.NoteIDs {
			args = append(args, id)
		}
	}
	query += ` ORDER BY updated_at DESC, id`

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query notes: %v", domain.ErrAdapter, err)
	}
	defer rows.Close()

	var (
		docs       []domain.Document
		totalChars int
	)
	for rows.Next() {
		if cctx.MaxDocs > 0 && len(docs) >= cctx.MaxDocs {
			markTruncated(docs)
			break
		}

		var (
			id, name, content string
			created, updated  int64
		)
		if err := rows.Scan(&id, &name, &content, &created, &updated); err != nil {
			return nil, fmt.Errorf("%w: scan note: %v", domain.ErrAdapter, err)
		}

		truncated := false
		if cctx.MaxTotalChars > 0 && totalChars+len(content) > cctx.MaxTotalChars {
			keep := cctx.MaxTotalChars - totalChars
			if keep <= 0 {
				markTruncated(docs)
				break
			}
			content = content[:keep]
			truncated = true
		}
		totalChars += len(content)

		doc := domain.Document{
			ID:        id,
			Title:     name,
			CreatedAt: time.Unix(created, 0),
			UpdatedAt: time.Unix(updated, 0),
			Headings:  markdownHeadings(content),
			Text:      content,
			SizeBytes: len(content),
			Source:    domain.SourceNote,
		}
		if truncated {
			doc.Extra = map[string]any{"truncated": true}
		}
		docs = append(docs, doc)

		if truncated {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read notes: %v", domain.ErrAdapter, err)
	}

	return docs, nil
}

// markTruncated flags the last returned document when the listing was
// cut short by corpus limits.
func markTruncated(docs []domain.Document) {
	if len(docs) == 0 {
		return
	}
	last := &docs[len(docs)-1]
	if last.Extra == nil {
		last.Extra = map[string]any{}
	}
	last.Extra["truncated"] = true
}

// ContentHash computes the document fingerprint.
func (a *Adapter) ContentHash(doc *domain.Document) uint64 {
	return domain.Fingerprint(doc.Title, doc.Text)
}

// FullText re-reads the note body from storage.
func (a *Adapter) FullText(ctx context.Context, doc *domain.Document) (string, error) {
	var content string
	err := a.db.QueryRowContext(ctx, `SELECT content FROM notes WHERE id = ?`, doc.ID).Scan(&content)
	if err == sql.ErrNoRows {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: read note %s: %v", domain.ErrAdapter, doc.ID, err)
	}
	return content, nil
}

// ChunkDocument splits the note at markdown heading boundaries. Chunk
// ids are namespaced "docID::chunkID" so they stay unique across notes.
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
