package notes

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagelens/pagelens/internal/core/domain"
	"github.com/pagelens/pagelens/internal/core/ports/driven"
)

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE notes (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`)
	require.NoError(t, err)

	insert := `INSERT INTO notes (id, name, content, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`
	_, err = db.Exec(insert, "note-1", "Shopping", "# Groceries\nmilk and eggs\n\n# Hardware\nnails", 100, 300)
	require.NoError(t, err)
	_, err = db.Exec(insert, "note-2", "Journal", "Today was a fine day. "+strings.Repeat("More detail. ", 50), 200, 200)
	require.NoError(t, err)

	return NewWithDB(db)
}

func TestAdapter_Kind(t *testing.T) {
	a := newTestAdapter(t)
	assert.Equal(t, domain.SourceNote, a.Kind())
}

func TestAdapter_IndexKey(t *testing.T) {
	a := newTestAdapter(t)

	assert.Equal(t, "notes:all", a.IndexKey(driven.CorpusContext{}))
	// Order-insensitive and deterministic.
	k1 := a.IndexKey(driven.CorpusContext{NoteIDs: []string{"b", "a"}})
	k2 := a.IndexKey(driven.CorpusContext{NoteIDs: []string{"a", "b"}})
	assert.Equal(t, k1, k2)
	assert.Equal(t, "notes:a,b", k1)
}

func TestAdapter_ListDocuments(t *testing.T) {
	a := newTestAdapter(t)

	docs, err := a.ListDocuments(context.Background(), driven.CorpusContext{})
	require.NoError(t, err)
	require.Len(t, docs, 2)

	// Newest first by updated_at.
	assert.Equal(t, "note-1", docs[0].ID)
	assert.Equal(t, "Shopping", docs[0].Title)
	assert.Equal(t, []string{"Groceries", "Hardware"}, docs[0].Headings)
	assert.Equal(t, domain.SourceNote, docs[0].Source)
}

func TestAdapter_ListDocuments_Filter(t *testing.T) {
	a := newTestAdapter(t)

	docs, err := a.ListDocuments(context.Background(), driven.CorpusContext{NoteIDs: []string{"note-2"}})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "note-2", docs[0].ID)
}

func TestAdapter_ListDocuments_MaxDocs(t *testing.T) {
	a := newTestAdapter(t)

	docs, err := a.ListDocuments(context.Background(), driven.CorpusContext{MaxDocs: 1})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.True(t, docs[0].Truncated())
}

func TestAdapter_ListDocuments_MaxTotalChars(t *testing.T) {
	a := newTestAdapter(t)

	docs, err := a.ListDocuments(context.Background(), driven.CorpusContext{MaxTotalChars: 50})
	require.NoError(t, err)
	require.NotEmpty(t, docs)
	last := docs[len(docs)-1]
	assert.True(t, last.Truncated())

	total := 0
	for _, d := range docs {
		total += len(d.Text)
	}
	assert.LessOrEqual(t, total, 50)
}

func TestAdapter_FullText(t *testing.T) {
	a := newTestAdapter(t)

	text, err := a.FullText(context.Background(), &domain.Document{ID: "note-1"})
	require.NoError(t, err)
	assert.Contains(t, text, "milk and eggs")

	_, err = a.FullText(context.Background(), &domain.Document{ID: "missing"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAdapter_ChunkDocument_NamespacedIDs(t *testing.T) {
	a := newTestAdapter(t)

	docs, err := a.ListDocuments(context.Background(), driven.CorpusContext{NoteIDs: []string{"note-1"}})
	require.NoError(t, err)
	require.Len(t, docs, 1)

	chunks, err := a.ChunkDocument(&docs[0], driven.ChunkOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for _, ch := range chunks {
		assert.True(t, strings.HasPrefix(ch.ID, "note-1::chunk-"), "id %q not namespaced", ch.ID)
		assert.Equal(t, "note-1", ch.DocID)
	}
}

func TestMarkdownHeadings(t *testing.T) {
	headings := markdownHeadings("# One\ntext\n## Two\nmore\nplain line\n")
	assert.Equal(t, []string{"One", "Two"}, headings)

	assert.Empty(t, markdownHeadings("no headings here"))
}
