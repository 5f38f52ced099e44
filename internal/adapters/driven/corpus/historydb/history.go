package historydb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/pagelens/pagelens/internal/core/domain"
	"github.com/pagelens/pagelens/internal/core/ports/driven"
)

// Ensure HistoryAdapter implements the interface.
var _ driven.CorpusAdapter = (*HistoryAdapter)(nil)

// HistoryAdapter reads recently visited URLs from the profile database.
type HistoryAdapter struct {
	db    *sql.DB
	perms driven.PermissionChecker
	now   func() time.Time
}

// NewHistory opens the profile database read-only.
func NewHistory(dbPath string, perms driven.PermissionChecker) (*HistoryAdapter, error) {
	db, err := sql.Open("sqlite", dbPath+"?mode=ro&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: open history db: %v", domain.ErrAdapter, err)
	}
	return &HistoryAdapter{db: db, perms: perms, now: time.Now}, nil
}

// NewHistoryWithDB wraps an existing handle. Used by tests.
func NewHistoryWithDB(db *sql.DB, perms driven.PermissionChecker) *HistoryAdapter {
	return &HistoryAdapter{db: db, perms: perms, now: time.Now}
}

// Close releases the database handle.
func (a *HistoryAdapter) Close() error {
	return a.db.Close()
}

// Kind returns the corpus kind.
func (a *HistoryAdapter) Kind() domain.SourceKind {
	return domain.SourceHistory
}

// IndexKey keys the cache by the history window parameters.
func (a *HistoryAdapter) IndexKey(cctx driven.CorpusContext) string {
	days := cctx.HistoryDays
	if days <= 0 {
		days = defaultDays
	}
	max := cctx.MaxResults
	if max <= 0 {
		max = defaultMaxResults
	}
	return fmt.Sprintf("history:days=%d:max=%d", days, max)
}

// ListDocuments returns one metadata document per visited URL inside
// the lookback window, most recent first.
func (a *HistoryAdapter) ListDocuments(ctx context.Context, cctx driven.CorpusContext) ([]domain.Document, error) {
	if err := checkPermission(ctx, a.perms, domain.SourceHistory); err != nil {
		return nil, err
	}

	days := cctx.HistoryDays
	if days <= 0 {
		days = defaultDays
	}
	max := cctx.MaxResults
	if max <= 0 {
		max = defaultMaxResults
	}
	since := toChromeMicros(a.now().AddDate(0, 0, -days))

	rows, err := a.db.QueryContext(ctx, `
		SELECT id, url, title, last_visit_time
		FROM urls
		WHERE last_visit_time >= ? AND hidden = 0
		ORDER BY last_visit_time DESC
		LIMIT ?`, since, max)
	if err != nil {
		return nil, fmt.Errorf("%w: query history: %v", domain.ErrAdapter, err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var (
			id, lastVisit int64
			url, title    string
		)
		if err := rows.Scan(&id, &url, &title, &lastVisit); err != nil {
			return nil, fmt.Errorf("%w: scan history row: %v", domain.ErrAdapter, err)
		}
		docs = append(docs, metaDocument(
			fmt.Sprintf("hist-%d", id), title, url,
			domain.SourceHistory, chromeTime(lastVisit),
		))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read history: %v", domain.ErrAdapter, err)
	}
	return docs, nil
}

// ContentHash computes the document fingerprint.
func (a *HistoryAdapter) ContentHash(doc *domain.Document) uint64 {
	return domain.Fingerprint(doc.Title, doc.Text)
}

// FullText returns the metadata body; there is no fuller text to fetch.
func (a *HistoryAdapter) FullText(_ context.Context, doc *domain.Document) (string, error) {
	return doc.Text, nil
}

// ChunkDocument splits the metadata body into small chunks.
func (a *HistoryAdapter) ChunkDocument(doc *domain.Document, opts driven.ChunkOptions) ([]domain.Chunk, error) {
	return chunkMeta(doc, opts), nil
}
