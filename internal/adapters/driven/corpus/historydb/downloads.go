package historydb

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	"github.com/pagelens/pagelens/internal/core/domain"
	"github.com/pagelens/pagelens/internal/core/ports/driven"
)

// Ensure DownloadsAdapter implements the interface.
var _ driven.CorpusAdapter = (*DownloadsAdapter)(nil)

// DownloadsAdapter reads completed downloads from the profile database.
type DownloadsAdapter struct {
	db    *sql.DB
	perms driven.PermissionChecker
}

// NewDownloads opens the profile database read-only.
func NewDownloads(dbPath string, perms driven.PermissionChecker) (*DownloadsAdapter, error) {
	db, err := sql.Open("sqlite", dbPath+"?mode=ro&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: open downloads db: %v", domain.ErrAdapter, err)
	}
	return &DownloadsAdapter{db: db, perms: perms}, nil
}

// NewDownloadsWithDB wraps an existing handle. Used by tests.
func NewDownloadsWithDB(db *sql.DB, perms driven.PermissionChecker) *DownloadsAdapter {
	return &DownloadsAdapter{db: db, perms: perms}
}

// Close releases the database handle.
func (a *DownloadsAdapter) Close() error {
	return a.db.Close()
}

// Kind returns the corpus kind.
func (a *DownloadsAdapter) Kind() domain.SourceKind {
	return domain.SourceDownload
}

// IndexKey keys the cache by the result cap.
func (a *DownloadsAdapter) IndexKey(cctx driven.CorpusContext) string {
	max := cctx.MaxResults
	if max <= 0 {
		max = defaultMaxResults
	}
	return fmt.Sprintf("downloads:max=%d", max)
}

// ListDocuments returns one metadata document per download, newest
// first. The title is the target file name.
func (a *DownloadsAdapter) ListDocuments(ctx context.Context, cctx driven.CorpusContext) ([]domain.Document, error) {
	if err := checkPermission(ctx, a.perms, domain.SourceDownload); err != nil {
		return nil, err
	}

	max := cctx.MaxResults
	if max <= 0 {
		max = defaultMaxResults
	}

	rows, err := a.db.QueryContext(ctx, `
		SELECT id, target_path, tab_url, start_time
		FROM downloads
		ORDER BY start_time DESC
		LIMIT ?`, max)
	if err != nil {
		return nil, fmt.Errorf("%w: query downloads: %v", domain.ErrAdapter, err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var (
			id, started    int64
			target, tabURL string
		)
		if err := rows.Scan(&id, &target, &tabURL, &started); err != nil {
			return nil, fmt.Errorf("%w: scan download row: %v", domain.ErrAdapter, err)
		}
		docs = append(docs, metaDocument(
			fmt.Sprintf("dl-%d", id), filepath.Base(target), tabURL,
			domain.SourceDownload, chromeTime(started),
		))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read downloads: %v", domain.ErrAdapter, err)
	}
	return docs, nil
}

// ContentHash computes the document fingerprint.
func (a *DownloadsAdapter) ContentHash(doc *domain.Document) uint64 {
	return domain.Fingerprint(doc.Title, doc.Text)
}

// FullText returns the metadata body.
func (a *DownloadsAdapter) FullText(_ context.Context, doc *domain.Document) (string, error) {
	return doc.Text, nil
}

// ChunkDocument splits the metadata body into small chunks.
func (a *DownloadsAdapter) ChunkDocument(doc *domain.Document, opts driven.ChunkOptions) ([]domain.Chunk, error) {
	return chunkMeta(doc, opts), nil
}
