package historydb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/pagelens/pagelens/internal/core/domain"
	"github.com/pagelens/pagelens/internal/core/ports/driven"
)

// Ensure BookmarksAdapter implements the interface.
var _ driven.CorpusAdapter = (*BookmarksAdapter)(nil)

// BookmarksAdapter reads the Chromium JSON bookmarks file.
type BookmarksAdapter struct {
	path  string
	perms driven.PermissionChecker
}

// NewBookmarks creates a bookmarks adapter for the given file.
func NewBookmarks(path string, perms driven.PermissionChecker) *BookmarksAdapter {
	return &BookmarksAdapter{path: path, perms: perms}
}

// Kind returns the corpus kind.
func (a *BookmarksAdapter) Kind() domain.SourceKind {
	return domain.SourceBookmark
}

// IndexKey keys the cache by the bookmarks file path.
func (a *BookmarksAdapter) IndexKey(_ driven.CorpusContext) string {
	return "bookmarks:" + a.path
}

// bookmarkNode mirrors the Chromium bookmarks file structure.
type bookmarkNode struct {
	Type      string         `json:"type"`
	Name      string         `json:"name"`
	URL       string         `json:"url"`
	DateAdded string         `json:"date_added"`
	Children  []bookmarkNode `json:"children"`
}

type bookmarksFile struct {
	Roots map[string]bookmarkNode `json:"roots"`
}

// ListDocuments flattens the bookmark tree into one metadata document
// per bookmarked URL.
func (a *BookmarksAdapter) ListDocuments(ctx context.Context, cctx driven.CorpusContext) ([]domain.Document, error) {
	if err := checkPermission(ctx, a.perms, domain.SourceBookmark); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(a.path)
	if err != nil {
		return nil, fmt.Errorf("%w: read bookmarks file: %v", domain.ErrAdapter, err)
	}

	var file bookmarksFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("%w: parse bookmarks file: %v", domain.ErrAdapter, err)
	}

	max := cctx.MaxResults
	if max <= 0 {
		max = defaultMaxResults
	}

	// Roots in stable name order so document order is deterministic.
	rootNames := make([]string, 0, len(file.Roots))
	for name := range file.Roots {
		rootNames = append(rootNames, name)
	}
	sort.Strings(rootNames)

	var docs []domain.Document
	seq := 0
	for _, name := range rootNames {
		root := file.Roots[name]
		collectBookmarks(&root, &docs, &seq, max)
	}
	return docs, nil
}

func collectBookmarks(node *bookmarkNode, docs *[]domain.Document, seq *int, max int) {
	if len(*docs) >= max {
		return
	}
	if node.Type == "url" && node.URL != "" {
		micros, _ := strconv.ParseInt(node.DateAdded, 10, 64)
		*seq++
		*docs = append(*docs, metaDocument(
			fmt.Sprintf("bm-%d", *seq), node.Name, node.URL,
			domain.SourceBookmark, chromeTime(micros),
		))
		return
	}
	for i := range node.Children {
		collectBookmarks(&node.Children[i], docs, seq, max)
	}
}

// ContentHash computes the document fingerprint.
func (a *BookmarksAdapter) ContentHash(doc *domain.Document) uint64 {
	return domain.Fingerprint(doc.Title, doc.Text)
}

// FullText returns the metadata body.
func (a *BookmarksAdapter) FullText(_ context.Context, doc *domain.Document) (string, error) {
	return doc.Text, nil
}

// ChunkDocument splits the metadata body into small chunks.
func (a *BookmarksAdapter) ChunkDocument(doc *domain.Document, opts driven.ChunkOptions) ([]domain.Chunk, error) {
	return chunkMeta(doc, opts), nil
}
