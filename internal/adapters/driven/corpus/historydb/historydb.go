// Package historydb presents browsing history, downloads and bookmarks
// as corpora. History and downloads are read from a Chromium-style
// profile database; bookmarks from the profile's JSON bookmarks file.
// All three require a permission grant and emit short metadata-only
// documents whose body is "{title}\n{url}".
package historydb

import (
	"context"
	"fmt"
	"time"

	"github.com/pagelens/pagelens/internal/chunker"
	"github.com/pagelens/pagelens/internal/core/domain"
	"github.com/pagelens/pagelens/internal/core/ports/driven"
)

// Defaults for metadata corpora. Bodies are title+url only, so chunks
// stay around a kilobyte.
const (
	defaultMaxChunkChars = 1024
	defaultDays          = 30
	defaultMaxResults    = 200
)

// chromeEpochOffset is the number of seconds between the Chromium
// timestamp epoch (1601-01-01) and the Unix epoch.
const chromeEpochOffset = 11644473600

// chromeTime converts a Chromium microsecond timestamp to time.Time.
func chromeTime(micros int64) time.Time {
	if micros <= 0 {
		return time.Time{}
	}
	return time.Unix(micros/1e6-chromeEpochOffset, (micros%1e6)*1000)
}

// toChromeMicros converts a time.Time to Chromium microseconds.
func toChromeMicros(t time.Time) int64 {
	return (t.Unix() + chromeEpochOffset) * 1e6
}

// checkPermission gates privileged corpora behind the grant.
func checkPermission(ctx context.Context, perms driven.PermissionChecker, kind domain.SourceKind) error {
	if perms == nil || !perms.Granted(ctx, kind) {
		return fmt.Errorf("%w: corpus %s requires a permission grant", domain.ErrPermissionDenied, kind)
	}
	return nil
}

// metaDocument builds the uniform metadata-only document.
func metaDocument(id, title, url string, kind domain.SourceKind, created time.Time) domain.Document {
	if title == "" {
		title = url
	}
	body := title + "\n" + url
	return domain.Document{
		ID:        id,
		Title:     title,
		URL:       url,
		CreatedAt: created,
		Text:      body,
		SizeBytes: len(body),
		Source:    kind,
	}
}

// chunkMeta splits a metadata document. Bodies almost always fit one
// chunk; the chunker handles pathological titles.
func chunkMeta(doc *domain.Document, opts driven.ChunkOptions) []domain.Chunk {
	max := opts.MaxChunkChars
	if max <= 0 {
		max = defaultMaxChunkChars
	}
	c := chunker.New(
		chunker.WithMaxChunkChars(max),
		chunker.WithOverlapChars(opts.OverlapChars),
		chunker.WithMinChunkChars(opts.MinChunkChars),
	)

	chunks := c.Split(doc.Text)
	for i := range chunks {
		chunks[i].DocID = doc.ID
		chunks[i].ID = doc.ID + "::" + chunks[i].ID
	}
	return chunks
}
