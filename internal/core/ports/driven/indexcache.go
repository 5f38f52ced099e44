package driven

import (
	"context"

	"github.com/pagelens/pagelens/internal/core/domain"
)

// BuildFunc builds a fresh index for a corpus key. The cache invokes it
// on a miss while holding the key's build slot.
type BuildFunc func(ctx context.Context) (*domain.Index, error)

// RevalidateFunc recomputes content hashes for a cached index. It
// returns false when any hash differs, which invalidates the entry.
type RevalidateFunc func(ctx context.Context, cached *domain.Index) bool

// IndexCache is the process-wide cache of built indexes, keyed by
// corpus key. At most one build runs per key; concurrent callers for
// the same key await the in-flight build's result.
type IndexCache interface {
	// GetOrBuild returns the cached index for key after revalidation,
	// or builds, stores and returns a fresh one.
	GetOrBuild(ctx context.Context, key string, revalidate RevalidateFunc, build BuildFunc) (*domain.Index, error)

	// Invalidate drops the entry for key, if present.
	Invalidate(key string)

	// Len returns the number of cached entries.
	Len() int

	// Close stops any background invalidation watchers.
	Close() error
}
