// Package cache provides the process-wide index cache. Entries are
// evicted least-recently-used, bounded by entry count and a per-entry
// character budget, and can additionally be invalidated by filesystem
// events on the files an index was built from.
package cache

import (
	"container/list"
	"context"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/pagelens/pagelens/internal/core/domain"
	"github.com/pagelens/pagelens/internal/core/ports/driven"
	"github.com/pagelens/pagelens/internal/logger"
)

const (
	defaultMaxEntries       = 16
	defaultMaxCharsPerEntry = 2_000_000
)

// Config bounds the cache.
type Config struct {
	// MaxEntries caps the number of cached indexes.
	MaxEntries int

	// MaxCharsPerEntry caps the total character size of a single
	// cached index. Oversized indexes are still returned to the
	// caller but never retained.
	MaxCharsPerEntry int
}

type entry struct {
	key string

	// ready is closed once the build finished, successfully or not.
	ready chan struct{}
	idx   *domain.Index
	err   error
}

// LRU implements the IndexCache port. At most one build runs per key;
// concurrent callers for the same key block on the in-flight build.
type LRU struct {
	cfg Config

	mu      sync.Mutex
	order   *list.List // front = most recently used
	entries map[string]*list.Element

	watcher *fsnotify.Watcher
	watched map[string]map[string]struct{} // path -> keys built from it
	done    chan struct{}
}

var _ driven.IndexCache = (*LRU)(nil)

// New returns an empty cache. Zero config fields fall back to defaults.
func New(cfg Config) *LRU {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = defaultMaxEntries
	}
	if cfg.MaxCharsPerEntry <= 0 {
		cfg.MaxCharsPerEntry = defaultMaxCharsPerEntry
	}
	return &LRU{
		cfg:     cfg,
		order:   list.New(),
		entries: make(map[string]*list.Element),
		watched: make(map[string]map[string]struct{}),
		done:    make(chan struct{}),
	}
}

// GetOrBuild returns the cached index for key, revalidating it first,
// or builds and stores a fresh one. Callers arriving while a build for
// the same key is in flight await that build's result.
func (c *LRU) GetOrBuild(ctx context.Context, key string, revalidate driven.RevalidateFunc, build driven.BuildFunc) (*domain.Index, error) {
	for {
		c.mu.Lock()
		if elem, ok := c.entries[key]; ok {
			e := elem.Value.(*entry)
			c.mu.Unlock()

			select {
			case <-e.ready:
			case <-ctx.Done():
				return nil, domain.ErrCancelled
			}
			if e.err != nil {
				return nil, e.err
			}
			if revalidate != nil && !revalidate(ctx, e.idx) {
				logger.Debug("cache: stale index for %q, rebuilding", key)
				c.mu.Lock()
				if cur, ok := c.entries[key]; ok && cur == elem {
					c.remove(key, elem)
				}
				c.mu.Unlock()
				continue
			}
			c.touch(key)
			return e.idx, nil
		}

		e := &entry{key: key, ready: make(chan struct{})}
		c.entries[key] = c.order.PushFront(e)
		c.mu.Unlock()

		idx, err := build(ctx)
		e.idx, e.err = idx, err

		c.mu.Lock()
		if elem, ok := c.entries[key]; ok && elem.Value == e {
			switch {
			case err != nil:
				c.remove(key, elem)
			case idx.TotalChars() > c.cfg.MaxCharsPerEntry:
				logger.Debug("cache: index for %q exceeds char budget, not retained", key)
				c.remove(key, elem)
			default:
				c.evictOver(c.cfg.MaxEntries)
			}
		}
		c.mu.Unlock()

		close(e.ready)
		return idx, err
	}
}

// Peek returns the cached index for key without building. It reports
// ErrBuildInProgress while a build for the key is in flight and
// ErrNotFound when no entry exists.
func (c *LRU) Peek(key string) (*domain.Index, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	e := elem.Value.(*entry)
	select {
	case <-e.ready:
	default:
		return nil, domain.ErrBuildInProgress
	}
	if e.err != nil {
		return nil, e.err
	}
	return e.idx, nil
}

// Invalidate drops the entry for key, if present. An in-flight build is
// detached: its waiters still receive the result, but it is not stored.
func (c *LRU) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		c.remove(key, elem)
	}
}

// Len returns the number of cached entries, counting in-flight builds.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Watch registers filesystem paths backing the index under key. Any
// write, create, rename or remove event on a watched path evicts every
// key registered for it. The first call starts the watch goroutine.
func (c *LRU) Watch(key string, paths ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.watcher == nil {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return err
		}
		c.watcher = w
		go c.watchLoop(w)
	}
	for _, p := range paths {
		if _, ok := c.watched[p]; !ok {
			if err := c.watcher.Add(p); err != nil {
				logger.Warn("cache: cannot watch %s: %v", p, err)
				continue
			}
			c.watched[p] = make(map[string]struct{})
		}
		c.watched[p][key] = struct{}{}
	}
	return nil
}

// Close stops the filesystem watcher. Cached entries stay readable.
func (c *LRU) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		return nil
	default:
	}
	close(c.done)
	if c.watcher != nil {
		return c.watcher.Close()
	}
	return nil
}

func (c *LRU) watchLoop(w *fsnotify.Watcher) {
	for {
		select {
		case <-c.done:
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			c.mu.Lock()
			for key := range c.watched[ev.Name] {
				if elem, ok := c.entries[key]; ok {
					logger.Debug("cache: %s changed, evicting %q", ev.Name, key)
					c.remove(key, elem)
				}
			}
			c.mu.Unlock()
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Warn("cache: watcher error: %v", err)
		}
	}
}

// touch moves key to the front of the recency order.
func (c *LRU) touch(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		c.order.MoveToFront(elem)
	}
}

// remove expects c.mu held.
func (c *LRU) remove(key string, elem *list.Element) {
	c.order.Remove(elem)
	delete(c.entries, key)
	for path, keys := range c.watched {
		delete(keys, key)
		if len(keys) == 0 {
			delete(c.watched, path)
			if c.watcher != nil {
				c.watcher.Remove(path)
			}
		}
	}
}

// evictOver expects c.mu held. In-flight builds at the tail are skipped
// so their waiters are never detached by eviction pressure.
func (c *LRU) evictOver(limit int) {
	for elem := c.order.Back(); elem != nil && len(c.entries) > limit; {
		prev := elem.Prev()
		e := elem.Value.(*entry)
		select {
		case <-e.ready:
			c.remove(e.key, elem)
		default:
		}
		elem = prev
	}
}
