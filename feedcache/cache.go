// Package feedcache keeps per-scope feed pages in memory with TTL-based
// staleness and stale-while-revalidate reads, in front of the cursor-based
// store fetcher. The cache is an explicit object constructed at startup and
// injected into its consumers; it is rebuilt from the store on restart and
// purged on identity switch.
package feedcache

import (
	"context"
	"log"
	"sync"
	"time"

	"ripple/models"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Fetcher is the store-side page query: posts for a scope ordered by
// descending creation time, strictly after the cursor when one is given.
type Fetcher interface {
	FetchPage(ctx context.Context, scope string, after *models.FeedCursor, limit int) ([]models.Post, error)
}

// Page is the view handed to callers: every item loaded for the scope so
// far, plus the continuation token. Cursor is empty once the scope is
// exhausted.
type Page struct {
	Items   []models.Post `json:"items"`
	Cursor  string        `json:"cursor,omitempty"`
	HasMore bool          `json:"hasMore"`
}

type entry struct {
	items        []models.Post
	cursor       *models.FeedCursor
	hasMore      bool
	fetchedAt    time.Time
	revalidating bool
	fetchingNext bool
}

func (e *entry) view() Page {
	p := Page{Items: e.items, HasMore: e.hasMore}
	if e.hasMore && e.cursor != nil {
		p.Cursor = e.cursor.Encode()
	}
	return p
}

type Cache struct {
	mu       sync.Mutex
	entries  *lru.Cache[string, *entry]
	fetcher  Fetcher
	ttl      time.Duration
	pageSize int

	// fetchTimeout bounds background revalidation, which runs detached
	// from any request context.
	fetchTimeout time.Duration
}

const defaultScopes = 128

func New(fetcher Fetcher, ttl time.Duration, pageSize int) *Cache {
	l, err := lru.New[string, *entry](defaultScopes)
	if err != nil {
		log.Fatalf("feedcache: %v", err)
	}
	return &Cache{
		entries:      l,
		fetcher:      fetcher,
		ttl:          ttl,
		pageSize:     pageSize,
		fetchTimeout: 10 * time.Second,
	}
}

func (c *Cache) newEntry(items []models.Post) *entry {
	return &entry{
		items:     items,
		cursor:    models.CursorAfter(items),
		hasMore:   len(items) == c.pageSize,
		fetchedAt: time.Now(),
	}
}

// GetPage returns the scope's loaded items. A fresh entry is served with no
// store query. A stale entry is still served immediately, with one
// background refetch kicked off to replace it (stale-while-revalidate). A
// miss, or force (pull-to-refresh), does a blocking fetch of page one and
// replaces the entry wholesale; already-loaded continuation pages are
// dropped, not refetched.
func (c *Cache) GetPage(ctx context.Context, scope string, force bool) (Page, error) {
	c.mu.Lock()
	if e, ok := c.entries.Get(scope); ok && !force {
		page := e.view()
		if time.Since(e.fetchedAt) < c.ttl {
			c.mu.Unlock()
			return page, nil
		}
		if !e.revalidating {
			e.revalidating = true
			go c.revalidate(scope)
		}
		c.mu.Unlock()
		return page, nil
	}
	c.mu.Unlock()

	return c.refresh(ctx, scope)
}

// GetNextPage fetches the page after the scope's current cursor and appends
// it. Exhausted scopes return the current view without a store query.
// Concurrent continuation requests for one scope are collapsed: the second
// caller gets the current view while the first one's fetch is in flight.
func (c *Cache) GetNextPage(ctx context.Context, scope string) (Page, error) {
	c.mu.Lock()
	e, ok := c.entries.Get(scope)
	if !ok {
		c.mu.Unlock()
		return c.refresh(ctx, scope)
	}
	if !e.hasMore || e.cursor == nil || e.fetchingNext {
		page := e.view()
		c.mu.Unlock()
		return page, nil
	}
	e.fetchingNext = true
	after := e.cursor
	c.mu.Unlock()

	items, err := c.fetcher.FetchPage(ctx, scope, after, c.pageSize)

	c.mu.Lock()
	defer c.mu.Unlock()
	cur, ok := c.entries.Get(scope)
	if !ok {
		// Entry was evicted mid-fetch; drop the result.
		return Page{}, err
	}
	if cur != e {
		// Entry was replaced mid-fetch (refresh won); serve the new one.
		return cur.view(), nil
	}
	e.fetchingNext = false
	if err != nil {
		return e.view(), err
	}
	e.items = append(e.items, items...)
	e.hasMore = len(items) == c.pageSize
	if next := models.CursorAfter(items); next != nil {
		e.cursor = next
	}
	return e.view(), nil
}

// refresh does a blocking page-one fetch and replaces the scope's entry.
// On failure the last good entry, if any, is served instead; the error
// only propagates when there is nothing cached to fall back to.
func (c *Cache) refresh(ctx context.Context, scope string) (Page, error) {
	items, err := c.fetcher.FetchPage(ctx, scope, nil, c.pageSize)
	if err != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		if e, ok := c.entries.Get(scope); ok {
			log.Printf("feedcache: refresh of scope %q failed, serving cached page: %v", scope, err)
			return e.view(), nil
		}
		return Page{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.newEntry(items)
	c.entries.Add(scope, e)
	return e.view(), nil
}

func (c *Cache) revalidate(scope string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.fetchTimeout)
	defer cancel()

	items, err := c.fetcher.FetchPage(ctx, scope, nil, c.pageSize)

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries.Get(scope); ok {
		e.revalidating = false
	}
	if err != nil {
		log.Printf("feedcache: background revalidation of scope %q failed: %v", scope, err)
		return
	}
	c.entries.Add(scope, c.newEntry(items))
}

// Invalidate drops one scope's entry; the next read fetches fresh.
func (c *Cache) Invalidate(scope string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Remove(scope)
}

// InvalidateAll drops every scope, for sign-out or identity switch.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Purge()
}
