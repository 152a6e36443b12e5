package offline

import (
	"sort"

	"github.com/inkmark/inkmark/pkg/models"
)

// CacheBook inserts or overwrites a book in the cache at the given priority.
// When the insertion would exceed capacity, cleanup runs first; a book larger
// than what cleanup can free is still inserted, leaving the cache over target
// until eviction pressure resolves it.
func (c *Coordinator) CacheBook(book models.Book, priority models.CachePriority) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// The stale entry leaves the map together with its size, so cleanup can
	// never evict it and subtract that size a second time.
	var wasFavorite bool
	if existing, ok := c.cache[book.ID]; ok {
		c.cacheSize -= existing.Size
		wasFavorite = existing.IsFavorite
		delete(c.cache, book.ID)
	}
	if c.cacheSize+book.Size > c.maxCacheSize {
		c.cleanupLocked()
	}

	now := c.now()
	c.cache[book.ID] = &models.CachedBook{
		Book:         book,
		CachedAt:     now,
		LastAccessed: now,
		Priority:     priority,
		IsFavorite:   wasFavorite,
	}
	c.cacheSize += book.Size
}

// GetCachedBook returns the cached book and refreshes its recency.
func (c *Coordinator) GetCachedBook(id models.BookID) (*models.CachedBook, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cached, ok := c.cache[id]
	if !ok {
		return nil, false
	}
	cached.LastAccessed = c.now()

	snapshot := *cached
	return &snapshot, true
}

// RemoveCachedBook drops a book from the cache regardless of priority.
func (c *Coordinator) RemoveCachedBook(id models.BookID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cached, ok := c.cache[id]; ok {
		c.cacheSize -= cached.Size
		delete(c.cache, id)
	}
}

// MarkFavorite pins or unpins a cached book against eviction.
func (c *Coordinator) MarkFavorite(id models.BookID, favorite bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	cached, ok := c.cache[id]
	if ok {
		cached.IsFavorite = favorite
	}
	return ok
}

// CleanupCache evicts unpinned books, oldest access first, until usage drops
// to the cleanup target. Favorites and high-priority entries never go.
func (c *Coordinator) CleanupCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupLocked()
}

func (c *Coordinator) cleanupLocked() {
	target := int64(float64(c.maxCacheSize) * cleanupTarget)
	if c.cacheSize <= target {
		return
	}

	candidates := make([]*models.CachedBook, 0, len(c.cache))
	for _, cached := range c.cache {
		if cached.Evictable() {
			candidates = append(candidates, cached)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].LastAccessed.Equal(candidates[j].LastAccessed) {
			return candidates[i].ID.String() < candidates[j].ID.String()
		}
		return candidates[i].LastAccessed.Before(candidates[j].LastAccessed)
	})

	for _, cached := range candidates {
		if c.cacheSize <= target {
			break
		}
		c.cacheSize -= cached.Size
		delete(c.cache, cached.ID)
		c.log.Debug().
			Stringer("book", cached.ID).
			Int64("size", cached.Size).
			Msg("evicted cached book")
	}
}

// EnsureOfflineCapability caches the caller's essential set at high priority
// so it survives cache pressure.
func (c *Coordinator) EnsureOfflineCapability(books []models.Book) {
	for _, book := range books {
		c.CacheBook(book, models.CachePriorityHigh)
	}
}
