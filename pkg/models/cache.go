package models

import "time"

// CachePriority controls eviction order of cached books. High-priority
// entries are never evicted by cache cleanup.
type CachePriority string

const (
	CachePriorityHigh   CachePriority = "high"
	CachePriorityNormal CachePriority = "normal"
	CachePriorityLow    CachePriority = "low"
)

// Book is a packaged document as handed to the cache. Size is the on-disk
// byte size used for cache accounting; Data may be nil when only metadata
// is tracked.
type Book struct {
	ID    BookID `json:"id"`
	Title string `json:"title,omitempty"`
	Size  int64  `json:"size"`
	Data  []byte `json:"-"`
}

// CachedBook is a cache entry: the book plus recency and pinning metadata.
// LastAccessed is refreshed on every read and drives LRU eviction.
type CachedBook struct {
	Book         `json:"book"`
	CachedAt     time.Time     `json:"cachedAt"`
	LastAccessed time.Time     `json:"lastAccessed"`
	Priority     CachePriority `json:"priority"`
	IsFavorite   bool          `json:"isFavorite"`
}

// Evictable reports whether cleanup may remove this entry. Favorites and
// high-priority entries are pinned.
func (c *CachedBook) Evictable() bool {
	return !c.IsFavorite && c.Priority != CachePriorityHigh
}
