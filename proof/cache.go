package proof

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultCacheCapacity is the proof cache's default entry bound, per
// spec.md §4.3.
const DefaultCacheCapacity = 1000

// cacheEntry wraps a cached verification result with insertion metadata,
// mirroring the teacher's proofCacheEntry.
type cacheEntry struct {
	valid      bool
	proverID   string
	insertedAt int64
}

// CacheStats is an aggregate snapshot of cache activity, grounded on the
// teacher's ProofCacheStats.
type CacheStats struct {
	Hits        uint64
	Misses      uint64
	Entries     uint64
	Evictions   uint64
	Expirations uint64
}

// Cache is a thread-safe, size-bounded, TTL-aware cache of proof
// verification results keyed by binding digest, grounded on the teacher's
// proof_cache.go ProofCache.
type Cache struct {
	mu          sync.RWMutex
	entries     map[[32]byte]*cacheEntry
	maxEntries  int
	ttlSeconds  int64
	insertOrder [][32]byte

	hits        atomic.Uint64
	misses      atomic.Uint64
	evictions   atomic.Uint64
	expirations atomic.Uint64
}

// NewCache creates a proof cache. maxEntries <= 0 defaults to
// DefaultCacheCapacity; ttlSeconds <= 0 disables time-based expiration.
func NewCache(maxEntries int, ttlSeconds int64) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultCacheCapacity
	}
	return &Cache{
		entries:     make(map[[32]byte]*cacheEntry),
		maxEntries:  maxEntries,
		ttlSeconds:  ttlSeconds,
		insertOrder: make([][32]byte, 0, maxEntries),
	}
}

// Store records a verification outcome for digest, evicting the least
// recently used entry if the cache is at capacity.
func (c *Cache) Store(digest [32]byte, valid bool, proverID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[digest]; exists {
		c.entries[digest] = &cacheEntry{valid: valid, proverID: proverID, insertedAt: time.Now().Unix()}
		return
	}

	for len(c.entries) >= c.maxEntries && len(c.insertOrder) > 0 {
		oldest := c.insertOrder[0]
		c.insertOrder = c.insertOrder[1:]
		if _, ok := c.entries[oldest]; ok {
			delete(c.entries, oldest)
			c.evictions.Add(1)
		}
	}

	c.entries[digest] = &cacheEntry{valid: valid, proverID: proverID, insertedAt: time.Now().Unix()}
	c.insertOrder = append(c.insertOrder, digest)
}

// Lookup retrieves a cached verification outcome, returning false, false if
// absent or expired.
func (c *Cache) Lookup(digest [32]byte) (bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[digest]
	if !ok {
		c.misses.Add(1)
		return false, false
	}
	if c.ttlSeconds > 0 && time.Now().Unix()-entry.insertedAt > c.ttlSeconds {
		delete(c.entries, digest)
		c.removeFromOrder(digest)
		c.expirations.Add(1)
		c.misses.Add(1)
		return false, false
	}
	// A hit makes digest the most recently used entry.
	c.removeFromOrder(digest)
	c.insertOrder = append(c.insertOrder, digest)
	c.hits.Add(1)
	return entry.valid, true
}

// Invalidate removes a specific entry.
func (c *Cache) Invalidate(digest [32]byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[digest]; ok {
		delete(c.entries, digest)
		c.removeFromOrder(digest)
	}
}

// InvalidateByProver removes every entry associated with proverID, returning
// the number removed.
func (c *Cache) InvalidateByProver(proverID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var toRemove [][32]byte
	for digest, entry := range c.entries {
		if entry.proverID == proverID {
			toRemove = append(toRemove, digest)
		}
	}
	for _, digest := range toRemove {
		delete(c.entries, digest)
		c.removeFromOrder(digest)
	}
	return len(toRemove)
}

// PruneExpired removes every entry whose TTL has elapsed, returning the
// number removed. A no-op if the cache has no TTL configured.
func (c *Cache) PruneExpired() int {
	if c.ttlSeconds <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().Unix()
	var toRemove [][32]byte
	for digest, entry := range c.entries {
		if now-entry.insertedAt > c.ttlSeconds {
			toRemove = append(toRemove, digest)
		}
	}
	for _, digest := range toRemove {
		delete(c.entries, digest)
		c.removeFromOrder(digest)
		c.expirations.Add(1)
	}
	return len(toRemove)
}

// Stats returns a snapshot of cache activity.
func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	entries := uint64(len(c.entries))
	c.mu.RUnlock()
	return CacheStats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Entries:     entries,
		Evictions:   c.evictions.Load(),
		Expirations: c.expirations.Load(),
	}
}

func (c *Cache) removeFromOrder(digest [32]byte) {
	for i, d := range c.insertOrder {
		if d == digest {
			c.insertOrder = append(c.insertOrder[:i], c.insertOrder[i+1:]...)
			return
		}
	}
}
