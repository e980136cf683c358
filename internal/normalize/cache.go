package normalize

import (
	"strings"
	"sync"
)

// DefaultMaxEntries is the cache size used when none is configured.
const DefaultMaxEntries = 1000

// evictFraction is the share of entries dropped when the cache is full.
const evictFraction = 0.2

// Entry is the canonicalized view of one input text. Lower is folded with
// FoldASCII, so Lower and Trimmed always have the same length and an offset
// into one indexes the other.
type Entry struct {
	Lower   string // trimmed, A-Z folded
	Trimmed string // trimmed, original case
}

// Of normalizes text without a cache.
func Of(text string) Entry { return compute(text) }

// Prefix cuts both views to at most n bytes without splitting a UTF-8
// sequence.
func (e Entry) Prefix(n int) Entry {
	if n >= len(e.Trimmed) {
		return e
	}
	for n > 0 && e.Trimmed[n]&0xC0 == 0x80 {
		n--
	}
	return Entry{Lower: e.Lower[:n], Trimmed: e.Trimmed[:n]}
}

// Cache memoizes normalization results keyed by the exact input string.
// When full it drops the oldest ~20% of entries in insertion order.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]Entry
	order      []string
	maxEntries int
	hits       uint64
	misses     uint64
}

func NewCache(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Cache{
		entries:    make(map[string]Entry, maxEntries),
		order:      make([]string, 0, maxEntries),
		maxEntries: maxEntries,
	}
}

// Normalize returns the canonical view of text, computing and caching it on
// first sight. A nil Cache normalizes without memoizing.
func (c *Cache) Normalize(text string) Entry {
	if c == nil {
		return compute(text)
	}

	c.mu.Lock()
	if e, ok := c.entries[text]; ok {
		c.hits++
		c.mu.Unlock()
		return e
	}
	c.misses++
	c.mu.Unlock()

	e := compute(text)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[text]; ok {
		return e
	}
	if len(c.entries) >= c.maxEntries {
		c.evictLocked()
	}
	c.entries[text] = e
	c.order = append(c.order, text)
	return e
}

// evictLocked drops the oldest evictFraction of entries (at least one).
func (c *Cache) evictLocked() {
	n := int(float64(len(c.order)) * evictFraction)
	if n < 1 {
		n = 1
	}
	if n > len(c.order) {
		n = len(c.order)
	}
	for _, key := range c.order[:n] {
		delete(c.entries, key)
	}
	remaining := make([]string, len(c.order)-n, c.maxEntries)
	copy(remaining, c.order[n:])
	c.order = remaining
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns hit and miss counters.
func (c *Cache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func compute(text string) Entry {
	trimmed := strings.TrimSpace(text)
	return Entry{
		Lower:   FoldASCII(trimmed),
		Trimmed: trimmed,
	}
}
