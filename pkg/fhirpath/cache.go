package fhirpath

import (
	"container/list"
	"strings"
	"sync"
	"time"
)

// ExpressionCache is a concurrency-safe cache of compiled expressions
// keyed by normalized source text, with LRU eviction and an optional
// per-entry TTL. Use it in production to avoid re-parsing hot
// expressions.
type ExpressionCache struct {
	mu      sync.RWMutex
	cache   map[string]*cacheEntry
	lruList *list.List // front = most recently used
	limit   int
	ttl     time.Duration

	hits      int64
	misses    int64
	evictions int64
}

type cacheEntry struct {
	expr     *Expression
	key      string
	element  *list.Element
	created  time.Time
	lastUsed time.Time
}

// CacheStats holds cache performance counters.
type CacheStats struct {
	Size      int
	Limit     int
	Hits      int64
	Misses    int64
	Evictions int64
}

// NewExpressionCache creates a cache holding up to limit entries.
// A limit <= 0 means unbounded.
func NewExpressionCache(limit int) *ExpressionCache {
	return &ExpressionCache{
		cache:   make(map[string]*cacheEntry),
		lruList: list.New(),
		limit:   limit,
	}
}

// NewExpressionCacheTTL creates a cache whose entries also expire ttl
// after insertion.
func NewExpressionCacheTTL(limit int, ttl time.Duration) *ExpressionCache {
	c := NewExpressionCache(limit)
	c.ttl = ttl
	return c
}

// NormalizeKey collapses insignificant whitespace and removes spaces
// around '.', '[' and '(' so spelling variants share a cache entry.
// String literals are preserved verbatim. The function is idempotent.
func NormalizeKey(expr string) string {
	var b strings.Builder
	b.Grow(len(expr))
	var prev byte
	inString := false
	pendingSpace := false
	for i := 0; i < len(expr); i++ {
		c := expr[i]
		if inString {
			b.WriteByte(c)
			prev = c
			if c == '\\' && i+1 < len(expr) {
				i++
				b.WriteByte(expr[i])
				prev = expr[i]
			} else if c == '\'' {
				inString = false
			}
			continue
		}
		switch c {
		case '\'':
			if pendingSpace && needsSpaceBetween(prev, c) {
				b.WriteByte(' ')
			}
			pendingSpace = false
			inString = true
			b.WriteByte(c)
			prev = c
		case ' ', '\t', '\r', '\n':
			pendingSpace = b.Len() > 0
		case '.', '[', ']', '(', ')', ',':
			pendingSpace = false
			b.WriteByte(c)
			prev = c
		default:
			if pendingSpace && needsSpaceBetween(prev, c) {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteByte(c)
			prev = c
		}
	}
	return b.String()
}

// needsSpaceBetween keeps a separating space only between two tokens
// that would otherwise merge.
func needsSpaceBetween(prev, next byte) bool {
	switch prev {
	case 0, '.', '[', '(', ',':
		return false
	}
	return isWordByte(prev) && isWordByte(next) ||
		isOperatorByte(prev) && isOperatorByte(next)
}

func isWordByte(c byte) bool {
	return c == '_' || c == '$' || c == '%' || c == '@' || c == '\'' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isOperatorByte(c byte) bool {
	switch c {
	case '<', '>', '=', '!', '~', '+', '-', '*', '/', '&', '|':
		return true
	}
	return false
}

// Get retrieves a compiled expression, compiling and inserting on
// miss. The lookup runs under the read lock; a hit then takes the
// write lock to refresh LRU order and the hit count, so concurrent
// hits serialize on that step.
func (c *ExpressionCache) Get(expr string) (*Expression, error) {
	key := NormalizeKey(expr)

	c.mu.RLock()
	entry, ok := c.cache[key]
	expired := ok && c.ttl > 0 && time.Since(entry.created) > c.ttl
	c.mu.RUnlock()

	if ok && !expired {
		c.mu.Lock()
		c.lruList.MoveToFront(entry.element)
		entry.lastUsed = time.Now()
		c.hits++
		c.mu.Unlock()
		return entry.expr, nil
	}

	compiled, err := Compile(expr)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring the write lock.
	if entry, ok := c.cache[key]; ok {
		if c.ttl == 0 || time.Since(entry.created) <= c.ttl {
			c.lruList.MoveToFront(entry.element)
			entry.lastUsed = time.Now()
			c.hits++
			return entry.expr, nil
		}
		c.removeLocked(entry)
	}

	c.misses++
	if c.limit > 0 && len(c.cache) >= c.limit {
		c.evictLRULocked()
	}

	now := time.Now()
	entry = &cacheEntry{expr: compiled, key: key, created: now, lastUsed: now}
	entry.element = c.lruList.PushFront(entry)
	c.cache[key] = entry
	return compiled, nil
}

// evictLRULocked removes the least recently used entry. Caller holds
// the write lock.
func (c *ExpressionCache) evictLRULocked() {
	oldest := c.lruList.Back()
	if oldest == nil {
		return
	}
	c.removeLocked(oldest.Value.(*cacheEntry))
	c.evictions++
}

func (c *ExpressionCache) removeLocked(entry *cacheEntry) {
	c.lruList.Remove(entry.element)
	delete(c.cache, entry.key)
}

// MustGet is like Get but panics on error.
func (c *ExpressionCache) MustGet(expr string) *Expression {
	compiled, err := c.Get(expr)
	if err != nil {
		panic(err)
	}
	return compiled
}

// Clear removes all cached expressions and resets counters.
func (c *ExpressionCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]*cacheEntry)
	c.lruList = list.New()
	c.hits = 0
	c.misses = 0
	c.evictions = 0
}

// Size returns the number of cached expressions.
func (c *ExpressionCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// Stats returns cache performance counters.
func (c *ExpressionCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CacheStats{
		Size:      len(c.cache),
		Limit:     c.limit,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

// HitRate returns the hit rate as a percentage (0-100).
func (c *ExpressionCache) HitRate() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	total := c.hits + c.misses
	if total == 0 {
		return 0
	}
	return float64(c.hits) / float64(total) * 100
}

// DefaultCache is the process-wide expression cache, constructed once
// at initialization. Use NewExpressionCache for a private lifetime.
var DefaultCache = NewExpressionCache(1000)

// GetCached retrieves or compiles an expression via the default cache.
func GetCached(expr string) (*Expression, error) {
	return DefaultCache.Get(expr)
}

// MustGetCached is like GetCached but panics on error.
func MustGetCached(expr string) *Expression {
	return DefaultCache.MustGet(expr)
}

// EvaluateCached compiles (with caching) and evaluates an expression.
func EvaluateCached(resource []byte, expr string) (Collection, error) {
	compiled, err := DefaultCache.Get(expr)
	if err != nil {
		return nil, err
	}
	return compiled.Evaluate(resource)
}
