package rpa

import (
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
)

// DefaultCacheTTL is how long a per-address match result is reused.
const DefaultCacheTTL = 5 * time.Minute

// NamedKey is an IRK together with the id of its stored record.
type NamedKey struct {
	ID  string
	Key Key
}

// Matcher resolves addresses against a fixed key snapshot.
type Matcher interface {
	Match(address string) (NamedKey, bool)
}

// CachingMatcher resolves against a key snapshot taken at construction and
// memoizes the outcome per address, hits and misses alike. A new snapshot
// needs a new matcher.
type CachingMatcher struct {
	keys   []NamedKey
	raw    []Key
	cache  *cache.Cache
	hits   atomic.Uint64
	misses atomic.Uint64
}

type matchResult struct {
	index int
	ok    bool
}

// NewCachingMatcher copies keys and caches match results for ttl.
func NewCachingMatcher(keys []NamedKey, ttl time.Duration) *CachingMatcher {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	m := &CachingMatcher{
		keys:  append([]NamedKey(nil), keys...),
		raw:   make([]Key, len(keys)),
		cache: cache.New(ttl, 2*ttl),
	}
	for i, k := range keys {
		m.raw[i] = k.Key
	}
	return m
}

// Match returns the first snapshot key resolving address. Malformed and
// non-resolvable addresses never match.
func (m *CachingMatcher) Match(address string) (NamedKey, bool) {
	if len(m.keys) == 0 {
		return NamedKey{}, false
	}

	if v, found := m.cache.Get(address); found {
		m.hits.Add(1)
		r := v.(matchResult)
		if !r.ok {
			return NamedKey{}, false
		}
		return m.keys[r.index], true
	}
	m.misses.Add(1)

	idx, ok := Match(address, m.raw)
	m.cache.SetDefault(address, matchResult{index: idx, ok: ok})
	if !ok {
		return NamedKey{}, false
	}
	return m.keys[idx], true
}

// Len returns the number of keys in the snapshot.
func (m *CachingMatcher) Len() int {
	return len(m.keys)
}

// Stats returns cache hit and miss counts.
func (m *CachingMatcher) Stats() (hits, misses uint64) {
	return m.hits.Load(), m.misses.Load()
}

// Flush drops all memoized results.
func (m *CachingMatcher) Flush() {
	m.cache.Flush()
}
