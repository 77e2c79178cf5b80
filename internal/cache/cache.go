// Package cache provides the TTL-expiring result cache for assembled
// resolutions, plus a Bloom-filter-backed negative cache for ids that
// previously resolved to nothing.
package cache

import (
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"unitune/internal/core"
)

const (
	// negativeCapacity sizes the Bloom filter for not-found entity keys.
	negativeCapacity = 100000
	// negativeFalsePositiveRate is the accepted Bloom false positive
	// rate. False positives are double-checked against the exact set, so
	// a not-found verdict is never wrong.
	negativeFalsePositiveRate = 0.001
)

// ResultCache is a thread-safe, TTL-expiring store of fully assembled
// resolutions keyed by entity key. It implements core.ResultCache and is
// shared by reference across all concurrent resolutions.
type ResultCache struct {
	results *expirable.LRU[string, *core.Resolution]

	mutex    sync.RWMutex
	notFound map[string]time.Time
	filter   *bloom.BloomFilter
	ttl      time.Duration
}

// New creates a result cache holding up to size resolutions, each
// expiring after ttl.
func New(size int, ttl time.Duration) *ResultCache {
	return &ResultCache{
		results:  expirable.NewLRU[string, *core.Resolution](size, nil, ttl),
		notFound: make(map[string]time.Time),
		filter:   bloom.NewWithEstimates(negativeCapacity, negativeFalsePositiveRate),
		ttl:      ttl,
	}
}

// Get returns the cached resolution for key, if present and unexpired.
func (c *ResultCache) Get(key string) (*core.Resolution, bool) {
	return c.results.Get(key)
}

// Put stores a fully assembled resolution. Only complete resolutions are
// ever cached; the engine never stores partial intermediates.
func (c *ResultCache) Put(key string, res *core.Resolution) {
	c.results.Add(key, res)
}

// MarkNotFound records that key resolved to no entity, so repeated
// lookups for the same dead id can be answered without an outbound call.
func (c *ResultCache) MarkNotFound(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.notFound[key] = time.Now().Add(c.ttl)
	c.filter.AddString(key)
}

// WasNotFound reports whether key is known to resolve to nothing. The
// Bloom filter rejects the common case cheaply; positives are confirmed
// against the exact expiry map so a fresh id is never suppressed.
func (c *ResultCache) WasNotFound(key string) bool {
	c.mutex.RLock()
	if !c.filter.TestString(key) {
		c.mutex.RUnlock()
		return false
	}
	deadline, exists := c.notFound[key]
	c.mutex.RUnlock()

	if !exists {
		return false
	}
	if time.Now().After(deadline) {
		c.mutex.Lock()
		delete(c.notFound, key)
		c.mutex.Unlock()
		return false
	}
	return true
}

// Len returns the number of cached resolutions.
func (c *ResultCache) Len() int {
	return c.results.Len()
}
