// Package catalog implements the sharded key -> on-disk location index,
// grounded on the teacher's cache.shardedMap (256 shards, per-shard
// sync.RWMutex) generalized from hash/fnv to cespare/xxhash/v2 and from
// interface{} values to a generic Entry carrying a region pointer plus the
// monotonic sequence number needed to resolve out-of-order flush
// completions.
package catalog

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const shardCount = 256

// Entry is the catalog's record of where one key's value lives.
type Entry struct {
	RegionID uint32
	Offset   int64
	Length   int
	Sequence uint64
}

type shard[K comparable] struct {
	mu    sync.RWMutex
	items map[K]Entry
}

// Catalog maps keys to their most recent durable Entry. Insert is gated by
// Sequence so a flush that completes out of order with a newer flush of
// the same key can never clobber the newer entry.
type Catalog[K comparable] struct {
	shards  [shardCount]*shard[K]
	keyFunc func(K) uint64
}

// New returns an empty Catalog. toBytes converts a key to bytes for
// shard selection and hashing; it must be provided because K is generic.
func New[K comparable](toBytes func(K) []byte) *Catalog[K] {
	c := &Catalog[K]{}
	for i := range c.shards {
		c.shards[i] = &shard[K]{items: make(map[K]Entry)}
	}
	c.keyFunc = func(k K) uint64 { return xxhash.Sum64(toBytes(k)) }
	return c
}

func (c *Catalog[K]) shardFor(key K) *shard[K] {
	return c.shards[c.keyFunc(key)%shardCount]
}

// Insert records entry for key, unless an existing entry carries a
// Sequence greater than or equal to entry.Sequence, in which case the
// call is a no-op and Insert returns false. Returns true if entry was
// applied.
func (c *Catalog[K]) Insert(key K, entry Entry) bool {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.items[key]; ok && existing.Sequence >= entry.Sequence {
		return false
	}
	s.items[key] = entry
	return true
}

// Lookup returns key's current Entry, if any.
func (c *Catalog[K]) Lookup(key K) (Entry, bool) {
	s := c.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.items[key]
	return e, ok
}

// Remove deletes key's entry unconditionally and reports whether one was
// present.
func (c *Catalog[K]) Remove(key K) bool {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[key]; !ok {
		return false
	}
	delete(s.items, key)
	return true
}

// TakeRegion drops every entry whose RegionID equals regionID, returning
// the keys removed. Used by the Reclaimer to clear the catalog before it
// takes ownership of a region, so no Lookup can return a stale location
// mid-reclaim.
func (c *Catalog[K]) TakeRegion(regionID uint32) []K {
	var removed []K
	for _, s := range c.shards {
		s.mu.Lock()
		for k, e := range s.items {
			if e.RegionID == regionID {
				delete(s.items, k)
				removed = append(removed, k)
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// Len returns the total number of live entries across all shards.
func (c *Catalog[K]) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.RLock()
		n += len(s.items)
		s.mu.RUnlock()
	}
	return n
}
