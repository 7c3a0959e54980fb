package policy

import (
	"sync"

	"github.com/sharedcode/embercache/metrics"
)

// Exist reinserts only keys still present in the live catalog at the time
// reclaim considers them, grounded on
// original_source/foyer-storage/src/reinsertion/exist.rs: Init captures
// the catalog lookup once (the Rust original uses OnceLock; Go's
// sync.Once gives the same write-once guarantee), Judge defers to it, and
// both hooks are no-ops since membership alone decided the outcome.
type Exist[K comparable] struct {
	once   sync.Once
	lookup func(K) bool
}

// NewExist returns an uninitialized Exist policy; Init must be called
// before first Judge.
func NewExist[K comparable]() *Exist[K] {
	return &Exist[K]{}
}

func (p *Exist[K]) Init(lookup func(K) bool) {
	p.once.Do(func() { p.lookup = lookup })
}

func (p *Exist[K]) Judge(key K, weight int, m metrics.Metrics) bool {
	return p.lookup(key)
}

func (p *Exist[K]) OnInsert(key K, weight int, m metrics.Metrics, verdict bool) {}
func (p *Exist[K]) OnDrop(key K, weight int, m metrics.Metrics, verdict bool)   {}
