// Package policy defines the admission and reinsertion policy contracts,
// grounded on original_source/foyer-storage/src/admission (AdmissionPolicy)
// and .../reinsertion (ReinsertionPolicy): a Judge call that must never
// block the foreground path, and on_insert/on_drop hooks that always fire,
// carrying that policy's own verdict, regardless of which branch the
// aggregate outcome actually took.
package policy

import "github.com/sharedcode/embercache/metrics"

// Judge is the capability every admission and reinsertion policy shares.
type Judge[K comparable] interface {
	// Judge reports whether key/weight should be admitted (or
	// reinserted), without blocking.
	Judge(key K, weight int, m metrics.Metrics) bool
	// OnInsert is called once per policy after the aggregate outcome is
	// known, with this policy's own Judge verdict (not the aggregate).
	OnInsert(key K, weight int, m metrics.Metrics, verdict bool)
	// OnDrop mirrors OnInsert for the path where the entry was not
	// ultimately kept.
	OnDrop(key K, weight int, m metrics.Metrics, verdict bool)
}

// AdmissionPolicy gates whether a key is written at all.
type AdmissionPolicy[K comparable] interface {
	Judge[K]
}

// ReinsertionPolicy gates whether a key found in a region being reclaimed
// is copied forward into a new region instead of being dropped.
type ReinsertionPolicy[K comparable] interface {
	Judge[K]
	// Init is called once, before first use, with the catalog the policy
	// may need to consult (e.g. Exist's membership check).
	Init(lookup func(K) bool)
}

// JudgeAll runs Judge across every policy and ANDs the results: all must
// admit for the aggregate to admit. Each individual verdict is returned
// alongside so callers can pass it to NotifyAll.
func JudgeAll[K comparable](policies []Judge[K], key K, weight int, m metrics.Metrics) (aggregate bool, verdicts []bool) {
	verdicts = make([]bool, len(policies))
	aggregate = true
	for i, p := range policies {
		v := p.Judge(key, weight, m)
		verdicts[i] = v
		if !v {
			aggregate = false
		}
	}
	return aggregate, verdicts
}

// NotifyAll calls OnInsert on every policy if kept is true, else OnDrop on
// every policy, each with its own verdict from JudgeAll — never the
// aggregate.
func NotifyAll[K comparable](policies []Judge[K], key K, weight int, m metrics.Metrics, verdicts []bool, kept bool) {
	for i, p := range policies {
		if kept {
			p.OnInsert(key, weight, m, verdicts[i])
		} else {
			p.OnDrop(key, weight, m, verdicts[i])
		}
	}
}
