// Package regionmanager owns the whole-device grid of regions and the two
// pools a Writer and a Reclaimer pull from: the clean-region channel
// (regions ready to become the next write target) and the evict.Policy
// order (sealed regions reclaim may take).
package regionmanager

import (
	"context"
	"sync"
	"time"

	"github.com/sharedcode/embercache/device"
	"github.com/sharedcode/embercache/evict"
	"github.com/sharedcode/embercache/internal/region"
	"github.com/sharedcode/embercache/metrics"
)

// Manager tracks every region's Region object, hands out clean regions to
// the Flusher, and routes sealed regions into the eviction order.
type Manager struct {
	regions   []*region.Region
	policy    evict.Policy
	clean     chan uint32
	threshold int
	metrics   metrics.Metrics

	mu      sync.Mutex
	waiters []chan struct{}
}

// New creates a Manager over dev's regions, all starting Clean except that
// none are pre-queued: callers must call SeedClean (as Open does at
// startup) or Release each region id they want available for writing.
// threshold is the low-clean-region-count watermark returned by Threshold;
// Watch notifies on every clean-pool change regardless of it.
func New(dev device.Device, policy evict.Policy, threshold int, m metrics.Metrics) *Manager {
	n := dev.RegionCount()
	mgr := &Manager{
		regions:   make([]*region.Region, n),
		policy:    policy,
		clean:     make(chan uint32, n),
		threshold: threshold,
		metrics:   m,
	}
	for i := 0; i < n; i++ {
		mgr.regions[i] = region.New(uint32(i), dev)
	}
	return mgr
}

// SeedClean enqueues every region as clean and available, used once at
// Store startup.
func (m *Manager) SeedClean() {
	for _, r := range m.regions {
		r.SetState(region.Clean)
		m.clean <- r.ID()
	}
}

// Region returns the Region object for id.
func (m *Manager) Region(id uint32) *region.Region { return m.regions[id] }

// Threshold returns the configured low-clean-region-count watermark.
func (m *Manager) Threshold() int { return m.threshold }

// CleanLen reports how many regions are currently queued clean.
func (m *Manager) CleanLen() int { return len(m.clean) }

// AcquireCleanRegion blocks until a clean region is available or ctx ends.
// Draining the clean pool can take it below threshold, so this also wakes
// Watch subscribers (the reclaimer) the same as Release growing it does.
func (m *Manager) AcquireCleanRegion(ctx context.Context) (*region.Region, error) {
	started := time.Now()
	select {
	case id := <-m.clean:
		r := m.regions[id]
		r.SetState(region.Writing)
		m.notify()
		m.metrics.ObserveDuration(metrics.InnerOpDurationAcquireCleanRegion, time.Since(started))
		return r, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryAcquireCleanRegion returns a clean region without blocking.
func (m *Manager) TryAcquireCleanRegion() (*region.Region, bool) {
	select {
	case id := <-m.clean:
		r := m.regions[id]
		r.SetState(region.Writing)
		m.notify()
		return r, true
	default:
		return nil, false
	}
}

// SealAndRegisterEvictable transitions r to Sealed then Evictable and adds
// it to the eviction order. It does not notify Watch subscribers, since the
// clean pool is unchanged.
func (m *Manager) SealAndRegisterEvictable(r *region.Region) {
	r.SetState(region.Sealed)
	r.SetState(region.Evictable)
	m.policy.OnSeal(r.ID())
}

// EvictionPop asks the eviction policy for the next region to reclaim.
func (m *Manager) EvictionPop() (*region.Region, bool) {
	id, ok := m.policy.Pop()
	if !ok {
		return nil, false
	}
	return m.regions[id], true
}

// MarkFailed removes r from the eviction order (if present) and sets its
// state to Failed, taking it permanently out of the clean/evictable cycle.
func (m *Manager) MarkFailed(r *region.Region) {
	m.policy.Remove(r.ID())
	r.SetState(region.Failed)
}

// Release returns r to Clean and enqueues it for AcquireCleanRegion,
// waking any Watch subscribers.
func (m *Manager) Release(r *region.Region) {
	r.SetState(region.Clean)
	m.clean <- r.ID()
	m.notify()
}

// Watch returns a channel that receives one value each time CleanLen
// changes, whether the pool grew (Release) or drained (AcquireCleanRegion,
// TryAcquireCleanRegion). The caller should stop reading (let it be garbage
// collected) when no longer interested; Watch does not need an explicit
// unsubscribe because sends are non-blocking and dropped if the buffer is
// full.
func (m *Manager) Watch() <-chan struct{} {
	ch := make(chan struct{}, 1)
	m.mu.Lock()
	m.waiters = append(m.waiters, ch)
	m.mu.Unlock()
	return ch
}

func (m *Manager) notify() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.waiters {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
