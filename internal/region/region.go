// Package region implements a single device region: its lifecycle state
// and the three-counter concurrency guard that lets readers overlap with
// an in-progress write that has not yet been flushed.
package region

import (
	"sync/atomic"
	"time"

	"github.com/sharedcode/embercache/device"
)

// State is a region's position in its lifecycle.
type State int32

const (
	// Clean regions carry no live data and accept no appends yet.
	Clean State = iota
	// Writing regions are the Flusher's current append target.
	Writing
	// Sealed regions are read-only, durably written, not yet registered
	// with the eviction order.
	Sealed
	// Evictable regions are Sealed and registered with the eviction
	// order; reclaim may select them.
	Evictable
	// Reclaiming is held only by the Reclaimer while it owns the region.
	Reclaiming
	// Failed marks a region whose flush hit a DeviceError: it is not
	// registered evictable and is left out of service until an operator
	// intervenes. Not one of the steady-state lifecycle states, but the
	// error-handling contract ("the region is marked failed") names a
	// distinct outcome from the five lifecycle states, so it gets its
	// own value here rather than overloading Writing.
	Failed
)

// Region is a fixed-size span of a Device, identified by a monotonic id.
type Region struct {
	id        uint32
	dev       device.Device
	state     atomic.Int32
	guard     *Guard
	sealedAt  atomic.Int64 // unix nanos of the last transition to Sealed; 0 if never sealed
}

// New creates a Region in the Clean state.
func New(id uint32, dev device.Device) *Region {
	r := &Region{id: id, dev: dev, guard: NewGuard()}
	r.state.Store(int32(Clean))
	return r
}

// ID returns the region's identifier.
func (r *Region) ID() uint32 { return r.id }

// Device returns the device this region lives on.
func (r *Region) Device() device.Device { return r.dev }

// State returns the region's current lifecycle state.
func (r *Region) State() State { return State(r.state.Load()) }

// SetState transitions the region. Callers (the Region Manager, the
// Flusher, the Reclaimer) serialize transitions themselves; Region does
// not arbitrate between concurrent SetState calls.
func (r *Region) SetState(s State) {
	r.state.Store(int32(s))
	if s == Sealed {
		r.sealedAt.Store(time.Now().UnixNano())
	}
}

// SealedAt returns the time the region last transitioned to Sealed, or the
// zero time.Time if it has never been sealed.
func (r *Region) SealedAt() time.Time {
	ns := r.sealedAt.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Shared acquires the guard for a reader or writer of the given kind.
// Release the returned token when done.
func (r *Region) Shared(kind Kind) *SharedToken { return r.guard.Shared(kind) }

// Exclusive blocks until the selected counters drop to zero, then returns
// a token that blocks new Shared acquisitions until released. Used by the
// Reclaimer to fence off in-flight readers/writers before scanning/zeroing
// a region, and by the Flusher to wait out buffered-readers before
// returning a flushed buffer to the pool.
func (r *Region) Exclusive(waitWriters, waitBuffered, waitPhysical bool) *ExclusiveToken {
	return r.guard.Exclusive(waitWriters, waitBuffered, waitPhysical)
}
