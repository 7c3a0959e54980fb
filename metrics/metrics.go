// Package metrics defines the engine's instrumentation seam, grounded on
// original_source/foyer-storage/src/metrics.rs's named counters/histograms,
// generalized to a small interface so callers can wire their own exporter
// (Prometheus, OpenTelemetry, …) in place of the bundled Atomic/Noop
// implementations.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Counter and gauge names matching the engine's instrumentation contract.
const (
	OpBytesInsert   = "op_bytes_insert"
	OpBytesLookup   = "op_bytes_lookup"
	OpBytesFlush    = "op_bytes_flush"
	OpBytesReclaim  = "op_bytes_reclaim"
	OpBytesReinsert = "op_bytes_reinsert"
	TotalBytes      = "total_bytes"

	OpDurationInsertInserted = "op_duration_insert_inserted"
	OpDurationInsertFiltered = "op_duration_insert_filtered"
	OpDurationInsertDropped  = "op_duration_insert_dropped"
	OpDurationLookupHit      = "op_duration_lookup_hit"
	OpDurationLookupMiss     = "op_duration_lookup_miss"
	OpDurationRemove         = "op_duration_remove"

	SlowOpDurationFlush   = "slow_op_duration_flush"
	SlowOpDurationReclaim = "slow_op_duration_reclaim"

	InnerOpDurationAcquireCleanRegion = "inner_op_duration_acquire_clean_region"
	InnerOpDurationAcquireCleanBuffer = "inner_op_duration_acquire_clean_buffer"
)

// Metrics receives the engine's counters, gauges and duration
// observations. Implementations must be safe for concurrent use.
type Metrics interface {
	IncCounter(name string, delta int64)
	AddGauge(name string, delta int64)
	ObserveDuration(name string, d time.Duration)
}

// Noop discards every observation; the zero value is ready to use.
type Noop struct{}

func (Noop) IncCounter(string, int64)          {}
func (Noop) AddGauge(string, int64)            {}
func (Noop) ObserveDuration(string, time.Duration) {}

// Atomic accumulates counters and gauges in-process with atomic.Int64,
// useful for tests and for embedding behind a custom exporter; it keeps
// no history for durations beyond the last-observed value per name.
type Atomic struct {
	counters sync.Map // name -> *atomic.Int64
	gauges   sync.Map // name -> *atomic.Int64
	lastDur  sync.Map // name -> time.Duration (stored as int64 nanos via atomic.Int64)
}

func (a *Atomic) IncCounter(name string, delta int64) {
	v, _ := a.counters.LoadOrStore(name, new(atomic.Int64))
	v.(*atomic.Int64).Add(delta)
}

func (a *Atomic) AddGauge(name string, delta int64) {
	v, _ := a.gauges.LoadOrStore(name, new(atomic.Int64))
	v.(*atomic.Int64).Add(delta)
}

func (a *Atomic) ObserveDuration(name string, d time.Duration) {
	v, _ := a.lastDur.LoadOrStore(name, new(atomic.Int64))
	v.(*atomic.Int64).Store(int64(d))
}

// Counter returns the current value of a named counter.
func (a *Atomic) Counter(name string) int64 {
	v, ok := a.counters.Load(name)
	if !ok {
		return 0
	}
	return v.(*atomic.Int64).Load()
}

// Gauge returns the current value of a named gauge.
func (a *Atomic) Gauge(name string) int64 {
	v, ok := a.gauges.Load(name)
	if !ok {
		return 0
	}
	return v.(*atomic.Int64).Load()
}

// LastDuration returns the most recently observed duration for name.
func (a *Atomic) LastDuration(name string) time.Duration {
	v, ok := a.lastDur.Load(name)
	if !ok {
		return 0
	}
	return time.Duration(v.(*atomic.Int64).Load())
}
