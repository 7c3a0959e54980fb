// Package embercache implements a hybrid in-memory and on-disk key-value
// cache: a fixed grid of fixed-size regions on a Device, written
// sequentially by a single Flusher, indexed by a sharded Catalog, and
// reclaimed in the background by a Reclaimer that can optionally reinsert
// still-wanted entries into a fresh region before a region is recycled.
//
// Admission and reinsertion are governed by pluggable policy.Judge
// implementations (see package policy), eviction order by a pluggable
// evict.Policy (see package evict), and durability by a pluggable
// device.Device (see package device, which also ships FileDevice and
// MemDevice).
package embercache

// Timeout model
//
// Every blocking Store operation takes a context.Context, whose deadline
// or cancellation propagates to the device I/O and region-acquisition
// waits underneath it. There is no separate internal timeout layer:
// callers that want a bound on an insert or lookup set it on the context
// they pass in.
