// Package writer implements the Flusher: the single active write target
// for a Store, serializing entries into a region buffer, sealing and
// flushing full buffers to the device, and publishing successful flushes
// to the catalog.
package writer

import (
	"context"
	"sync"
	"time"

	"github.com/sharedcode/embercache/device"
	"github.com/sharedcode/embercache/internal/bufferpool"
	"github.com/sharedcode/embercache/internal/catalog"
	"github.com/sharedcode/embercache/internal/region"
	"github.com/sharedcode/embercache/internal/regionmanager"
	"github.com/sharedcode/embercache/internal/retry"
	"github.com/sharedcode/embercache/internal/taskrunner"
	"github.com/sharedcode/embercache/internal/wire"
	"github.com/sharedcode/embercache/metrics"
)

// generation tracks one in-flight buffer from first append through flush
// completion, so callers blocked in Finish can be released exactly once
// the bytes they appended are durable (or the flush has failed).
type generation struct {
	done chan struct{}
	err  error
}

// Flusher owns the current write target: one region plus the in-memory
// buffer being appended into before it is sealed and handed to the
// background flush task.
type Flusher[K comparable, V any] struct {
	mgr             *regionmanager.Manager
	pool            *bufferpool.Pool
	cat             *catalog.Catalog[K]
	runner          *taskrunner.Runner
	seqGen          func() uint64
	dev             device.Device
	maxFlushRetries uint64
	metrics         metrics.Metrics

	mu     sync.Mutex
	region *region.Region
	buf    []byte
	cursor int
	gen    *generation

	// flushedBuffers retains a just-flushed buffer briefly so Lookup can
	// be served from memory instead of re-reading the device while the
	// guard still reports outstanding buffered-readers.
	flushedMu      sync.Mutex
	flushedBuffers map[uint32][]byte
}

// New creates a Flusher with no active region; the first Reserve call
// acquires one.
func New[K comparable, V any](mgr *regionmanager.Manager, pool *bufferpool.Pool, cat *catalog.Catalog[K], runner *taskrunner.Runner, dev device.Device, seqGen func() uint64, maxFlushRetries uint64, m metrics.Metrics) *Flusher[K, V] {
	return &Flusher[K, V]{
		mgr:             mgr,
		pool:            pool,
		cat:             cat,
		runner:          runner,
		seqGen:          seqGen,
		dev:             dev,
		maxFlushRetries: maxFlushRetries,
		metrics:         m,
		flushedBuffers:  make(map[uint32][]byte),
	}
}

// Reserve serializes key/value into the current buffer (sealing and
// flushing the prior one and acquiring a fresh region first if it does
// not fit), and returns the sequence assigned plus a done channel closed
// once that buffer's flush completes (nil error) or fails (non-nil err,
// readable via the returned error pointer after done closes).
func (f *Flusher[K, V]) Reserve(ctx context.Context, key K, keyCodecLen int, writeKey func([]byte), value V, valueCodecLen int, writeValue func([]byte)) (regionID uint32, offset int64, sequence uint64, done <-chan struct{}, errOut *error, err error) {
	entryLen := wire.HeaderSize + keyCodecLen + valueCodecLen
	aligned := wire.AlignUp(entryLen, f.dev.Align())

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.region == nil || f.cursor+aligned > len(f.buf) {
		if err := f.sealAndFlushLocked(ctx); err != nil {
			return 0, 0, 0, nil, nil, err
		}
		if err := f.acquireRegionLocked(ctx); err != nil {
			return 0, 0, 0, nil, nil, err
		}
	}
	if f.cursor+aligned > len(f.buf) {
		return 0, 0, 0, nil, nil, &regionTooSmallError{need: aligned, have: len(f.buf)}
	}

	seq := f.seqGen()
	entrySlice := f.buf[f.cursor : f.cursor+entryLen]
	keyOff := wire.HeaderSize
	keyBuf := entrySlice[keyOff : keyOff+keyCodecLen]
	valueBuf := entrySlice[keyOff+keyCodecLen : keyOff+keyCodecLen+valueCodecLen]
	writeKey(keyBuf)
	writeValue(valueBuf)
	wire.Encode(entrySlice, keyBuf, valueBuf, seq)

	off := int64(f.cursor)
	rid := f.region.ID()
	f.cursor += aligned
	return rid, off, seq, f.gen.done, &f.gen.err, nil
}

// acquireRegionLocked must be called with mu held and f.region == nil.
func (f *Flusher[K, V]) acquireRegionLocked(ctx context.Context) error {
	r, err := f.mgr.AcquireCleanRegion(ctx)
	if err != nil {
		return err
	}
	buf, err := f.pool.Acquire(ctx)
	if err != nil {
		f.mgr.Release(r)
		return err
	}
	f.region = r
	f.buf = buf
	f.cursor = 0
	f.gen = &generation{done: make(chan struct{})}
	return nil
}

// Seal force-flushes the current buffer, used by Store.Close to avoid
// leaving a partial buffer undurable.
func (f *Flusher[K, V]) Seal(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sealAndFlushLocked(ctx)
}

// sealAndFlushLocked must be called with mu held. It is a no-op if there
// is no active region.
func (f *Flusher[K, V]) sealAndFlushLocked(ctx context.Context) error {
	if f.region == nil {
		return nil
	}
	r := f.region
	buf := f.buf
	gen := f.gen
	length := f.cursor
	f.region = nil
	f.buf = nil
	f.cursor = 0
	f.gen = nil

	r.SetState(region.Sealed)

	f.runner.Go(func() error {
		started := time.Now()
		flushErr := retry.Device(f.runner.Context(), time.Millisecond, f.maxFlushRetries, func(ctx context.Context) error {
			return r.Device().Write(ctx, buf[:length], r.ID(), 0)
		})
		if flushErr != nil {
			gen.err = flushErr
			close(gen.done)
			f.mgr.MarkFailed(r)
			f.pool.Release(buf)
			return nil
		}
		f.metrics.IncCounter(metrics.OpBytesFlush, int64(length))
		f.metrics.ObserveDuration(metrics.SlowOpDurationFlush, time.Since(started))
		f.cacheFlushedBuffer(r.ID(), buf)
		close(gen.done)
		f.mgr.SealAndRegisterEvictable(r)
		// Drop the retained in-memory copy once no buffered-reader can
		// still be reading it; the exclusive fence here only waits out
		// KindBufferedReader, leaving writers/physical readers of other
		// regions unaffected.
		go func() {
			tok := r.Exclusive(false, true, false)
			tok.Release()
			f.DropBufferedRead(r.ID())
		}()
		return nil
	})
	return nil
}

func (f *Flusher[K, V]) cacheFlushedBuffer(regionID uint32, buf []byte) {
	f.flushedMu.Lock()
	f.flushedBuffers[regionID] = buf
	f.flushedMu.Unlock()
}

// BufferedRead returns the in-memory flushed buffer for regionID, if this
// Flusher still retains one, serving Lookup without a device read.
func (f *Flusher[K, V]) BufferedRead(regionID uint32) ([]byte, bool) {
	f.flushedMu.Lock()
	defer f.flushedMu.Unlock()
	buf, ok := f.flushedBuffers[regionID]
	return buf, ok
}

// DropBufferedRead releases the retained flushed buffer for regionID back
// to the pool, called once the region's Exclusive fence confirms no
// buffered-readers remain outstanding.
func (f *Flusher[K, V]) DropBufferedRead(regionID uint32) {
	f.flushedMu.Lock()
	buf, ok := f.flushedBuffers[regionID]
	if ok {
		delete(f.flushedBuffers, regionID)
	}
	f.flushedMu.Unlock()
	if ok {
		f.pool.Release(buf)
	}
}

type regionTooSmallError struct {
	need, have int
}

func (e *regionTooSmallError) Error() string {
	return "writer: entry too large for a region buffer"
}
