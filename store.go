package embercache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sharedcode/embercache/internal/bufferpool"
	"github.com/sharedcode/embercache/internal/catalog"
	"github.com/sharedcode/embercache/internal/ratelimit"
	"github.com/sharedcode/embercache/internal/region"
	"github.com/sharedcode/embercache/internal/regionmanager"
	"github.com/sharedcode/embercache/internal/taskrunner"
	"github.com/sharedcode/embercache/internal/wire"
	"github.com/sharedcode/embercache/internal/writer"
	"github.com/sharedcode/embercache/metrics"
	"github.com/sharedcode/embercache/policy"
	"github.com/sharedcode/embercache/reclaim"
)

// Store is a hybrid in-memory and on-disk key-value cache: inserts are
// appended into the current region buffer and flushed asynchronously;
// lookups resolve through the catalog straight to a region offset.
type Store[K comparable, V any] struct {
	opts    *Options[K, V]
	mgr     *regionmanager.Manager
	pool    *bufferpool.Pool
	cat     *catalog.Catalog[K]
	runner  *taskrunner.Runner
	flusher *writer.Flusher[K, V]
	reclaim *reclaim.Reclaimer[K, V]

	seq    atomic.Uint64
	stopCh chan struct{}
	closed atomic.Bool
}

// Open creates a Store over opts.Device, starting every region clean and
// launching the background flush-task runner and reclaimer loop.
func Open[K comparable, V any](ctx context.Context, opts *Options[K, V], extra ...Option[K, V]) (*Store[K, V], error) {
	opts.apply(extra...)

	mgr := regionmanager.New(opts.Device, opts.EvictPolicy, opts.CleanRegionThreshold, opts.Metrics)
	mgr.SeedClean()

	pool := bufferpool.New(opts.Device, opts.BufferCount, opts.Metrics)
	cat := catalog.New[K](opts.KeyBytes)
	runner := taskrunner.New(ctx, 0)

	s := &Store[K, V]{
		opts:   opts,
		mgr:    mgr,
		pool:   pool,
		cat:    cat,
		runner: runner,
		stopCh: make(chan struct{}),
	}
	s.flusher = writer.New[K, V](mgr, pool, cat, runner, opts.Device, func() uint64 { return s.seq.Add(1) }, opts.MaxFlushRetries, opts.Metrics)

	for _, p := range opts.Reinsertions {
		p.Init(func(k K) bool {
			_, ok := cat.Lookup(k)
			return ok
		})
	}

	var limiter *ratelimit.Limiter
	if opts.ReclaimRate > 0 {
		limiter = ratelimit.New(opts.ReclaimRate)
	}
	s.reclaim = reclaim.New[K, V](
		opts.CleanRegionThreshold,
		mgr, cat, opts.Reinsertions, limiter, opts.Metrics,
		opts.KeyCodec, opts.ValueCodec,
		func(ctx context.Context, key K, value V, weight int) (bool, error) {
			return s.insertSkippable(ctx, key, value, weight)
		},
	)
	go func() {
		_ = s.reclaim.Run(ctx, s.stopCh)
	}()

	return s, nil
}

// Insert admits and writes key/value if every configured admission
// policy agrees, blocking until the entry's buffer has been durably
// flushed (or the flush has failed). It returns false, nil if admission
// filtered the entry, and false, err if a DeviceError prevented the write
// from completing.
func (s *Store[K, V]) Insert(ctx context.Context, key K, value V) (bool, error) {
	if s.closed.Load() {
		return false, ErrStopped
	}
	started := time.Now()
	weight := s.opts.KeyCodec.Len(key) + s.opts.ValueCodec.Len(value)

	admissions := judgeSliceAdmission(s.opts.Admissions)
	aggregate, verdicts := policy.JudgeAll[K](admissions, key, weight, s.opts.Metrics)
	if !aggregate {
		policy.NotifyAll[K](admissions, key, weight, s.opts.Metrics, verdicts, false)
		s.opts.Metrics.ObserveDuration(metrics.OpDurationInsertFiltered, time.Since(started))
		return false, nil
	}

	wrote, err := s.write(ctx, key, value, weight)
	if err != nil {
		policy.NotifyAll[K](admissions, key, weight, s.opts.Metrics, verdicts, false)
		return false, err
	}
	policy.NotifyAll[K](admissions, key, weight, s.opts.Metrics, verdicts, wrote)
	if wrote {
		s.opts.Metrics.IncCounter(metrics.OpBytesInsert, int64(weight))
		s.opts.Metrics.ObserveDuration(metrics.OpDurationInsertInserted, time.Since(started))
	} else {
		s.opts.Metrics.ObserveDuration(metrics.OpDurationInsertDropped, time.Since(started))
	}
	return wrote, nil
}

// insertSkippable is the reclaim-path equivalent of Insert: admission
// policies are not re-run (reinsertion already ran its own policies), and
// a buffer/region acquisition timeout returns false, nil instead of
// blocking, so the reclaimer yields to foreground traffic.
func (s *Store[K, V]) insertSkippable(ctx context.Context, key K, value V, weight int) (bool, error) {
	if s.opts.SkippableWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.SkippableWait)
		defer cancel()
	}
	wrote, err := s.write(ctx, key, value, weight)
	if err != nil && ctx.Err() != nil {
		return false, nil
	}
	return wrote, err
}

func (s *Store[K, V]) write(ctx context.Context, key K, value V, weight int) (bool, error) {
	keyLen := s.opts.KeyCodec.Len(key)
	valueLen := s.opts.ValueCodec.Len(value)

	regionID, offset, sequence, done, errOut, err := s.flusher.Reserve(
		ctx, key, keyLen, func(buf []byte) { s.opts.KeyCodec.Write(key, buf) },
		value, valueLen, func(buf []byte) { s.opts.ValueCodec.Write(value, buf) },
	)
	if err != nil {
		return false, err
	}

	select {
	case <-done:
	case <-ctx.Done():
		return false, ctx.Err()
	}
	if *errOut != nil {
		return false, &Error{Code: DeviceIOError, Err: *errOut}
	}

	s.cat.Insert(key, catalog.Entry{RegionID: regionID, Offset: offset, Length: keyLen + valueLen, Sequence: sequence})
	return true, nil
}

// Lookup returns key's value, reading from the Flusher's retained
// in-memory buffer if still available, else from the device.
func (s *Store[K, V]) Lookup(ctx context.Context, key K) (V, bool, error) {
	var zero V
	started := time.Now()
	entry, ok := s.cat.Lookup(key)
	if !ok {
		s.opts.Metrics.ObserveDuration(metrics.OpDurationLookupMiss, time.Since(started))
		return zero, false, nil
	}

	reg := s.mgr.Region(entry.RegionID)

	// Holding the buffered-reader token for the duration of the check
	// keeps the Flusher's post-flush cleanup fence (which waits out
	// exactly this counter) from dropping the retained buffer out from
	// under us between BufferedRead's lookup and its use.
	bufTok := reg.Shared(region.KindBufferedReader)
	if buf, ok := s.flusher.BufferedRead(entry.RegionID); ok {
		h, hok := wire.Decode(buf[entry.Offset:])
		if hok {
			keyBuf := buf[int(entry.Offset)+wire.HeaderSize : int(entry.Offset)+wire.HeaderSize+int(h.KeyLen)]
			valueBuf := buf[int(entry.Offset)+wire.HeaderSize+int(h.KeyLen) : int(entry.Offset)+wire.HeaderSize+int(h.KeyLen)+int(h.ValueLen)]
			if wire.Verify(h, keyBuf, valueBuf) {
				bufTok.Release()
				s.opts.Metrics.ObserveDuration(metrics.OpDurationLookupHit, time.Since(started))
				return s.opts.ValueCodec.Read(valueBuf), true, nil
			}
		}
	}
	bufTok.Release()

	tok := reg.Shared(region.KindPhysicalReader)
	defer tok.Release()

	dev := reg.Device()
	header, err := dev.Read(ctx, entry.RegionID, entry.Offset, wire.HeaderSize)
	if err != nil {
		return zero, false, &Error{Code: DeviceIOError, Err: err}
	}
	h, hok := wire.Decode(header)
	if !hok {
		return zero, false, &Error{Code: ChecksumMismatch, Err: ErrChecksum}
	}
	rest, err := dev.Read(ctx, entry.RegionID, entry.Offset+wire.HeaderSize, int(h.KeyLen)+int(h.ValueLen))
	if err != nil {
		return zero, false, &Error{Code: DeviceIOError, Err: err}
	}
	keyBuf := rest[:h.KeyLen]
	valueBuf := rest[h.KeyLen:]
	if !wire.Verify(h, keyBuf, valueBuf) {
		return zero, false, &Error{Code: ChecksumMismatch, Err: ErrChecksum}
	}
	s.opts.Metrics.IncCounter(metrics.OpBytesLookup, int64(len(rest)))
	s.opts.Metrics.ObserveDuration(metrics.OpDurationLookupHit, time.Since(started))
	return s.opts.ValueCodec.Read(valueBuf), true, nil
}

// Remove drops key's catalog entry, if present, without reclaiming the
// space it occupies (that happens when the region holding it is
// reclaimed).
func (s *Store[K, V]) Remove(ctx context.Context, key K) bool {
	started := time.Now()
	removed := s.cat.Remove(key)
	s.opts.Metrics.ObserveDuration(metrics.OpDurationRemove, time.Since(started))
	return removed
}

// Stats reports the current clean-region count and total live catalog
// entries.
type Stats struct {
	CleanRegions int
	LiveEntries  int
}

func (s *Store[K, V]) Stats() Stats {
	return Stats{CleanRegions: s.mgr.CleanLen(), LiveEntries: s.cat.Len()}
}

// Close force-seals any open write buffer, stops the reclaimer, waits for
// outstanding flush tasks, and closes the device.
func (s *Store[K, V]) Close(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(s.stopCh)
	if err := s.flusher.Seal(ctx); err != nil {
		return err
	}
	if err := s.runner.Wait(); err != nil {
		return err
	}
	return s.opts.Device.Close()
}

func judgeSliceAdmission[K comparable](policies []policy.AdmissionPolicy[K]) []policy.Judge[K] {
	out := make([]policy.Judge[K], len(policies))
	for i, p := range policies {
		out[i] = p
	}
	return out
}
