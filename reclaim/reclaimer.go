// Package reclaim implements the background reclaimer loop: pick the next
// evictable region, fence off in-flight access, optionally reinsert its
// still-wanted entries into a fresh region, zero its trailer, and return
// it to the clean pool. Grounded line-for-line on
// original_source/foyer-storage/src/reclaimer.rs.
package reclaim

import (
	"context"
	"log/slog"
	"time"

	"github.com/sharedcode/embercache/codec"
	"github.com/sharedcode/embercache/internal/catalog"
	"github.com/sharedcode/embercache/internal/ratelimit"
	"github.com/sharedcode/embercache/internal/region"
	"github.com/sharedcode/embercache/internal/regionmanager"
	"github.com/sharedcode/embercache/internal/wire"
	"github.com/sharedcode/embercache/metrics"
	"github.com/sharedcode/embercache/policy"
)

// ReinsertFunc performs a foreground-equivalent insert of key/value
// during reclaim, returning whether it was actually written (false means
// no clean region/buffer was available in time, and the reinsertion pass
// must stop to protect foreground inserts, per the original's step-2
// early-return contract).
type ReinsertFunc[K comparable, V any] func(ctx context.Context, key K, value V, weight int) (bool, error)

// Reclaimer drives the reclaim loop for one Store.
type Reclaimer[K comparable, V any] struct {
	threshold    int
	mgr          *regionmanager.Manager
	cat          *catalog.Catalog[K]
	reinsertions []policy.ReinsertionPolicy[K]
	limiter      *ratelimit.Limiter
	metrics      metrics.Metrics
	keyCodec     codec.Codec[K]
	valueCodec   codec.Codec[V]
	reinsert     ReinsertFunc[K, V]
	log          *slog.Logger
}

// New constructs a Reclaimer. threshold is the clean-region count below
// which handleOnce actually reclaims (at or above threshold, handleOnce
// is a no-op, matching the original's early return).
func New[K comparable, V any](
	threshold int,
	mgr *regionmanager.Manager,
	cat *catalog.Catalog[K],
	reinsertions []policy.ReinsertionPolicy[K],
	limiter *ratelimit.Limiter,
	m metrics.Metrics,
	keyCodec codec.Codec[K],
	valueCodec codec.Codec[V],
	reinsert ReinsertFunc[K, V],
) *Reclaimer[K, V] {
	return &Reclaimer[K, V]{
		threshold:    threshold,
		mgr:          mgr,
		cat:          cat,
		reinsertions: reinsertions,
		limiter:      limiter,
		metrics:      m,
		keyCodec:     keyCodec,
		valueCodec:   valueCodec,
		reinsert:     reinsert,
		log:          slog.Default().With("component", "reclaimer"),
	}
}

// Run drives the reclaim loop until stop is closed or ctx is done. Go has
// no biased select; the non-blocking pre-check on stop before the real
// select emulates tokio::select!'s "biased" stop-takes-priority behavior
// so a continuously-signaled watch channel can't starve shutdown.
func (r *Reclaimer[K, V]) Run(ctx context.Context, stop <-chan struct{}) error {
	watch := r.mgr.Watch()
	for {
		select {
		case <-stop:
			r.log.Info("exit")
			return nil
		default:
		}
		select {
		case <-stop:
			r.log.Info("exit")
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-watch:
			if err := r.handleOnce(ctx); err != nil {
				r.log.Warn("reclaim handle error", "error", err)
			}
		}
	}
}

func (r *Reclaimer[K, V]) handleOnce(ctx context.Context) error {
	if r.mgr.CleanLen() >= r.threshold {
		return nil
	}

	var reg *region.Region
	for {
		if rr, ok := r.mgr.EvictionPop(); ok {
			reg = rr
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}

	reg.SetState(region.Reclaiming)
	started := time.Now()
	regionID := reg.ID()

	// step 1: drop indices so no Lookup can resolve into this region
	// once the exclusive fence below drains any already-resolved access.
	r.cat.TakeRegion(regionID)

	// after dropping indices, wait out every writer, buffered-reader, and
	// physical-reader already in flight before reusing the region's bytes.
	excl := reg.Exclusive(true, true, true)
	excl.Release()

	// step 2: reinsertion pass, skipped entirely if no policies are
	// configured.
	if len(r.reinsertions) > 0 {
		complete, err := r.reinsertPass(ctx, reg)
		if err != nil {
			r.log.Warn("reinsert region error", "region", regionID, "error", err)
		} else if !complete {
			r.log.Info("reinsertion skipped", "region", regionID)
		} else {
			r.log.Info("reinsertion finished", "region", regionID)
		}
	}

	// step 3: zero the trailer sentinel. readEntries always scans a region
	// starting at offset zero and stops at the first header that fails to
	// decode, so zeroing block zero hides every entry behind it
	// transitively - there is no need for a separately reserved final
	// block, since nothing ever resumes a scan mid-region.
	dev := reg.Device()
	align := dev.Align()
	zero := dev.IOBuffer(align, align)
	if err := dev.Write(ctx, zero, regionID, 0); err != nil {
		return err
	}

	// step 4: return to the clean pool.
	r.mgr.Release(reg)

	r.metrics.IncCounter(metrics.OpBytesReclaim, int64(dev.RegionSize()))
	r.metrics.AddGauge(metrics.TotalBytes, -int64(dev.RegionSize()))
	r.metrics.ObserveDuration(metrics.SlowOpDurationReclaim, time.Since(started))
	r.log.Info("reclaim finished", "region", regionID)
	return nil
}

// reinsertPass walks the entries decoded from reg's device span and offers
// each to the reinsertion policies, then (if admitted) to the reinsert
// function, which writes with skippable semantics (see ReinsertFunc). It
// returns complete=false if an admitted
// reinsertion couldn't actually be written (no buffer/region available),
// matching the original's contract that reclaim must yield to foreground
// inserts rather than block behind them.
func (r *Reclaimer[K, V]) reinsertPass(ctx context.Context, reg *region.Region) (bool, error) {
	entries, err := readEntries(ctx, reg, r.keyCodec, r.valueCodec)
	if err != nil {
		return false, err
	}

	for _, e := range entries {
		weight := r.keyCodec.Len(e.key) + r.valueCodec.Len(e.value)

		aggregate, verdicts := policy.JudgeAll[K](judgeSlice(r.reinsertions), e.key, weight, r.metrics)
		if !aggregate {
			policy.NotifyAll[K](judgeSlice(r.reinsertions), e.key, weight, r.metrics, verdicts, false)
			continue
		}

		if r.limiter != nil {
			if wait := r.limiter.Consume(float64(weight)); wait > 0 {
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					return false, ctx.Err()
				}
			}
		}

		wrote, err := r.reinsert(ctx, e.key, e.value, weight)
		if err != nil {
			return false, err
		}
		if !wrote {
			policy.NotifyAll[K](judgeSlice(r.reinsertions), e.key, weight, r.metrics, verdicts, false)
			return false, nil
		}
		policy.NotifyAll[K](judgeSlice(r.reinsertions), e.key, weight, r.metrics, verdicts, true)
		r.metrics.IncCounter(metrics.OpBytesReinsert, int64(weight))
	}
	return true, nil
}

func judgeSlice[K comparable](policies []policy.ReinsertionPolicy[K]) []policy.Judge[K] {
	out := make([]policy.Judge[K], len(policies))
	for i, p := range policies {
		out[i] = p
	}
	return out
}

type decodedEntry[K comparable, V any] struct {
	key   K
	value V
}

// readEntries reads reg's whole device span and decodes its sequential
// entries up to the first trailer (a header whose magic does not match,
// including an all-zero block).
func readEntries[K comparable, V any](ctx context.Context, reg *region.Region, keyCodec codec.Codec[K], valueCodec codec.Codec[V]) ([]decodedEntry[K, V], error) {
	dev := reg.Device()
	raw, err := dev.Read(ctx, reg.ID(), 0, dev.RegionSize())
	if err != nil {
		return nil, err
	}

	var out []decodedEntry[K, V]
	offset := 0
	for offset+wire.HeaderSize <= len(raw) {
		h, ok := wire.Decode(raw[offset:])
		if !ok {
			break
		}
		start := offset + wire.HeaderSize
		keyBuf := raw[start : start+int(h.KeyLen)]
		valueBuf := raw[start+int(h.KeyLen) : start+int(h.KeyLen)+int(h.ValueLen)]
		if !wire.Verify(h, keyBuf, valueBuf) {
			break
		}
		out = append(out, decodedEntry[K, V]{key: keyCodec.Read(keyBuf), value: valueCodec.Read(valueBuf)})
		entryLen := wire.HeaderSize + int(h.KeyLen) + int(h.ValueLen)
		offset += wire.AlignUp(entryLen, dev.Align())
	}
	return out, nil
}
