// Package bufferpool bounds the number of in-flight region-sized write
// buffers, so a burst of seals can't grow memory without limit while
// flushes drain to the device.
package bufferpool

import (
	"context"
	"time"

	"github.com/sharedcode/embercache/device"
	"github.com/sharedcode/embercache/metrics"
)

// Pool hands out aligned, region-sized buffers sourced from a Device, and
// blocks Acquire once bufferCount buffers are checked out.
type Pool struct {
	dev     device.Device
	size    int
	sem     chan []byte
	metrics metrics.Metrics
}

// New creates a Pool of bufferCount buffers, each device.RegionSize()
// bytes, preallocated via dev.IOBuffer so they satisfy the device's
// alignment requirement up front.
func New(dev device.Device, bufferCount int, m metrics.Metrics) *Pool {
	p := &Pool{dev: dev, size: dev.RegionSize(), sem: make(chan []byte, bufferCount), metrics: m}
	for i := 0; i < bufferCount; i++ {
		p.sem <- dev.IOBuffer(p.size, p.size)
	}
	return p
}

// Acquire blocks until a buffer is available or ctx is done, returning it
// zeroed and ready to append into from offset zero.
func (p *Pool) Acquire(ctx context.Context) ([]byte, error) {
	started := time.Now()
	select {
	case buf := <-p.sem:
		clear(buf)
		p.metrics.ObserveDuration(metrics.InnerOpDurationAcquireCleanBuffer, time.Since(started))
		return buf, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryAcquire returns a buffer without blocking, or ok=false if none are
// free.
func (p *Pool) TryAcquire() (buf []byte, ok bool) {
	select {
	case buf := <-p.sem:
		clear(buf)
		return buf, true
	default:
		return nil, false
	}
}

// Release returns buf to the pool. buf must have been obtained from this
// Pool and not retained by the caller afterward.
func (p *Pool) Release(buf []byte) {
	p.sem <- buf[:p.size]
}

// Len reports the number of buffers currently checked in.
func (p *Pool) Len() int { return len(p.sem) }

// Cap reports the pool's total buffer count.
func (p *Pool) Cap() int { return cap(p.sem) }
