package embercache

import (
	"time"

	"github.com/sharedcode/embercache/codec"
	"github.com/sharedcode/embercache/device"
	"github.com/sharedcode/embercache/evict"
	"github.com/sharedcode/embercache/metrics"
	"github.com/sharedcode/embercache/policy"
)

// Options configures a Store. Construct with NewOptions and the With*
// functional options below.
type Options[K comparable, V any] struct {
	Device device.Device

	KeyCodec   codec.Codec[K]
	ValueCodec codec.Codec[V]
	KeyBytes   func(K) []byte

	Admissions   []policy.AdmissionPolicy[K]
	Reinsertions []policy.ReinsertionPolicy[K]
	EvictPolicy  evict.Policy

	Metrics metrics.Metrics

	BufferCount          int
	CleanRegionThreshold int
	ReclaimRate          float64 // weight units/second; <= 0 means unlimited
	SkippableWait        time.Duration
	MaxFlushRetries      uint64
}

// Option mutates an Options value.
type Option[K comparable, V any] func(*Options[K, V])

// NewOptions returns an Options with the given mandatory Device,
// key/value codecs and key-to-bytes function, plus defaults: a FIFO
// evict.Policy, a Noop metrics.Metrics, no admission/reinsertion
// policies, a clean-region threshold of one region, a two-buffer write
// pool, unlimited reclaim rate, a 50ms skippable wait, and five flush
// retries.
func NewOptions[K comparable, V any](dev device.Device, keyCodec codec.Codec[K], valueCodec codec.Codec[V], keyBytes func(K) []byte) *Options[K, V] {
	return &Options[K, V]{
		Device:               dev,
		KeyCodec:             keyCodec,
		ValueCodec:           valueCodec,
		KeyBytes:             keyBytes,
		EvictPolicy:          evict.NewFIFO(),
		Metrics:              metrics.Noop{},
		BufferCount:          2,
		CleanRegionThreshold: 1,
		SkippableWait:        50 * time.Millisecond,
		MaxFlushRetries:      5,
	}
}

func WithAdmission[K comparable, V any](p policy.AdmissionPolicy[K]) Option[K, V] {
	return func(o *Options[K, V]) { o.Admissions = append(o.Admissions, p) }
}

func WithReinsertion[K comparable, V any](p policy.ReinsertionPolicy[K]) Option[K, V] {
	return func(o *Options[K, V]) { o.Reinsertions = append(o.Reinsertions, p) }
}

func WithEvictPolicy[K comparable, V any](p evict.Policy) Option[K, V] {
	return func(o *Options[K, V]) { o.EvictPolicy = p }
}

func WithMetrics[K comparable, V any](m metrics.Metrics) Option[K, V] {
	return func(o *Options[K, V]) { o.Metrics = m }
}

func WithBufferCount[K comparable, V any](n int) Option[K, V] {
	return func(o *Options[K, V]) { o.BufferCount = n }
}

func WithCleanRegionThreshold[K comparable, V any](n int) Option[K, V] {
	return func(o *Options[K, V]) { o.CleanRegionThreshold = n }
}

func WithReclaimRate[K comparable, V any](weightPerSecond float64) Option[K, V] {
	return func(o *Options[K, V]) { o.ReclaimRate = weightPerSecond }
}

func WithSkippableWait[K comparable, V any](d time.Duration) Option[K, V] {
	return func(o *Options[K, V]) { o.SkippableWait = d }
}

func (o *Options[K, V]) apply(opts ...Option[K, V]) *Options[K, V] {
	for _, opt := range opts {
		opt(o)
	}
	return o
}
