package policy

import (
	"github.com/sharedcode/embercache/internal/ratelimit"
	"github.com/sharedcode/embercache/metrics"
)

// RatedTicket admits up to rate weight-units/second, grounded on
// original_source/foyer-storage/src/admission/rated_ticket.rs: Judge
// probes the bucket without debiting, OnInsert debits weight, OnDrop is a
// no-op (a dropped entry never cost any bandwidth).
type RatedTicket[K comparable] struct {
	limiter *ratelimit.Limiter
}

// NewRatedTicket returns a RatedTicket admitting up to rate weight-units
// per second.
func NewRatedTicket[K comparable](rate float64) *RatedTicket[K] {
	return &RatedTicket[K]{limiter: ratelimit.New(rate)}
}

func (p *RatedTicket[K]) Judge(key K, weight int, m metrics.Metrics) bool {
	return p.limiter.Probe()
}

func (p *RatedTicket[K]) OnInsert(key K, weight int, m metrics.Metrics, verdict bool) {
	p.limiter.Reduce(float64(weight))
}

func (p *RatedTicket[K]) OnDrop(key K, weight int, m metrics.Metrics, verdict bool) {}
