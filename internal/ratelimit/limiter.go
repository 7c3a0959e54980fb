// Package ratelimit implements a small token-bucket shared by the rated
// ticket admission policy (non-blocking probe) and the reclaimer's
// rate-limited reinsertion (blocking consume), grounded on
// original_source/foyer-storage/src/admission/rated_ticket.rs's
// probe()/reduce() pair.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a token bucket refilled continuously at rate units/second, up
// to a capacity equal to rate (one second's worth of burst).
type Limiter struct {
	mu       sync.Mutex
	rate     float64
	capacity float64
	tokens   float64
	last     time.Time
}

// New returns a Limiter allowing up to rate units/second. rate <= 0 means
// unlimited: Probe always succeeds and Consume never waits.
func New(rate float64) *Limiter {
	return &Limiter{rate: rate, capacity: rate, tokens: rate, last: time.Now()}
}

func (l *Limiter) refillLocked() {
	if l.rate <= 0 {
		return
	}
	now := time.Now()
	elapsed := now.Sub(l.last).Seconds()
	l.tokens += elapsed * l.rate
	if l.tokens > l.capacity {
		l.tokens = l.capacity
	}
	l.last = now
}

// Probe reports whether a token is currently available, without debiting.
// Used by admission policies, which must never block the foreground path.
func (l *Limiter) Probe() bool {
	if l == nil || l.rate <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refillLocked()
	return l.tokens >= 1
}

// Reduce debits weight tokens, possibly driving the balance negative
// (a debt that must drain before Probe succeeds again).
func (l *Limiter) Reduce(weight float64) {
	if l == nil || l.rate <= 0 {
		return
	}
	l.mu.Lock()
	l.tokens -= weight
	l.mu.Unlock()
}

// Consume debits weight tokens and returns how long the caller should wait
// for the resulting debt (if any) to drain, or zero if no wait is required.
// Used by the reclaimer to throttle reinsertion bandwidth.
func (l *Limiter) Consume(weight float64) time.Duration {
	if l == nil || l.rate <= 0 {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refillLocked()
	l.tokens -= weight
	if l.tokens >= 0 {
		return 0
	}
	wait := -l.tokens / l.rate
	return time.Duration(wait * float64(time.Second))
}
