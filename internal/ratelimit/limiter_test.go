package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUnlimitedAlwaysProbes(t *testing.T) {
	l := New(0)
	assert.True(t, l.Probe())
	l.Reduce(1e9)
	assert.True(t, l.Probe())
	assert.Equal(t, time.Duration(0), l.Consume(1e9))
}

func TestProbeAndReduceDrainBucket(t *testing.T) {
	l := New(10)
	assert.True(t, l.Probe())
	l.Reduce(10)
	assert.False(t, l.Probe())
}

func TestConsumeReportsWaitWhenOverdrawn(t *testing.T) {
	l := New(10)
	wait := l.Consume(20)
	assert.Greater(t, wait, time.Duration(0))
}

func TestConsumeNoWaitWithinBudget(t *testing.T) {
	l := New(10)
	wait := l.Consume(1)
	assert.Equal(t, time.Duration(0), wait)
}
