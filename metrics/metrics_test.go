package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAtomicCounterAccumulates(t *testing.T) {
	m := &Atomic{}
	m.IncCounter(OpBytesInsert, 10)
	m.IncCounter(OpBytesInsert, 5)
	assert.Equal(t, int64(15), m.Counter(OpBytesInsert))
	assert.Equal(t, int64(0), m.Counter("unused"))
}

func TestAtomicGaugeCanGoNegative(t *testing.T) {
	m := &Atomic{}
	m.AddGauge(TotalBytes, 100)
	m.AddGauge(TotalBytes, -150)
	assert.Equal(t, int64(-50), m.Gauge(TotalBytes))
}

func TestAtomicObserveDurationKeepsLast(t *testing.T) {
	m := &Atomic{}
	m.ObserveDuration(SlowOpDurationReclaim, time.Second)
	m.ObserveDuration(SlowOpDurationReclaim, 2*time.Second)
	assert.Equal(t, 2*time.Second, m.LastDuration(SlowOpDurationReclaim))
}

func TestNoopDiscardsEverything(t *testing.T) {
	var n Noop
	n.IncCounter("x", 1)
	n.AddGauge("x", 1)
	n.ObserveDuration("x", time.Second)
}
