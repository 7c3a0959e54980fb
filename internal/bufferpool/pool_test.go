package bufferpool

import (
	"context"
	"testing"
	"time"

	"github.com/sharedcode/embercache/device"
	"github.com/sharedcode/embercache/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireReleaseCycle(t *testing.T) {
	dev := device.NewMemDevice(512, 1024, 4)
	p := New(dev, 2, metrics.Noop{})
	assert.Equal(t, 2, p.Len())

	buf, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1024, len(buf))
	assert.Equal(t, 1, p.Len())

	p.Release(buf)
	assert.Equal(t, 2, p.Len())
}

func TestTryAcquireFailsWhenExhausted(t *testing.T) {
	dev := device.NewMemDevice(512, 1024, 4)
	p := New(dev, 1, metrics.Noop{})
	_, ok := p.TryAcquire()
	require.True(t, ok)
	_, ok = p.TryAcquire()
	assert.False(t, ok)
}

func TestAcquireBlocksUntilRelease(t *testing.T) {
	dev := device.NewMemDevice(512, 1024, 4)
	p := New(dev, 1, metrics.Noop{})
	buf, _ := p.TryAcquire()

	done := make(chan struct{})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_, err := p.Acquire(ctx)
		assert.NoError(t, err)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	p.Release(buf)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Acquire never unblocked after Release")
	}
}
