package region

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSharedAcquireRelease(t *testing.T) {
	g := NewGuard()
	tok := g.Shared(KindWriter)
	assert.Equal(t, 1, g.Writers())
	tok.Release()
	assert.Equal(t, 0, g.Writers())
}

func TestExclusiveWaitsForSharedToDrain(t *testing.T) {
	g := NewGuard()
	tok := g.Shared(KindPhysicalReader)

	released := make(chan struct{})
	acquired := make(chan struct{})
	go func() {
		ex := g.Exclusive(false, false, true)
		close(acquired)
		ex.Release()
	}()

	select {
	case <-acquired:
		t.Fatal("exclusive acquired before shared reader released")
	case <-time.After(20 * time.Millisecond):
	}

	tok.Release()
	close(released)

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("exclusive never acquired after shared released")
	}
}

func TestExclusiveBlocksNewShared(t *testing.T) {
	g := NewGuard()
	ex := g.Exclusive(false, false, false)

	acquired := make(chan struct{})
	go func() {
		tok := g.Shared(KindWriter)
		close(acquired)
		tok.Release()
	}()

	select {
	case <-acquired:
		t.Fatal("shared acquired while exclusive outstanding")
	case <-time.After(20 * time.Millisecond):
	}

	ex.Release()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("shared never acquired after exclusive released")
	}
}

func TestExclusiveIgnoresUnselectedCounters(t *testing.T) {
	g := NewGuard()
	tok := g.Shared(KindBufferedReader)
	defer tok.Release()

	done := make(chan struct{})
	go func() {
		ex := g.Exclusive(true, false, true)
		close(done)
		ex.Release()
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("exclusive should not wait on a counter it did not select")
	}
	require.Equal(t, 1, g.BufferedReaders())
}
