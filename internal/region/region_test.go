package region

import (
	"testing"

	"github.com/sharedcode/embercache/device"
	"github.com/stretchr/testify/assert"
)

func TestNewRegionStartsClean(t *testing.T) {
	dev := device.NewMemDevice(512, 4096, 2)
	r := New(3, dev)
	assert.Equal(t, uint32(3), r.ID())
	assert.Equal(t, Clean, r.State())
}

func TestSetStateSealedStampsSealedAt(t *testing.T) {
	dev := device.NewMemDevice(512, 4096, 1)
	r := New(0, dev)
	assert.True(t, r.SealedAt().IsZero())
	r.SetState(Sealed)
	assert.Equal(t, Sealed, r.State())
	assert.False(t, r.SealedAt().IsZero())
}

func TestFailedIsDistinctFromWriting(t *testing.T) {
	assert.NotEqual(t, Writing, Failed)
	dev := device.NewMemDevice(512, 4096, 1)
	r := New(0, dev)
	r.SetState(Failed)
	assert.Equal(t, Failed, r.State())
}
