package evict

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFIFOOrder(t *testing.T) {
	f := NewFIFO()
	f.OnSeal(1)
	f.OnSeal(2)
	f.OnSeal(3)

	id, ok := f.Pop()
	assert.True(t, ok)
	assert.Equal(t, uint32(1), id)

	id, ok = f.Pop()
	assert.True(t, ok)
	assert.Equal(t, uint32(2), id)
}

func TestFIFOPopEmpty(t *testing.T) {
	f := NewFIFO()
	_, ok := f.Pop()
	assert.False(t, ok)
}

func TestFIFORemove(t *testing.T) {
	f := NewFIFO()
	f.OnSeal(1)
	f.OnSeal(2)
	f.Remove(1)

	id, ok := f.Pop()
	assert.True(t, ok)
	assert.Equal(t, uint32(2), id)

	_, ok = f.Pop()
	assert.False(t, ok)
}
