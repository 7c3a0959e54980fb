package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newStringCatalog() *Catalog[string] {
	return New[string](func(s string) []byte { return []byte(s) })
}

func TestInsertAndLookup(t *testing.T) {
	c := newStringCatalog()
	assert.True(t, c.Insert("a", Entry{RegionID: 1, Offset: 0, Length: 10, Sequence: 1}))

	e, ok := c.Lookup("a")
	assert.True(t, ok)
	assert.Equal(t, uint32(1), e.RegionID)
}

func TestInsertRejectsStaleSequence(t *testing.T) {
	c := newStringCatalog()
	c.Insert("a", Entry{RegionID: 1, Sequence: 5})
	applied := c.Insert("a", Entry{RegionID: 2, Sequence: 3})
	assert.False(t, applied)

	e, _ := c.Lookup("a")
	assert.Equal(t, uint32(1), e.RegionID)
}

func TestInsertAcceptsNewerSequence(t *testing.T) {
	c := newStringCatalog()
	c.Insert("a", Entry{RegionID: 1, Sequence: 3})
	applied := c.Insert("a", Entry{RegionID: 2, Sequence: 5})
	assert.True(t, applied)

	e, _ := c.Lookup("a")
	assert.Equal(t, uint32(2), e.RegionID)
}

func TestRemove(t *testing.T) {
	c := newStringCatalog()
	assert.False(t, c.Remove("missing"))
	c.Insert("a", Entry{Sequence: 1})
	assert.True(t, c.Remove("a"))
	_, ok := c.Lookup("a")
	assert.False(t, ok)
}

func TestTakeRegionDropsOnlyMatchingEntries(t *testing.T) {
	c := newStringCatalog()
	c.Insert("a", Entry{RegionID: 1, Sequence: 1})
	c.Insert("b", Entry{RegionID: 2, Sequence: 1})
	c.Insert("c", Entry{RegionID: 1, Sequence: 1})

	removed := c.TakeRegion(1)
	assert.ElementsMatch(t, []string{"a", "c"}, removed)

	_, ok := c.Lookup("b")
	assert.True(t, ok)
	assert.Equal(t, 1, c.Len())
}
