package embercache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sharedcode/embercache/codec"
	"github.com/sharedcode/embercache/device"
	"github.com/sharedcode/embercache/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, extra ...Option[string, string]) *Store[string, string] {
	t.Helper()
	dev := device.NewMemDevice(512, 4096, 8)
	opts := NewOptions[string, string](dev, codec.String{}, codec.String{}, func(s string) []byte { return []byte(s) })
	store, err := Open[string, string](context.Background(), opts, extra...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	return store
}

func TestInsertThenLookupRoundTrips(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	wrote, err := store.Insert(ctx, "k1", "v1")
	require.NoError(t, err)
	assert.True(t, wrote)

	v, ok, err := store.Lookup(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v1", v)
}

func TestLookupMissForUnknownKey(t *testing.T) {
	store := newTestStore(t)
	_, ok, err := store.Lookup(context.Background(), "never-inserted")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRemoveDropsCatalogEntry(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, err := store.Insert(ctx, "k1", "v1")
	require.NoError(t, err)

	assert.True(t, store.Remove(ctx, "k1"))
	_, ok, err := store.Lookup(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOverwriteNewerSequenceWins(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, err := store.Insert(ctx, "k1", "v1")
	require.NoError(t, err)
	_, err = store.Insert(ctx, "k1", "v2")
	require.NoError(t, err)

	v, ok, err := store.Lookup(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v2", v)
}

func TestAdmissionPolicyCanFilterInserts(t *testing.T) {
	store := newTestStore(t, WithAdmission[string, string](policy.NewRatedTicket[string](1)))
	ctx := context.Background()

	var filtered bool
	for i := 0; i < 50; i++ {
		wrote, err := store.Insert(ctx, fmt.Sprintf("k%d", i), "0123456789")
		require.NoError(t, err)
		if !wrote {
			filtered = true
			break
		}
	}
	assert.True(t, filtered, "expected the rate limiter to eventually filter an insert")
}

func TestManyInsertsEventuallyReclaimSpace(t *testing.T) {
	dev := device.NewMemDevice(512, 2048, 2)
	opts := NewOptions[string, string](dev, codec.String{}, codec.String{}, func(s string) []byte { return []byte(s) })
	opts.CleanRegionThreshold = 2
	store, err := Open[string, string](context.Background(), opts)
	require.NoError(t, err)
	defer store.Close(context.Background())

	ctx := context.Background()
	for i := 0; i < 40; i++ {
		_, err := store.Insert(ctx, fmt.Sprintf("key-%d", i), "payload-value")
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		return store.Stats().CleanRegions >= 1
	}, 2*time.Second, 10*time.Millisecond, "expected the reclaimer to free at least one region")
}

func TestCloseSealsOutstandingBuffer(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	_, err := store.Insert(ctx, "k1", "v1")
	require.NoError(t, err)

	require.NoError(t, store.Close(ctx))

	_, err = store.Insert(ctx, "k2", "v2")
	assert.ErrorIs(t, err, ErrStopped)
}
