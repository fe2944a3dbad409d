package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appendStamp(ts int64) UpdateFunc {
	return func(window []int64) []int64 {
		return append(window, ts)
	}
}

func TestMemoryStore_EvictsLeastRecentlyChecked(t *testing.T) {
	ctx := context.Background()
	var evicted []string
	store, err := NewMemoryStore(2, func(key string) { evicted = append(evicted, key) })
	require.NoError(t, err)

	require.NoError(t, store.Update(ctx, "a", time.Minute, appendStamp(1)))
	require.NoError(t, store.Update(ctx, "b", time.Minute, appendStamp(2)))
	// touching "a" makes "b" the least recently used
	require.NoError(t, store.Update(ctx, "a", time.Minute, appendStamp(3)))
	require.NoError(t, store.Update(ctx, "c", time.Minute, appendStamp(4)))

	assert.Equal(t, []string{"b"}, evicted)
	assert.Equal(t, []string{"a", "c"}, store.Keys())

	var seen []int64
	require.NoError(t, store.Update(ctx, "a", time.Minute, func(window []int64) []int64 {
		seen = window
		return window
	}))
	assert.Equal(t, []int64{1, 3}, seen)
}

func TestMemoryStore_ExplicitRemovalIsNotEviction(t *testing.T) {
	ctx := context.Background()
	evictions := 0
	store, err := NewMemoryStore(10, func(string) { evictions++ })
	require.NoError(t, err)

	require.NoError(t, store.Update(ctx, "a", time.Minute, appendStamp(1)))
	require.NoError(t, store.Update(ctx, "b", time.Minute, appendStamp(1)))
	require.NoError(t, store.Update(ctx, "c", time.Minute, appendStamp(100)))

	require.NoError(t, store.Delete(ctx, "a"))

	// returning an empty window removes the key
	require.NoError(t, store.Update(ctx, "b", time.Minute, func([]int64) []int64 { return nil }))

	removed, err := store.Sweep(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	size, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, size)
	assert.Zero(t, evictions)

	require.NoError(t, store.Close())
	assert.Zero(t, evictions)
}

func TestMemoryStore_SweepKeepsRecencyOrder(t *testing.T) {
	ctx := context.Background()
	store, err := NewMemoryStore(0, nil)
	require.NoError(t, err)

	require.NoError(t, store.Update(ctx, "first", time.Minute, appendStamp(10)))
	require.NoError(t, store.Update(ctx, "second", time.Minute, appendStamp(5)))
	require.NoError(t, store.Update(ctx, "second", time.Minute, appendStamp(20)))

	removed, err := store.Sweep(ctx, 5)
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.Equal(t, []string{"first", "second"}, store.Keys())

	var seen []int64
	require.NoError(t, store.Update(ctx, "second", time.Minute, func(window []int64) []int64 {
		seen = window
		return window
	}))
	assert.Equal(t, []int64{20}, seen)
}

func TestMemoryStore_Closed(t *testing.T) {
	ctx := context.Background()
	store, err := NewMemoryStore(0, nil)
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	assert.ErrorIs(t, store.Update(ctx, "a", time.Minute, appendStamp(1)), ErrStoreClosed)
	assert.ErrorIs(t, store.Delete(ctx, "a"), ErrStoreClosed)
	_, err = store.Sweep(ctx, 0)
	assert.ErrorIs(t, err, ErrStoreClosed)
}

func TestLimiter_UniqueTokenCap(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store, err := NewMemoryStore(2, nil)
	require.NoError(t, err)
	limiter := newTestLimiter(t, store, clock, time.Minute)

	for i := 0; i < 2; i++ {
		_, err := limiter.Check(ctx, "heavy", 2)
		require.NoError(t, err)
	}
	result, err := limiter.Check(ctx, "heavy", 2)
	require.NoError(t, err)
	require.False(t, result.Allowed)

	_, err = limiter.Check(ctx, "x", 2)
	require.NoError(t, err)
	_, err = limiter.Check(ctx, "y", 2)
	require.NoError(t, err)

	size, err := limiter.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, size)

	// "heavy" was least recently checked and lost its window
	result, err = limiter.Check(ctx, "heavy", 2)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}
