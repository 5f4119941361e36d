package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore_MarkProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()

	t.Run("marks new key as processed", func(t *testing.T) {
		isNew, err := store.MarkProcessed(ctx, "pos1-commit-1", 1*time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew, "new key should return true")
	})

	t.Run("returns false for already processed key", func(t *testing.T) {
		key := "pos1-commit-2"
		ttl := 1 * time.Hour

		isNew, err := store.MarkProcessed(ctx, key, ttl)
		require.NoError(t, err)
		assert.True(t, isNew)

		isNew, err = store.MarkProcessed(ctx, key, ttl)
		require.NoError(t, err)
		assert.False(t, isNew, "already processed key should return false")
	})

	t.Run("accepts the key again after expiration", func(t *testing.T) {
		key := "pos1-commit-3"
		ttl := 10 * time.Millisecond

		isNew, err := store.MarkProcessed(ctx, key, ttl)
		require.NoError(t, err)
		assert.True(t, isNew)

		time.Sleep(20 * time.Millisecond)

		isNew, err = store.MarkProcessed(ctx, key, ttl)
		require.NoError(t, err)
		assert.True(t, isNew, "expired key should be accepted again")
	})
}

func TestInMemoryIdempotencyStore_IsProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()

	t.Run("returns false for unknown key", func(t *testing.T) {
		processed, err := store.IsProcessed(ctx, "unknown-key")
		require.NoError(t, err)
		assert.False(t, processed)
	})

	t.Run("returns true for processed key", func(t *testing.T) {
		key := "processed-key"
		_, err := store.MarkProcessed(ctx, key, 1*time.Hour)
		require.NoError(t, err)

		processed, err := store.IsProcessed(ctx, key)
		require.NoError(t, err)
		assert.True(t, processed)
	})

	t.Run("returns false for expired key", func(t *testing.T) {
		key := "expired-key"
		_, err := store.MarkProcessed(ctx, key, 10*time.Millisecond)
		require.NoError(t, err)

		time.Sleep(20 * time.Millisecond)

		processed, err := store.IsProcessed(ctx, key)
		require.NoError(t, err)
		assert.False(t, processed, "expired key should return false")
	})
}

func TestInMemoryIdempotencyStore_Release(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()
	key := "pos1-commit-4"

	isNew, err := store.MarkProcessed(ctx, key, 1*time.Hour)
	require.NoError(t, err)
	assert.True(t, isNew)

	require.NoError(t, store.Release(ctx, key))

	isNew, err = store.MarkProcessed(ctx, key, 1*time.Hour)
	require.NoError(t, err)
	assert.True(t, isNew, "released key should be accepted again")

	t.Run("releasing an unknown key is a no-op", func(t *testing.T) {
		assert.NoError(t, store.Release(ctx, "never-claimed"))
	})
}

func TestInMemoryIdempotencyStore_Size(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()

	assert.Equal(t, 0, store.Size(), "empty store should have size 0")

	store.MarkProcessed(ctx, "key-1", 1*time.Hour)
	assert.Equal(t, 1, store.Size())

	store.MarkProcessed(ctx, "key-2", 1*time.Hour)
	assert.Equal(t, 2, store.Size())

	// Marking the same key again shouldn't increase size
	store.MarkProcessed(ctx, "key-1", 1*time.Hour)
	assert.Equal(t, 2, store.Size())
}

func TestInMemoryIdempotencyStore_Cleanup(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()

	store.MarkProcessed(ctx, "short-lived-1", 10*time.Millisecond)
	store.MarkProcessed(ctx, "short-lived-2", 10*time.Millisecond)
	store.MarkProcessed(ctx, "long-lived", 1*time.Hour)

	assert.Equal(t, 3, store.Size())

	time.Sleep(20 * time.Millisecond)

	store.cleanup()

	assert.Equal(t, 1, store.Size())

	processed, err := store.IsProcessed(ctx, "long-lived")
	require.NoError(t, err)
	assert.True(t, processed)

	processed, err = store.IsProcessed(ctx, "short-lived-1")
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestInMemoryIdempotencyStore_ConcurrentAccess(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()
	const numGoroutines = 100
	const key = "contended-commit-key"

	results := make(chan bool, numGoroutines)

	// All goroutines race to mark the same commit key
	for i := 0; i < numGoroutines; i++ {
		go func() {
			isNew, err := store.MarkProcessed(ctx, key, 1*time.Hour)
			if err != nil {
				results <- false
			} else {
				results <- isNew
			}
		}()
	}

	newCount := 0
	duplicateCount := 0
	for i := 0; i < numGoroutines; i++ {
		if <-results {
			newCount++
		} else {
			duplicateCount++
		}
	}

	assert.Equal(t, 1, newCount, "exactly one goroutine should mark as new")
	assert.Equal(t, numGoroutines-1, duplicateCount, "all others should be duplicates")
}

func TestInMemoryIdempotencyStore_Close(t *testing.T) {
	store := NewInMemoryIdempotencyStore()

	err := store.Close()
	assert.NoError(t, err)

	// Multiple closes should be safe
	err = store.Close()
	assert.NoError(t, err)
}
