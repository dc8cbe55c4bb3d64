package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, c.Close()) })
	return c
}

func TestSetGet(t *testing.T) {
	ctx := context.Background()
	c := newCache(t)

	require.NoError(t, c.Set(ctx, "u1-habits", `{"a":1}`))

	value, ok, err := c.Get(ctx, "u1-habits")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"a":1}`, value)
}

func TestGetMissingKey(t *testing.T) {
	ctx := context.Background()
	c := newCache(t)

	_, ok, err := c.Get(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetOverwrites(t *testing.T) {
	ctx := context.Background()
	c := newCache(t)

	require.NoError(t, c.Set(ctx, "k", "v1"))
	require.NoError(t, c.Set(ctx, "k", "v2"))

	value, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v2", value)
}

func TestMultiSetMultiGet(t *testing.T) {
	ctx := context.Background()
	c := newCache(t)

	entries := map[string]string{
		"u1-activities": "{}",
		"u1-habits":     "{}",
		"u1-todos":      `{"t":true}`,
	}
	require.NoError(t, c.MultiSet(ctx, entries))

	got, err := c.MultiGet(ctx, []string{"u1-activities", "u1-habits", "u1-todos", "u1-missing"})
	require.NoError(t, err)
	assert.Equal(t, entries, got)
}

func TestMultiGetEmptyKeys(t *testing.T) {
	ctx := context.Background()
	c := newCache(t)

	got, err := c.MultiGet(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMultiSetEmptyEntries(t *testing.T) {
	ctx := context.Background()
	c := newCache(t)

	require.NoError(t, c.MultiSet(ctx, nil))
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	c := newCache(t)

	require.NoError(t, c.Set(ctx, "k", "v"))
	require.NoError(t, c.Delete(ctx, "k"))

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting again is not an error.
	require.NoError(t, c.Delete(ctx, "k"))
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	c, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, "k", "v"))
	require.NoError(t, c.Close())

	// Reopening re-runs migrations as a no-op and keeps the data.
	c2, err := Open(path)
	require.NoError(t, err)
	defer c2.Close()

	value, ok, err := c2.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", value)
}
