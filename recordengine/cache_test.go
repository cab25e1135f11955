package recordengine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNodeCacheEviction(t *testing.T) {
	c := NewNodeCache[string](2)

	c.Put(1, "one")
	c.Put(2, "two")
	require.Equal(t, 2, c.Len())

	// Touch 1 so 2 becomes the least-recently-used entry.
	_, ok := c.Get(1)
	require.True(t, ok)

	c.Put(3, "three")
	require.Equal(t, 2, c.Len())

	_, ok = c.Get(2)
	require.False(t, ok, "2 should have been evicted")

	v, ok := c.Get(1)
	require.True(t, ok)
	require.Equal(t, "one", v)

	v, ok = c.Get(3)
	require.True(t, ok)
	require.Equal(t, "three", v)
}

func TestNodeCacheInvalidateAndClear(t *testing.T) {
	c := NewNodeCache[int](0)
	c.Put(1, 100)
	c.Put(2, 200)

	c.Invalidate(1)
	_, ok := c.Get(1)
	require.False(t, ok)

	_, ok = c.Get(2)
	require.True(t, ok)

	c.Clear()
	require.Equal(t, 0, c.Len())
}
