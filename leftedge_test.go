package blinkidx

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLeftEdgeRegistryAppendAndAt(t *testing.T) {
	r := newLeftEdgeRegistry(NodeRef(1))
	require.Equal(t, 1, r.Height())

	ref, ok := r.At(0)
	require.True(t, ok)
	require.Equal(t, NodeRef(1), ref)

	_, ok = r.At(1)
	require.False(t, ok, "tree has not grown a second level yet")

	r.Append(NodeRef(2))
	require.Equal(t, 2, r.Height())
	ref, ok = r.At(1)
	require.True(t, ok)
	require.Equal(t, NodeRef(2), ref)
}

func TestLeftEdgeRegistryAtRejectsNegativeLevel(t *testing.T) {
	r := newLeftEdgeRegistry(NodeRef(1))
	_, ok := r.At(-1)
	require.False(t, ok)
}

func TestRebuildLeftEdgeRegistryMatchesGrowth(t *testing.T) {
	tree := newTestTree(t, 6)
	for i := int64(1); i <= 20; i++ {
		_, _, err := tree.Put(i, v(i))
		require.NoError(t, err)
	}

	rebuilt, err := rebuildLeftEdgeRegistry(tree, tree.root.Load())
	require.NoError(t, err)

	require.Equal(t, tree.leftEdges.Height(), rebuilt.Height())
	for level := 0; level < rebuilt.Height(); level++ {
		want, ok := tree.leftEdges.At(level)
		require.True(t, ok)
		got, ok := rebuilt.At(level)
		require.True(t, ok)
		require.Equal(t, want, got, "level %d left edge must match the live registry", level)
	}

	leafRef, ok := rebuilt.At(0)
	require.True(t, ok)
	leafContent, err := tree.nodeAt(leafRef).snapshot()
	require.NoError(t, err)
	require.True(t, leafContent.IsLeaf)
	require.True(t, leafContent.LeftMost(), "level 0's left edge must be the tree's left-most leaf")
}
