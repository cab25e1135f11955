package blinkidx

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/oba-ldap/blinkidx/keycodec"
	"github.com/oba-ldap/blinkidx/recordengine"
)

func newTestTree(t *testing.T, maxNodeSize int) *Tree[int64, string] {
	t.Helper()
	store := recordengine.NewMemStore[*NodeContent[int64, string]]()
	tree, err := NewTree(Options[int64, string]{
		MaxNodeSize: maxNodeSize,
		Comparator:  keycodec.Int64,
		Keys:        keycodec.DeltaInt64Keys{},
		Values:      keycodec.StringValues{},
		ValueMode:   InlineValues,
		Store:       store,
		Counter:     NewOptionalCounter(nil),
	})
	require.NoError(t, err)
	return tree
}

func v(i int64) string { return fmt.Sprintf("v%d", i) }

// Scenario 1 (spec.md §8): three sequential puts, one get.
func TestScenario1BasicPutGet(t *testing.T) {
	tree := newTestTree(t, 6)

	_, _, err := tree.Put(1, "a")
	require.NoError(t, err)
	_, _, err = tree.Put(2, "b")
	require.NoError(t, err)
	_, _, err = tree.Put(3, "c")
	require.NoError(t, err)

	val, ok, err := tree.Get(2)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "b", val)
}

// Scenario 2 (spec.md §8): put 1..8 at B=6. The seventh put overflows the
// root leaf, and since that leaf is the root its split promotes a new
// inner root; the eighth put fits in the right half without a split.
func TestScenario2SplitAndRootPromotion(t *testing.T) {
	tree := newTestTree(t, 6)

	for i := int64(1); i <= 8; i++ {
		_, _, err := tree.Put(i, v(i))
		require.NoError(t, err)
	}

	val, ok, err := tree.Get(5)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v5", val)

	for i := int64(1); i <= 8; i++ {
		val, ok, err := tree.Get(i)
		require.NoError(t, err)
		require.True(t, ok, "key %d must survive the split", i)
		require.Equal(t, v(i), val)
	}

	stats, err := tree.Stats()
	require.NoError(t, err)
	require.Equal(t, 8, stats.TotalKeys)
	require.Greater(t, stats.Height, 1, "height must have grown past the single-leaf root")
}

func scenario3Corpus(t *testing.T, tree *Tree[int64, string]) {
	t.Helper()
	for _, i := range []int64{1, 2, 3, 4, 5, 6, 7, 8, 11, 12, 13, 14, 15, 16, 17, 18} {
		_, _, err := tree.Put(i, v(i))
		require.NoError(t, err)
	}
}

// Scenario 3 (spec.md §8): range_scan(2, true, 17, false).
func TestScenario3RangeScanInclusiveLowerExclusiveUpper(t *testing.T) {
	tree := newTestTree(t, 6)
	scenario3Corpus(t, tree)

	got, err := tree.RangeScan(
		&Bound[int64]{Key: 2, Inclusive: true},
		&Bound[int64]{Key: 17, Inclusive: false},
	)
	require.NoError(t, err)

	want := []string{"v2", "v3", "v4", "v5", "v6", "v7", "v8", "v11", "v12", "v13", "v14", "v15", "v16"}
	require.Equal(t, want, got)
}

// Scenario 4 (spec.md §8): range_scan(null, _, 18, false).
func TestScenario4UnboundedLower(t *testing.T) {
	tree := newTestTree(t, 6)
	scenario3Corpus(t, tree)

	got, err := tree.RangeScan(nil, &Bound[int64]{Key: 18, Inclusive: false})
	require.NoError(t, err)

	want := []string{"v1", "v2", "v3", "v4", "v5", "v6", "v7", "v8", "v11", "v12", "v13", "v14", "v15", "v16", "v17"}
	require.Equal(t, want, got)
}

// Scenario 5 (spec.md §8): range_scan(19, true, null, false) is empty
// because no key in the corpus reaches 19.
func TestScenario5UnboundedUpperNoMatches(t *testing.T) {
	tree := newTestTree(t, 6)
	scenario3Corpus(t, tree)

	got, err := tree.RangeScan(&Bound[int64]{Key: 19, Inclusive: true}, nil)
	require.NoError(t, err)
	require.Empty(t, got)
}

// Scenario 6 (spec.md §8): put then remove leaves no trace.
func TestScenario6PutRemoveLeavesNoTrace(t *testing.T) {
	tree := newTestTree(t, 6)

	_, _, err := tree.Put(1, "a")
	require.NoError(t, err)

	removed, ok, err := tree.Remove(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "a", removed)

	_, ok, err = tree.Get(1)
	require.NoError(t, err)
	require.False(t, ok)

	got, err := tree.RangeScan(nil, nil)
	require.NoError(t, err)
	require.Empty(t, got, "both bounds absent is an explicit empty result (spec.md §4.8)")
}

func TestRangeScanBothBoundsAbsentIsEmpty(t *testing.T) {
	tree := newTestTree(t, 6)
	scenario3Corpus(t, tree)

	got, err := tree.RangeScan(nil, nil)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestRangeScanBoundsCrossedIsEmpty(t *testing.T) {
	tree := newTestTree(t, 6)
	scenario3Corpus(t, tree)

	got, err := tree.RangeScan(&Bound[int64]{Key: 10}, &Bound[int64]{Key: 5})
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestRangeScanEqualBoundsInclusiveEitherSide(t *testing.T) {
	tree := newTestTree(t, 6)
	scenario3Corpus(t, tree)

	got, err := tree.RangeScan(
		&Bound[int64]{Key: 5, Inclusive: true},
		&Bound[int64]{Key: 5, Inclusive: false},
	)
	require.NoError(t, err)
	require.Equal(t, []string{"v5"}, got)

	got, err = tree.RangeScan(
		&Bound[int64]{Key: 5, Inclusive: false},
		&Bound[int64]{Key: 5, Inclusive: false},
	)
	require.NoError(t, err)
	require.Empty(t, got, "equal bounds with neither inclusive can never match")
}

// Round-trip / idempotence laws (spec.md §8).
func TestPutGetRoundTripLaws(t *testing.T) {
	tree := newTestTree(t, 6)

	_, _, err := tree.Put(1, "v1")
	require.NoError(t, err)
	got, ok, err := tree.Get(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v1", got)

	prev, hadPrev, err := tree.Put(1, "v2")
	require.NoError(t, err)
	require.True(t, hadPrev)
	require.Equal(t, "v1", prev)
	got, _, _ = tree.Get(1)
	require.Equal(t, "v2", got)

	_, _, err = tree.Remove(1)
	require.NoError(t, err)
	_, ok, _ = tree.Get(1)
	require.False(t, ok)
}

func TestPutIfAbsentIsNoOpOnExistingKey(t *testing.T) {
	tree := newTestTree(t, 6)

	_, hadExisting, err := tree.PutIfAbsent(1, "first")
	require.NoError(t, err)
	require.False(t, hadExisting)

	existing, hadExisting, err := tree.PutIfAbsent(1, "second")
	require.NoError(t, err)
	require.True(t, hadExisting)
	require.Equal(t, "first", existing)

	got, _, _ := tree.Get(1)
	require.Equal(t, "first", got, "put_if_absent on an existing key must not mutate")
}

func TestRemoveIfOnlyRemovesOnMatchingValue(t *testing.T) {
	tree := newTestTree(t, 6)
	_, _, err := tree.Put(1, "a")
	require.NoError(t, err)

	_, ok, err := tree.RemoveIf(1, "wrong", func(a, b string) bool { return a == b })
	require.NoError(t, err)
	require.False(t, ok)

	got, ok, _ := tree.Get(1)
	require.True(t, ok)
	require.Equal(t, "a", got)

	_, ok, err = tree.RemoveIf(1, "a", func(a, b string) bool { return a == b })
	require.NoError(t, err)
	require.True(t, ok)
	_, ok, _ = tree.Get(1)
	require.False(t, ok)
}

func TestIteratorAndFirstLast(t *testing.T) {
	tree := newTestTree(t, 6)
	scenario3Corpus(t, tree)

	first, _, ok, err := tree.First()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(1), first)

	last, _, ok, err := tree.Last()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(18), last)

	it, err := tree.Iterator(ScanBounds[int64]{})
	require.NoError(t, err)
	var keys []int64
	for it.Next() {
		keys = append(keys, it.Key())
	}
	require.NoError(t, it.Err())
	require.True(t, sort.SliceIsSorted(keys, func(i, j int) bool { return keys[i] < keys[j] }))
	require.Len(t, keys, 16)
}

func TestDescendingIteratorMirrorsForwardOrder(t *testing.T) {
	tree := newTestTree(t, 6)
	scenario3Corpus(t, tree)

	fwd, err := tree.Iterator(ScanBounds[int64]{})
	require.NoError(t, err)
	var forward []int64
	for fwd.Next() {
		forward = append(forward, fwd.Key())
	}
	require.NoError(t, fwd.Err())

	desc := tree.DescendingIterator(ScanBounds[int64]{})
	var backward []int64
	for desc.Next() {
		backward = append(backward, desc.Key())
	}
	require.NoError(t, desc.Err())

	require.Len(t, backward, len(forward))
	for i := range forward {
		require.Equal(t, forward[i], backward[len(backward)-1-i])
	}
}

func TestDescendingIteratorRespectsBounds(t *testing.T) {
	tree := newTestTree(t, 6)
	scenario3Corpus(t, tree)

	desc := tree.DescendingIterator(ScanBounds[int64]{
		Lower: &Bound[int64]{Key: 5, Inclusive: true},
		Upper: &Bound[int64]{Key: 14, Inclusive: false},
	})
	var got []int64
	for desc.Next() {
		got = append(got, desc.Key())
	}
	require.NoError(t, desc.Err())
	require.Equal(t, []int64{13, 12, 11, 8, 7, 6, 5}, got)
}

func TestStatsAndLenTrackLiveEntries(t *testing.T) {
	tree := newTestTree(t, 6)
	scenario3Corpus(t, tree)

	length, err := tree.Len()
	require.NoError(t, err)
	require.Equal(t, int64(16), length)

	_, _, err = tree.Remove(11)
	require.NoError(t, err)

	length, err = tree.Len()
	require.NoError(t, err)
	require.Equal(t, int64(15), length)

	stats, err := tree.Stats()
	require.NoError(t, err)
	require.Equal(t, 15, stats.TotalKeys)
}

func TestBulkPutAllAndClear(t *testing.T) {
	tree := newTestTree(t, 6)

	entries := make([]Entry[int64, string], 0, 100)
	for i := int64(1); i <= 100; i++ {
		entries = append(entries, Entry[int64, string]{Key: i, Value: v(i)})
	}
	require.NoError(t, tree.PutAll(context.Background(), entries))

	length, err := tree.Len()
	require.NoError(t, err)
	require.Equal(t, int64(100), length)

	for i := int64(1); i <= 100; i++ {
		got, ok, err := tree.Get(i)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, v(i), got)
	}

	require.NoError(t, tree.Clear(context.Background()))

	length, err = tree.Len()
	require.NoError(t, err)
	require.Equal(t, int64(0), length)

	got, err := tree.RangeScan(nil, &Bound[int64]{Key: 1000, Inclusive: true})
	require.NoError(t, err)
	require.Empty(t, got, "clear must empty the whole tree, not just the keys the caller happens to name")
}

func TestEqualsAcrossTrees(t *testing.T) {
	a := newTestTree(t, 6)
	b := newTestTree(t, 6)
	scenario3Corpus(t, a)
	scenario3Corpus(t, b)

	eq, err := Equals(context.Background(), a, b, func(x, y string) bool { return x == y })
	require.NoError(t, err)
	require.True(t, eq)

	_, _, err = b.Put(999, "extra")
	require.NoError(t, err)

	eq, err = Equals(context.Background(), a, b, func(x, y string) bool { return x == y })
	require.NoError(t, err)
	require.False(t, eq)
}

// Scenario 7 (spec.md §8): 8 goroutines each put a disjoint 1000-key
// range concurrently; the leaf chain afterward must contain exactly all
// 8000 keys in sorted order with no duplicates, and Len must agree.
func TestScenario7ConcurrentDisjointRanges(t *testing.T) {
	tree := newTestTree(t, 6)

	const workers = 8
	const perWorker = 1000

	g, _ := errgroup.WithContext(context.Background())
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			base := int64(w * perWorker)
			for i := int64(1); i <= perWorker; i++ {
				key := base + i
				if _, _, err := tree.Put(key, v(key)); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	it, err := tree.Iterator(ScanBounds[int64]{})
	require.NoError(t, err)

	var got []int64
	seen := make(map[int64]bool, workers*perWorker)
	for it.Next() {
		k := it.Key()
		require.False(t, seen[k], "duplicate key %d in leaf-chain traversal", k)
		seen[k] = true
		got = append(got, k)
	}
	require.NoError(t, it.Err())

	require.Len(t, got, workers*perWorker)
	require.True(t, sort.SliceIsSorted(got, func(i, j int) bool { return got[i] < got[j] }))

	length, err := tree.Len()
	require.NoError(t, err)
	require.Equal(t, int64(workers*perWorker), length)
}
