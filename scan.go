package blinkidx

// RangeScan collects every live value in [lower, upper] into a slice, in
// ascending key order (spec.md §4.8). Unlike Tree.Iterator — which also
// serves the unbounded case for First/Last — RangeScan treats an
// entirely-absent range as an explicit empty result rather than "the
// whole tree", since an unqualified scan is almost always a caller bug.
func (t *Tree[K, V]) RangeScan(lower, upper *Bound[K]) ([]V, error) {
	if lower == nil && upper == nil {
		return nil, nil
	}

	if lower != nil && upper != nil {
		cmp := t.comparator(lower.Key, upper.Key)
		if cmp > 0 {
			return nil, nil
		}
		if cmp == 0 {
			if !lower.Inclusive && !upper.Inclusive {
				return nil, nil
			}
			v, ok, err := t.Get(lower.Key)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, nil
			}
			return []V{v}, nil
		}
	}

	it, err := t.Iterator(ScanBounds[K]{Lower: lower, Upper: upper})
	if err != nil {
		return nil, err
	}

	var out []V
	for it.Next() {
		out = append(out, it.Value())
	}
	return out, it.Err()
}

// predecessorFrame is one step of the top-down path recorded while
// searching for a predecessor; childIdx is the child this descent chose.
type predecessorFrame[K any, V any] struct {
	content  *NodeContent[K, V]
	childIdx int
}

// predecessor returns the greatest live entry with key < bound (or <=
// bound when inclusive is true), or the greatest live entry in the whole
// tree when bound is nil. It is the primitive the Design Notes call
// "higher_entry walks": a fresh top-down descent per call, since a
// B-link node only links to its right sibling and has no way back
// (spec.md §4.9). Each call costs a full redescend, which is exactly the
// "slower than ascending, on purpose" property a DescendingIterator is
// built to exhibit.
func (t *Tree[K, V]) predecessor(bound *K, inclusive bool) (K, V, bool, error) {
	var zeroK K
	var zeroV V

	if bound == nil {
		return t.rightmostEntry(t.root.Load())
	}
	target := *bound

	var path []predecessorFrame[K, V]
	ref := t.root.Load()
	for {
		content, err := t.nodeAt(ref).snapshot()
		if err != nil {
			return zeroK, zeroV, false, err
		}

		if content.IsLeaf {
			pos := content.FindFirstGE(target, t.comparator)
			if pos == len(content.Keys) {
				next := content.LinkNext()
				if next != NilRef {
					ref = next
					continue
				}
				return t.predecessorFromPath(path)
			}
			if pos == 0 {
				pos = 1
			}
			exact := pos < len(content.Keys)-1 && !content.Keys[pos].Sentinel &&
				t.comparator(content.Keys[pos].Value, target) == 0

			cand := pos
			if !(exact && inclusive) {
				cand--
			}
			if cand >= 1 && cand < len(content.Keys)-1 && !content.Keys[cand].Sentinel {
				return content.Keys[cand].Value, content.Vals[cand-1], true, nil
			}
			return t.predecessorFromPath(path)
		}

		idx := content.FindFirstGE(target, t.comparator)
		childIdx := idx - 1
		if childIdx < 0 {
			childIdx = 0
		}
		path = append(path, predecessorFrame[K, V]{content: content, childIdx: childIdx})
		ref = content.Children[childIdx]
	}
}

// predecessorFromPath handles the case where the leaf a descent landed on
// holds no entry smaller than the search bound: walk the recorded path
// from the deepest frame up, and at the first frame that did not already
// choose its leftmost child, take that child's immediate left sibling and
// report the largest entry in its subtree.
func (t *Tree[K, V]) predecessorFromPath(path []predecessorFrame[K, V]) (K, V, bool, error) {
	var zeroK K
	var zeroV V
	for i := len(path) - 1; i >= 0; i-- {
		f := path[i]
		if f.childIdx > 0 {
			return t.rightmostEntry(f.content.Children[f.childIdx-1])
		}
	}
	return zeroK, zeroV, false, nil
}

// rightmostEntry returns the greatest live entry in the subtree rooted
// at ref, descending at each inner node into its last real child,
// Children[n-2]. The final slot Children[n-1] is the node's sibling link
// (NilRef on the rightmost node of a level), not part of its subtree.
func (t *Tree[K, V]) rightmostEntry(ref NodeRef) (K, V, bool, error) {
	var zeroK K
	var zeroV V
	for {
		content, err := t.nodeAt(ref).snapshot()
		if err != nil {
			return zeroK, zeroV, false, err
		}
		if content.IsLeaf {
			for i := len(content.Keys) - 2; i >= 1; i-- {
				if !content.Keys[i].Sentinel {
					return content.Keys[i].Value, content.Vals[i-1], true, nil
				}
			}
			return zeroK, zeroV, false, nil
		}
		ref = content.Children[len(content.Children)-2]
	}
}

// DescendingIterator walks live entries in descending key order. It is a
// view composed over the forward primitives via predecessor walks, not a
// separate data structure (spec.md Design Notes, "Descending map"):
// expect it to run slower than Iterator, an intended tradeoff rather
// than an oversight.
type DescendingIterator[K any, V any] struct {
	tree  *Tree[K, V]
	lower *Bound[K]

	cursor          *K
	cursorInclusive bool

	curKey K
	curVal V

	done bool
	err  error
}

// DescendingIterator opens a (possibly bounded) descending iterator.
// bounds.Upper determines the starting point; bounds.Lower determines
// where iteration stops. A nil Upper starts from the greatest live entry
// in the tree; a nil Lower runs to the smallest.
func (t *Tree[K, V]) DescendingIterator(bounds ScanBounds[K]) *DescendingIterator[K, V] {
	it := &DescendingIterator[K, V]{tree: t, lower: bounds.Lower}
	if bounds.Upper != nil {
		k := bounds.Upper.Key
		it.cursor = &k
		it.cursorInclusive = bounds.Upper.Inclusive
	}
	return it
}

// Next advances the iterator, returning false at end-of-range or error.
func (it *DescendingIterator[K, V]) Next() bool {
	if it.done || it.err != nil {
		return false
	}

	k, v, ok, err := it.tree.predecessor(it.cursor, it.cursorInclusive)
	if err != nil {
		it.err = err
		return false
	}
	if !ok {
		it.done = true
		return false
	}

	if it.lower != nil {
		cmp := it.tree.comparator(k, it.lower.Key)
		if cmp < 0 || (cmp == 0 && !it.lower.Inclusive) {
			it.done = true
			return false
		}
	}

	it.curKey = k
	it.curVal = v
	next := k
	it.cursor = &next
	it.cursorInclusive = false
	return true
}

// Key returns the key at the iterator's current position.
func (it *DescendingIterator[K, V]) Key() K { return it.curKey }

// Value returns the value at the iterator's current position.
func (it *DescendingIterator[K, V]) Value() V { return it.curVal }

// Err returns the first error encountered, if any.
func (it *DescendingIterator[K, V]) Err() error { return it.err }

// Close is a no-op, matching Iterator.Close.
func (it *DescendingIterator[K, V]) Close() error { return nil }
