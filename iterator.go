package blinkidx

// Bound is one endpoint of a scan or iterator range.
type Bound[K any] struct {
	Key       K
	Inclusive bool
}

// ScanBounds carries the optional lower/upper endpoints an Iterator
// honors (spec.md §4.9). A nil Lower means "start at the leftmost live
// entry"; a nil Upper means "run to the rightmost live entry".
type ScanBounds[K any] struct {
	Lower *Bound[K]
	Upper *Bound[K]
}

// Iterator walks live entries in ascending key order over the leaf
// sibling chain (spec.md §4.9). It is one-shot, weakly consistent, and
// never blocks or reports a concurrent-modification error: whatever
// content it observes at each leaf is a lock-free snapshot, so it can
// see mutations posted concurrently with its own traversal.
type Iterator[K any, V any] struct {
	tree  *Tree[K, V]
	upper *Bound[K]

	content *NodeContent[K, V]
	pos     int

	curKey K
	curVal V

	done bool
	err  error
}

// Iterator opens a (possibly bounded) forward iterator. With a nil
// Lower and nil Upper this walks every live entry in the tree, which is
// how Tree.First/Tree.Last are implemented; it is not the same
// operation as RangeScan, which treats an entirely-absent range as an
// explicit empty result (spec.md §4.8).
func (t *Tree[K, V]) Iterator(bounds ScanBounds[K]) (*Iterator[K, V], error) {
	it := &Iterator[K, V]{tree: t, upper: bounds.Upper}

	if bounds.Lower == nil {
		ref, ok := t.leftEdges.At(0)
		if !ok {
			it.done = true
			return it, nil
		}
		content, err := t.nodeAt(ref).snapshot()
		if err != nil {
			return nil, err
		}
		it.content = content
		it.pos = 1
		return it, nil
	}

	target := bounds.Lower.Key
	_, content, err := t.descendToLeaf(target)
	if err != nil {
		return nil, err
	}

	for {
		pos := content.FindFirstGE(target, t.comparator)
		exact := pos < len(content.Keys)-1 && pos > 0 && !content.Keys[pos].Sentinel &&
			t.comparator(content.Keys[pos].Value, target) == 0
		if pos == len(content.Keys) {
			next := content.LinkNext()
			if next == NilRef {
				it.done = true
				return it, nil
			}
			content, err = t.nodeAt(next).snapshot()
			if err != nil {
				return nil, err
			}
			continue
		}
		if pos == 0 {
			pos = 1
		}
		if exact && !bounds.Lower.Inclusive {
			pos++
		}
		it.content = content
		it.pos = pos
		return it, nil
	}
}

// Next advances the iterator, returning false at end-of-range or on
// error (distinguish the two with Err).
func (it *Iterator[K, V]) Next() bool {
	if it.done || it.err != nil {
		return false
	}
	for {
		if it.content == nil {
			it.done = true
			return false
		}
		n := len(it.content.Keys)
		if it.pos >= n-1 {
			next := it.content.LinkNext()
			if next == NilRef {
				it.done = true
				return false
			}
			content, err := it.tree.nodeAt(next).snapshot()
			if err != nil {
				it.err = err
				return false
			}
			it.content = content
			it.pos = 1
			continue
		}

		slot := it.content.Keys[it.pos]
		if it.upper != nil {
			if slot.Sentinel {
				it.done = true
				return false
			}
			cmp := it.tree.comparator(slot.Value, it.upper.Key)
			if cmp > 0 || (cmp == 0 && !it.upper.Inclusive) {
				it.done = true
				return false
			}
		}

		it.curKey = slot.Value
		it.curVal = it.content.Vals[it.pos-1]
		it.pos++
		return true
	}
}

// Key returns the key at the iterator's current position. Valid only
// after a Next call that returned true.
func (it *Iterator[K, V]) Key() K { return it.curKey }

// Value returns the value at the iterator's current position. Valid
// only after a Next call that returned true.
func (it *Iterator[K, V]) Value() V { return it.curVal }

// Err returns the first error encountered, if any.
func (it *Iterator[K, V]) Err() error { return it.err }

// Close is a no-op: the iterator holds no node locks and pins no
// resources beyond the last snapshot it read (spec.md Design Notes,
// "Iterator restartability").
func (it *Iterator[K, V]) Close() error { return nil }
