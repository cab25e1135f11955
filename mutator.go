package blinkidx

// pendingInsert describes the slot this refinement-loop iteration is
// trying to place: a (key, value) pair at the leaf level, or a
// (separator key, child ref) pair carried up from a split one level
// below (spec.md §4.6).
type pendingInsert[K any, V any] struct {
	isLeaf bool
	key    K
	value  V
	child  NodeRef
}

// Put inserts or overwrites key with value, returning the previous
// value if one existed (spec.md §4.6).
func (t *Tree[K, V]) Put(key K, value V) (prev V, hadPrev bool, err error) {
	return t.putInternal(key, value, false)
}

// PutIfAbsent inserts key/value only if key is not already present,
// returning the existing value and true if it was (spec.md §7,
// "put_if_absent on an existing key returns the existing value without
// mutating").
func (t *Tree[K, V]) PutIfAbsent(key K, value V) (existing V, hadExisting bool, err error) {
	return t.putInternal(key, value, true)
}

func (t *Tree[K, V]) putInternal(key K, value V, onlyIfAbsent bool) (result V, hadPrev bool, err error) {
	locks := newHeldLocks(t.locks)
	defer func() {
		if r := recover(); r != nil {
			locks.sweep()
			panic(r)
		}
	}()

	leafRef, stack, err := t.descendWithStack(key)
	if err != nil {
		return result, false, err
	}

	pending := pendingInsert[K, V]{isLeaf: true, key: key, value: value}
	curRef := leafRef
	level := 0

	for {
		n := t.nodeAt(curRef)
		n.lock(locks)

		content, err := n.deepCopyLocked()
		if err != nil {
			n.unlock(locks)
			return result, false, err
		}

		pos := content.FindFirstGE(pending.key, t.comparator)
		if pos == 0 {
			// Slot 0 is a structural low-marker, never value/child-
			// bearing (invariant 4); see search.go's Get for why this
			// can only be reached via a concurrent-split race.
			pos = 1
		}

		// Move-right: the node's high-key doesn't cover this key/separator.
		if pos == len(content.Keys) {
			next := content.LinkNext()
			n.unlock(locks)
			if next == NilRef {
				return result, false, ErrAssertionFailed
			}
			curRef = next
			if t.metrics != nil {
				t.metrics.MoveRights.Inc()
			}
			continue
		}

		// Leaf-level: is the key already present?
		if pending.isLeaf && pos < len(content.Keys)-1 && !content.Keys[pos].Sentinel &&
			t.comparator(content.Keys[pos].Value, pending.key) == 0 {
			existing := content.Vals[pos-1]
			if onlyIfAbsent {
				n.unlock(locks)
				return existing, true, nil
			}
			content.Vals[pos-1] = pending.value
			if err := n.install(content); err != nil {
				n.unlock(locks)
				return result, false, err
			}
			n.unlock(locks)
			t.notify(ModUpdate, pending.key, pending.value, true)
			return existing, true, nil
		}

		capacityUsed := len(content.Keys) - 1
		if pending.isLeaf {
			capacityUsed = len(content.Keys) - 2
		}

		if capacityUsed < t.maxNodeSize {
			if pending.isLeaf {
				content.Keys = insertAt(content.Keys, pos, RealKey(pending.key))
				content.Vals = insertAt(content.Vals, pos-1, pending.value)
			} else {
				content.Keys = insertAt(content.Keys, pos, RealKey(pending.key))
				content.Children = insertAt(content.Children, pos, pending.child)
			}
			if err := n.install(content); err != nil {
				n.unlock(locks)
				return result, false, err
			}
			n.unlock(locks)
			if pending.isLeaf {
				t.notify(ModPut, pending.key, pending.value, false)
			}
			return result, false, nil
		}

		// Split: build the augmented node with the insertion applied,
		// then split it at the midpoint (spec.md §4.6 step 4).
		augmented := content.Clone()
		if pending.isLeaf {
			augmented.Keys = insertAt(augmented.Keys, pos, RealKey(pending.key))
			augmented.Vals = insertAt(augmented.Vals, pos-1, pending.value)
		} else {
			augmented.Keys = insertAt(augmented.Keys, pos, RealKey(pending.key))
			augmented.Children = insertAt(augmented.Children, pos, pending.child)
		}

		split := len(augmented.Keys) / 2

		right := &NodeContent[K, V]{IsLeaf: pending.isLeaf}
		right.Keys = append([]Key[K](nil), augmented.Keys[split:]...)
		if pending.isLeaf {
			right.Vals = append([]V(nil), augmented.Vals[split:]...)
			right.Next = augmented.Next
		} else {
			right.Children = append([]NodeRef(nil), augmented.Children[split:]...)
		}

		rightRef, err := t.createNode(right)
		if err != nil {
			n.unlock(locks)
			return result, false, err
		}

		left := &NodeContent[K, V]{IsLeaf: pending.isLeaf}
		if pending.isLeaf {
			left.Keys = append([]Key[K](nil), augmented.Keys[:split+2]...)
			left.Keys[split+1] = augmented.Keys[split]
			left.Vals = append([]V(nil), augmented.Vals[:split]...)
			left.Next = rightRef
		} else {
			left.Keys = append([]Key[K](nil), augmented.Keys[:split+1]...)
			left.Children = append([]NodeRef(nil), augmented.Children[:split+1]...)
			left.Children[split] = rightRef
		}

		if err := n.install(left); err != nil {
			n.unlock(locks)
			return result, false, err
		}
		if t.metrics != nil {
			t.metrics.Splits.Inc()
		}

		highKey := left.HighKey()

		if t.isRoot(curRef) {
			if err := t.promoteRoot(locks, curRef, rightRef, left, &augmented.Keys[0]); err != nil {
				n.unlock(locks)
				return result, false, err
			}
			n.unlock(locks)
			if pending.isLeaf {
				t.notify(ModPut, pending.key, pending.value, false)
			}
			return result, false, nil
		}

		n.unlock(locks)
		if pending.isLeaf {
			t.notify(ModPut, pending.key, pending.value, false)
		}

		pending = pendingInsert[K, V]{isLeaf: false, key: highKey.Value, child: rightRef}
		level++
		if len(stack) > 0 {
			curRef = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
		} else {
			parentRef, ok := t.leftEdges.At(level)
			if !ok {
				return result, false, ErrAssertionFailed
			}
			curRef = parentRef
		}
	}
}

// isRoot reports whether ref is the tree's current root. Reading
// t.root.Load() is lock-free; it is safe to call while holding ref's
// own node lock because root promotion only ever targets the node a
// writer already holds.
func (t *Tree[K, V]) isRoot(ref NodeRef) bool {
	return t.root.Load() == ref
}

// promoteRoot builds a new inner root over (left, right) and atomically
// installs it into RootRef (spec.md §4.6 step 6). Caller holds left's
// node lock; promoteRoot additionally locks the synthetic RootRef cell,
// keeping the writer's total held-lock count at two.
func (t *Tree[K, V]) promoteRoot(locks *heldLocks, leftRef, rightRef NodeRef, left *NodeContent[K, V], firstKey *Key[K]) error {
	locks.Lock(rootRefLockKey)
	defer locks.Unlock(rootRefLockKey)

	newRoot := &NodeContent[K, V]{
		IsLeaf:   false,
		Keys:     []Key[K]{*firstKey, left.HighKey(), Sentinel[K]()},
		Children: []NodeRef{leftRef, rightRef, NilRef},
	}
	newRootRef, err := t.createNode(newRoot)
	if err != nil {
		return err
	}
	t.root.Store(newRootRef)
	t.leftEdges.Append(newRootRef)

	if t.useCatalogRecid {
		if err := t.persistRootRef(); err != nil {
			return err
		}
	}
	return nil
}
