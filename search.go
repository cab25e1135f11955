package blinkidx

// descendToLeaf walks from the root to the leaf that would contain
// target, following children only (spec.md §4.4): at each inner node,
// pick child index max(0, find_first_ge_child - 1).
func (t *Tree[K, V]) descendToLeaf(target K) (NodeRef, *NodeContent[K, V], error) {
	ref := t.root.Load()
	for {
		content, err := t.nodeAt(ref).snapshot()
		if err != nil {
			return NilRef, nil, err
		}
		if content.IsLeaf {
			return ref, content, nil
		}
		idx := content.FindFirstGE(target, t.comparator)
		childIdx := idx - 1
		if childIdx < 0 {
			childIdx = 0
		}
		ref = content.Children[childIdx]
	}
}

// descendWithStack performs the same descent as descendToLeaf, but also
// records an ancestor stack: every time the chosen child is NOT the
// rightmost-child slot, the current node is pushed (spec.md §4.4). A
// split's upward propagation pops this stack before falling back to the
// LeftEdgeRegistry.
func (t *Tree[K, V]) descendWithStack(target K) (leafRef NodeRef, stack []NodeRef, err error) {
	ref := t.root.Load()
	for {
		content, err := t.nodeAt(ref).snapshot()
		if err != nil {
			return NilRef, nil, err
		}
		if content.IsLeaf {
			return ref, stack, nil
		}
		idx := content.FindFirstGE(target, t.comparator)
		childIdx := idx - 1
		if childIdx < 0 {
			childIdx = 0
		}
		if childIdx != len(content.Children)-1 {
			stack = append(stack, ref)
		}
		ref = content.Children[childIdx]
	}
}

// Get performs a point lookup (spec.md §4.5): descend to a leaf, then
// refine with move-right hops until the key's actual leaf is found.
func (t *Tree[K, V]) Get(key K) (V, bool, error) {
	var zero V

	_, content, err := t.descendToLeaf(key)
	if err != nil {
		return zero, false, err
	}

	for {
		pos := content.FindFirstGE(key, t.comparator)
		if pos == 0 {
			// Slot 0 is a structural low-marker, never value-bearing
			// (invariant 4); a well-routed search can only land here by
			// racing a concurrent split, in which case there is nothing
			// smaller to find in this leaf.
			pos = 1
		}

		if pos == len(content.Keys) {
			// Right-link refinement: target exceeds this leaf's high-key.
			if content.Next == NilRef {
				return zero, false, nil
			}
			content, err = t.nodeAt(content.Next).snapshot()
			if err != nil {
				return zero, false, err
			}
			if t.metrics != nil {
				t.metrics.MoveRights.Inc()
			}
			continue
		}

		if pos == len(content.Keys)-1 {
			// Landed on the trailing high-key separator slot.
			return zero, false, nil
		}
		if content.Keys[pos].Sentinel {
			return zero, false, nil
		}
		if t.comparator(content.Keys[pos].Value, key) != 0 {
			return zero, false, nil
		}

		if t.metrics != nil {
			t.metrics.Ops.WithLabelValues("get").Inc()
		}
		return content.Vals[pos-1], true, nil
	}
}
