package blinkidx

// node is a handle to one tree node: a stable NodeRef identity plus
// access to the tree's shared cache, store, and lock table (spec.md
// §4.1, "Node"). It carries no mutable state of its own — the
// replaceable content lives in the store/cache, and the mutex lives in
// the tree's lockTable — which is what lets Snapshot proceed lock-free
// while a writer holds the node's lock.
type node[K any, V any] struct {
	tree *Tree[K, V]
	ref  NodeRef
}

func (t *Tree[K, V]) nodeAt(ref NodeRef) *node[K, V] {
	return &node[K, V]{tree: t, ref: ref}
}

// snapshot reads the node's current content without locking. Readers
// never block (spec.md §4.1).
func (n *node[K, V]) snapshot() (*NodeContent[K, V], error) {
	if c, ok := n.tree.cache.Get(n.ref); ok {
		return c, nil
	}
	if n.tree.metrics != nil {
		n.tree.metrics.NodeReads.Inc()
	}
	c, err := n.tree.store.Get(n.ref, n.tree.codec)
	if err != nil {
		return nil, err
	}
	n.tree.cache.Put(n.ref, c)
	return c, nil
}

// lock acquires this node's mutex through locks, recording it for the
// failure sweep.
func (n *node[K, V]) lock(locks *heldLocks) {
	locks.Lock(n.ref)
}

// unlock releases this node's mutex through locks.
func (n *node[K, V]) unlock(locks *heldLocks) {
	locks.Unlock(n.ref)
}

// deepCopyLocked returns a private copy of the node's current content
// for a writer to mutate. Caller must already hold this node's lock
// (spec.md §4.1, "deep_copy_locked").
func (n *node[K, V]) deepCopyLocked() (*NodeContent[K, V], error) {
	c, err := n.snapshot()
	if err != nil {
		return nil, err
	}
	return c.Clone(), nil
}

// install replaces the node's content. Caller must hold this node's
// lock. The cache entry is invalidated before the new content is
// cached, so a concurrent reader can never observe a torn update
// (spec.md §4.1, "install").
func (n *node[K, V]) install(content *NodeContent[K, V]) error {
	if err := n.tree.store.Update(n.ref, content, n.tree.codec); err != nil {
		return err
	}
	n.tree.cache.Invalidate(n.ref)
	n.tree.cache.Put(n.ref, content)
	if n.tree.metrics != nil {
		n.tree.metrics.NodeWrites.Inc()
	}
	return nil
}

// createNode allocates a brand-new node with the given content installed,
// returning its fresh NodeRef.
func (t *Tree[K, V]) createNode(content *NodeContent[K, V]) (NodeRef, error) {
	ref, err := t.store.Put(content, t.codec)
	if err != nil {
		return NilRef, err
	}
	t.cache.Put(ref, content)
	if t.metrics != nil {
		t.metrics.NodeWrites.Inc()
	}
	return ref, nil
}
