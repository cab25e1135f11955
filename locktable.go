package blinkidx

import "sync"

// lockTable is a map of per-node mutexes keyed by NodeRef, satisfying
// spec.md §5's locking discipline: a writer locks at most two nodes at a
// time, and descent itself never locks. It is scoped to one Tree rather
// than the whole process — see DESIGN.md's addressing-scheme
// decision — so that two independently-opened trees never contend on
// colliding recids.
type lockTable struct {
	mu    sync.Mutex
	locks map[NodeRef]*sync.Mutex
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[NodeRef]*sync.Mutex)}
}

func (t *lockTable) mutexFor(ref NodeRef) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.locks[ref]
	if !ok {
		m = &sync.Mutex{}
		t.locks[ref] = m
	}
	return m
}

func (t *lockTable) Lock(ref NodeRef)   { t.mutexFor(ref).Lock() }
func (t *lockTable) Unlock(ref NodeRef) { t.mutexFor(ref).Unlock() }

// heldLocks tracks the NodeRefs a single mutator invocation currently
// holds. A goroutine's own call stack already scopes "what am I holding
// right now", so there is no need for a thread-identity registry to
// implement the failure sweep spec.md §5 describes: each top-level
// mutator entry point constructs one heldLocks, defers sweep() behind a
// recover(), and every Lock/Unlock along the way goes through it.
type heldLocks struct {
	table *lockTable
	refs  []NodeRef
}

func newHeldLocks(table *lockTable) *heldLocks {
	return &heldLocks{table: table}
}

func (h *heldLocks) Lock(ref NodeRef) {
	for _, r := range h.refs {
		assert(r != ref, "double-lock of the same node by one operation")
	}
	h.table.Lock(ref)
	h.refs = append(h.refs, ref)
}

func (h *heldLocks) Unlock(ref NodeRef) {
	h.table.Unlock(ref)
	for i, r := range h.refs {
		if r == ref {
			h.refs = append(h.refs[:i], h.refs[i+1:]...)
			break
		}
	}
}

// sweep releases every lock still held, most-recently-acquired first.
// Deferred at the top of every mutator so a panic from an
// application-supplied comparator or serializer can't leave the tree
// wedged.
func (h *heldLocks) sweep() {
	for i := len(h.refs) - 1; i >= 0; i-- {
		h.table.Unlock(h.refs[i])
	}
	h.refs = nil
}
