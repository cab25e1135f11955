package blinkidx

import "sync"

// leftEdgeRegistry caches the left-most node at each level of the tree,
// index 0 being the leaf level (spec.md §3, §4.10). It is the fallback
// entry point a split's upward propagation uses once the local ancestor
// stack captured during descent runs out.
//
// It is append-only: only root promotion ever grows it, so a concurrent
// append-safe slice under a mutex is sufficient; readers take a short
// lock rather than going lock-free, since lookups here are off the hot
// read path (only mutators that split consult it).
type leftEdgeRegistry struct {
	mu    sync.Mutex
	edges []NodeRef
}

func newLeftEdgeRegistry(leafEdge NodeRef) *leftEdgeRegistry {
	return &leftEdgeRegistry{edges: []NodeRef{leafEdge}}
}

// At returns the left-most node at level, or (NilRef, false) if the
// tree has not yet grown that tall.
func (r *leftEdgeRegistry) At(level int) (NodeRef, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if level < 0 || level >= len(r.edges) {
		return NilRef, false
	}
	return r.edges[level], true
}

// Append records the left-most node of a newly-created level, called
// once per root promotion (spec.md §4.6 step 6, §4.10).
func (r *leftEdgeRegistry) Append(ref NodeRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edges = append(r.edges, ref)
}

// Height returns the number of levels currently registered.
func (r *leftEdgeRegistry) Height() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.edges)
}

// rebuildLeftEdgeRegistry reconstructs the registry by descending always
// through children[0] from the root, collecting one NodeRef per level
// and reversing so index 0 is the leaf level (spec.md §4.10). Used when
// opening a tree whose root already exists (a catalog re-open).
func rebuildLeftEdgeRegistry[K any, V any](t *Tree[K, V], root NodeRef) (*leftEdgeRegistry, error) {
	var levels []NodeRef
	ref := root
	for {
		levels = append(levels, ref)
		content, err := t.nodeAt(ref).snapshot()
		if err != nil {
			return nil, err
		}
		if content.IsLeaf {
			break
		}
		ref = content.Children[0]
	}
	reversed := make([]NodeRef, len(levels))
	for i, v := range levels {
		reversed[len(levels)-1-i] = v
	}
	return &leftEdgeRegistry{edges: reversed}, nil
}
