package blinkidx

import (
	"sort"

	"github.com/oba-ldap/blinkidx/keycodec"
	"github.com/oba-ldap/blinkidx/recordengine"
)

// NodeRef addresses a node. blinkidx picks the recid-based addressing
// scheme the Design Notes offer as an alternative to a pure in-memory
// pointer/identity scheme, so that node storage can be delegated to a
// recordengine.Store (spec.md §3, "NodeRef", Design Notes).
type NodeRef = recordengine.Recid

// NilRef is the null NodeRef: an inner node's final child slot and a
// leaf's Next both use it to mean "no sibling/child here".
const NilRef NodeRef = 0

// Key is one slot of a node's key array. Sentinel is true for the
// synthetic +/-infinity marker that occupies the first slot of a
// left-most node and the last slot of a right-most node (spec.md §3,
// "Null-as-sentinel"); Value is meaningless when Sentinel is true.
type Key[K any] struct {
	Value    K
	Sentinel bool
}

// RealKey wraps an ordinary key value.
func RealKey[K any](v K) Key[K] { return Key[K]{Value: v} }

// Sentinel returns the +/-infinity marker key.
func Sentinel[K any]() Key[K] { return Key[K]{Sentinel: true} }

// NodeContent is the immutable snapshot of one node's keys, values or
// children, and sibling link (spec.md §3, §4.1). All mutation produces a
// fresh NodeContent via Clone; nothing here is mutated in place once
// installed into a Node.
type NodeContent[K any, V any] struct {
	IsLeaf bool

	// Keys has length n >= 2. Keys[0] may be the sentinel; Keys[n-1] is
	// the high-key and may be the sentinel.
	Keys []Key[K]

	// Vals has length n-2 for a leaf; Vals[i] corresponds to Keys[i+1].
	// Empty/nil for an inner node.
	Vals []V

	// Children has length n for an inner node; Children[n-1] doubles as
	// the link pointer. Empty/nil for a leaf.
	Children []NodeRef

	// Next is the right-sibling link of a leaf. It is left at NilRef for
	// an inner node, whose link is Children[n-1]; LinkNext returns the
	// link for either kind.
	Next NodeRef
}

// NewEmptyRoot builds the content of a brand-new, empty leaf root: two
// sentinel slots and no real keys. This is the tree's state immediately
// after NewTree, before the first Put.
func NewEmptyRoot[K any, V any]() *NodeContent[K, V] {
	return &NodeContent[K, V]{
		IsLeaf: true,
		Keys:   []Key[K]{Sentinel[K](), Sentinel[K]()},
	}
}

// Clone returns a deep copy suitable for a writer to mutate before
// Node.Install (spec.md §4.1, "deep_copy_locked").
func (c *NodeContent[K, V]) Clone() *NodeContent[K, V] {
	cp := &NodeContent[K, V]{IsLeaf: c.IsLeaf, Next: c.Next}
	if c.Keys != nil {
		cp.Keys = append([]Key[K](nil), c.Keys...)
	}
	if c.Vals != nil {
		cp.Vals = append([]V(nil), c.Vals...)
	}
	if c.Children != nil {
		cp.Children = append([]NodeRef(nil), c.Children...)
	}
	return cp
}

// Size returns the number of key slots, including sentinels.
func (c *NodeContent[K, V]) Size() int { return len(c.Keys) }

// HighKey returns the node's high-key slot (invariant 2).
func (c *NodeContent[K, V]) HighKey() Key[K] { return c.Keys[len(c.Keys)-1] }

// LinkNext returns the node's right-sibling link (spec.md §3, "next"):
// the Next field for a leaf, or the final child slot for an inner node,
// which "doubles as the link pointer".
func (c *NodeContent[K, V]) LinkNext() NodeRef {
	if c.IsLeaf {
		return c.Next
	}
	return c.Children[len(c.Children)-1]
}

// LeftMost reports whether this node's first key slot is the sentinel
// (invariant 6).
func (c *NodeContent[K, V]) LeftMost() bool { return c.Keys[0].Sentinel }

// RightMost reports whether this node's high-key slot is the sentinel
// (invariant 6).
func (c *NodeContent[K, V]) RightMost() bool { return c.Keys[len(c.Keys)-1].Sentinel }

// FindFirstGE implements find_first_ge_child (spec.md §4.3): the first
// index i with Keys[i] >= target under cmp. A sentinel first slot is
// treated as -infinity and skipped; a sentinel last slot is treated as
// +infinity, so it is returned whenever no real key matches.
func (c *NodeContent[K, V]) FindFirstGE(target K, cmp keycodec.Comparator[K]) int {
	keys := c.Keys
	n := len(keys)
	lo, hi := 0, n
	if keys[0].Sentinel {
		lo = 1
	}
	if keys[n-1].Sentinel {
		hi = n - 1
	}
	idx := sort.Search(hi-lo, func(i int) bool {
		return cmp(keys[lo+i].Value, target) >= 0
	})
	return lo + idx
}
