package blinkidx

import (
	"sync/atomic"

	"github.com/cockroachdb/errors"

	"github.com/oba-ldap/blinkidx/keycodec"
	"github.com/oba-ldap/blinkidx/recordengine"
)

const (
	defaultCacheSize  = 4096
	minMaxNodeSize    = 6
	maxMaxNodeSize    = 126
	rootRefLockKey    = NodeRef(-1) // synthetic key locking the RootRef cell, never a real node
)

// rootCell is a single-indirection, atomically-swapped pointer to the
// current root's NodeRef, so that root promotion is one atomic update
// observable to every reader (spec.md §3, "RootRef").
type rootCell struct {
	v atomic.Int64
}

func (r *rootCell) Load() NodeRef    { return NodeRef(r.v.Load()) }
func (r *rootCell) Store(ref NodeRef) { r.v.Store(int64(ref)) }

// TreeStats is a point-in-time, weakly-consistent snapshot obtained by
// walking the leaf chain (spec.md Design Notes; grounded on the
// teacher's BPlusTree.Stats).
type TreeStats struct {
	Height    int
	LeafCount int
	TotalKeys int
}

// Options configures a Tree. MaxNodeSize, Comparator, Keys, and Store
// are required; Values is required unless ValueMode is NoValueDomain,
// and ValueStore when ValueMode is ValuesOutsideNodes. Everything else
// has a workable zero value.
type Options[K any, V any] struct {
	// MaxNodeSize is B, the tree-wide max live-entry bound (invariant
	// 5): even, 6 <= B <= 126.
	MaxNodeSize int

	Comparator keycodec.Comparator[K]
	Keys       keycodec.KeySerializer[K]
	Values     keycodec.ValueSerializer[V]
	ValueMode  ValueMode
	ValueStore recordengine.Store[V] // required iff ValueMode == ValuesOutsideNodes

	Store     recordengine.Store[*NodeContent[K, V]]
	CacheSize int // NodeCache capacity; 0 means defaultCacheSize

	Listener ModificationListener[K, V]
	Counter  *OptionalCounter
	Metrics  *OpMetrics

	// UseCatalogRecid persists the RootRef at recordengine.CatalogRecid
	// on every root promotion, so a later Open against the same Store
	// picks the tree back up (spec.md §6, "used as a catalog").
	UseCatalogRecid bool
}

func (o *Options[K, V]) validate() error {
	if o.MaxNodeSize < minMaxNodeSize || o.MaxNodeSize > maxMaxNodeSize || o.MaxNodeSize%2 != 0 {
		return ErrInvalidMaxNodeSize
	}
	if o.Comparator == nil {
		return errors.New("blinkidx: Options.Comparator is required")
	}
	if o.Keys == nil {
		return errors.New("blinkidx: Options.Keys is required")
	}
	if o.Store == nil {
		return errors.New("blinkidx: Options.Store is required")
	}
	if o.ValueMode == ValuesOutsideNodes && o.ValueStore == nil {
		return errors.New("blinkidx: Options.ValueStore is required when ValueMode is ValuesOutsideNodes")
	}
	if o.ValueMode != NoValueDomain && o.Values == nil {
		return errors.New("blinkidx: Options.Values is required unless ValueMode is NoValueDomain")
	}
	return nil
}

// Tree is the concurrent, ordered key-value index (spec.md §1-§5). The
// zero value is not usable; construct one with NewTree or Open.
type Tree[K any, V any] struct {
	comparator keycodec.Comparator[K]
	codec      *NodeCodec[K, V]
	store      recordengine.Store[*NodeContent[K, V]]
	cache      *recordengine.NodeCache[*NodeContent[K, V]]
	locks      *lockTable

	root       rootCell
	leftEdges  *leftEdgeRegistry
	maxNodeSize int

	listener        ModificationListener[K, V]
	counter         *OptionalCounter
	metrics         *OpMetrics
	useCatalogRecid bool
}

// NewTree creates a brand-new tree with a single, empty leaf root.
func NewTree[K any, V any](opts Options[K, V]) (*Tree[K, V], error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	codec := &NodeCodec[K, V]{
		Keys:       opts.Keys,
		Values:     opts.Values,
		Mode:       opts.ValueMode,
		ValueStore: opts.ValueStore,
	}

	cacheSize := opts.CacheSize
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}

	t := &Tree[K, V]{
		comparator:      opts.Comparator,
		codec:           codec,
		store:           opts.Store,
		cache:           recordengine.NewNodeCache[*NodeContent[K, V]](cacheSize),
		locks:           newLockTable(),
		maxNodeSize:     opts.MaxNodeSize,
		listener:        opts.Listener,
		counter:         opts.Counter,
		metrics:         opts.Metrics,
		useCatalogRecid: opts.UseCatalogRecid,
	}

	rootContent := NewEmptyRoot[K, V]()
	ref, err := t.createNode(rootContent)
	if err != nil {
		return nil, errors.Wrap(err, "blinkidx: create empty root")
	}
	t.root.Store(ref)
	t.leftEdges = newLeftEdgeRegistry(ref)

	if t.useCatalogRecid {
		if err := t.persistRootRef(); err != nil {
			return nil, err
		}
	}

	return t, nil
}

// Open reopens a tree previously persisted with UseCatalogRecid, reading
// the root pointer back from recordengine.CatalogRecid and rebuilding
// the LeftEdgeRegistry by descending via children[0] (spec.md §4.10).
func Open[K any, V any](opts Options[K, V]) (*Tree[K, V], error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if !opts.UseCatalogRecid {
		return nil, errors.New("blinkidx: Open requires Options.UseCatalogRecid")
	}

	codec := &NodeCodec[K, V]{
		Keys:       opts.Keys,
		Values:     opts.Values,
		Mode:       opts.ValueMode,
		ValueStore: opts.ValueStore,
	}

	cacheSize := opts.CacheSize
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}

	t := &Tree[K, V]{
		comparator:      opts.Comparator,
		codec:           codec,
		store:           opts.Store,
		cache:           recordengine.NewNodeCache[*NodeContent[K, V]](cacheSize),
		locks:           newLockTable(),
		maxNodeSize:     opts.MaxNodeSize,
		listener:        opts.Listener,
		counter:         opts.Counter,
		metrics:         opts.Metrics,
		useCatalogRecid: true,
	}

	pointer, err := t.store.Get(recordengine.CatalogRecid, t.codec)
	if err != nil {
		return nil, errors.Wrap(err, "blinkidx: read root pointer from catalog recid")
	}
	t.root.Store(pointer.Next)

	leftEdges, err := rebuildLeftEdgeRegistry(t, pointer.Next)
	if err != nil {
		return nil, errors.Wrap(err, "blinkidx: rebuild left-edge registry")
	}
	t.leftEdges = leftEdges

	return t, nil
}

// persistRootRef writes the current root ref into recordengine.CatalogRecid
// as a thin pointer record: an otherwise-empty leaf content whose Next
// field carries the actual root NodeRef.
func (t *Tree[K, V]) persistRootRef() error {
	pointer := &NodeContent[K, V]{
		IsLeaf: true,
		Keys:   []Key[K]{Sentinel[K](), Sentinel[K]()},
		Next:   t.root.Load(),
	}
	return t.store.Update(recordengine.CatalogRecid, pointer, t.codec)
}

func (t *Tree[K, V]) notify(kind ModKind, key K, value V, wasPresent bool) {
	if t.counter != nil {
		t.counter.listen(kind, wasPresent)
	}
	if t.metrics != nil {
		switch kind {
		case ModPut:
			t.metrics.Ops.WithLabelValues("put").Inc()
		case ModUpdate:
			t.metrics.Ops.WithLabelValues("put").Inc()
		case ModRemove:
			t.metrics.Ops.WithLabelValues("remove").Inc()
		}
	}
	if t.listener != nil {
		t.listener(kind, key, value)
	}
}

// Contains reports whether key is present.
func (t *Tree[K, V]) Contains(key K) (bool, error) {
	_, ok, err := t.Get(key)
	return ok, err
}

// First returns the smallest live key and its value.
func (t *Tree[K, V]) First() (key K, value V, ok bool, err error) {
	it, err := t.Iterator(ScanBounds[K]{})
	if err != nil {
		return key, value, false, err
	}
	defer it.Close()
	if it.Next() {
		return it.Key(), it.Value(), true, nil
	}
	return key, value, false, it.Err()
}

// Last returns the largest live key and its value, found by walking the
// leaf sibling chain to its end (spec.md Design Notes; O(n), matching
// the teacher's own Last()).
func (t *Tree[K, V]) Last() (key K, value V, ok bool, err error) {
	it, err := t.Iterator(ScanBounds[K]{})
	if err != nil {
		return key, value, false, err
	}
	defer it.Close()
	for it.Next() {
		key, value, ok = it.Key(), it.Value(), true
	}
	if err := it.Err(); err != nil {
		return key, value, false, err
	}
	return key, value, ok, nil
}

// Stats walks the leaf chain once, counting leaves and live keys, and
// reports the tree's height via the LeftEdgeRegistry (spec.md Design
// Notes; grounded on the teacher's BPlusTree.Stats). Weakly consistent,
// like a range scan.
func (t *Tree[K, V]) Stats() (TreeStats, error) {
	ref, ok := t.leftEdges.At(0)
	if !ok {
		return TreeStats{}, errors.New("blinkidx: left-edge registry has no leaf entry")
	}
	stats := TreeStats{Height: t.leftEdges.Height()}
	for ref != NilRef {
		content, err := t.nodeAt(ref).snapshot()
		if err != nil {
			return TreeStats{}, err
		}
		stats.LeafCount++
		stats.TotalKeys += len(content.Vals)
		ref = content.Next
	}
	return stats, nil
}

// Len reports the number of live entries, using the OptionalCounter if
// one was configured, or falling back to a full Stats() walk otherwise.
func (t *Tree[K, V]) Len() (int64, error) {
	if t.counter != nil {
		return t.counter.Load(), nil
	}
	stats, err := t.Stats()
	if err != nil {
		return 0, err
	}
	return int64(stats.TotalKeys), nil
}

// Close releases the tree's underlying store (and value store, if
// configured separately for ValuesOutsideNodes mode).
func (t *Tree[K, V]) Close() error {
	if t.codec.ValueStore != nil {
		if err := t.codec.ValueStore.Close(); err != nil {
			return err
		}
	}
	return t.store.Close()
}
