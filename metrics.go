package blinkidx

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// ModKind classifies a tree mutation for a ModificationListener.
type ModKind int

const (
	ModPut ModKind = iota
	ModUpdate
	ModRemove
)

func (k ModKind) String() string {
	switch k {
	case ModPut:
		return "put"
	case ModUpdate:
		return "update"
	case ModRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// ModificationListener is notified after a mutation's content has
// already been installed (spec.md §4.6, §7: "listener is notified after
// install"), off the critical path of the node lock. A panicking
// listener propagates to the caller, but the tree's own state is
// already committed by that point.
type ModificationListener[K any, V any] func(kind ModKind, key K, value V)

// OptionalCounter is an atomic live-entry count, updated from the tree's
// modification notifications (Tree.notify) so Tree.Len answers in O(1) instead of a
// leaf-chain walk (spec.md §3, "OptionalCounter"). It is optional: a
// Tree opened without one falls back to counting via Stats().
type OptionalCounter struct {
	n     int64
	gauge prometheus.Gauge
}

// NewOptionalCounter creates a counter starting at zero, optionally
// reporting itself through gauge (pass nil to skip metrics export).
func NewOptionalCounter(gauge prometheus.Gauge) *OptionalCounter {
	return &OptionalCounter{gauge: gauge}
}

func (c *OptionalCounter) inc() {
	n := atomic.AddInt64(&c.n, 1)
	if c.gauge != nil {
		c.gauge.Set(float64(n))
	}
}

func (c *OptionalCounter) dec() {
	n := atomic.AddInt64(&c.n, -1)
	if c.gauge != nil {
		c.gauge.Set(float64(n))
	}
}

// Load returns the current count.
func (c *OptionalCounter) Load() int64 {
	return atomic.LoadInt64(&c.n)
}

// listen updates the count for one mutation. Tree.notify calls it
// before any caller-supplied listener.
func (c *OptionalCounter) listen(kind ModKind, wasPresent bool) {
	switch kind {
	case ModPut:
		if !wasPresent {
			c.inc()
		}
	case ModRemove:
		c.dec()
	}
}

// OpMetrics is a small set of prometheus counters tracking tree
// activity: operation counts, split/move-right counts, and node
// reads/writes against the record engine. Created via NewOpMetrics and
// registered by the caller;
// a Tree opened without one (nil) simply skips the instrumentation.
type OpMetrics struct {
	Ops        *prometheus.CounterVec
	Splits     prometheus.Counter
	MoveRights prometheus.Counter
	NodeReads  prometheus.Counter
	NodeWrites prometheus.Counter
}

// NewOpMetrics constructs an OpMetrics under the given namespace, ready
// to be passed to a prometheus.Registerer by the caller.
func NewOpMetrics(namespace string) *OpMetrics {
	return &OpMetrics{
		Ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "blinkidx",
			Name:      "ops_total",
			Help:      "Count of tree operations by kind (get, put, remove).",
		}, []string{"op"}),
		Splits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "blinkidx",
			Name:      "splits_total",
			Help:      "Count of node splits performed during Put.",
		}),
		MoveRights: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "blinkidx",
			Name:      "move_rights_total",
			Help:      "Count of move-right sibling hops during descent refinement.",
		}),
		NodeReads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "blinkidx",
			Name:      "node_reads_total",
			Help:      "Count of node snapshots fetched from the record engine (cache misses).",
		}),
		NodeWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "blinkidx",
			Name:      "node_writes_total",
			Help:      "Count of node installs written to the record engine.",
		}),
	}
}

// Collectors returns every metric for bulk registration with a
// prometheus.Registerer.
func (m *OpMetrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.Ops, m.Splits, m.MoveRights, m.NodeReads, m.NodeWrites}
}
