package blinkidx

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLockTableMutexForIsPerNode(t *testing.T) {
	table := newLockTable()

	table.Lock(NodeRef(1))
	unlocked := make(chan struct{})
	go func() {
		table.Lock(NodeRef(2))
		table.Unlock(NodeRef(2))
		close(unlocked)
	}()
	<-unlocked // a distinct node's lock must never block on node 1's

	table.Unlock(NodeRef(1))
}

func TestHeldLocksTracksAcquisitionOrder(t *testing.T) {
	table := newLockTable()
	h := newHeldLocks(table)

	h.Lock(NodeRef(1))
	h.Lock(NodeRef(2))
	require.Equal(t, []NodeRef{1, 2}, h.refs)

	h.Unlock(NodeRef(1))
	require.Equal(t, []NodeRef{2}, h.refs)

	h.Unlock(NodeRef(2))
	require.Empty(t, h.refs)
}

func TestHeldLocksDoubleLockPanics(t *testing.T) {
	table := newLockTable()
	h := newHeldLocks(table)
	h.Lock(NodeRef(1))
	defer h.sweep()

	require.Panics(t, func() { h.Lock(NodeRef(1)) })
}

func TestHeldLocksSweepReleasesEverything(t *testing.T) {
	table := newLockTable()
	h := newHeldLocks(table)
	h.Lock(NodeRef(1))
	h.Lock(NodeRef(2))
	h.Lock(NodeRef(3))

	h.sweep()
	require.Empty(t, h.refs)

	// every node must be unlockable again, proving sweep released all three
	other := newHeldLocks(table)
	other.Lock(NodeRef(1))
	other.Lock(NodeRef(2))
	other.Lock(NodeRef(3))
	other.sweep()
}

func TestHeldLocksSweepRunsUnderPanicRecover(t *testing.T) {
	table := newLockTable()
	h := newHeldLocks(table)

	func() {
		defer h.sweep()
		defer func() { recover() }()
		h.Lock(NodeRef(1))
		h.Lock(NodeRef(2))
		panic("simulated comparator panic")
	}()

	// both nodes must be free again despite the panic
	fresh := newHeldLocks(table)
	fresh.Lock(NodeRef(1))
	fresh.Lock(NodeRef(2))
	fresh.sweep()
}
