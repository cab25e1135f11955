package recordengine

import "sync"

// MemStore is an in-memory Store[V], suitable for tests, benchmarks, and
// any caller that wants a pure in-memory index with no persistence. Its
// recid allocation is a simple monotonic counter starting above
// CatalogRecid so the reserved recid is never handed out.
type MemStore[V any] struct {
	mu       sync.Mutex
	records  map[Recid][]byte
	next     Recid
	readOnly bool
	closed   bool
}

// NewMemStore creates an empty in-memory store.
func NewMemStore[V any]() *MemStore[V] {
	return &MemStore[V]{
		records: make(map[Recid][]byte),
		next:    CatalogRecid + 1,
	}
}

// NewReadOnlyMemStore wraps a snapshot of records as a read-only store.
func NewReadOnlyMemStore[V any](records map[Recid][]byte) *MemStore[V] {
	snapshot := make(map[Recid][]byte, len(records))
	for k, v := range records {
		cp := make([]byte, len(v))
		copy(cp, v)
		snapshot[k] = cp
	}
	return &MemStore[V]{records: snapshot, readOnly: true}
}

func (s *MemStore[V]) Get(recid Recid, codec Codec[V]) (V, error) {
	s.mu.Lock()
	data, ok := s.records[recid]
	s.mu.Unlock()

	var zero V
	if s.isClosed() {
		return zero, ErrStoreClosed
	}
	if !ok {
		return zero, ErrRecidNotFound
	}
	v, err := codec.DecodeValue(recid, data)
	if err != nil {
		return zero, NewEngineError("Get", recid, err)
	}
	return v, nil
}

func (s *MemStore[V]) Put(v V, codec Codec[V]) (Recid, error) {
	if s.isClosed() {
		return 0, ErrStoreClosed
	}
	if s.readOnly {
		return 0, ErrStoreReadOnly
	}
	data, err := codec.EncodeValue(v)
	if err != nil {
		return 0, NewEngineError("Put", 0, err)
	}

	s.mu.Lock()
	recid := s.next
	s.next++
	s.records[recid] = data
	s.mu.Unlock()

	return recid, nil
}

func (s *MemStore[V]) Update(recid Recid, v V, codec Codec[V]) error {
	if s.isClosed() {
		return ErrStoreClosed
	}
	if s.readOnly {
		return ErrStoreReadOnly
	}
	data, err := codec.EncodeValue(v)
	if err != nil {
		return NewEngineError("Update", recid, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[recid]; !ok && recid != CatalogRecid {
		return ErrRecidNotFound
	}
	s.records[recid] = data
	return nil
}

func (s *MemStore[V]) Delete(recid Recid) error {
	if s.isClosed() {
		return ErrStoreClosed
	}
	if s.readOnly {
		return ErrStoreReadOnly
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, recid)
	return nil
}

// Commit is a no-op: MemStore has no write-back buffer to flush.
func (s *MemStore[V]) Commit() error { return nil }

func (s *MemStore[V]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *MemStore[V]) ReadOnly() bool { return s.readOnly }

func (s *MemStore[V]) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// EnsureCatalogSlot allocates the reserved CatalogRecid slot with an empty
// payload if it is not already present. Callers that open a tree as a
// catalog (spec.md §6) use this before the tree's first RootRef write.
func (s *MemStore[V]) EnsureCatalogSlot() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[CatalogRecid]; !ok {
		s.records[CatalogRecid] = nil
	}
}
