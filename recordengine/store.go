// Package recordengine defines the storage collaborator that blinkidx's
// B-link tree consumes: an opaque mapping from an integer recid to the
// serialized bytes of one tree node.
//
// The tree never has an opinion about how a recid's bytes reach disk, a
// remote store, or nowhere at all. It only calls Get/Put/Update against
// the Store contract, plus Close from Tree.Close. This package ships two reference
// implementations (MemStore, FileStore) that satisfy the contract; neither
// is required by blinkidx itself.
package recordengine

import (
	"github.com/cockroachdb/errors"
)

// Recid identifies one stored record. Recid 0 is never a valid allocated
// record; it is used as a null/tombstone marker by the tree's node codec.
type Recid int64

// CatalogRecid is the reserved recid a Store uses to hold a tree's RootRef
// pointer when the tree is opened as a catalog (spec.md §6).
const CatalogRecid Recid = 1

// Codec encodes and decodes a value of type V to and from bytes. NodeCodec
// in the root package implements this for *blinkidx.NodeContent.
type Codec[V any] interface {
	EncodeValue(v V) ([]byte, error)
	DecodeValue(recid Recid, data []byte) (V, error)
}

// Store is the record-engine contract blinkidx's tree consumes. Any backend
// satisfying it is acceptable: an in-memory map, a page file, a remote
// object store fronted by a write-back cache.
type Store[V any] interface {
	// Get reads the record at recid and decodes it with codec.
	Get(recid Recid, codec Codec[V]) (V, error)
	// Put encodes v with codec, allocates a fresh recid, and stores it.
	Put(v V, codec Codec[V]) (Recid, error)
	// Update encodes v with codec and overwrites the record at recid.
	// recid must already have been allocated by Put.
	Update(recid Recid, v V, codec Codec[V]) error
	// Delete releases recid. Implementations may reuse it for a future Put.
	Delete(recid Recid) error
	// Commit makes all prior Put/Update/Delete calls durable, to whatever
	// degree the backend promises. blinkidx never requires this to be
	// called; it is a hook for backends that batch writes.
	Commit() error
	// Close releases any resources held by the store.
	Close() error
	// ReadOnly reports whether the store rejects mutation.
	ReadOnly() bool
}

// Errors a Store implementation is expected to return.
var (
	ErrRecidNotFound  = errors.New("recordengine: recid not found")
	ErrStoreReadOnly  = errors.New("recordengine: store is read-only")
	ErrStoreClosed    = errors.New("recordengine: store is closed")
	ErrInvalidRecid   = errors.New("recordengine: invalid recid")
	ErrCorruptedEntry = errors.New("recordengine: decoded entry failed checksum")
)

// EngineError wraps a failure returned by the underlying I/O layer of a
// Store implementation (spec.md §7, "engine-error").
type EngineError struct {
	Op    string
	Recid Recid
	Err   error
}

func (e *EngineError) Error() string {
	return errors.Wrapf(e.Err, "recordengine: %s(recid=%d)", e.Op, e.Recid).Error()
}

func (e *EngineError) Unwrap() error { return e.Err }

// NewEngineError wraps err as an EngineError for the given operation and
// recid. Returns nil if err is nil.
func NewEngineError(op string, recid Recid, err error) error {
	if err == nil {
		return nil
	}
	return &EngineError{Op: op, Recid: recid, Err: err}
}
