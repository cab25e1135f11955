package recordengine

import (
	"encoding/binary"
	"io"
	"os"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
)

// recordHeaderSize is the on-disk framing for one FileStore entry:
// recid (8 bytes) | payload length (4 bytes) | xxhash64 checksum (8 bytes).
const recordHeaderSize = 8 + 4 + 8

// FileStore is a minimal append-only, recid-addressed Store[V] backed by a
// single file. Each Put/Update appends a fresh, checksummed frame; Get
// consults an in-memory offset index built by scanning the file once at
// open time. FileStore provides no write-ahead log, no crash-recovery
// pass beyond truncating a trailing partial frame, and no space reclamation
// for superseded frames — spec.md places any durability guarantee beyond
// "the record engine offers one" out of scope for the tree itself, so this
// reference implementation stays intentionally small.
type FileStore[V any] struct {
	mu       sync.Mutex
	f        *os.File
	index    map[Recid]int64 // recid -> frame start offset
	next     Recid
	readOnly bool
}

// OpenFileStore opens (creating if necessary) a FileStore at path.
func OpenFileStore[V any](path string, readOnly bool) (*FileStore[V], error) {
	flags := os.O_RDWR | os.O_CREATE
	if readOnly {
		flags = os.O_RDONLY
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, NewEngineError("Open", 0, err)
	}

	s := &FileStore[V]{
		f:        f,
		index:    make(map[Recid]int64),
		next:     CatalogRecid + 1,
		readOnly: readOnly,
	}
	if err := s.rebuildIndex(); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

// rebuildIndex scans the file from the start, recording the offset of the
// last frame seen for each recid. A short/corrupt trailing frame is
// treated as an unfinished write, mirroring how a write-ahead log
// tolerates a torn final record: it is not indexed, and a writable store
// truncates the file back to the end of the last good frame so later
// appends follow it.
func (s *FileStore[V]) rebuildIndex() error {
	var offset int64
	header := make([]byte, recordHeaderSize)

	for {
		n, err := s.f.ReadAt(header, offset)
		if err == io.EOF && n < recordHeaderSize {
			break
		}
		if err != nil && err != io.EOF {
			return NewEngineError("rebuildIndex", 0, err)
		}
		if n < recordHeaderSize {
			break
		}

		recid := Recid(binary.LittleEndian.Uint64(header[0:8]))
		length := binary.LittleEndian.Uint32(header[8:12])
		wantSum := binary.LittleEndian.Uint64(header[12:20])

		payload := make([]byte, length)
		if _, err := s.f.ReadAt(payload, offset+recordHeaderSize); err != nil {
			// Torn write at end of file: stop, don't index this frame.
			break
		}
		if xxhash.Sum64(payload) != wantSum {
			break
		}

		s.index[recid] = offset
		if recid >= s.next {
			s.next = recid + 1
		}
		offset += int64(recordHeaderSize) + int64(length)
	}

	if !s.readOnly {
		if err := s.f.Truncate(offset); err != nil {
			return NewEngineError("rebuildIndex", 0, err)
		}
	}
	return nil
}

func (s *FileStore[V]) Get(recid Recid, codec Codec[V]) (V, error) {
	var zero V

	s.mu.Lock()
	offset, ok := s.index[recid]
	s.mu.Unlock()
	if !ok {
		return zero, ErrRecidNotFound
	}

	payload, err := s.readFrame(offset)
	if err != nil {
		return zero, err
	}
	v, err := codec.DecodeValue(recid, payload)
	if err != nil {
		return zero, NewEngineError("Get", recid, err)
	}
	return v, nil
}

func (s *FileStore[V]) readFrame(offset int64) ([]byte, error) {
	header := make([]byte, recordHeaderSize)
	if _, err := s.f.ReadAt(header, offset); err != nil {
		return nil, NewEngineError("readFrame", 0, err)
	}
	length := binary.LittleEndian.Uint32(header[8:12])
	wantSum := binary.LittleEndian.Uint64(header[12:20])

	payload := make([]byte, length)
	if _, err := s.f.ReadAt(payload, offset+recordHeaderSize); err != nil {
		return nil, NewEngineError("readFrame", 0, err)
	}
	if xxhash.Sum64(payload) != wantSum {
		return nil, ErrCorruptedEntry
	}
	return payload, nil
}

func (s *FileStore[V]) Put(v V, codec Codec[V]) (Recid, error) {
	if s.readOnly {
		return 0, ErrStoreReadOnly
	}
	data, err := codec.EncodeValue(v)
	if err != nil {
		return 0, NewEngineError("Put", 0, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	recid := s.next
	s.next++
	offset, err := s.appendFrame(recid, data)
	if err != nil {
		return 0, err
	}
	s.index[recid] = offset
	return recid, nil
}

func (s *FileStore[V]) Update(recid Recid, v V, codec Codec[V]) error {
	if s.readOnly {
		return ErrStoreReadOnly
	}
	data, err := codec.EncodeValue(v)
	if err != nil {
		return NewEngineError("Update", recid, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	offset, err := s.appendFrame(recid, data)
	if err != nil {
		return err
	}
	s.index[recid] = offset
	return nil
}

// appendFrame writes one frame at the end of the file. Caller holds s.mu.
func (s *FileStore[V]) appendFrame(recid Recid, payload []byte) (int64, error) {
	end, err := s.f.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, NewEngineError("appendFrame", recid, err)
	}

	frame := make([]byte, recordHeaderSize+len(payload))
	binary.LittleEndian.PutUint64(frame[0:8], uint64(recid))
	binary.LittleEndian.PutUint32(frame[8:12], uint32(len(payload)))
	binary.LittleEndian.PutUint64(frame[12:20], xxhash.Sum64(payload))
	copy(frame[recordHeaderSize:], payload)

	if _, err := s.f.WriteAt(frame, end); err != nil {
		return 0, NewEngineError("appendFrame", recid, err)
	}
	return end, nil
}

func (s *FileStore[V]) Delete(recid Recid) error {
	if s.readOnly {
		return ErrStoreReadOnly
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.index, recid)
	return nil
}

// Commit fsyncs the backing file.
func (s *FileStore[V]) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.f.Sync(); err != nil {
		return NewEngineError("Commit", 0, err)
	}
	return nil
}

func (s *FileStore[V]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.f.Close(); err != nil {
		return errors.Wrap(err, "recordengine: close")
	}
	return nil
}

func (s *FileStore[V]) ReadOnly() bool { return s.readOnly }
